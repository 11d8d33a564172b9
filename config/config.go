package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

type Config struct {
	LLM struct {
		Provider string // "mistral" or "gemini"
		APIKey   string
		Model    string
		BaseURL  string
		Timeout  time.Duration
	}
	Database struct {
		Type  string // "sqlite" or "libsql"
		Path  string
		URL   string
		Token string
	}
	Server struct {
		Port int
	}
	Auth struct {
		JWTSecret string
		TokenTTL  time.Duration
	}
	Log struct {
		Level  string
		Format string
	}
	Metrics struct {
		// Addr is where the crawler serves /metrics. Empty disables it; the
		// HTTP server exposes its own /metrics route regardless.
		Addr string
	}
	Crawler Crawler
}

// Crawler holds the ingestion settings. Feeds and keywords are data, not code.
type Crawler struct {
	Feeds            []string
	Keywords         []string
	LimitPerFeed     int
	TimeWindow       string
	MaxPages         int
	InterFeedDelay   time.Duration
	RateLimitBackoff time.Duration
	ExpandMetaPosts  bool
	MetaKeywords     []string
	Schedule         string
}

var DefaultFeeds = []string{
	"Entrepreneur",
	"startups",
	"SideProject",
	"smallbusiness",
	"business",
	"EntrepreneurRideAlong",
	"indiehackers",
	"SaaS",
}

var DefaultKeywords = []string{
	"business", "startup", "entrepreneur", "saas", "app", "product",
	"service", "company", "market", "revenue", "profit", "customer",
	"client", "user", "idea", "opportunity", "venture", "investment",
	"funding", "launch", "indie", "side hustle", "passive income",
	"freelance", "consulting",
}

func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("goldmines")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := FromViper(v)

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.LLM.Provider = strings.ToLower(v.GetString("llm.provider"))
	cfg.LLM.APIKey = v.GetString("llm.api_key")
	cfg.LLM.Model = v.GetString("llm.model")
	cfg.LLM.BaseURL = v.GetString("llm.base_url")
	cfg.LLM.Timeout = v.GetDuration("llm.timeout")

	cfg.Database.Type = strings.ToLower(v.GetString("database.type"))
	cfg.Database.Path = v.GetString("database.path")
	cfg.Database.URL = v.GetString("database.url")
	cfg.Database.Token = v.GetString("database.token")

	cfg.Server.Port = v.GetInt("server.port")

	cfg.Auth.JWTSecret = v.GetString("auth.jwt_secret")
	cfg.Auth.TokenTTL = v.GetDuration("auth.token_ttl")

	cfg.Log.Level = v.GetString("log.level")
	cfg.Log.Format = v.GetString("log.format")

	cfg.Metrics.Addr = v.GetString("metrics.addr")

	cfg.Crawler.Feeds = v.GetStringSlice("crawler.feeds")
	cfg.Crawler.Keywords = v.GetStringSlice("crawler.keywords")
	cfg.Crawler.LimitPerFeed = v.GetInt("crawler.limit_per_feed")
	cfg.Crawler.TimeWindow = v.GetString("crawler.time_window")
	cfg.Crawler.MaxPages = v.GetInt("crawler.max_pages")
	cfg.Crawler.InterFeedDelay = v.GetDuration("crawler.inter_feed_delay")
	cfg.Crawler.RateLimitBackoff = v.GetDuration("crawler.rate_limit_backoff")
	cfg.Crawler.ExpandMetaPosts = v.GetBool("crawler.expand_meta_posts")
	cfg.Crawler.MetaKeywords = v.GetStringSlice("crawler.meta_keywords")
	cfg.Crawler.Schedule = v.GetString("crawler.schedule")

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("llm.provider", "mistral")
	v.SetDefault("llm.timeout", 60*time.Second)

	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.path", "goldmines.db")

	v.SetDefault("server.port", 8080)

	v.SetDefault("auth.token_ttl", 24*time.Hour)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("metrics.addr", ":9091")

	v.SetDefault("crawler.feeds", DefaultFeeds)
	v.SetDefault("crawler.keywords", DefaultKeywords)
	v.SetDefault("crawler.limit_per_feed", 10)
	v.SetDefault("crawler.time_window", "month")
	v.SetDefault("crawler.max_pages", 5)
	v.SetDefault("crawler.inter_feed_delay", 2*time.Second)
	v.SetDefault("crawler.rate_limit_backoff", 60*time.Second)
	v.SetDefault("crawler.expand_meta_posts", false)
	v.SetDefault("crawler.meta_keywords", []string{
		"share what you're building",
		"share what you are building",
		"show off your project",
		"what are you working on",
		"share your startup",
		"show your side project",
	})
	v.SetDefault("crawler.schedule", "")
}

// Validate checks the settings every command relies on. Commands that call
// the language model also need ValidateLLM.
func Validate(cfg *Config) error {
	switch cfg.LLM.Provider {
	case "mistral", "gemini":
	default:
		return fmt.Errorf("llm.provider must be mistral or gemini, got %q", cfg.LLM.Provider)
	}

	switch cfg.Database.Type {
	case "sqlite":
		if cfg.Database.Path == "" {
			return fmt.Errorf("database.path is required")
		}
	case "libsql":
		if cfg.Database.URL == "" {
			return fmt.Errorf("database.url is required")
		}
	default:
		return fmt.Errorf("database.type must be sqlite or libsql, got %q", cfg.Database.Type)
	}

	if cfg.Crawler.LimitPerFeed < 1 {
		return fmt.Errorf("crawler.limit_per_feed must be at least 1")
	}
	if cfg.Crawler.Schedule != "" {
		if _, err := cron.ParseStandard(cfg.Crawler.Schedule); err != nil {
			return fmt.Errorf("crawler.schedule: %w", err)
		}
	}
	return nil
}

func ValidateLLM(cfg *Config) error {
	if cfg.LLM.APIKey == "" {
		return fmt.Errorf("llm.api_key is required")
	}
	return nil
}
