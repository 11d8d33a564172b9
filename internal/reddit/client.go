package reddit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"github.com/letieu/goldmines/config"
	"github.com/letieu/goldmines/internal/apperror"
	"github.com/letieu/goldmines/internal/model"
)

const (
	defaultBaseURL   = "https://www.reddit.com"
	defaultUserAgent = "linux:goldmines-crawler:v1.0.0 (by /u/tieu_le_dev)"
	minTitleLen      = 10
	maxPageSize      = 100
)

type RedditClient struct {
	transport Transport
	userAgent string
	baseURL   string

	feeds    []string
	window   string
	maxPages int

	pacer   *rate.Limiter
	backoff time.Duration
	// backoffPending is set after a 429 and consumed before the next request.
	backoffPending bool
	sleep          func(ctx context.Context, d time.Duration) error

	logger *slog.Logger
}

type listingResponse struct {
	Data struct {
		After    string `json:"after"`
		Children []struct {
			Data redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditPost struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Selftext    string  `json:"selftext"`
	Body        string  `json:"body"`
	Author      string  `json:"author"`
	Subreddit   string  `json:"subreddit"`
	URL         string  `json:"url"`
	Permalink   string  `json:"permalink"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	CreatedUTC  float64 `json:"created_utc"`
}

func NewClient(transport Transport, cfg config.Crawler, logger *slog.Logger) *RedditClient {
	feeds := cfg.Feeds
	if len(feeds) == 0 {
		feeds = config.DefaultFeeds
	}
	window := cfg.TimeWindow
	if window == "" {
		window = "month"
	}
	maxPages := cfg.MaxPages
	if maxPages <= 0 {
		maxPages = 1
	}

	pacer := rate.NewLimiter(rate.Inf, 1)
	if cfg.InterFeedDelay > 0 {
		pacer = rate.NewLimiter(rate.Every(cfg.InterFeedDelay), 1)
	}

	return &RedditClient{
		transport: transport,
		userAgent: defaultUserAgent,
		baseURL:   defaultBaseURL,
		feeds:     feeds,
		window:    window,
		maxPages:  maxPages,
		pacer:     pacer,
		backoff:   cfg.RateLimitBackoff,
		sleep:     sleepContext,
		logger:    logger,
	}
}

// Fetch collects up to limitPerFeed valid top posts from each feed, in feed
// order. A failing feed is logged and contributes nothing.
func (r *RedditClient) Fetch(ctx context.Context, feeds []string, limitPerFeed int) ([]model.SourcePost, error) {
	if limitPerFeed < 1 {
		return nil, apperror.ValidationFailed("limit_per_feed", "limit per feed must be at least 1")
	}
	if len(feeds) == 0 {
		feeds = r.feeds
	}

	var posts []model.SourcePost
	for _, feed := range feeds {
		got, err := r.fetchFeed(ctx, feed, limitPerFeed)
		posts = append(posts, got...)
		if err != nil {
			if ctx.Err() != nil {
				return posts, ctx.Err()
			}
			r.logger.Warn("feed fetch failed",
				slog.String("feed", feed),
				slog.Int("accepted", len(got)),
				slog.Bool("rate_limited", IsRateLimited(err)),
				slog.String("error", err.Error()),
			)
			continue
		}
		r.logger.Info("feed fetched", slog.String("feed", feed), slog.Int("accepted", len(got)))
	}
	return posts, nil
}

func (r *RedditClient) fetchFeed(ctx context.Context, feed string, limit int) ([]model.SourcePost, error) {
	var (
		accepted []model.SourcePost
		after    string
	)

	pageSize := min(limit, maxPageSize)

	for page := 0; page < r.maxPages; page++ {
		q := url.Values{}
		q.Set("t", r.window)
		q.Set("limit", fmt.Sprint(pageSize))
		if after != "" {
			q.Set("after", after)
		}
		endpoint := fmt.Sprintf("%s/r/%s/top.json?%s", r.baseURL, url.PathEscape(feed), q.Encode())

		var listing listingResponse
		if err := r.getJSON(ctx, endpoint, &listing); err != nil {
			return accepted, err
		}

		for _, c := range listing.Data.Children {
			p := c.Data
			if utf8.RuneCountInString(p.Title) < minTitleLen {
				continue
			}
			accepted = append(accepted, toSourcePost(p, feed))
			if len(accepted) >= limit {
				return accepted, nil
			}
		}

		after = listing.Data.After
		if after == "" || len(listing.Data.Children) == 0 {
			break
		}
	}
	return accepted, nil
}

// FetchComments returns the top-level comments of a post.
func (r *RedditClient) FetchComments(ctx context.Context, feed, postID string) ([]model.SourcePost, error) {
	endpoint := fmt.Sprintf("%s/r/%s/comments/%s.json", r.baseURL, url.PathEscape(feed), url.PathEscape(postID))

	var data []listingResponse
	if err := r.getJSON(ctx, endpoint, &data); err != nil {
		return nil, err
	}

	if len(data) < 2 {
		return []model.SourcePost{}, nil
	}

	var comments []model.SourcePost
	for _, c := range data[1].Data.Children {
		p := c.Data
		if p.Body == "" || p.Body == "[deleted]" || p.Body == "[removed]" {
			continue
		}
		post := toSourcePost(p, feed)
		post.Body = p.Body
		comments = append(comments, post)
	}
	return comments, nil
}

// getJSON paces the request, honours a pending rate-limit backoff and
// decodes a successful body into out.
func (r *RedditClient) getJSON(ctx context.Context, endpoint string, out any) error {
	if r.backoffPending {
		r.backoffPending = false
		r.logger.Info("backing off after rate limit", slog.Duration("delay", r.backoff))
		if err := r.sleep(ctx, r.backoff); err != nil {
			return err
		}
	}
	if err := r.pacer.Wait(ctx); err != nil {
		return err
	}

	resp, err := r.transport.Get(ctx, endpoint, r.userAgent)
	if err != nil {
		return fmt.Errorf("reddit request: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		r.backoffPending = true
		return apperror.RateLimited("reddit")
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("reddit error %d: %s", resp.StatusCode, truncate(resp.Body, 200))
	}

	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("decode reddit listing: %w", err)
	}
	return nil
}

func toSourcePost(p redditPost, feed string) model.SourcePost {
	if p.Subreddit != "" {
		feed = p.Subreddit
	}
	permalink := ""
	if p.Permalink != "" {
		permalink = "https://reddit.com" + p.Permalink
	}
	return model.SourcePost{
		ExternalID:  p.ID,
		Title:       p.Title,
		Body:        p.Selftext,
		Feed:        feed,
		Score:       p.Score,
		NumComments: p.NumComments,
		URL:         p.URL,
		Permalink:   permalink,
		CreatedUTC:  int64(p.CreatedUTC),
		Author:      p.Author,
	}
}

// IsRateLimited reports whether err came from upstream throttling.
func IsRateLimited(err error) bool {
	return errors.Is(err, apperror.ErrRateLimited)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
