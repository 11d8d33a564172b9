package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/letieu/goldmines/config"
	"github.com/letieu/goldmines/internal/apperror"
	"github.com/letieu/goldmines/internal/model"
)

// Completer sends a prompt to a language model and returns the raw text of
// its answer. schema describes the JSON object the answer must follow.
type Completer interface {
	Complete(ctx context.Context, prompt string, schema map[string]any) (string, error)
}

type Analyzer struct {
	completer Completer
	timeout   time.Duration
	logger    *slog.Logger
}

const PROMPT = `
Analyze the following Reddit post (or a description written by a user) and extract ONE business idea from it.

Return a JSON object with EXACTLY these fields:
idea_name, opportunity_points, problems_solved, target_customers, market_size,
niche, category, marketing_strategy, full_analysis

Your output MUST be suitable for displaying in a public business idea database.
Do NOT mention brand names, company names, real founders, personal stories, or any identifiable details.
Rewrite the idea in a clean, neutral, product-agnostic format.

---

### idea_name
A short, descriptive name for the business (at least 5 characters).

### opportunity_points
In array format. 3-5 reasons this is an opportunity right now.

### problems_solved
In array format. The concrete problems or pain points the business solves.

### target_customers
In array format. Who would pay for this.

### market_size
In array format. Short descriptors of the market (e.g. "Mid-size", "$2B US market", "Growing 15% yearly").

### niche
One short phrase naming the niche.

### category
One category such as: SaaS, AI, Productivity, Developer Tools, Fintech, Marketplaces, Health, EduTech, E-commerce, Services.

### marketing_strategy
In array format. 3-5 concrete channels or tactics to reach the first customers.

### full_analysis
A complete narrative in markdown (at least a few paragraphs) covering the problem, the
target users, the solution, how it might work, monetization, and risks.

---

If the text contains no business idea at all, return every field empty.
Do NOT merely summarize the post; transform it into a standalone business idea description.
`

var ideaSchema = map[string]any{
	"type": "object",
	"required": []string{
		"idea_name", "opportunity_points", "problems_solved", "target_customers",
		"market_size", "niche", "category", "marketing_strategy", "full_analysis",
	},
	"properties": map[string]any{
		"idea_name":          map[string]any{"type": "string"},
		"opportunity_points": stringArray,
		"problems_solved":    stringArray,
		"target_customers":   stringArray,
		"market_size":        stringArray,
		"niche":              map[string]any{"type": "string"},
		"category":           map[string]any{"type": "string"},
		"marketing_strategy": stringArray,
		"full_analysis":      map[string]any{"type": "string"},
	},
}

var stringArray = map[string]any{
	"type":  "array",
	"items": map[string]any{"type": "string"},
}

func New(completer Completer, timeout time.Duration, logger *slog.Logger) *Analyzer {
	return &Analyzer{completer: completer, timeout: timeout, logger: logger}
}

// NewFromConfig picks the completer named by llm.provider.
func NewFromConfig(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Analyzer, error) {
	var (
		completer Completer
		err       error
	)
	switch cfg.LLM.Provider {
	case "gemini":
		completer, err = NewGeminiCompleter(ctx, cfg.LLM.APIKey, cfg.LLM.Model)
	default:
		completer = NewMistralCompleter(cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.BaseURL, cfg.LLM.Timeout)
	}
	if err != nil {
		return nil, err
	}
	return New(completer, cfg.LLM.Timeout, logger), nil
}

// Analyze returns one draft per post that produced a usable answer. Failed
// posts are logged and skipped, so the result may be shorter than posts.
func (a *Analyzer) Analyze(ctx context.Context, posts []model.SourcePost) []model.Draft {
	drafts := make([]model.Draft, 0, len(posts))
	for _, post := range posts {
		if ctx.Err() != nil {
			break
		}
		draft, err := a.AnalyzePost(ctx, post)
		if err != nil {
			a.logger.Warn("analysis failed",
				slog.String("feed", post.Feed),
				slog.String("external_id", post.ExternalID),
				slog.String("error", err.Error()),
			)
			continue
		}
		drafts = append(drafts, draft)
	}
	return drafts
}

// AnalyzePost asks the model for a business idea drawn from one post.
// Every failure is an AnalysisService error.
func (a *Analyzer) AnalyzePost(ctx context.Context, post model.SourcePost) (model.Draft, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	raw, err := a.completer.Complete(ctx, BuildPrompt(post), ideaSchema)
	if err != nil {
		return model.Draft{}, apperror.AnalysisService("analysis service call failed", err)
	}

	fields, err := ParseIdea(raw)
	if err != nil {
		return model.Draft{}, apperror.AnalysisService("analysis service returned an unusable response", err)
	}

	return model.Draft{IdeaFields: fields, Post: post}, nil
}

// BuildPrompt embeds the post in the extraction prompt.
func BuildPrompt(post model.SourcePost) string {
	var b strings.Builder
	b.WriteString(PROMPT)
	b.WriteString("\n\nPost:\n")
	if post.Feed != "" && post.Feed != model.FeedUserSubmitted {
		fmt.Fprintf(&b, "Subreddit: r/%s\n", post.Feed)
		fmt.Fprintf(&b, "Score: %d\n", post.Score)
	}
	if post.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n", post.Title)
	}
	b.WriteString("Content:\n")
	b.WriteString(post.Body)
	return b.String()
}

// ParseIdea decodes the model's answer. A markdown code fence around the
// JSON is tolerated; prose or an empty object is an error.
func ParseIdea(raw string) (model.IdeaFields, error) {
	text := stripCodeFence(strings.TrimSpace(raw))
	if text == "" {
		return model.IdeaFields{}, fmt.Errorf("empty response")
	}

	var fields model.IdeaFields
	if err := json.Unmarshal([]byte(text), &fields); err != nil {
		return model.IdeaFields{}, fmt.Errorf("failed to unmarshal idea: %w", err)
	}

	if strings.TrimSpace(fields.IdeaName) == "" && strings.TrimSpace(fields.FullAnalysis) == "" {
		return model.IdeaFields{}, fmt.Errorf("response contains no idea")
	}
	return fields, nil
}

func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		// drop the language tag line, e.g. ```json
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
