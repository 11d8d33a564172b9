package filter

import (
	"strings"

	"github.com/letieu/goldmines/internal/model"
)

// KeywordFilter keeps posts that mention at least one business keyword.
type KeywordFilter struct {
	keywords []string
}

func NewKeywordFilter(keywords []string) *KeywordFilter {
	lowered := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			lowered = append(lowered, k)
		}
	}
	return &KeywordFilter{keywords: lowered}
}

// Filter returns the matching posts in their original order.
func (f *KeywordFilter) Filter(posts []model.SourcePost) []model.SourcePost {
	kept := make([]model.SourcePost, 0, len(posts))
	for _, p := range posts {
		if f.Matches(p) {
			kept = append(kept, p)
		}
	}
	return kept
}

func (f *KeywordFilter) Matches(p model.SourcePost) bool {
	text := strings.ToLower(p.Title + " " + p.Body)
	for _, k := range f.keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

// Dedupe drops repeated (feed, external id) pairs. The first one wins.
func Dedupe(posts []model.SourcePost) []model.SourcePost {
	seen := make(map[[2]string]struct{}, len(posts))
	out := make([]model.SourcePost, 0, len(posts))
	for _, p := range posts {
		key := [2]string{p.Feed, p.ExternalID}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, p)
	}
	return out
}

// IsMetaPost reports whether a post is an open thread inviting others to
// share what they build, rather than an idea itself.
func IsMetaPost(p model.SourcePost, phrases []string) bool {
	title := strings.ToLower(p.Title)
	for _, phrase := range phrases {
		if phrase != "" && strings.Contains(title, strings.ToLower(phrase)) {
			return true
		}
	}
	return false
}
