package model

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/letieu/goldmines/internal/apperror"
)

const (
	MinIdeaNameLen     = 5
	MinFullAnalysisLen = 50

	// FeedUserSubmitted marks posts synthesized from user-entered text.
	FeedUserSubmitted = "user_submitted"
)

// SourcePost is a unit of raw external content.
type SourcePost struct {
	ExternalID  string `json:"external_id"`
	Title       string `json:"title"`
	Body        string `json:"body"`
	Feed        string `json:"feed"`
	Score       int    `json:"score"`
	NumComments int    `json:"num_comments"`
	URL         string `json:"url"`
	Permalink   string `json:"permalink"`
	CreatedUTC  int64  `json:"created_utc"`
	Author      string `json:"author"`
}

// StoredSourcePost is a SourcePost with its storage-assigned identity.
type StoredSourcePost struct {
	ID int64 `json:"id"`
	SourcePost
	CreatedAt time.Time `json:"created_at"`
}

type AnalysisStatus string

const (
	StatusPending   AnalysisStatus = "pending"
	StatusCompleted AnalysisStatus = "completed"
	StatusFailed    AnalysisStatus = "failed"
)

func (s AnalysisStatus) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// IdeaFields are the analysis fields shared by drafts and stored ideas.
type IdeaFields struct {
	IdeaName          string   `json:"idea_name"`
	OpportunityPoints []string `json:"opportunity_points"`
	ProblemsSolved    []string `json:"problems_solved"`
	TargetCustomers   []string `json:"target_customers"`
	MarketSize        []string `json:"market_size"`
	Niche             string   `json:"niche"`
	Category          string   `json:"category"`
	MarketingStrategy []string `json:"marketing_strategy"`
	FullAnalysis      string   `json:"full_analysis"`
}

// Draft is an unvalidated, unpersisted analysis result.
type Draft struct {
	IdeaFields
	Post SourcePost `json:"-"`
}

type BusinessIdea struct {
	ID     int64          `json:"id"`
	PostID int64          `json:"post_id"`
	Slug   string         `json:"slug"`
	Status AnalysisStatus `json:"status"`
	IdeaFields
	CreatedAt time.Time `json:"created_at"`
}

type ItemType string

const (
	ItemBusiness  ItemType = "business"
	ItemMarketing ItemType = "marketing"
)

// ItemTypes lists the bookmarkable item types in display order.
var ItemTypes = []ItemType{ItemBusiness, ItemMarketing}

// Table is the storage table holding items of this type.
func (t ItemType) Table() string {
	switch t {
	case ItemBusiness:
		return "business_ideas"
	case ItemMarketing:
		return "marketing_ideas"
	}
	return ""
}

func (t ItemType) Valid() bool {
	return t.Table() != ""
}

type SavedItem struct {
	UserID    string    `json:"user_id"`
	ItemType  ItemType  `json:"item_type"`
	ItemID    int64     `json:"item_id"`
	CreatedAt time.Time `json:"created_at"`
}

type ToggleAction string

const (
	ActionAdded   ToggleAction = "added"
	ActionRemoved ToggleAction = "removed"
)

type ToggleResult struct {
	Action ToggleAction `json:"action"`
}

type MarketingIdea struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type UserProfile struct {
	ID                 string    `json:"id"`
	Email              string    `json:"email"`
	PasswordHash       string    `json:"-"`
	SubscriptionStatus string    `json:"subscription_status"`
	CreatedAt          time.Time `json:"created_at"`
}

// ValidateDraft accepts a draft only when both the idea name and the full
// analysis are long enough to be shown to users.
func ValidateDraft(d Draft) error {
	if utf8.RuneCountInString(strings.TrimSpace(d.IdeaName)) < MinIdeaNameLen {
		return apperror.ValidationFailed("idea_name", "idea name must be at least 5 characters")
	}
	if utf8.RuneCountInString(strings.TrimSpace(d.FullAnalysis)) < MinFullAnalysisLen {
		return apperror.ValidationFailed("full_analysis", "full analysis must be at least 50 characters")
	}
	return nil
}
