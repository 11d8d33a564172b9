package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/letieu/goldmines/internal/apperror"
	"github.com/letieu/goldmines/internal/model"
)

const ideaColumns = `id, post_id, slug, idea_name, opportunity_points, problems_solved, target_customers,
	market_size, niche, category, marketing_strategy, status, full_analysis, created_at`

type ListOptions struct {
	Limit    int
	Offset   int
	Category string
}

// SaveBusinessIdea stores a validated draft against an already stored post.
// postID is the storage id returned by SaveSourcePost, not the external id.
func (db *DB) SaveBusinessIdea(ctx context.Context, draft model.Draft, postID int64) (*model.BusinessIdea, error) {
	if err := model.ValidateDraft(draft); err != nil {
		return nil, err
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, persistence("begin idea insert", err)
	}
	defer tx.Rollback()

	idea, err := insertIdea(ctx, tx, draft, postID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, persistence("commit business idea", err)
	}
	return idea, nil
}

// SaveDraft stores the draft's source post and its idea in one transaction.
// Either both rows exist afterwards or neither does, so a failed save leaves
// the post free to be analyzed again.
func (db *DB) SaveDraft(ctx context.Context, draft model.Draft) (*model.BusinessIdea, error) {
	if err := model.ValidateDraft(draft); err != nil {
		return nil, err
	}
	if err := validateNaturalKey(draft.Post); err != nil {
		return nil, err
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, persistence("begin draft insert", err)
	}
	defer tx.Rollback()

	stored, err := upsertPost(ctx, tx, draft.Post)
	if err != nil {
		return nil, err
	}
	idea, err := insertIdea(ctx, tx, draft, stored.ID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, persistence("commit draft", err)
	}
	return idea, nil
}

func insertIdea(ctx context.Context, q querier, draft model.Draft, postID int64) (*model.BusinessIdea, error) {
	lists, err := encodeLists(draft.IdeaFields)
	if err != nil {
		return nil, persistence("encoding idea lists", err)
	}

	var one int
	err = q.QueryRowContext(ctx, `SELECT 1 FROM source_posts WHERE id = ?`, postID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("source post", fmt.Sprint(postID))
	}
	if err != nil {
		return nil, persistence("checking source post", err)
	}

	idea := &model.BusinessIdea{
		PostID:     postID,
		Slug:       CreateSlug(draft.IdeaName),
		Status:     model.StatusCompleted,
		IdeaFields: draft.IdeaFields,
		CreatedAt:  time.Unix(now(), 0).UTC(),
	}
	idea.IdeaName = strings.TrimSpace(idea.IdeaName)

	err = q.QueryRowContext(ctx, `
		INSERT INTO business_ideas (post_id, slug, idea_name, opportunity_points, problems_solved, target_customers,
			market_size, niche, category, marketing_strategy, status, full_analysis, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		idea.PostID,
		idea.Slug,
		idea.IdeaName,
		lists[0], lists[1], lists[2], lists[3],
		idea.Niche,
		idea.Category,
		lists[4],
		string(idea.Status),
		idea.FullAnalysis,
		idea.CreatedAt.Unix(),
	).Scan(&idea.ID)
	if err != nil {
		return nil, persistence("inserting business idea", err)
	}
	return idea, nil
}

func (db *DB) GetBusinessIdea(ctx context.Context, id int64) (*model.BusinessIdea, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+ideaColumns+` FROM business_ideas WHERE id = ?`, id)
	idea, err := scanIdea(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("business idea", fmt.Sprint(id))
	}
	if err != nil {
		return nil, persistence("getting business idea", err)
	}
	return idea, nil
}

// ListBusinessIdeas returns ideas newest first.
func (db *DB) ListBusinessIdeas(ctx context.Context, opts ListOptions) ([]model.BusinessIdea, error) {
	if opts.Limit <= 0 {
		opts.Limit = 20
	}

	query := `SELECT ` + ideaColumns + ` FROM business_ideas`
	var args []any
	if opts.Category != "" {
		query += ` WHERE category = ?`
		args = append(args, opts.Category)
	}
	query += ` ORDER BY id DESC LIMIT ? OFFSET ?`
	args = append(args, opts.Limit, opts.Offset)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, persistence("listing business ideas", err)
	}
	defer rows.Close()

	ideas := []model.BusinessIdea{}
	for rows.Next() {
		idea, err := scanIdea(rows)
		if err != nil {
			return nil, persistence("scanning business idea", err)
		}
		ideas = append(ideas, *idea)
	}
	if err := rows.Err(); err != nil {
		return nil, persistence("iterating business ideas", err)
	}
	return ideas, nil
}

func (db *DB) CreateMarketingIdea(ctx context.Context, m *model.MarketingIdea) error {
	if strings.TrimSpace(m.Title) == "" {
		return apperror.ValidationFailed("title", "title is required")
	}
	m.CreatedAt = time.Unix(now(), 0).UTC()
	err := db.conn.QueryRowContext(ctx,
		`INSERT INTO marketing_ideas (title, content, created_at) VALUES (?, ?, ?) RETURNING id`,
		m.Title, m.Content, m.CreatedAt.Unix(),
	).Scan(&m.ID)
	if err != nil {
		return persistence("inserting marketing idea", err)
	}
	return nil
}

func scanIdea(row rowScanner) (*model.BusinessIdea, error) {
	var (
		idea      model.BusinessIdea
		lists     [5]string
		status    string
		createdAt int64
	)
	err := row.Scan(
		&idea.ID,
		&idea.PostID,
		&idea.Slug,
		&idea.IdeaName,
		&lists[0],
		&lists[1],
		&lists[2],
		&lists[3],
		&idea.Niche,
		&idea.Category,
		&lists[4],
		&status,
		&idea.FullAnalysis,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	targets := []*[]string{
		&idea.OpportunityPoints,
		&idea.ProblemsSolved,
		&idea.TargetCustomers,
		&idea.MarketSize,
		&idea.MarketingStrategy,
	}
	for i, raw := range lists {
		if err := json.Unmarshal([]byte(raw), targets[i]); err != nil {
			return nil, fmt.Errorf("decode list column: %w", err)
		}
	}

	idea.Status = model.AnalysisStatus(status)
	if !idea.Status.Valid() {
		return nil, fmt.Errorf("unknown analysis status %q", status)
	}
	idea.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &idea, nil
}

// encodeLists returns the JSON text of the ordered list fields in column
// order: opportunity, problems, customers, market size, marketing.
func encodeLists(f model.IdeaFields) ([5]string, error) {
	var out [5]string
	for i, list := range [][]string{
		f.OpportunityPoints,
		f.ProblemsSolved,
		f.TargetCustomers,
		f.MarketSize,
		f.MarketingStrategy,
	} {
		if list == nil {
			list = []string{}
		}
		raw, err := json.Marshal(list)
		if err != nil {
			return out, err
		}
		out[i] = string(raw)
	}
	return out, nil
}
