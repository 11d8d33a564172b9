package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/letieu/goldmines/internal/apperror"
	"github.com/letieu/goldmines/internal/model"
)

const postColumns = `id, external_id, feed, title, body, score, num_comments, url, permalink, author, created_utc, created_at`

// SaveSourcePost upserts by (external_id, feed). Saving the same natural key
// again returns the row stored the first time.
func (db *DB) SaveSourcePost(ctx context.Context, post model.SourcePost) (*model.StoredSourcePost, error) {
	if err := validateNaturalKey(post); err != nil {
		return nil, err
	}
	return upsertPost(ctx, db.conn, post)
}

func validateNaturalKey(post model.SourcePost) error {
	if post.ExternalID == "" || post.Feed == "" {
		return apperror.ValidationFailed("external_id", "source post needs an external id and a feed")
	}
	return nil
}

func upsertPost(ctx context.Context, q querier, post model.SourcePost) (*model.StoredSourcePost, error) {
	_, err := q.ExecContext(ctx, `
		INSERT INTO source_posts (external_id, feed, title, body, score, num_comments, url, permalink, author, created_utc, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (external_id, feed) DO NOTHING`,
		post.ExternalID,
		post.Feed,
		post.Title,
		post.Body,
		post.Score,
		post.NumComments,
		post.URL,
		post.Permalink,
		post.Author,
		post.CreatedUTC,
		now(),
	)
	if err != nil {
		return nil, persistence("saving source post", err)
	}

	row := q.QueryRowContext(ctx,
		`SELECT `+postColumns+` FROM source_posts WHERE external_id = ? AND feed = ?`,
		post.ExternalID, post.Feed,
	)
	stored, err := scanPost(row)
	if err != nil {
		return nil, persistence("reading saved source post", err)
	}
	return stored, nil
}

func (db *DB) GetSourcePost(ctx context.Context, id int64) (*model.StoredSourcePost, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+postColumns+` FROM source_posts WHERE id = ?`, id)
	stored, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("source post", fmt.Sprint(id))
	}
	if err != nil {
		return nil, persistence("getting source post", err)
	}
	return stored, nil
}

func (db *DB) PostExists(ctx context.Context, externalID, feed string) (bool, error) {
	var count int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM source_posts WHERE external_id = ? AND feed = ?`,
		externalID, feed,
	).Scan(&count)
	if err != nil {
		return false, persistence("checking source post", err)
	}
	return count > 0, nil
}

func scanPost(row rowScanner) (*model.StoredSourcePost, error) {
	var (
		p         model.StoredSourcePost
		createdAt int64
	)
	err := row.Scan(
		&p.ID,
		&p.ExternalID,
		&p.Feed,
		&p.Title,
		&p.Body,
		&p.Score,
		&p.NumComments,
		&p.URL,
		&p.Permalink,
		&p.Author,
		&p.CreatedUTC,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}
	p.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &p, nil
}
