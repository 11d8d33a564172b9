package database

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/letieu/goldmines/internal/apperror"
	"github.com/letieu/goldmines/internal/model"
)

// CreateUser inserts a profile. A taken email is a Conflict.
func (db *DB) CreateUser(ctx context.Context, u *model.UserProfile) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.SubscriptionStatus == "" {
		u.SubscriptionStatus = "free"
	}
	u.CreatedAt = time.Unix(now(), 0).UTC()

	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO user_profiles (id, email, password_hash, subscription_status, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (email) DO NOTHING`,
		u.ID, u.Email, u.PasswordHash, u.SubscriptionStatus, u.CreatedAt.Unix(),
	)
	if err != nil {
		return persistence("creating user", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return persistence("creating user", err)
	}
	if n == 0 {
		return apperror.Conflict("user", u.Email)
	}
	return nil
}

func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.UserProfile, error) {
	var (
		u         model.UserProfile
		createdAt int64
	)
	email = strings.ToLower(strings.TrimSpace(email))
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, email, password_hash, subscription_status, created_at FROM user_profiles WHERE email = ?`,
		email,
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.SubscriptionStatus, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("user", email)
	}
	if err != nil {
		return nil, persistence("getting user", err)
	}
	u.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &u, nil
}
