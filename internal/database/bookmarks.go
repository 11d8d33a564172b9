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

// ToggleBookmark removes the saved item if present, otherwise saves it. The
// check and the mutation share one transaction, and the unique key on
// (user_id, item_type, item_id) absorbs a concurrent duplicate insert.
func (db *DB) ToggleBookmark(ctx context.Context, userID string, itemType model.ItemType, itemID int64) (model.ToggleResult, error) {
	table := itemType.Table()
	if table == "" {
		return model.ToggleResult{}, apperror.ValidationFailed("item_type", "item_type must be one of: business, marketing")
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return model.ToggleResult{}, persistence("begin bookmark toggle", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`DELETE FROM saved_items WHERE user_id = ? AND item_type = ? AND item_id = ?`,
		userID, string(itemType), itemID,
	)
	if err != nil {
		return model.ToggleResult{}, persistence("removing bookmark", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return model.ToggleResult{}, persistence("removing bookmark", err)
	}

	action := model.ActionRemoved
	if removed == 0 {
		// table comes from the ItemType whitelist, never from input.
		var one int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM `+table+` WHERE id = ?`, itemID).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return model.ToggleResult{}, apperror.NotFound(table, fmt.Sprint(itemID))
		}
		if err != nil {
			return model.ToggleResult{}, persistence("checking bookmark target", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO saved_items (user_id, item_type, item_id, created_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (user_id, item_type, item_id) DO NOTHING`,
			userID, string(itemType), itemID, now(),
		)
		if err != nil {
			return model.ToggleResult{}, persistence("adding bookmark", err)
		}
		action = model.ActionAdded
	}

	if err := tx.Commit(); err != nil {
		return model.ToggleResult{}, persistence("commit bookmark toggle", err)
	}
	return model.ToggleResult{Action: action}, nil
}

func (db *DB) ListSavedItems(ctx context.Context, userID string) ([]model.SavedItem, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT user_id, item_type, item_id, created_at FROM saved_items WHERE user_id = ? ORDER BY id DESC`,
		userID,
	)
	if err != nil {
		return nil, persistence("listing saved items", err)
	}
	defer rows.Close()

	items := []model.SavedItem{}
	for rows.Next() {
		var (
			item      model.SavedItem
			itemType  string
			createdAt int64
		)
		if err := rows.Scan(&item.UserID, &itemType, &item.ItemID, &createdAt); err != nil {
			return nil, persistence("scanning saved item", err)
		}
		item.ItemType = model.ItemType(itemType)
		item.CreatedAt = time.Unix(createdAt, 0).UTC()
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, persistence("iterating saved items", err)
	}
	return items, nil
}
