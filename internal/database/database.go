package database

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"

	"github.com/letieu/goldmines/config"
	"github.com/letieu/goldmines/internal/apperror"
)

//go:embed schema.sql
var schemaSQL string

type DB struct {
	conn *sql.DB
}

// Open connects to the configured store and applies the schema. The caller
// owns the returned DB and must Close it on shutdown.
func Open(ctx context.Context, cfg *config.Config) (*DB, error) {
	switch cfg.Database.Type {
	case "libsql":
		return OpenLibSQL(ctx, cfg.Database.URL, cfg.Database.Token)
	default:
		return OpenSQLite(ctx, cfg.Database.Path)
	}
}

// OpenSQLite opens a local SQLite file, or ":memory:" for tests.
func OpenSQLite(ctx context.Context, path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("database: opening sqlite: %w", err)
	}
	// One writer at a time; also keeps ":memory:" on a single shared database.
	conn.SetMaxOpenConns(1)

	pragmas := []string{"PRAGMA foreign_keys=ON", "PRAGMA busy_timeout=5000"}
	if path != ":memory:" {
		pragmas = append(pragmas, "PRAGMA journal_mode=WAL")
	}
	for _, p := range pragmas {
		if _, err := conn.ExecContext(ctx, p); err != nil {
			conn.Close()
			return nil, fmt.Errorf("database: %s: %w", p, err)
		}
	}

	return newDB(ctx, conn)
}

// OpenLibSQL connects to a hosted libsql (Turso) database.
func OpenLibSQL(ctx context.Context, dbURL, token string) (*DB, error) {
	dsn, err := libsqlDSN(dbURL, token)
	if err != nil {
		return nil, err
	}

	conn, err := sql.Open("libsql", dsn)
	if err != nil {
		return nil, fmt.Errorf("database: opening libsql: %w", err)
	}
	return newDB(ctx, conn)
}

// libsqlDSN adds the auth token to dbURL, keeping any query it already has.
func libsqlDSN(dbURL, token string) (string, error) {
	if token == "" {
		return dbURL, nil
	}
	u, err := url.Parse(dbURL)
	if err != nil {
		return "", fmt.Errorf("database: parsing database.url: %w", err)
	}
	q := u.Query()
	q.Set("authToken", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func newDB(ctx context.Context, conn *sql.DB) (*DB, error) {
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("database: ping: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.Migrate(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Migrate applies the embedded schema. Every statement is idempotent.
func (db *DB) Migrate(ctx context.Context) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("database: begin migration: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range SchemaStatements() {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("database: migration failed:\n%s\nERROR: %w", stmt, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("database: commit migration: %w", err)
	}
	return nil
}

// SchemaStatements splits the embedded schema into single statements.
func SchemaStatements() []string {
	var stmts []string
	for _, stmt := range strings.Split(schemaSQL, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		stmts = append(stmts, stmt)
	}
	return stmts
}

func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

func (db *DB) Close() error {
	return db.conn.Close()
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

func now() int64 {
	return time.Now().UTC().Unix()
}

func persistence(op string, err error) error {
	return apperror.Persistence("database: "+op, err)
}
