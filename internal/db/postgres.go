package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/XSAM/otelsql"
	_ "github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/patrickwarner/consentstudio/internal/storage"
)

// Postgres wraps a postgres DB connection and implements storage.Repository.
type Postgres struct {
	DB *sql.DB
}

var _ storage.Repository = (*Postgres)(nil)

// schemaSQL sets up the necessary tables if they don't exist.
const schemaSQL = `CREATE TABLE IF NOT EXISTS banner_templates (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    document JSONB NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS banner_assets (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    mime_type TEXT NOT NULL,
    data BYTEA NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_banner_templates_updated_at ON banner_templates (updated_at DESC);
`

// InitPostgres connects to Postgres with connection pooling configuration.
func InitPostgres(dsn string, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) (*Postgres, error) {
	driverName, err := otelsql.Register("postgres",
		otelsql.WithAttributes(
			attribute.String("db.system", "postgresql"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("register otelsql: %w", err)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres open: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)
	db.SetConnMaxIdleTime(connMaxIdleTime)

	if err := db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	p := &Postgres{DB: db}
	if err := p.ensureSchema(); err != nil {
		return nil, err
	}
	zap.L().Info("Connected to Postgres with connection pooling",
		zap.Int("max_open_conns", maxOpenConns),
		zap.Int("max_idle_conns", maxIdleConns),
		zap.Duration("conn_max_lifetime", connMaxLifetime))
	return p, nil
}

// Close terminates the Postgres connection.
func (p *Postgres) Close() {
	if p != nil && p.DB != nil {
		if err := p.DB.Close(); err != nil {
			zap.L().Error("postgres close", zap.Error(err))
		}
	}
}

// ensureSchema creates the required tables if they do not exist.
func (p *Postgres) ensureSchema() error {
	if _, err := p.DB.ExecContext(context.Background(), schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// SaveTemplate upserts a template, keeping created_at of an existing row.
func (p *Postgres) SaveTemplate(ctx context.Context, t *storage.Template) error {
	_, err := p.DB.ExecContext(ctx, `INSERT INTO banner_templates (id, name, document, created_at, updated_at) VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, document = EXCLUDED.document, updated_at = EXCLUDED.updated_at`,
		t.ID, t.Name, []byte(t.Document), t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert template %s: %w", t.ID, err)
	}
	return nil
}

// Template loads one template.
func (p *Postgres) Template(ctx context.Context, id string) (*storage.Template, error) {
	var (
		t   storage.Template
		doc []byte
	)
	err := p.DB.QueryRowContext(ctx, `SELECT id, name, document, created_at, updated_at FROM banner_templates WHERE id = $1`, id).
		Scan(&t.ID, &t.Name, &doc, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query template %s: %w", id, err)
	}
	t.Document = doc
	return &t, nil
}

// ListTemplates returns the most recently updated templates first.
func (p *Postgres) ListTemplates(ctx context.Context, limit int) ([]storage.TemplateSummary, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := p.DB.QueryContext(ctx, `SELECT id, name, updated_at FROM banner_templates ORDER BY updated_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query templates: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []storage.TemplateSummary
	for rows.Next() {
		var s storage.TemplateSummary
		if err := rows.Scan(&s.ID, &s.Name, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// SaveAsset inserts an uploaded image.
func (p *Postgres) SaveAsset(ctx context.Context, a *storage.Asset) error {
	_, err := p.DB.ExecContext(ctx, `INSERT INTO banner_assets (id, name, mime_type, data, created_at) VALUES ($1,$2,$3,$4,$5)`,
		a.ID, a.Name, a.MimeType, a.Data, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert asset %s: %w", a.ID, err)
	}
	return nil
}

// Asset loads one image.
func (p *Postgres) Asset(ctx context.Context, id string) (*storage.Asset, error) {
	var a storage.Asset
	err := p.DB.QueryRowContext(ctx, `SELECT id, name, mime_type, data, created_at FROM banner_assets WHERE id = $1`, id).
		Scan(&a.ID, &a.Name, &a.MimeType, &a.Data, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query asset %s: %w", id, err)
	}
	return &a, nil
}
