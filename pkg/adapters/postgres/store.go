// Package postgres stores checkpoint documents as JSON rows in PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/plumber-ci/plumber/pkg/domain"
	"github.com/plumber-ci/plumber/pkg/ports"
)

// Type is the checkpointing type tag of this store.
const Type = "postgres"

const (
	DefaultTable = "plumber_checkpoints"
	DefaultName  = "default"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Config selects the database, table and document name. Several projects
// can share a table under different names.
type Config struct {
	URL         string        `mapstructure:"url"`
	Table       string        `mapstructure:"table"`
	Name        string        `mapstructure:"name"`
	PingTimeout time.Duration `mapstructure:"-"`
}

func (c *Config) setDefaults() {
	if c.Table == "" {
		c.Table = DefaultTable
	}
	if c.Name == "" {
		c.Name = DefaultName
	}
	if c.PingTimeout <= 0 {
		c.PingTimeout = 2 * time.Second
	}
}

// Validate checks the required fields.
func (c Config) Validate() error {
	if c.URL == "" {
		return errors.New("url is required")
	}
	if c.Table != "" && !identifierPattern.MatchString(c.Table) {
		return fmt.Errorf("table %q is not a plain identifier", c.Table)
	}
	return nil
}

// Store implements ports.CheckpointStore on one row of a table.
type Store struct {
	db    *sql.DB
	table string
	name  string

	schemaOnce sync.Once
	schemaErr  error
}

var _ ports.CheckpointStore = (*Store)(nil)

// Open connects with the pgx driver and pings the database.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.setDefaults()

	db, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	db.SetMaxOpenConns(2)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return NewFromDB(db, cfg.Table, cfg.Name)
}

// NewFromDB wraps an existing connection pool.
func NewFromDB(db *sql.DB, table, name string) (*Store, error) {
	cfg := Config{URL: "-", Table: table, Name: name}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.setDefaults()
	return &Store{db: db, table: cfg.Table, name: cfg.Name}, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	s.schemaOnce.Do(func() {
		_, s.schemaErr = s.db.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	name       TEXT PRIMARY KEY,
	document   JSONB NOT NULL,
	info       TEXT NOT NULL DEFAULT '',
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`, s.table))
	})
	return s.schemaErr
}

// Get reads the document. A missing row is an empty document.
func (s *Store) Get(ctx context.Context) (domain.Document, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return nil, &domain.StoreError{Store: Type, Op: "get", Err: err}
	}

	var data []byte
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT document FROM %s WHERE name = $1`, s.table), s.name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Document{}, nil
	}
	if err != nil {
		return nil, &domain.StoreError{Store: Type, Op: "get", Err: err}
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &domain.StoreError{Store: Type, Op: "get", Err: fmt.Errorf("failed to unmarshal checkpoint: %w", err)}
	}
	doc, err := domain.DocumentFromMap(raw)
	if err != nil {
		return nil, &domain.StoreError{Store: Type, Op: "get", Err: err}
	}
	return doc, nil
}

// Save upserts the document together with the run summary.
func (s *Store) Save(ctx context.Context, doc domain.Document, info string) error {
	if err := s.ensureSchema(ctx); err != nil {
		return &domain.StoreError{Store: Type, Op: "save", Err: err}
	}

	data, err := json.Marshal(doc.ToMap())
	if err != nil {
		return &domain.StoreError{Store: Type, Op: "save", Err: fmt.Errorf("failed to marshal checkpoint: %w", err)}
	}
	_, err = s.db.ExecContext(ctx, fmt.Sprintf(`INSERT INTO %s (name, document, info, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (name) DO UPDATE SET document = EXCLUDED.document, info = EXCLUDED.info, updated_at = EXCLUDED.updated_at`, s.table),
		s.name, string(data), info)
	if err != nil {
		return &domain.StoreError{Store: Type, Op: "save", Err: err}
	}
	return nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}
