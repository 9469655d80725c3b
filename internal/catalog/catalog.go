// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package catalog manages the local variant catalog: which variants exist and
// which papers each one is assessed against. The catalog is operator-local
// bookkeeping; pipeline artifacts live in the object store.
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

const defaultDBFile = "evidence.db"

// ErrNotFound is returned when a variant id is not in the catalog.
var ErrNotFound = errors.New("catalog: variant not found")

// Catalog is the SQLite-backed variant catalog.
type Catalog struct {
	db *sql.DB
}

// Open opens or creates the catalog database, creating the schema if needed.
func Open(cfg types.CatalogConfig) (*Catalog, error) {
	path := cfg.Path
	if path == "" {
		path = defaultDBFile
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating catalog directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening catalog database: %w", err)
	}

	c := &Catalog{db: db}
	if err := c.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating catalog schema: %w", err)
	}
	return c, nil
}

// Close releases the database connection.
func (c *Catalog) Close() error {
	return c.db.Close()
}

func (c *Catalog) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS variants (
			id TEXT PRIMARY KEY,
			gene TEXT NOT NULL,
			hgvs_c TEXT NOT NULL,
			papers TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_variants_gene ON variants(gene)`,
	}

	for _, stmt := range statements {
		if _, err := c.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Put inserts or updates a variant. CreatedAt is preserved on update;
// UpdatedAt is always refreshed.
func (c *Catalog) Put(ctx context.Context, v types.Variant) error {
	if v.ID == "" {
		return fmt.Errorf("variant id is required")
	}

	papersJSON, err := json.Marshal(v.Papers)
	if err != nil {
		return fmt.Errorf("marshaling papers for %s: %w", v.ID, err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = c.db.ExecContext(ctx, `
		INSERT INTO variants (id, gene, hgvs_c, papers, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			gene = excluded.gene,
			hgvs_c = excluded.hgvs_c,
			papers = excluded.papers,
			updated_at = excluded.updated_at`,
		v.ID, v.Gene, v.HGVSc, string(papersJSON), now, now)
	if err != nil {
		return fmt.Errorf("storing variant %s: %w", v.ID, err)
	}
	return nil
}

// Get retrieves one variant by id.
func (c *Catalog) Get(ctx context.Context, id string) (types.Variant, error) {
	row := c.db.QueryRowContext(ctx, `
		SELECT id, gene, hgvs_c, papers, created_at, updated_at
		FROM variants WHERE id = ?`, id)

	v, err := scanVariant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Variant{}, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return v, err
}

// List returns all variants ordered by id.
func (c *Catalog) List(ctx context.Context) ([]types.Variant, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, gene, hgvs_c, papers, created_at, updated_at
		FROM variants ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing variants: %w", err)
	}
	defer rows.Close()

	var variants []types.Variant
	for rows.Next() {
		v, err := scanVariant(rows)
		if err != nil {
			return nil, err
		}
		variants = append(variants, v)
	}
	return variants, rows.Err()
}

// Delete removes a variant from the catalog. Stored pipeline artifacts are
// untouched.
func (c *Catalog) Delete(ctx context.Context, id string) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM variants WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting variant %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return nil
}

// ImportYAML loads a variant batch file and upserts every entry. Returns the
// number of variants imported.
func (c *Catalog) ImportYAML(ctx context.Context, data []byte) (int, error) {
	var file types.VariantFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return 0, fmt.Errorf("parsing variant file: %w", err)
	}

	for i, v := range file.Variants {
		if v.ID == "" {
			return 0, fmt.Errorf("variant %d: id is required", i)
		}
		if err := c.Put(ctx, v); err != nil {
			return 0, err
		}
	}
	return len(file.Variants), nil
}

// scanner covers both sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanVariant(row scanner) (types.Variant, error) {
	var (
		v          types.Variant
		papersJSON string
		createdAt  string
		updatedAt  string
	)
	if err := row.Scan(&v.ID, &v.Gene, &v.HGVSc, &papersJSON, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Variant{}, err
		}
		return types.Variant{}, fmt.Errorf("scanning variant: %w", err)
	}

	if err := json.Unmarshal([]byte(papersJSON), &v.Papers); err != nil {
		return types.Variant{}, fmt.Errorf("parsing papers for %s: %w", v.ID, err)
	}
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		v.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339, updatedAt); err == nil {
		v.UpdatedAt = t
	}
	return v, nil
}
