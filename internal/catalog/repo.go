package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// Repo reads the reference catalog and the title-hash mapping out of the
// sqlite database seeded by cmd/import-catalog. Both tables are read-only
// from the engine's point of view.
type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

func (r *Repo) Entries(ctx context.Context) ([]Entry, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id, name FROM catalog`)
	if err != nil {
		return nil, fmt.Errorf("query catalog: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Name); err != nil {
			return nil, fmt.Errorf("scan catalog row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate catalog rows: %w", err)
	}
	return entries, nil
}

func (r *Repo) TitleHashMapping(ctx context.Context) (TitleHashMapping, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT hash, object_ids FROM title_hashes`)
	if err != nil {
		return nil, fmt.Errorf("query title hashes: %w", err)
	}
	defer rows.Close()

	mapping := make(TitleHashMapping)
	for rows.Next() {
		var (
			hash    string
			idsJSON string
		)
		if err := rows.Scan(&hash, &idsJSON); err != nil {
			return nil, fmt.Errorf("scan title hash row: %w", err)
		}

		var ids []string
		if err := json.Unmarshal([]byte(idsJSON), &ids); err != nil {
			// a broken row degrades to "no exact match" for that hash
			continue
		}
		mapping[hash] = ids
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate title hash rows: %w", err)
	}
	return mapping, nil
}

// SaveEntries upserts catalog entries inside one transaction. Used by the
// seeding tool, not by the import path.
func (r *Repo) SaveEntries(ctx context.Context, entries []Entry) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO catalog (id, name)
		VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name
	`)
	if err != nil {
		return fmt.Errorf("prepare stmt: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, e.ID, e.Name); err != nil {
			return fmt.Errorf("exec upsert for %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// SaveTitleHashes upserts the exact-match table inside one transaction.
func (r *Repo) SaveTitleHashes(ctx context.Context, mapping TitleHashMapping) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO title_hashes (hash, object_ids)
		VALUES (?, ?)
		ON CONFLICT(hash) DO UPDATE SET object_ids = excluded.object_ids
	`)
	if err != nil {
		return fmt.Errorf("prepare stmt: %w", err)
	}
	defer stmt.Close()

	for hash, ids := range mapping {
		idsJSON, err := json.Marshal(ids)
		if err != nil {
			return fmt.Errorf("marshal ids for %s: %w", hash, err)
		}
		if _, err := stmt.ExecContext(ctx, hash, string(idsJSON)); err != nil {
			return fmt.Errorf("exec upsert for %s: %w", hash, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
