// Package sqlite persists fact tables into a local SQLite database in
// long format: one row per (fact, entity, period, metric).
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"macrofact/internal/frame"
)

type Store struct {
	db *sql.DB
}

func New(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite: path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// entityColumns and periodColumns are probed in order; the first present
// column of the right kind wins. Facts without an entity dimension (rate
// and national series) store an empty entity.
var (
	entityColumns = []string{"Province", "GEO"}
	periodColumns = []string{"Quarter", "Month", "Date", "date"}
)

// SaveFact melts the frame's number columns into fact_values rows and
// upserts them in one transaction.
func (s *Store) SaveFact(ctx context.Context, f *frame.Frame) error {
	if f == nil || f.Len() == 0 {
		return nil
	}

	var entities []string
	for _, name := range entityColumns {
		if !f.HasColumn(name) {
			continue
		}
		values, err := f.Strings(name)
		if err != nil {
			return err
		}
		entities = values
		break
	}

	var periods []time.Time
	for _, name := range periodColumns {
		if !f.HasColumn(name) {
			continue
		}
		values, err := f.Times(name)
		if err != nil {
			return err
		}
		periods = values
		break
	}
	if periods == nil {
		// Reference tables (series maps) carry no period; nothing to melt.
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO fact_values (
			fact, entity, period, metric, value, ingested_at
		) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(fact, entity, period, metric)
		DO UPDATE SET
			value = excluded.value,
			ingested_at = excluded.ingested_at
	`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, metric := range f.Columns() {
		values, numErr := f.Numbers(metric)
		if numErr != nil {
			continue // key and text columns are not metrics
		}
		for i := 0; i < f.Len(); i++ {
			if f.CellMissing(metric, i) {
				continue
			}
			entity := ""
			if entities != nil {
				entity = entities[i]
			}
			_, err = stmt.ExecContext(
				ctx,
				f.Name(),
				entity,
				periods[i].Format("2006-01-02"),
				metric,
				values[i],
				now,
			)
			if err != nil {
				_ = tx.Rollback()
				return err
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return err
	}
	return nil
}

func (s *Store) migrate() error {
	statements := []string{
		`PRAGMA foreign_keys = ON;`,
		`CREATE TABLE IF NOT EXISTS fact_values (
			fact TEXT NOT NULL,
			entity TEXT NOT NULL,
			period TEXT NOT NULL,
			metric TEXT NOT NULL,
			value REAL NOT NULL,
			ingested_at TEXT NOT NULL,
			PRIMARY KEY (fact, entity, period, metric)
		);`,
	}

	for _, statement := range statements {
		if _, err := s.db.Exec(statement); err != nil {
			return err
		}
	}

	return nil
}
