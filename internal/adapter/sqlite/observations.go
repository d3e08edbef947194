package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/couchcryptid/weather-stats-etl/internal/domain"
)

const observationColumns = "id, date, max_temp, min_temp, precipitation"

// Exists reports whether an observation with exactly this natural key is stored.
func (s *Store) Exists(ctx context.Context, key domain.NaturalKey) (bool, error) {
	var found bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM observations
		 WHERE date = ? AND max_temp = ? AND min_temp = ? AND precipitation = ?)`,
		key.Date, key.MaxTemp, key.MinTemp, key.Precipitation,
	).Scan(&found)
	if err != nil {
		return false, fmt.Errorf("exists query: %w", err)
	}
	return found, nil
}

// InsertObservation stores a single observation. A natural-key collision
// returns domain.ErrDuplicate.
func (s *Store) InsertObservation(ctx context.Context, o domain.Observation) error {
	_, err := s.db.ExecContext(ctx, insertObservationSQL, observationArgs(o)...)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", domain.ErrDuplicate, o.Key().Date)
		}
		return fmt.Errorf("insert observation: %w", err)
	}
	return nil
}

const insertObservationSQL = `INSERT INTO observations (date, max_temp, min_temp, precipitation) VALUES (?, ?, ?, ?)`

// InsertObservations stores the batch in one transaction. Any natural-key
// collision rolls back the whole batch and returns domain.ErrStorageConflict.
func (s *Store) InsertObservations(ctx context.Context, batch []domain.Observation) (err error) {
	if len(batch) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.logger.Error("rollback failed", "error", rbErr)
			}
		}
	}()

	stmt, err := tx.PrepareContext(ctx, insertObservationSQL)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, o := range batch {
		if _, err = stmt.ExecContext(ctx, observationArgs(o)...); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: %s already stored", domain.ErrStorageConflict, o.Key().Date)
			}
			return fmt.Errorf("insert observation: %w", err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ScanObservations returns every stored observation ordered by id.
func (s *Store) ScanObservations(ctx context.Context) ([]domain.Observation, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+observationColumns+" FROM observations ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("scan observations: %w", err)
	}
	defer rows.Close()
	return scanObservations(rows)
}

// ListObservations returns one page of observations ordered by id. page is 1-based.
func (s *Store) ListObservations(ctx context.Context, f domain.ObservationFilter, page, size int) ([]domain.Observation, error) {
	var (
		where []string
		args  []any
	)
	if f.From != nil {
		where = append(where, "date >= ?")
		args = append(args, f.From.Format(domain.DateLayout))
	}
	if f.To != nil {
		where = append(where, "date <= ?")
		args = append(args, f.To.Format(domain.DateLayout))
	}
	q := "SELECT " + observationColumns + " FROM observations"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY id LIMIT ? OFFSET ?"
	args = append(args, size, (page-1)*size)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list observations: %w", err)
	}
	defer rows.Close()
	return scanObservations(rows)
}

func observationArgs(o domain.Observation) []any {
	return []any{o.Date.Format(domain.DateLayout), o.MaxTemp, o.MinTemp, o.Precipitation}
}

func scanObservations(rows *sql.Rows) ([]domain.Observation, error) {
	out := []domain.Observation{}
	for rows.Next() {
		var (
			o    domain.Observation
			date string
		)
		if err := rows.Scan(&o.ID, &date, &o.MaxTemp, &o.MinTemp, &o.Precipitation); err != nil {
			return nil, err
		}
		d, err := time.Parse(domain.DateLayout, date)
		if err != nil {
			return nil, fmt.Errorf("parse stored date %q: %w", date, err)
		}
		o.Date = d
		out = append(out, o)
	}
	return out, rows.Err()
}
