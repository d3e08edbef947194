package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/couchcryptid/weather-stats-etl/internal/domain"
)

// AppendYearlyStat inserts a new row unconditionally; earlier rows for the
// same year are left in place.
func (s *Store) AppendYearlyStat(ctx context.Context, st domain.YearlyStat) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO yearly_stats (year, avg_max_temp, avg_min_temp, total_precipitation) VALUES (?, ?, ?, ?)`,
		st.Year, st.AvgMaxTemp, st.AvgMinTemp, st.TotalPrecipitation,
	)
	if err != nil {
		return fmt.Errorf("append yearly stat: %w", err)
	}
	return nil
}

// ListYearlyStats returns one page of yearly stats ordered by id, optionally
// restricted to a single year. page is 1-based.
func (s *Store) ListYearlyStats(ctx context.Context, year *int, page, size int) ([]domain.YearlyStat, error) {
	q := "SELECT id, year, avg_max_temp, avg_min_temp, total_precipitation FROM yearly_stats"
	var args []any
	if year != nil {
		q += " WHERE year = ?"
		args = append(args, *year)
	}
	q += " ORDER BY id LIMIT ? OFFSET ?"
	args = append(args, size, (page-1)*size)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list yearly stats: %w", err)
	}
	defer rows.Close()

	return scanStats(rows)
}

// ScanYearlyStats returns every stored yearly stat ordered by id.
func (s *Store) ScanYearlyStats(ctx context.Context) ([]domain.YearlyStat, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, year, avg_max_temp, avg_min_temp, total_precipitation FROM yearly_stats ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("scan yearly stats: %w", err)
	}
	defer rows.Close()
	return scanStats(rows)
}

func scanStats(rows *sql.Rows) ([]domain.YearlyStat, error) {
	out := []domain.YearlyStat{}
	for rows.Next() {
		var st domain.YearlyStat
		if err := rows.Scan(&st.ID, &st.Year, &st.AvgMaxTemp, &st.AvgMinTemp, &st.TotalPrecipitation); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}
