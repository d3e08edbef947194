// Command validate checks the integrity of a populated store against the
// source files it was ingested from. It re-parses every source line, confirms
// each valid record is stored exactly once, and confirms the most recent
// yearly stats agree with a fresh aggregation.
//
// Usage:
//
//	go run ./cmd/validate -data wx_data -db weather.db
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"github.com/couchcryptid/weather-stats-etl/internal/adapter/sqlite"
	"github.com/couchcryptid/weather-stats-etl/internal/domain"
	"github.com/couchcryptid/weather-stats-etl/internal/pipeline"
)

const statTolerance = 1e-9

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// store is what validation reads from.
type store interface {
	Exists(ctx context.Context, key domain.NaturalKey) (bool, error)
	ScanObservations(ctx context.Context) ([]domain.Observation, error)
	ScanYearlyStats(ctx context.Context) ([]domain.YearlyStat, error)
}

func main() {
	dataDir := flag.String("data", "", "directory containing the source *.txt files")
	dbPath := flag.String("db", "", "path of the SQLite database")
	flag.Parse()

	if *dataDir == "" || *dbPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()
	s, err := sqlite.Open(ctx, *dbPath, sqlite.Options{}, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: open store: %v\n", err)
		os.Exit(1)
	}
	code := run(ctx, *dataDir, s, os.Stdout)
	s.Close()
	os.Exit(code)
}

func run(ctx context.Context, dataDir string, s store, out io.Writer) int {
	fmt.Fprintln(out, "=== Weather Data Integrity Validation ===")
	fmt.Fprintln(out)

	source, err := loadSource(dataDir)
	if err != nil {
		fmt.Fprintf(out, "FATAL: load source files: %v\n", err)
		return 1
	}
	stored, err := s.ScanObservations(ctx)
	if err != nil {
		fmt.Fprintf(out, "FATAL: scan observations: %v\n", err)
		return 1
	}
	stats, err := s.ScanYearlyStats(ctx)
	if err != nil {
		fmt.Fprintf(out, "FATAL: scan yearly stats: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateCoverage(ctx, s, source),
		validateUniqueness(stored),
		validateStats(stored, stats),
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(out, "  %-42s %s\n", p.name, status)
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Records: %d source lines (%d valid, %d rejected), %d stored, %d yearly stat rows\n",
		source.lines, len(source.valid), source.rejected, len(stored), len(stats))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(out, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(out, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(out, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(out, "\nValidation FAILED.")
	return 1
}

// ── Source loading ──

type sourceRecord struct {
	file   string
	lineNo int
	obs    domain.Observation
}

type sourceSet struct {
	lines    int
	rejected int
	valid    []sourceRecord
}

func loadSource(dir string) (sourceSet, error) {
	var set sourceSet
	paths, err := pipeline.DiscoverFiles(dir)
	if err != nil {
		return set, err
	}
	for _, path := range paths {
		if err := loadFile(path, &set); err != nil {
			return set, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
	}
	return set, nil
}

func loadFile(path string, set *sourceSet) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		set.lines++
		obs, err := domain.ParseLine(sc.Text())
		if err != nil {
			set.rejected++
			continue
		}
		set.valid = append(set.valid, sourceRecord{file: filepath.Base(path), lineNo: lineNo, obs: obs})
	}
	return sc.Err()
}

// ── Phase 1: Coverage ──
// Every valid source record must be present in storage.

func validateCoverage(ctx context.Context, s store, source sourceSet) *phase {
	p := &phase{name: "Phase 1: Coverage (source vs store)"}
	for _, rec := range source.valid {
		found, err := s.Exists(ctx, rec.obs.Key())
		if err != nil {
			p.errorf("%s line %d: exists check failed: %v", rec.file, rec.lineNo, err)
			continue
		}
		if !found {
			k := rec.obs.Key()
			p.errorf("%s line %d: not stored: %s %.1f %.1f %.1f", rec.file, rec.lineNo, k.Date, k.MaxTemp, k.MinTemp, k.Precipitation)
		}
	}
	return p
}

// ── Phase 2: Uniqueness ──
// No natural key may be stored twice.

func validateUniqueness(stored []domain.Observation) *phase {
	p := &phase{name: "Phase 2: Uniqueness (natural key)"}
	seen := make(map[domain.NaturalKey]int64, len(stored))
	for _, o := range stored {
		k := o.Key()
		if first, ok := seen[k]; ok {
			p.errorf("ids %d and %d share key %s %.1f %.1f %.1f", first, o.ID, k.Date, k.MaxTemp, k.MinTemp, k.Precipitation)
			continue
		}
		seen[k] = o.ID
	}
	return p
}

// ── Phase 3: Stats consistency ──
// The latest row per year must match a fresh aggregation. Older rows are
// expected leftovers of earlier runs and are ignored.

func validateStats(stored []domain.Observation, stats []domain.YearlyStat) *phase {
	p := &phase{name: "Phase 3: Yearly stats (latest vs recomputed)"}
	if len(stats) == 0 {
		return p
	}

	latest := make(map[int]domain.YearlyStat)
	for _, s := range stats {
		if prev, ok := latest[s.Year]; !ok || s.ID > prev.ID {
			latest[s.Year] = s
		}
	}

	for _, want := range pipeline.Aggregate(stored) {
		got, ok := latest[want.Year]
		if !ok {
			p.errorf("%d: no yearly stat row", want.Year)
			continue
		}
		checkClose(p, want.Year, "avg_max_temp", want.AvgMaxTemp, got.AvgMaxTemp)
		checkClose(p, want.Year, "avg_min_temp", want.AvgMinTemp, got.AvgMinTemp)
		checkClose(p, want.Year, "total_precipitation", want.TotalPrecipitation, got.TotalPrecipitation)
	}
	return p
}

func checkClose(p *phase, year int, field string, want, got float64) {
	if math.Abs(want-got) > statTolerance {
		p.errorf("%d: %s recomputed=%.4f stored=%.4f", year, field, want, got)
	}
}
