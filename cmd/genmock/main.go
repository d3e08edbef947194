// Command genmock writes synthetic station files in the ingest input format
// (YYYYMMDD, max, min, precipitation in tenths, tab separated) for local runs
// and load tests. Output is deterministic for a given seed.
//
// Usage:
//
//	go run ./cmd/genmock -out wx_data -stations 5 -start 1985-01-01 -days 3650
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/weather-stats-etl/internal/domain"
)

const missing = -9999

type genOptions struct {
	stations    int
	start       time.Time
	days        int
	seed        uint64
	missingRate float64
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "directory to write station files into")
	stations := flag.Int("stations", 3, "number of station files")
	start := flag.String("start", "1985-01-01", "first date (YYYY-MM-DD)")
	days := flag.Int("days", 365, "days per station")
	seed := flag.Uint64("seed", 1, "random seed")
	missingRate := flag.Float64("missing-rate", 0.01, "fraction of values written as -9999")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}
	startDate, err := time.Parse(domain.DateLayout, *start)
	if err != nil {
		return fmt.Errorf("invalid -start: %w", err)
	}

	opts := genOptions{stations: *stations, start: startDate, days: *days, seed: *seed, missingRate: *missingRate}
	paths, err := generate(*out, opts)
	if err != nil {
		return err
	}
	log.Printf("wrote %d station files (%d lines each) to %s", len(paths), opts.days, *out)
	return nil
}

func generate(dir string, opts genOptions) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	paths := make([]string, 0, opts.stations)
	for s := range opts.stations {
		path := filepath.Join(dir, fmt.Sprintf("USC%08d.txt", 110000+s))
		rng := rand.New(rand.NewPCG(opts.seed, uint64(s)))
		if err := writeStation(path, rng, opts); err != nil {
			return nil, fmt.Errorf("station %d: %w", s, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeStation(path string, rng *rand.Rand, opts genOptions) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	for d := range opts.days {
		day := opts.start.AddDate(0, 0, d)
		maxT, minT, precip := sample(rng, day)
		if rng.Float64() < opts.missingRate {
			maxT = missing
		}
		if rng.Float64() < opts.missingRate {
			precip = missing
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\n", day.Format("20060102"), maxT, minT, precip)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// sample draws a plausible day in tenths: a seasonal temperature curve with
// noise, and mostly-dry precipitation.
func sample(rng *rand.Rand, day time.Time) (maxT, minT, precip int) {
	season := math.Sin(2 * math.Pi * float64(day.YearDay()-105) / 365)
	high := 150 + 150*season + rng.NormFloat64()*40
	low := high - 80 - rng.Float64()*60
	p := 0.0
	if rng.Float64() < 0.3 {
		p = rng.ExpFloat64() * 60
	}
	return int(math.Round(high)), int(math.Round(low)), int(math.Round(p))
}
