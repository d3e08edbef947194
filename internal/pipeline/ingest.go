package pipeline

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/couchcryptid/weather-stats-etl/internal/domain"
	"github.com/couchcryptid/weather-stats-etl/internal/observability"
)

const maxLineBytes = 1 << 20

// IngestResult summarises one ingestion run.
type IngestResult struct {
	Files       int // files opened and read to the end
	FilesFailed int // files aborted on an I/O error
	Lines       int
	Rejected    int
	Duplicates  int
	Accepted    int // records that passed parsing and the existence check
	Committed   int // records durably written
	Elapsed     time.Duration
}

// Ingester loads observation files into storage, storing each natural key at most once.
type Ingester struct {
	store   ObservationStore
	logger  *slog.Logger
	metrics *observability.Metrics
	opts    options
}

// NewIngester creates an Ingester. By default the whole run is committed as one batch.
func NewIngester(store ObservationStore, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Ingester {
	return &Ingester{
		store:   store,
		logger:  logger,
		metrics: metrics,
		opts:    buildOptions(opts),
	}
}

// ioError marks a failure reading a source file. It aborts the file, not the run.
type ioError struct{ err error }

func (e ioError) Error() string { return e.err.Error() }
func (e ioError) Unwrap() error { return e.err }

// Run ingests the given files in order. Line-level rejections, duplicates,
// unreadable files, and batch conflicts are logged and counted; only storage
// failures other than a conflict and context cancellation are returned.
func (in *Ingester) Run(ctx context.Context, paths []string) (IngestResult, error) {
	var res IngestResult
	start := in.opts.clock.Now()
	in.logger.Info("ingestion started", "start", start.Format(time.RFC3339), "files", len(paths), "commit_mode", in.opts.commitMode)
	in.metrics.RunInProgress.Set(1)
	defer in.metrics.RunInProgress.Set(0)

	seen := make(map[domain.NaturalKey]struct{})
	var pending []domain.Observation

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		staged, err := in.ingestFile(ctx, path, seen, &res)
		if err != nil {
			var ioErr ioError
			if errors.As(err, &ioErr) {
				in.logger.Error("aborting unreadable file", "file", path, "error", ioErr.err)
				in.metrics.FilesProcessed.WithLabelValues("unreadable").Inc()
				res.FilesFailed++
				continue
			}
			return res, err
		}
		res.Files++
		in.metrics.FilesProcessed.WithLabelValues("ok").Inc()
		for _, obs := range staged {
			seen[obs.Key()] = struct{}{}
		}

		switch in.opts.commitMode {
		case domain.CommitPerFile:
			if err := in.commit(ctx, staged, &res); err != nil {
				return res, err
			}
		case domain.CommitPerRecord:
			// inserted as accepted
		default:
			pending = append(pending, staged...)
		}
	}

	if in.opts.commitMode == domain.CommitPerRun {
		if err := in.commit(ctx, pending, &res); err != nil {
			return res, err
		}
	}

	end := in.opts.clock.Now()
	res.Elapsed = end.Sub(start)
	in.metrics.IngestDuration.Observe(res.Elapsed.Seconds())
	in.logger.Info("ingestion finished",
		"start", start.Format(time.RFC3339),
		"end", end.Format(time.RFC3339),
		"elapsed", res.Elapsed.String(),
		"files", res.Files,
		"files_failed", res.FilesFailed,
		"lines", res.Lines,
		"rejected", res.Rejected,
		"duplicates", res.Duplicates,
		"accepted", res.Accepted,
		"committed", res.Committed,
	)
	return res, nil
}

// ingestFile parses one file and returns the records it accepted. Records are
// only checked against seen; the caller merges them once the whole file has
// been read so an aborted file leaves no keys behind. In per-record mode the
// returned records have already been inserted.
func (in *Ingester) ingestFile(ctx context.Context, path string, seen map[domain.NaturalKey]struct{}, res *IngestResult) ([]domain.Observation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ioError{err}
	}
	defer f.Close()

	var (
		staged    []domain.Observation
		fileSeen  = make(map[domain.NaturalKey]struct{})
		lines     int
		rejected  int
		dups      int
		committed int
	)

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for sc.Scan() {
		lines++
		line := sc.Text()

		obs, err := domain.ParseLine(line)
		if err != nil {
			rejected++
			in.metrics.LinesRejected.WithLabelValues(domain.RejectReason(err)).Inc()
			in.logger.Warn("rejected line", "file", path, "line_no", lines, "error", err)
			continue
		}

		key := obs.Key()
		if _, ok := seen[key]; ok {
			dups++
			in.logDuplicate(path, lines, key)
			continue
		}
		if _, ok := fileSeen[key]; ok {
			dups++
			in.logDuplicate(path, lines, key)
			continue
		}
		exists, err := in.store.Exists(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("check existence of %s: %w", key.Date, err)
		}
		if exists {
			dups++
			in.logDuplicate(path, lines, key)
			continue
		}

		if in.opts.commitMode == domain.CommitPerRecord {
			if err := in.store.InsertObservation(ctx, obs); err != nil {
				if errors.Is(err, domain.ErrDuplicate) {
					dups++
					in.logDuplicate(path, lines, key)
					continue
				}
				return nil, fmt.Errorf("insert observation %s: %w", key.Date, err)
			}
			committed++
		}
		fileSeen[key] = struct{}{}
		staged = append(staged, obs)
	}
	if err := sc.Err(); err != nil {
		if committed > 0 {
			// Already durable; count them even though the rest of the file is lost.
			res.Committed += committed
			res.Accepted += committed
			in.metrics.Committed.Add(float64(committed))
			for _, obs := range staged {
				seen[obs.Key()] = struct{}{}
			}
			in.publish(ctx, staged)
		}
		return nil, ioError{err}
	}

	res.Lines += lines
	res.Rejected += rejected
	res.Duplicates += dups
	res.Accepted += len(staged)
	in.metrics.LinesRead.Add(float64(lines))
	in.metrics.Duplicates.Add(float64(dups))

	if in.opts.commitMode == domain.CommitPerRecord && committed > 0 {
		res.Committed += committed
		in.metrics.Committed.Add(float64(committed))
		in.publish(ctx, staged)
	}

	in.logger.Info("file processed", "file", path, "lines", lines, "accepted", len(staged), "rejected", rejected, "duplicates", dups)
	return staged, nil
}

// commit writes a batch atomically. A storage conflict rolls the batch back
// and is logged, not returned.
func (in *Ingester) commit(ctx context.Context, batch []domain.Observation, res *IngestResult) error {
	if len(batch) == 0 {
		return nil
	}
	if err := in.store.InsertObservations(ctx, batch); err != nil {
		if errors.Is(err, domain.ErrStorageConflict) {
			in.metrics.CommitFailures.Inc()
			in.logger.Error("batch commit rolled back", "batch_size", len(batch), "error", err)
			return nil
		}
		return fmt.Errorf("commit batch of %d: %w", len(batch), err)
	}
	res.Committed += len(batch)
	in.metrics.Committed.Add(float64(len(batch)))
	in.publish(ctx, batch)
	return nil
}

func (in *Ingester) publish(ctx context.Context, batch []domain.Observation) {
	if in.opts.obsPub == nil {
		return
	}
	if err := in.opts.obsPub.PublishObservations(ctx, batch); err != nil {
		in.metrics.PublishFailures.WithLabelValues("observations").Inc()
		in.logger.Warn("publish observations failed", "count", len(batch), "error", err)
	}
}

func (in *Ingester) logDuplicate(path string, lineNo int, key domain.NaturalKey) {
	in.logger.Warn("duplicate observation skipped",
		"file", path,
		"line_no", lineNo,
		"date", key.Date,
		"max_temp", key.MaxTemp,
		"min_temp", key.MinTemp,
		"precipitation", key.Precipitation,
	)
}
