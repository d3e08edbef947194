package domain

import "fmt"

// CommitMode selects the unit of work that is committed or rolled back together.
type CommitMode string

const (
	// CommitPerRun stages every accepted record of the run into a single batch.
	CommitPerRun CommitMode = "run"
	// CommitPerFile commits each file's accepted records as its own batch.
	CommitPerFile CommitMode = "file"
	// CommitPerRecord inserts records one at a time as they are accepted.
	CommitPerRecord CommitMode = "record"
)

// ParseCommitMode validates a commit mode string.
func ParseCommitMode(s string) (CommitMode, error) {
	switch m := CommitMode(s); m {
	case CommitPerRun, CommitPerFile, CommitPerRecord:
		return m, nil
	default:
		return "", fmt.Errorf("unknown commit mode %q (allowed: run, file, record)", s)
	}
}
