package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DiscoverFiles returns the regular *.txt files directly inside dir, sorted by name.
// Subdirectories are not descended into. A missing directory yields an error
// satisfying errors.Is(err, fs.ErrNotExist).
func DiscoverFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read source dir %s: %w", dir, err)
	}
	var paths []string
	for _, e := range entries {
		if !e.Type().IsRegular() || !strings.HasSuffix(e.Name(), ".txt") {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	return paths, nil
}
