package pipeline

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var (
	// ErrInputNotFound is returned when a configured input path does not exist.
	ErrInputNotFound = errors.New("input not found")
	// ErrNoInputFiles is returned when the inputs contain no csv files.
	ErrNoInputFiles = errors.New("no csv input files")
)

// Discover expands inputs into the ordered list of csv files to process.
// Explicit files keep their declared order, directory contents are walked
// recursively and sorted lexicographically. A file reached twice is kept at
// its first position.
func Discover(inputs []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	add := func(path string) {
		key := filepath.Clean(path)
		if abs, err := filepath.Abs(path); err == nil {
			key = abs
		}
		if seen[key] {
			return
		}
		seen[key] = true
		files = append(files, path)
	}

	for _, input := range inputs {
		info, err := os.Stat(input)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("%w: %s", ErrInputNotFound, input)
			}
			return nil, fmt.Errorf("stat %s: %w", input, err)
		}

		if !info.IsDir() {
			add(input)
			continue
		}

		found, err := walkCSV(input)
		if err != nil {
			return nil, err
		}
		for _, f := range found {
			add(f)
		}
	}

	if len(files) == 0 {
		return nil, ErrNoInputFiles
	}
	return files, nil
}

func walkCSV(dir string) ([]string, error) {
	var found []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".csv") {
			found = append(found, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", dir, err)
	}

	sort.Strings(found)
	return found, nil
}
