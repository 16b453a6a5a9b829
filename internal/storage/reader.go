package storage

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	json "github.com/goccy/go-json"
)

// maxLineSize bounds one archived line; timelines run to a few MB
const maxLineSize = 16 * 1024 * 1024

// ArchiveFiles lists every archive file under baseDir in write order:
// cold (oldest) first, then warm, then hot.
func ArchiveFiles(baseDir string) ([]string, error) {
	var files []string
	for _, pattern := range []string{
		filepath.Join(baseDir, "cold", "*.jsonl.gz"),
		filepath.Join(baseDir, "warm", "*.jsonl"),
		filepath.Join(baseDir, "hot", "*.jsonl"),
	} {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, err
		}
		sort.Strings(matches)
		files = append(files, matches...)
	}
	return files, nil
}

// ReadArchive calls fn for each record in every archive file under baseDir.
// Lines that fail to decode are skipped and counted. fn returning an error stops the walk.
func ReadArchive(baseDir string, fn func(RawRecord) error) (skipped int, err error) {
	files, err := ArchiveFiles(baseDir)
	if err != nil {
		return 0, err
	}
	for _, path := range files {
		n, err := ReadFile(path, fn)
		skipped += n
		if err != nil {
			return skipped, err
		}
	}
	return skipped, nil
}

// ReadFile reads one .jsonl or .jsonl.gz archive file
func ReadFile(path string, fn func(RawRecord) error) (skipped int, err error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	var src io.Reader = file
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(file)
		if err != nil {
			return 0, fmt.Errorf("failed to open gzip %s: %w", filepath.Base(path), err)
		}
		defer gz.Close()
		src = gz
	}

	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 1024*1024), maxLineSize)

	for scanner.Scan() {
		// Records keep RawMessage slices, so detach from the scanner buffer
		line := append([]byte(nil), scanner.Bytes()...)
		if len(line) == 0 {
			continue
		}
		var record RawRecord
		if err := json.Unmarshal(line, &record); err != nil || record.MatchID == "" {
			skipped++
			continue
		}
		if err := fn(record); err != nil {
			return skipped, err
		}
	}
	if err := scanner.Err(); err != nil {
		return skipped, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	return skipped, nil
}
