package storage

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"
)

const (
	// Rotation triggers
	MaxRecordsPerFile = 500
	MaxFileAge        = 1 * time.Hour

	filePrefix = "raw_matches_"
)

// FileRotator appends RawRecords to rotating JSONL files.
// Files move hot -> warm on rotation and warm -> cold (gzip) on archive.
type FileRotator struct {
	mu     sync.Mutex
	logger *zap.Logger

	hotDir  string // Active writes
	warmDir string // Closed files awaiting compression
	coldDir string // Compressed archives

	currentFile   *os.File
	currentWriter *bufio.Writer
	currentPath   string
	records       int
	fileOpenedAt  time.Time
	seq           int
}

// NewFileRotator creates hot/warm/cold under baseDir. The first file is opened lazily.
func NewFileRotator(baseDir string, logger *zap.Logger) (*FileRotator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &FileRotator{
		logger:  logger.Named("archive"),
		hotDir:  filepath.Join(baseDir, "hot"),
		warmDir: filepath.Join(baseDir, "warm"),
		coldDir: filepath.Join(baseDir, "cold"),
	}

	for _, dir := range []string{r.hotDir, r.warmDir, r.coldDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return r, nil
}

// Write appends one record and flushes it, rotating when the file is full or old
func (r *FileRotator) Write(record RawRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.currentFile == nil || r.shouldRotate() {
		if err := r.rotate(); err != nil {
			return err
		}
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record %s: %w", record.MatchID, err)
	}
	if _, err := r.currentWriter.Write(data); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	if err := r.currentWriter.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}
	if err := r.currentWriter.Flush(); err != nil {
		return fmt.Errorf("failed to flush: %w", err)
	}

	r.records++
	return nil
}

func (r *FileRotator) shouldRotate() bool {
	return r.records >= MaxRecordsPerFile || time.Since(r.fileOpenedAt) >= MaxFileAge
}

// rotate closes the current file into warm/ and opens a fresh one in hot/
func (r *FileRotator) rotate() error {
	if err := r.closeCurrent(); err != nil {
		return err
	}

	r.seq++
	filename := fmt.Sprintf("%s%s_%03d.jsonl", filePrefix, time.Now().Format("2006-01-02_15-04-05"), r.seq)
	r.currentPath = filepath.Join(r.hotDir, filename)

	file, err := os.OpenFile(r.currentPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to create new file: %w", err)
	}

	r.currentFile = file
	r.currentWriter = bufio.NewWriterSize(file, 64*1024)
	r.records = 0
	r.fileOpenedAt = time.Now()

	r.logger.Debug("opened archive file", zap.String("file", filename))
	return nil
}

// closeCurrent moves a non-empty current file to warm/ and removes an empty one
func (r *FileRotator) closeCurrent() error {
	if r.currentFile == nil {
		return nil
	}

	if err := r.currentWriter.Flush(); err != nil {
		return fmt.Errorf("failed to flush before rotation: %w", err)
	}
	if err := r.currentFile.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}
	r.currentFile = nil

	if r.records == 0 {
		os.Remove(r.currentPath)
		return nil
	}

	warmPath := filepath.Join(r.warmDir, filepath.Base(r.currentPath))
	if err := os.Rename(r.currentPath, warmPath); err != nil {
		return fmt.Errorf("failed to move to warm storage: %w", err)
	}
	r.logger.Info("moved archive file to warm",
		zap.String("file", filepath.Base(r.currentPath)),
		zap.Int("records", r.records))
	return nil
}

// Close flushes and closes the current file
func (r *FileRotator) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closeCurrent()
}

// Stats returns current rotator statistics
func (r *FileRotator) Stats() (recordsInCurrentFile int, currentFileName string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.records, filepath.Base(r.currentPath)
}

// ArchiveWarm compresses every warm file into cold/ and returns how many were archived
func (r *FileRotator) ArchiveWarm() (int, error) {
	r.mu.Lock()
	warmDir, coldDir := r.warmDir, r.coldDir
	r.mu.Unlock()

	files, err := filepath.Glob(filepath.Join(warmDir, "*.jsonl"))
	if err != nil {
		return 0, err
	}

	archived := 0
	for _, path := range files {
		if err := compressFile(path, coldDir); err != nil {
			return archived, err
		}
		archived++
	}
	if archived > 0 {
		r.logger.Info("archived warm files", zap.Int("files", archived))
	}
	return archived, nil
}

// compressFile gzips path into dir as <name>.gz and removes path.
// A partial .gz is removed on failure.
func compressFile(path, dir string) (err error) {
	src, err := os.Open(path)
	if err != nil {
		return err
	}

	gzPath := filepath.Join(dir, filepath.Base(path)+".gz")
	dst, err := os.Create(gzPath)
	if err != nil {
		src.Close()
		return err
	}
	defer func() {
		if err != nil {
			os.Remove(gzPath)
		}
	}()

	zw := gzip.NewWriter(dst)
	_, err = io.Copy(zw, src)
	src.Close()
	if err != nil {
		zw.Close()
		dst.Close()
		return fmt.Errorf("failed to compress %s: %w", filepath.Base(path), err)
	}
	if err = zw.Close(); err != nil {
		dst.Close()
		return err
	}
	if err = dst.Close(); err != nil {
		return err
	}
	return os.Remove(path)
}
