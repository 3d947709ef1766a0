package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// RotationPolicy controls when FileStorage rotates its append log,
// grounded on file.rs's RotationPolicy.
type RotationPolicy struct {
	kind        rotationKind
	maxSizeByte int64
}

type rotationKind int

const (
	rotationNever rotationKind = iota
	rotationDaily
	rotationSizeBased
)

// RotationNever disables rotation.
func RotationNever() RotationPolicy { return RotationPolicy{kind: rotationNever} }

// RotationDaily rotates when the current file's last-modified date is
// strictly before today (UTC).
func RotationDaily() RotationPolicy { return RotationPolicy{kind: rotationDaily} }

// RotationSizeBased rotates once the file reaches maxSizeBytes.
func RotationSizeBased(maxSizeBytes int64) RotationPolicy {
	return RotationPolicy{kind: rotationSizeBased, maxSizeByte: maxSizeBytes}
}

// FileStorage is a newline-delimited-JSON append log, grounded on
// file.rs's FileAuditStorage.
type FileStorage struct {
	path     string
	rotation RotationPolicy

	mu   sync.Mutex
	file *os.File
}

// NewFileStorage opens (creating if necessary) an append-only log at
// path, applying rotation.
func NewFileStorage(path string, rotation RotationPolicy) (*FileStorage, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("audit: creating directory for log: %w", err)
		}
	}
	fs := &FileStorage{path: path, rotation: rotation}
	if err := fs.openFile(); err != nil {
		return nil, err
	}
	return fs, nil
}

func (f *FileStorage) openFile() error {
	file, err := os.OpenFile(f.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("audit: opening log file: %w", err)
	}
	f.file = file
	return nil
}

// rotateIfNeeded checks the configured policy and rotates if due.
// Caller must hold f.mu.
func (f *FileStorage) rotateIfNeeded() error {
	switch f.rotation.kind {
	case rotationNever:
		return nil
	case rotationDaily:
		return f.rotateDaily()
	case rotationSizeBased:
		return f.rotateIfSizeExceeded(f.rotation.maxSizeByte)
	default:
		return nil
	}
}

func (f *FileStorage) rotateDaily() error {
	info, err := os.Stat(f.path)
	if err != nil {
		return fmt.Errorf("audit: stat log file: %w", err)
	}
	modifiedDate := info.ModTime().UTC().Truncate(24 * time.Hour)
	today := time.Now().UTC().Truncate(24 * time.Hour)
	if modifiedDate.Before(today) {
		return f.performRotation()
	}
	return nil
}

func (f *FileStorage) rotateIfSizeExceeded(maxSize int64) error {
	info, err := os.Stat(f.path)
	if err != nil {
		return fmt.Errorf("audit: stat log file: %w", err)
	}
	if info.Size() >= maxSize {
		return f.performRotation()
	}
	return nil
}

func (f *FileStorage) performRotation() error {
	if f.file != nil {
		_ = f.file.Close()
		f.file = nil
	}

	ext := filepath.Ext(f.path)
	if ext == "" {
		ext = ".log"
	} else {
		ext = ext[1:]
	}
	timestamp := time.Now().UTC().Format("20060102-150405")
	base := strings.TrimSuffix(f.path, filepath.Ext(f.path))
	rotatedPath := fmt.Sprintf("%s.%s.%s", base, ext, timestamp)

	if err := os.Rename(f.path, rotatedPath); err != nil {
		return fmt.Errorf("audit: rotating log file: %w", err)
	}
	return f.openFile()
}

func (f *FileStorage) readEvents() ([]Event, error) {
	file, err := os.Open(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("audit: opening log for read: %w", err)
	}
	defer file.Close()

	var events []Event
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var e Event
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			// Malformed lines are skipped rather than aborting the
			// whole read, matching file.rs's read_events.
			continue
		}
		events = append(events, e)
	}
	return events, scanner.Err()
}

func filterAndSort(events []Event, filter Filter) []Event {
	var matched []Event
	for _, e := range events {
		if filter.Matches(e) {
			matched = append(matched, e)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Timestamp.After(matched[j].Timestamp) })

	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return nil
		}
		matched = matched[filter.Offset:]
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched
}

func (f *FileStorage) Store(ctx context.Context, event Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.rotateIfNeeded(); err != nil {
		return err
	}
	if f.file == nil {
		return fmt.Errorf("audit: log file not open")
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("audit: marshaling event: %w", err)
	}
	if _, err := f.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("audit: writing event: %w", err)
	}
	return f.file.Sync()
}

func (f *FileStorage) Query(ctx context.Context, filter Filter) ([]Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	events, err := f.readEvents()
	if err != nil {
		return nil, err
	}
	return filterAndSort(events, filter), nil
}

func (f *FileStorage) Get(ctx context.Context, id string) (Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	events, err := f.readEvents()
	if err != nil {
		return Event{}, err
	}
	for _, e := range events {
		if e.ID == id {
			return e, nil
		}
	}
	return Event{}, ErrEventNotFound
}

// DeleteOlderThan requires a read-filter-rewrite per file.rs's
// delete_older_than: read all events, partition by cutoff, rewrite the
// file with the kept set, then reopen for append.
func (f *FileStorage) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	events, err := f.readEvents()
	if err != nil {
		return 0, err
	}

	var kept []Event
	var deleted int64
	for _, e := range events {
		if e.Timestamp.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, e)
	}

	if deleted == 0 {
		return 0, nil
	}

	if f.file != nil {
		_ = f.file.Close()
		f.file = nil
	}

	rewritten, err := os.OpenFile(f.path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return 0, fmt.Errorf("audit: rewriting log file: %w", err)
	}
	w := bufio.NewWriter(rewritten)
	for _, e := range kept {
		data, err := json.Marshal(e)
		if err != nil {
			_ = rewritten.Close()
			return 0, fmt.Errorf("audit: marshaling kept event: %w", err)
		}
		if _, err := w.Write(append(data, '\n')); err != nil {
			_ = rewritten.Close()
			return 0, fmt.Errorf("audit: writing kept event: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		_ = rewritten.Close()
		return 0, fmt.Errorf("audit: flushing rewritten log: %w", err)
	}
	if err := rewritten.Close(); err != nil {
		return 0, fmt.Errorf("audit: closing rewritten log: %w", err)
	}

	if err := f.openFile(); err != nil {
		return 0, err
	}

	return deleted, nil
}

func (f *FileStorage) Count(ctx context.Context, filter Filter) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	events, err := f.readEvents()
	if err != nil {
		return 0, err
	}
	var n int64
	for _, e := range events {
		if filter.Matches(e) {
			n++
		}
	}
	return n, nil
}

func (f *FileStorage) HealthCheck(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.file == nil {
		return fmt.Errorf("audit: log file not open")
	}
	if _, err := os.Stat(f.path); err != nil {
		return fmt.Errorf("audit: log file missing: %w", err)
	}
	return nil
}

// Close releases the underlying file handle.
func (f *FileStorage) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.file == nil {
		return nil
	}
	err := f.file.Close()
	f.file = nil
	return err
}
