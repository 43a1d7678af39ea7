package jobs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

var (
	// ErrExportNotReady is returned while the worker has not stored the file.
	ErrExportNotReady = errors.New("jobs: export not ready")
	// ErrInvalidExportID is returned for ids that are not UUIDs.
	ErrInvalidExportID = errors.New("jobs: invalid export id")
)

// Exports stores finished batch exports as <id>.pdf files in one directory.
type Exports struct {
	dir string
}

// NewExports ensures dir exists.
func NewExports(dir string) (*Exports, error) {
	if dir == "" {
		return nil, fmt.Errorf("jobs: export directory not configured")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("jobs: export directory: %w", err)
	}
	return &Exports{dir: dir}, nil
}

// NewID returns a fresh export id.
func (e *Exports) NewID() string {
	return uuid.NewString()
}

func (e *Exports) path(id string) (string, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidExportID, id)
	}
	return filepath.Join(e.dir, parsed.String()+".pdf"), nil
}

// Write stores data for id. Readers never observe a partial file.
func (e *Exports) Write(id string, data []byte) error {
	target, err := e.path(id)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(e.dir, id+"-*.tmp")
	if err != nil {
		return fmt.Errorf("jobs: create export: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("jobs: write export: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("jobs: close export: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("jobs: publish export: %w", err)
	}
	return nil
}

// Open returns the stored file of id. The caller closes it.
func (e *Exports) Open(id string) (*os.File, error) {
	target, err := e.path(id)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(target)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrExportNotReady
	}
	if err != nil {
		return nil, fmt.Errorf("jobs: open export: %w", err)
	}
	return f, nil
}
