package staging

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalStore is the default Blob Staging backend: files live under a single
// upload directory, one file per job id (spec.md §6 UPLOAD_DIR).
type LocalStore struct {
	dir string
}

// NewLocalStore creates a LocalStore rooted at dir, creating it if needed.
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir %s: %w", dir, err)
	}
	return &LocalStore{dir: dir}, nil
}

func (s *LocalStore) path(jobID string) string {
	return filepath.Join(s.dir, jobID)
}

func (s *LocalStore) Put(ctx context.Context, jobID string, r io.Reader) (int64, error) {
	f, err := os.Create(s.path(jobID))
	if err != nil {
		return 0, fmt.Errorf("stage file for job %s: %w", jobID, err)
	}
	defer f.Close()

	n, err := io.Copy(f, r)
	if err != nil {
		return n, fmt.Errorf("write staged file for job %s: %w", jobID, err)
	}
	return n, nil
}

func (s *LocalStore) Open(ctx context.Context, jobID string) (io.ReadCloser, error) {
	f, err := os.Open(s.path(jobID))
	if err != nil {
		return nil, fmt.Errorf("open staged file for job %s: %w", jobID, err)
	}
	return f, nil
}

func (s *LocalStore) Delete(ctx context.Context, jobID string) error {
	if err := os.Remove(s.path(jobID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete staged file for job %s: %w", jobID, err)
	}
	return nil
}
