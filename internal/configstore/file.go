package configstore

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"github.com/dmitrijs2005/dbkeeper/internal/common"
	"github.com/dmitrijs2005/dbkeeper/internal/filex"
)

// FileStore keeps the envelope in a single file on local disk.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the envelope location.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Load(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, ioError("read "+s.path, err)
	}
	return data, nil
}

// Persist writes data via temp file + rename, so a crash mid-write leaves
// the previous envelope intact.
func (s *FileStore) Persist(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := filex.WriteFileAtomic(s.path, data, 0o600); err != nil {
		return ioError("write "+s.path, err)
	}
	return nil
}

// Delete removes the envelope. A missing file is not an error.
func (s *FileStore) Delete(ctx context.Context) error {
	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return ioError("remove "+s.path, err)
	}
	return nil
}
