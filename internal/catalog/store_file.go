package catalog

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const defaultFilePerm = 0o644

// FileBackend keeps the snapshot as a JSON lines file. Save writes a temp
// file next to the target and renames it into place.
type FileBackend struct {
	path string
	perm os.FileMode
}

func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path, perm: defaultFilePerm}
}

func (b *FileBackend) Target() string { return b.path }

func (b *FileBackend) Load(ctx context.Context) ([]Product, error) {
	data, err := os.ReadFile(b.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, err
	}
	return DecodeLines(data)
}

func (b *FileBackend) Save(ctx context.Context, products []Product) error {
	data, err := EncodeLines(products)
	if err != nil {
		return &PersistenceError{Op: "encode", Target: b.path, Err: err}
	}

	tmp, err := os.CreateTemp(filepath.Dir(b.path), ".catalog-*.tmp")
	if err != nil {
		return &PersistenceError{Op: "create temp", Target: b.path, Err: err}
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return &PersistenceError{Op: "write", Target: b.path, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return &PersistenceError{Op: "sync", Target: b.path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &PersistenceError{Op: "close", Target: b.path, Err: err}
	}
	if err := os.Chmod(tmp.Name(), b.perm); err != nil {
		return &PersistenceError{Op: "chmod", Target: b.path, Err: err}
	}
	if err := os.Rename(tmp.Name(), b.path); err != nil {
		return &PersistenceError{Op: "rename", Target: b.path, Err: err}
	}
	return nil
}

// Ping checks that the directory holding the snapshot exists.
func (b *FileBackend) Ping(ctx context.Context) error {
	dir := filepath.Dir(b.path)
	fi, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !fi.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	return nil
}
