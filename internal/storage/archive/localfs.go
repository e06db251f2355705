// internal/storage/archive/localfs.go
package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// LocalFS implements Storage for local filesystem
type LocalFS struct {
	basePath string
}

// NewLocalFS creates a new LocalFS storage
func NewLocalFS(basePath string) (*LocalFS, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("creating base path: %w", err)
	}
	return &LocalFS{basePath: basePath}, nil
}

// BasePath returns the directory objects are stored under
func (l *LocalFS) BasePath() string {
	return l.basePath
}

func (l *LocalFS) fullPath(path string) string {
	return filepath.Join(l.basePath, filepath.FromSlash(path))
}

func (l *LocalFS) Write(ctx context.Context, path string, data []byte) error {
	fullPath := l.fullPath(path)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("creating directories: %w", err)
	}

	// write through a temp file so a page being served is never half written
	tmp := fullPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, fullPath)
}

// WriteObject stores data. Content metadata is decided by the file server
// for local files, so opts is not persisted.
func (l *LocalFS) WriteObject(ctx context.Context, path string, data []byte, opts WriteOptions) error {
	return l.Write(ctx, path, data)
}

func (l *LocalFS) Read(ctx context.Context, path string) ([]byte, error) {
	return os.ReadFile(l.fullPath(path))
}

func (l *LocalFS) List(ctx context.Context, prefix string) ([]string, error) {
	objs, err := l.ListObjects(ctx, prefix)
	if err != nil {
		return nil, err
	}
	paths := make([]string, len(objs))
	for i, o := range objs {
		paths[i] = o.Path
	}
	return paths, nil
}

func (l *LocalFS) ListObjects(ctx context.Context, prefix string) ([]Object, error) {
	var objs []Object
	searchPath := l.fullPath(prefix)

	err := filepath.Walk(searchPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || filepath.Ext(path) == ".tmp" {
			return nil
		}
		relPath, _ := filepath.Rel(l.basePath, path)
		objs = append(objs, Object{
			Path:         filepath.ToSlash(relPath),
			Size:         info.Size(),
			LastModified: info.ModTime(),
		})
		return nil
	})

	if os.IsNotExist(err) {
		return []Object{}, nil
	}
	return objs, err
}

func (l *LocalFS) Delete(ctx context.Context, path string) error {
	return os.Remove(l.fullPath(path))
}

func (l *LocalFS) Exists(ctx context.Context, path string) (bool, error) {
	_, err := os.Stat(l.fullPath(path))
	if os.IsNotExist(err) {
		return false, nil
	}
	return err == nil, err
}

// URL returns a file:// address of the object.
func (l *LocalFS) URL(path string) string {
	abs, err := filepath.Abs(l.fullPath(path))
	if err != nil {
		abs = l.fullPath(path)
	}
	return "file://" + filepath.ToSlash(abs)
}
