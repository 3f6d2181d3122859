package objectstore

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// DirStore serves documents from a local directory tree. Keys are paths
// relative to the root.
type DirStore struct {
	root string
}

// NewDirStore creates a store over an existing directory.
func NewDirStore(root string) (*DirStore, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}
	return &DirStore{root: root}, nil
}

// List walks the tree and returns every regular file's relative path.
func (s *DirStore) List(ctx context.Context) ([]string, error) {
	var keys []string
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		keys = append(keys, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// Download copies the file to dest.
func (s *DirStore) Download(ctx context.Context, key, dest string) error {
	src, err := os.Open(filepath.Join(s.root, key))
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		return err
	}
	return out.Sync()
}

// OriginURI returns a file:// URI for the object.
func (s *DirStore) OriginURI(key string) string {
	return "file://" + filepath.Join(s.root, key)
}

var _ Store = (*DirStore)(nil)
