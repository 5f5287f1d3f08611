// Package fsutil locates plugin image files on disk.
package fsutil

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
)

// FindByExtension walks root recursively and returns the path of every
// regular file whose name carries the given extension. Paths come back
// in filepath.WalkDir's lexical order, so preloading a plugin
// directory is deterministic across platforms.
func FindByExtension(root, extension string) ([]string, error) {
	if extension == "" {
		return nil, errors.New("fsutil: extension must not be empty")
	}

	var paths []string
	walk := func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), extension) {
			return nil
		}
		paths = append(paths, path)
		return nil
	}
	if err := filepath.WalkDir(root, walk); err != nil {
		return nil, err
	}
	return paths, nil
}
