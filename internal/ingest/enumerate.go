package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// Enumerate walks root recursively and returns every regular file whose base
// name matches none of the exclude globs. Directories are always descended,
// including dot-directories, since maildir++ stores subfolders as ".Sent",
// ".Archive" and so on. Symlinks are not followed. Paths are returned in
// lexical order.
func Enumerate(ctx context.Context, fs afero.Fs, root string, exclude []string) ([]string, error) {
	info, err := fs.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("invalid root %q: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("invalid root %q: not a directory", root)
	}

	var paths []string
	err = afero.Walk(fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		excluded, err := matchesAny(filepath.Base(path), exclude)
		if err != nil {
			return err
		}
		if !excluded {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	return paths, nil
}

func matchesAny(name string, patterns []string) (bool, error) {
	for _, pattern := range patterns {
		ok, err := filepath.Match(pattern, name)
		if err != nil {
			return false, fmt.Errorf("exclude pattern %q: %w", pattern, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
