// Package fsutil provides file system utility functions.
package fsutil

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FindFilesByExtension recursively searches the given root path for all files ending
// with the specified extension. It returns their full paths in lexical walk order.
func FindFilesByExtension(rootPath string, extension string) ([]string, error) {
	if extension == "" {
		panic("extension must not be empty")
	}

	var files []string
	err := filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), extension) {
			files = append(files, path)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	return files, nil
}

// Resolve expands a flow path into the list of files it names. A regular
// file must carry the extension; a directory is searched recursively.
func Resolve(path string, extension string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("flow path '%s': %w", path, err)
	}

	if info.IsDir() {
		return FindFilesByExtension(path, extension)
	}
	if !strings.HasSuffix(path, extension) {
		return nil, fmt.Errorf("flow path '%s' is not a %s file", path, extension)
	}
	return []string{path}, nil
}
