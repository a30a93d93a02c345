package scan

import (
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

type FileInfo struct {
	Path  string
	Mtime int64
	Size  int64
}

// ScanLogs walks root and returns every regular file whose slash-separated
// path relative to root matches one of patterns. A missing root yields no
// files and no error.
func ScanLogs(root string, patterns []string) ([]FileInfo, error) {
	if root == "" {
		return nil, nil
	}
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, doublestar.ErrBadPattern
		}
	}

	var files []FileInfo
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // skip unreadable dirs
		}
		if info.IsDir() {
			if path != root && filepath.Base(path) == ".ipynb_checkpoints" {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		if !matchAny(patterns, filepath.ToSlash(rel)) {
			return nil
		}
		files = append(files, FileInfo{
			Path:  path,
			Mtime: info.ModTime().Unix(),
			Size:  info.Size(),
		})
		return nil
	})
	return files, err
}

func matchAny(patterns []string, rel string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}
