package server

import (
	"io/fs"
	"path"
)

// findFile searches fsys top-down for a non-directory entry called
// fileName and returns its path, or an empty string if there is none. The
// files of a directory are checked before any of its subdirectories.
// Unreadable directories are skipped.
func findFile(fsys fs.FS, fileName string) string {
	return findIn(fsys, ".", fileName)
}

func findIn(fsys fs.FS, dir, fileName string) string {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return ""
	}

	var subdirs []string
	for _, entry := range entries {
		if entry.IsDir() {
			subdirs = append(subdirs, path.Join(dir, entry.Name()))
			continue
		}
		if entry.Name() == fileName {
			return path.Join(dir, entry.Name())
		}
	}

	for _, sub := range subdirs {
		if found := findIn(fsys, sub, fileName); found != "" {
			return found
		}
	}
	return ""
}
