package builder

import (
	"io/fs"
	"path"
	"strings"

	"golang.org/x/xerrors"
)

const documentSuffix = ".html"

// Matcher is implemented by types that decide whether a site-relative path
// is excluded from the walk. Directory paths are passed with a trailing
// slash.
type Matcher interface {
	MatchesPath(name string) bool
}

// discoverDocuments walks fsys top-down and returns every file whose name
// ends in ".html". Within a directory, files are visited before
// subdirectories and both are taken in lexical order. Symlinked
// directories are not followed. Any error reading a directory aborts the
// walk.
func discoverDocuments(fsys fs.FS, exclude Matcher) ([]string, error) {
	var docs []string
	if err := walkDir(fsys, ".", exclude, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func walkDir(fsys fs.FS, dir string, exclude Matcher, docs *[]string) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return xerrors.Errorf("read directory %q: %w", dir, err)
	}

	var subdirs []string
	for _, entry := range entries {
		name := path.Join(dir, entry.Name())

		switch {
		case entry.IsDir():
			if !isExcluded(exclude, name+"/") {
				subdirs = append(subdirs, name)
			}
		case entry.Type()&fs.ModeSymlink != 0 && isDirLink(fsys, name):
			// Listed as a directory but never descended into.
		case strings.HasSuffix(entry.Name(), documentSuffix) && !isExcluded(exclude, name):
			*docs = append(*docs, name)
		}
	}

	for _, sub := range subdirs {
		if err := walkDir(fsys, sub, exclude, docs); err != nil {
			return err
		}
	}
	return nil
}

func isDirLink(fsys fs.FS, name string) bool {
	info, err := fs.Stat(fsys, name)
	return err == nil && info.IsDir()
}

func isExcluded(exclude Matcher, name string) bool {
	return exclude != nil && exclude.MatchesPath(name)
}
