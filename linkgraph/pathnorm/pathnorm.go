// Package pathnorm canonicalizes hrefs and file paths into the site-relative
// keys that identify nodes in the link graph.
//
// Keys always use forward slashes and end in a file extension; extensionless
// paths get ".html" appended and directories resolve to their index.html.
// Whether a path names a directory is decided by a PathKind lookup, so the
// same input can normalize differently if the tree changes between runs.
package pathnorm

import (
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/xerrors"
)

const (
	// IndexFile is the key every empty or index-style href collapses to.
	IndexFile = "index.html"

	defaultExt = ".html"
)

// PathKind is implemented by types that can tell whether a site-relative,
// slash-separated path names an existing directory.
type PathKind interface {
	IsDir(name string) bool
}

// PathKindFunc is an adapter to allow the use of ordinary functions as
// PathKind instances.
type PathKindFunc func(name string) bool

// IsDir calls f(name).
func (f PathKindFunc) IsDir(name string) bool { return f(name) }

// FSPathKind answers directory lookups against a file system.
type FSPathKind struct {
	FS fs.FS
}

// IsDir implements PathKind. Paths escaping the file system root are never
// reported as directories.
func (k FSPathKind) IsDir(name string) bool {
	if !fs.ValidPath(name) {
		return false
	}
	info, err := fs.Stat(k.FS, name)
	return err == nil && info.IsDir()
}

// Normalizer produces canonical node keys relative to a site root.
type Normalizer struct {
	root string
	kind PathKind
}

// New returns a Normalizer for the site rooted at root. If kind is nil, the
// directory lookup is performed against the real file system under root.
func New(root string, kind PathKind) (*Normalizer, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, xerrors.Errorf("path normalizer: unable to resolve site root %q: %w", root, err)
	}
	if kind == nil {
		kind = FSPathKind{FS: os.DirFS(absRoot)}
	}
	return &Normalizer{root: absRoot, kind: kind}, nil
}

// Normalize canonicalizes a standalone path relative to the site root.
func (n *Normalizer) Normalize(raw string) string {
	return n.NormalizeFrom(raw, "")
}

// NormalizeFrom canonicalizes raw as it appears inside the document at
// base. An empty base behaves like Normalize.
func (n *Normalizer) NormalizeFrom(raw, base string) string {
	p := stripQueryAndFragment(raw)
	if p == "" || p == "index" || p == IndexFile {
		return IndexFile
	}

	dirHint := strings.HasSuffix(p, "/")
	if base != "" {
		p = n.resolve(p, base)
	} else {
		p = cleanRelative(p)
	}

	if dirHint || n.kind.IsDir(p) {
		p = path.Join(p, IndexFile)
	}
	if !hasExtension(p) {
		p += defaultExt
	}
	return strings.ReplaceAll(p, `\`, "/")
}

// resolve joins p onto the directory of base. Absolute results are
// re-expressed relative to the site root.
func (n *Normalizer) resolve(p, base string) string {
	var joined string
	if path.IsAbs(p) {
		joined = path.Clean(p)
	} else {
		joined = path.Join(path.Dir(filepath.ToSlash(base)), p)
	}
	if !path.IsAbs(joined) {
		return joined
	}

	rel, err := filepath.Rel(n.root, filepath.FromSlash(joined))
	if err != nil {
		return joined
	}
	return filepath.ToSlash(rel)
}

func stripQueryAndFragment(raw string) string {
	if idx := strings.IndexByte(raw, '#'); idx >= 0 {
		raw = raw[:idx]
	}
	if idx := strings.IndexByte(raw, '?'); idx >= 0 {
		raw = raw[:idx]
	}
	return raw
}

func cleanRelative(p string) string {
	for strings.HasPrefix(p, "./") {
		p = p[2:]
	}
	return path.Clean(p)
}

// hasExtension reports whether the final segment carries an extension.
// Leading dots do not count, so ".profile" has none while "archive.tar"
// does.
func hasExtension(p string) bool {
	base := strings.TrimLeft(path.Base(p), ".")
	return strings.Contains(base, ".")
}
