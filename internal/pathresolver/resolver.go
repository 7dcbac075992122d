// Package pathresolver maps a raw HTTP request target to a file beneath a
// document root, enforcing the document-root jail described in spec.md §4.2.
//
// This generalizes the original implementation's URLParser
// (original_source/HW5/process.py): percent-decode, strip the query
// string, join with the root, resolve directory indexes, and reject
// anything that normalizes outside the root.
package pathresolver

import (
	"errors"
	"net/url"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned for every case spec.md §4.2 maps to a 404: a
// path that escapes the document root, a target that doesn't exist, or a
// directory with no index page.
var ErrNotFound = errors.New("pathresolver: not found")

// Resolver resolves request targets beneath Root using IndexPage as the
// directory index file name.
type Resolver struct {
	// Root is the absolute, normalized document root directory.
	Root string
	// IndexPage is the file served for a directory target, e.g. "index.html".
	IndexPage string
	// stat is overridable in tests; defaults to os.Stat-based helpers.
	stat statFunc
}

// New returns a Resolver over root using indexPage as the directory index.
// root must already be absolute and normalized (config.Config.Validate
// does this at startup).
func New(root, indexPage string) *Resolver {
	return &Resolver{
		Root:      filepath.Clean(root),
		IndexPage: indexPage,
		stat:      osStat,
	}
}

// Resolve implements spec.md §4.2 steps 1-7 and returns the absolute
// filesystem path of the file to serve, or ErrNotFound.
//
// A trailing slash on a target that names a file (e.g. "/img.png/") is
// served as that file rather than rejected: filepath.Join+Clean collapses
// the trailing slash before the stat, so nothing here distinguishes
// "/img.png" from "/img.png/". spec.md's wording doesn't resolve this
// either way, but it is a deliberate divergence from the original
// implementation, which treats a trailing slash as a directory marker and
// 404s this case (original_source/HW5/process.py's isDir check, followed
// by a listdir call that fails against a plain file).
//
// Symlinks inside the document root are followed by the OS and are not
// separately validated against the jail, per spec.md §9 — an implementer
// wanting to forbid symlink escape would need to resolve each path
// component with os.Lstat before the final stat, which this resolver does
// not do.
func (r *Resolver) Resolve(target string) (string, error) {
	rawPath := stripQuery(target)

	decoded, err := url.PathUnescape(rawPath)
	if err != nil {
		return "", ErrNotFound
	}

	if decoded == "" || decoded == "/" {
		decoded = "/" + r.IndexPage
	}

	joined := filepath.Join(r.Root, filepath.FromSlash(decoded))
	clean := filepath.Clean(joined)

	if !withinRoot(clean, r.Root) {
		return "", ErrNotFound
	}

	info, err := r.stat(clean)
	if err != nil {
		return "", ErrNotFound
	}

	if info.IsDir() {
		withIndex := filepath.Join(clean, r.IndexPage)
		idxInfo, err := r.stat(withIndex)
		if err != nil || idxInfo.IsDir() {
			return "", ErrNotFound
		}
		return withIndex, nil
	}

	return clean, nil
}

// stripQuery drops everything from the first '?' onward, per spec.md §4.2
// step 1. A malformed query string must never cause a parse failure; it is
// simply discarded.
func stripQuery(target string) string {
	if i := strings.IndexByte(target, '?'); i >= 0 {
		return target[:i]
	}
	return target
}

// withinRoot reports whether clean (already filepath.Clean'd) has root as
// a path prefix. The comparison is purely lexical on the normalized
// strings, per spec.md §4.2 step 5.
func withinRoot(clean, root string) bool {
	if clean == root {
		return true
	}
	return strings.HasPrefix(clean, root+string(filepath.Separator))
}
