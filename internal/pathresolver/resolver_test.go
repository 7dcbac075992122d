package pathresolver

import (
	"os"
	"path/filepath"
	"testing"
)

func newTestRoot(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	write := func(rel, contents string) {
		full := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte(contents), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	write("index.html", "<html>hi</html>")
	write("dir/index.html", "DIR")
	write("page.html", "<p>page</p>")
	write("img.png", string(make([]byte, 100)))
	write("noindex/placeholder.txt", "x")

	return root
}

func TestResolve(t *testing.T) {
	root := newTestRoot(t)
	r := New(root, "index.html")

	cases := []struct {
		name    string
		target  string
		wantRel string
		wantErr bool
	}{
		{"root index", "/", "index.html", false},
		{"directory with index", "/dir/", "dir/index.html", false},
		{"directory without trailing slash", "/dir", "dir/index.html", false},
		{"percent encoded", "/%70%61%67%65.html", "page.html", false},
		{"query string ignored", "/page.html?x=1", "page.html", false},
		{"escape attempt", "/a/../../etc/passwd", "", true},
		{"missing file", "/missing.txt", "", true},
		{"directory without index", "/noindex/", "", true},
		// Diverges from the original implementation, which 404s a trailing
		// slash on a file name (original_source/HW5/process.py's isDir
		// check); see the Resolve doc comment for why this resolver doesn't.
		{"file served despite trailing slash", "/img.png/", "img.png", false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := r.Resolve(c.target)
			if c.wantErr {
				if err == nil {
					t.Fatalf("Resolve(%q) = %q, want error", c.target, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve(%q) unexpected error: %v", c.target, err)
			}
			want := filepath.Join(root, c.wantRel)
			if got != want {
				t.Errorf("Resolve(%q) = %q, want %q", c.target, got, want)
			}
		})
	}
}

func TestResolveInvalidEscape(t *testing.T) {
	root := newTestRoot(t)
	r := New(root, "index.html")

	if _, err := r.Resolve("/%zz"); err != ErrNotFound {
		t.Errorf("Resolve with invalid percent-escape = %v, want ErrNotFound", err)
	}
}
