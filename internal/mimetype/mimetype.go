// Package mimetype maps a served file's extension to a content-type
// string, per spec.md §4.1.
package mimetype

import (
	"mime"
	"path/filepath"
	"strings"
)

// DefaultContentType is returned for any extension this resolver and the
// host's MIME database both fail to recognize.
const DefaultContentType = "application/octet-stream"

// table is the minimum table required by spec.md §4.1, widened with a
// handful of common web extensions per the Open Question in spec.md §9
// ("implementers may widen it without affecting test cases").
var table = map[string]string{
	".html": "text/html",
	".htm":  "text/html",
	".txt":  "text/plain",
	".css":  "text/css",
	".js":   "text/javascript",
	".mjs":  "text/javascript",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".swf":  "application/x-shockwave-flash",
	".json": "application/json",
	".svg":  "image/svg+xml",
	".ico":  "image/x-icon",
	".xml":  "application/xml",
	".pdf":  "application/pdf",
	".mp4":  "video/mp4",
	".webp": "image/webp",
	".woff": "font/woff",
	".woff2": "font/woff2",
}

// ForPath returns the content-type for name's extension, falling back to
// the host's MIME database and finally to DefaultContentType.
func ForPath(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return DefaultContentType
	}
	if ct, ok := table[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return DefaultContentType
}
