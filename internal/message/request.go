// Package message implements the per-connection request parser of
// spec.md §4.3: raw accumulated bytes in, an immutable Request or
// ErrBadRequest out.
package message

import (
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// Request is the immutable record spec.md §3 describes: method, raw
// request target, version, and the ordered header lines as received. The
// core never interprets header values; it only carries them along for the
// handler and for diagnostics.
type Request struct {
	Method  string
	Target  string
	Version string
	Headers []HeaderLine
}

// Header returns the value of the first header named name
// (case-insensitive).
func (r Request) Header(name string) (string, bool) {
	return Get(r.Headers, name)
}

// Parse decodes raw as ISO-8859-1 (spec.md §4.3: "header bytes are opaque
// to this core"), splits it on CRLF, and parses the request line and
// header block up to the first blank line. raw must already contain a
// complete "\r\n\r\n" terminated head; any body bytes after it are
// ignored, since this server never reads past the header block.
func Parse(raw []byte) (Request, error) {
	text, err := decodeLatin1(raw)
	if err != nil {
		return Request{}, ErrBadRequest
	}

	headEnd := strings.Index(text, "\r\n\r\n")
	if headEnd < 0 {
		return Request{}, ErrBadRequest
	}
	head := text[:headEnd]

	lines := strings.Split(head, "\r\n")
	if len(lines) == 0 {
		return Request{}, ErrBadRequest
	}

	rl, err := parseRequestLine(lines[0])
	if err != nil {
		return Request{}, err
	}

	var headers []HeaderLine
	for _, line := range lines[1:] {
		if line == "" {
			continue
		}
		headers = append(headers, parseHeaderLine(line))
	}

	return Request{
		Method:  rl.method,
		Target:  rl.target,
		Version: rl.version,
		Headers: headers,
	}, nil
}

// decodeLatin1 decodes b as ISO-8859-1 (Latin-1), a single-byte encoding
// where every byte value is a valid code point, so decoding never fails on
// the wire bytes this parser handles: the only error path is a reader
// error, not a one of form.
func decodeLatin1(b []byte) (string, error) {
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
