package message

import "strings"

// HeaderLine is a single "name: value" header as received on the wire.
//
// The corpus this package is adapted from keeps headers in a
// hashmap.HashMap (an unordered map[string]string). spec.md §3 requires
// headers to be "kept as received for diagnostics" in an ordered list,
// which a map cannot satisfy — duplicate header names and original order
// would both be lost. HeaderLine is therefore a small ordered slice type
// instead of a reused hashmap.
type HeaderLine struct {
	Name  string
	Value string
	// Raw is the full "name: value" line exactly as received; only a
	// trailing carriage return, if present, is removed.
	Raw string
}

// parseHeaderLine splits a single non-empty header line into name and
// value. The core does not validate header syntax beyond this split, per
// spec.md §4.3 — lines without a colon are kept verbatim with an empty
// Name so they still round-trip through Raw.
func parseHeaderLine(line string) HeaderLine {
	raw := strings.TrimRight(line, "\r")
	idx := strings.IndexByte(raw, ':')
	if idx < 0 {
		return HeaderLine{Raw: raw}
	}
	return HeaderLine{
		Name:  strings.TrimSpace(raw[:idx]),
		Value: strings.TrimSpace(raw[idx+1:]),
		Raw:   raw,
	}
}

// Get returns the value of the first header matching name
// (case-insensitive), mirroring net/http's convention.
func Get(headers []HeaderLine, name string) (string, bool) {
	for _, h := range headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value, true
		}
	}
	return "", false
}
