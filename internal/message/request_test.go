package message

import (
	"errors"
	"testing"
)

func TestParseRequestLine(t *testing.T) {
	req, err := Parse([]byte("GET /index.html HTTP/1.0\r\nHost: localhost\r\nAccept: */*\r\n\r\n"))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if req.Method != "GET" {
		t.Errorf("Method = %q, want GET", req.Method)
	}
	if req.Target != "/index.html" {
		t.Errorf("Target = %q, want /index.html", req.Target)
	}
	if req.Version != "HTTP/1.0" {
		t.Errorf("Version = %q, want HTTP/1.0", req.Version)
	}
	if len(req.Headers) != 2 {
		t.Fatalf("len(Headers) = %d, want 2", len(req.Headers))
	}
	if v, ok := req.Header("Host"); !ok || v != "localhost" {
		t.Errorf("Header(Host) = %q, %v, want localhost, true", v, ok)
	}
	if v, ok := req.Header("host"); !ok || v != "localhost" {
		t.Errorf("Header(host) case-insensitive lookup failed: %q, %v", v, ok)
	}
}

func TestParseMethodUppercased(t *testing.T) {
	req, err := Parse([]byte("get / HTTP/1.0\r\n\r\n"))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if req.Method != "GET" {
		t.Errorf("Method = %q, want GET", req.Method)
	}
}

func TestParseMalformedRequestLine(t *testing.T) {
	cases := []string{
		"GET /\r\n\r\n",
		"GET / HTTP/1.0 extra\r\n\r\n",
		"\r\n\r\n",
	}
	for _, c := range cases {
		if _, err := Parse([]byte(c)); !errors.Is(err, ErrBadRequest) {
			t.Errorf("Parse(%q) error = %v, want ErrBadRequest", c, err)
		}
	}
}

func TestParseNoHeadTerminator(t *testing.T) {
	if _, err := Parse([]byte("GET / HTTP/1.0\r\n")); !errors.Is(err, ErrBadRequest) {
		t.Errorf("Parse without terminator error = %v, want ErrBadRequest", err)
	}
}

func TestParsePreservesHeaderOrderAndDuplicates(t *testing.T) {
	raw := "GET / HTTP/1.0\r\nX-A: 1\r\nX-B: 2\r\nX-A: 3\r\n\r\n"
	req, err := Parse([]byte(raw))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if len(req.Headers) != 3 {
		t.Fatalf("len(Headers) = %d, want 3", len(req.Headers))
	}
	want := []string{"X-A", "X-B", "X-A"}
	for i, name := range want {
		if req.Headers[i].Name != name {
			t.Errorf("Headers[%d].Name = %q, want %q", i, req.Headers[i].Name, name)
		}
	}
}
