package conn

import (
	"bufio"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/curol/staticd/internal/pathresolver"
)

func newHandler(t *testing.T) (*Handler, string) {
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
	write("img.png", string(make([]byte, 100)))

	h := &Handler{
		Resolver:         pathresolver.New(root, "index.html"),
		Logger:           zap.NewNop(),
		ClientTimeout:    2 * time.Second,
		RequestMaxSize:   1 << 20,
		RequestChunkSize: 4096,
	}
	return h, root
}

func exchange(t *testing.T, h *Handler, request string) string {
	t.Helper()
	server, client := net.Pipe()

	done := make(chan struct{})
	go func() {
		h.Handle(server, "client-addr")
		close(done)
	}()

	client.SetDeadline(time.Now().Add(2 * time.Second))
	if _, err := client.Write([]byte(request)); err != nil {
		t.Fatalf("write request: %v", err)
	}

	resp, err := bufReadAll(client)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	<-done
	return resp
}

func bufReadAll(c net.Conn) (string, error) {
	r := bufio.NewReader(c)
	buf := make([]byte, 0, 4096)
	chunk := make([]byte, 4096)
	for {
		n, err := r.Read(chunk)
		buf = append(buf, chunk[:n]...)
		if err != nil {
			return string(buf), nil
		}
	}
}

func TestHandleGetRoot(t *testing.T) {
	h, _ := newHandler(t)
	resp := exchange(t, h, "GET / HTTP/1.0\r\n\r\n")

	if want := "HTTP/1.0 200 OK\r\n"; len(resp) < len(want) || resp[:len(want)] != want {
		t.Fatalf("status line = %q", resp)
	}
	if !containsAll(resp, "Content-Type: text/html", "Content-Length: 15", "<html>hi</html>") {
		t.Errorf("response missing expected parts: %q", resp)
	}
}

func TestHandleHeadOmitsBody(t *testing.T) {
	h, _ := newHandler(t)
	resp := exchange(t, h, "HEAD /img.png HTTP/1.0\r\n\r\n")

	if !containsAll(resp, "200 OK", "Content-Type: image/png", "Content-Length: 100") {
		t.Errorf("response missing expected headers: %q", resp)
	}
	if len(resp) > 0 {
		idx := indexOf(resp, "\r\n\r\n")
		if idx < 0 || idx+4 != len(resp) {
			t.Errorf("HEAD response has a body: %q", resp)
		}
	}
}

func TestHandleNotFound(t *testing.T) {
	h, _ := newHandler(t)
	resp := exchange(t, h, "GET /missing.txt HTTP/1.0\r\n\r\n")

	if !containsAll(resp, "404 Not Found", "Not Found") {
		t.Errorf("response = %q, want 404", resp)
	}
}

func TestHandleMethodNotAllowed(t *testing.T) {
	h, _ := newHandler(t)
	resp := exchange(t, h, "POST / HTTP/1.0\r\nContent-Length: 0\r\n\r\n")

	if !containsAll(resp, "405 Method Not Allowed") {
		t.Errorf("response = %q, want 405", resp)
	}
}

func TestHandleDirectoryIndex(t *testing.T) {
	h, _ := newHandler(t)
	resp := exchange(t, h, "GET /dir/ HTTP/1.0\r\n\r\n")

	if !containsAll(resp, "200 OK", "Content-Length: 3", "DIR") {
		t.Errorf("response = %q, want directory index served", resp)
	}
}

func TestHandleEscapeAttempt(t *testing.T) {
	h, _ := newHandler(t)
	resp := exchange(t, h, "GET /../../../etc/passwd HTTP/1.0\r\n\r\n")

	if !containsAll(resp, "404 Not Found") {
		t.Errorf("response = %q, want 404 for path escape", resp)
	}
}

func containsAll(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if indexOf(s, sub) < 0 {
			return false
		}
	}
	return true
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}
