// Package conn implements the per-connection state machine of spec.md
// §4.5: read, parse, dispatch by method, build a response, write, close.
//
// This generalizes this codebase's own server.Serve (server/serve.go),
// which read one message and echoed it back, into the full
// read-parse-dispatch-respond cycle the specification requires, and folds
// in the original Python implementation's accumulate-until-terminator read
// loop (original_source/HW5/process.py HTTPHandler).
package conn

import (
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/curol/staticd/internal/message"
	"github.com/curol/staticd/internal/mimetype"
	"github.com/curol/staticd/internal/pathresolver"
	"github.com/curol/staticd/internal/response"
)

// Handler orchestrates a single accepted connection from read through
// close. It holds no per-connection mutable state of its own; everything
// it touches during Handle is local to that call, so one Handler is safe
// to share across every worker goroutine.
type Handler struct {
	Resolver         *pathresolver.Resolver
	Logger           *zap.Logger
	ClientTimeout    time.Duration
	RequestMaxSize   int
	RequestChunkSize int
}

// Handle drives one connection through spec.md §4.5's state machine. The
// socket is always closed before Handle returns, on every exit path.
func (h *Handler) Handle(c net.Conn, peer string) {
	connID := uuid.NewString()
	log := h.Logger.With(zap.String("conn_id", connID), zap.String("remote_addr", peer))
	start := time.Now()

	defer c.Close()

	raw, err := h.readHead(c)
	if err != nil {
		if errors.Is(err, errEmptyRead) {
			// Client closed without sending anything; spec.md §4.5 step 2:
			// no response in this case.
			return
		}
		log.Warn("request read failed", zap.Error(err))
		if errors.Is(err, errTooLarge) || errors.Is(err, errTimeout) {
			if errors.Is(err, errTooLarge) {
				h.writeAndLog(c, log, response.NewText(httpVersion, response.StatusBadRequest, "Bad Request"), start, "", "")
			}
			return
		}
		h.writeAndLog(c, log, response.NewText(httpVersion, response.StatusBadRequest, "Bad Request"), start, "", "")
		return
	}

	req, err := message.Parse(raw)
	if err != nil {
		log.Warn("malformed request", zap.Error(err))
		h.writeAndLog(c, log, response.NewText(httpVersion, response.StatusBadRequest, "Bad Request"), start, "", "")
		return
	}

	resp := h.dispatch(req, log)
	h.writeAndLog(c, log, resp, start, req.Method, req.Target)
}

var (
	errEmptyRead = errors.New("conn: empty read")
	errTooLarge  = errors.New("conn: request exceeds max size")
	errTimeout   = errors.New("conn: read timeout")
)

// readHead accumulates bytes in RequestChunkSize chunks until a complete
// "\r\n\r\n" terminated head appears, the accumulated size exceeds
// RequestMaxSize, a read returns zero bytes, or the read times out —
// spec.md §4.5 state ReadingHeaders.
func (h *Handler) readHead(c net.Conn) ([]byte, error) {
	if h.ClientTimeout > 0 {
		c.SetReadDeadline(time.Now().Add(h.ClientTimeout))
	}

	chunkSize := h.RequestChunkSize
	if chunkSize <= 0 {
		chunkSize = 4096
	}

	buf := make([]byte, 0, chunkSize)
	chunk := make([]byte, chunkSize)

	for {
		n, err := c.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			if strings.Contains(string(buf), "\r\n\r\n") {
				return buf, nil
			}
			if h.RequestMaxSize > 0 && len(buf) > h.RequestMaxSize {
				return nil, errTooLarge
			}
		}
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				return nil, errTimeout
			}
			if err == io.EOF {
				if len(buf) == 0 {
					return nil, errEmptyRead
				}
				return nil, fmt.Errorf("conn: connection closed mid-request: %w", err)
			}
			return nil, err
		}
	}
}

// httpVersion is the version every response advertises, regardless of what
// the request sent. spec.md §6 requires responses to always read
// "HTTP/1.0", and the original implementation hardcodes "HTTP/1.0 %s"
// rather than echoing the client's request line.
const httpVersion = "HTTP/1.0"

// dispatch implements spec.md §4.5 state Dispatching: branch by method,
// resolving the target and building GET/HEAD/405 responses.
func (h *Handler) dispatch(req message.Request, log *zap.Logger) response.Response {
	switch req.Method {
	case "GET":
		return h.serveFile(req.Target, false, log)
	case "HEAD":
		return h.serveFile(req.Target, true, log)
	default:
		return response.NewText(httpVersion, response.StatusMethodNotAllowed, "Method Not Allowed")
	}
}

func (h *Handler) serveFile(target string, headOnly bool, log *zap.Logger) response.Response {
	path, err := h.Resolver.Resolve(target)
	if err != nil {
		log.Warn("target not resolved", zap.String("target", target), zap.Error(err))
		return response.NewText(httpVersion, response.StatusNotFound, "Not Found")
	}

	info, err := statFile(path)
	if err != nil {
		return response.NewText(httpVersion, response.StatusNotFound, "Not Found")
	}

	body := response.FileBody{Path: path, Size: info.Size()}
	contentType := mimetype.ForPath(path)
	resp := response.New(httpVersion, response.StatusOK, contentType, body)
	if headOnly {
		resp = response.NewHead(resp)
	}
	return resp
}

// writeAndLog sends resp on c and emits the per-request summary log line
// spec.md §6 requires (method, target, status, bytes, duration). A broken
// pipe while streaming the body is logged and swallowed here, per
// spec.md §4.4 and §7 — the connection is closed by Handle's deferred
// c.Close() regardless.
func (h *Handler) writeAndLog(c net.Conn, log *zap.Logger, resp response.Response, start time.Time, method, target string) {
	n, err := resp.WriteTo(c)
	fields := []zap.Field{
		zap.String("method", method),
		zap.String("target", target),
		zap.Int("status", resp.Status.Code),
		zap.Int64("bytes", n),
		zap.Duration("duration", time.Since(start)),
	}
	if err != nil {
		if isBrokenPipe(err) {
			log.Warn("broken pipe writing response", append(fields, zap.Error(err))...)
			return
		}
		log.Error("failed to write response", append(fields, zap.Error(err))...)
		return
	}
	log.Info("request handled", fields...)
}

func isBrokenPipe(err error) bool {
	return errors.Is(err, io.ErrClosedPipe) || strings.Contains(err.Error(), "broken pipe") || strings.Contains(err.Error(), "connection reset")
}
