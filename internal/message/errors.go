package message

import "errors"

// ErrBadRequest signals a request line or header block that could not be
// parsed into a Request, per spec.md §4.3.
var ErrBadRequest = errors.New("message: bad request")
