package backend

import (
	"errors"
	"fmt"
)

// TransientError wraps a transport-level failure: the request never produced
// a server verdict. Whether to retry is the caller's choice.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("backend unreachable: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// ServerError is a 4xx/5xx rejection. Detail carries the server's own
// message when it sent one; surface it verbatim.
type ServerError struct {
	StatusCode int
	Detail     string
}

func (e *ServerError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("server rejected request (HTTP %d)", e.StatusCode)
}

// UserMessage picks the most specific human-readable text for an error:
// the server detail, else the transport error, else a generic fallback.
func UserMessage(err error) string {
	var srv *ServerError
	if errors.As(err, &srv) && srv.Detail != "" {
		return srv.Detail
	}
	var tr *TransientError
	if errors.As(err, &tr) {
		return tr.Error()
	}
	if err != nil {
		return err.Error()
	}
	return "something went wrong"
}
