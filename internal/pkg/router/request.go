package router

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/shandysiswandi/posture/internal/pkg/goerror"
)

const maxBodyBytes = 64 * 1024

// Request wraps http.Request with helpers for inbound handlers.
type Request struct {
	// Request is the underlying http.Request.
	*http.Request
}

// ReadBody returns the raw request body, capped at 64KB.
func (r *Request) ReadBody() ([]byte, error) {
	if r == nil || r.Body == nil {
		return nil, goerror.NewInvalidFormat()
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil || len(raw) > maxBodyBytes {
		return nil, goerror.NewInvalidFormat()
	}
	return raw, nil
}

// DecodeBody decodes a single JSON value from the body into dst. Unknown
// fields are tolerated because one body carries fields for several actions.
func (r *Request) DecodeBody(dst any) error {
	raw, err := r.ReadBody()
	if err != nil {
		return err
	}
	return DecodeJSON(raw, dst)
}

// DecodeJSON decodes exactly one JSON value from raw into dst.
func DecodeJSON(raw []byte, dst any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(dst); err != nil {
		return goerror.NewInvalidFormat()
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return goerror.NewInvalidFormat()
	}

	return nil
}
