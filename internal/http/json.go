package httpx

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// DecodeJSON decodes a single JSON value from the request body into dst.
// Unknown fields, trailing data and bodies cut off by LimitBody are rejected
// with 400 and false is returned; the response has then been written.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	return decodeBody(w, r, dst, false)
}

// DecodeOptionalJSON is DecodeJSON for endpoints whose body may be empty.
func DecodeOptionalJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	return decodeBody(w, r, dst, true)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any, optional bool) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	switch {
	case errors.Is(err, io.EOF) && optional:
		return true
	case err == nil && dec.More():
		err = errors.New("request body must contain a single JSON value")
	}
	if err == nil {
		return true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		err = fmt.Errorf("request body exceeds %d bytes", tooLarge.Limit)
	}
	WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_json", Err: err})
	return false
}

// WriteJSON encodes v before touching the response so an encoding failure can
// still become a clean 500.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = buf.WriteTo(w)
}

// ErrorParams describes one error response.
type ErrorParams struct {
	Code    int
	ErrCode string
	Err     error
	Field   string // offending input, when known
	Job     any    // current job state for rejected intents
}

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Job     any    `json:"job,omitempty"`
}

// WriteError writes p as an ErrorBody. Without Err the status text is the message.
func WriteError(w http.ResponseWriter, p ErrorParams) {
	msg := http.StatusText(p.Code)
	if p.Err != nil {
		msg = p.Err.Error()
	}
	WriteJSON(w, p.Code, ErrorBody{Error: p.ErrCode, Message: msg, Field: p.Field, Job: p.Job})
}
