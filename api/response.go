package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jrsteele09/smartcane-client/internal/utils"
)

// Response holds a body that decoded as JSON, or raw text otherwise.
type Response struct {
	Status int
	Body   []byte
	JSON   any  // Decoded body; nil for empty or non-JSON bodies
	IsJSON bool // False for empty or non-JSON bodies
}

func newResponse(status int, body []byte) *Response {
	r := &Response{Status: status, Body: body}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return r
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err == nil && !dec.More() {
		r.JSON = v
		r.IsJSON = true
	}
	return r
}

// Text is the raw body as a string.
func (r *Response) Text() string {
	if r == nil {
		return ""
	}
	return string(r.Body)
}

// Decode unmarshals the body into v.
func (r *Response) Decode(v any) error {
	if r == nil || !r.IsJSON {
		return fmt.Errorf("response body is not JSON")
	}
	return json.Unmarshal(r.Body, v)
}

// Object returns the body as a JSON object, if it is one.
func (r *Response) Object() (map[string]any, bool) {
	if r == nil {
		return nil, false
	}
	m, ok := r.JSON.(map[string]any)
	return m, ok
}

// Array returns the body as a JSON array, if it is one.
func (r *Response) Array() ([]any, bool) {
	if r == nil {
		return nil, false
	}
	a, ok := r.JSON.([]any)
	return a, ok
}

// errorMessage picks message, then error, then the non-JSON text, then
// "HTTP <status>".
func (r *Response) errorMessage() string {
	if m, ok := r.Object(); ok {
		if msg := utils.FirstString(m, "message", "error"); msg != "" {
			return msg
		}
	}
	if !r.IsJSON {
		if text := strings.TrimSpace(string(r.Body)); text != "" {
			return text
		}
	}
	return fmt.Sprintf("HTTP %d", r.Status)
}
