package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"unicode/utf8"
)

var (
	ErrBodyNotUTF8 = errors.New("body is not valid utf-8")
	ErrBodyNotJSON = errors.New("body is not json")
)

// capturedBody holds the exact bytes read from a request body. It belongs to
// a single request.
type capturedBody struct {
	raw     []byte
	readErr error
}

// captureBody drains r.Body once and replaces it with a reader that yields the
// same bytes followed by the same terminal condition. If the original read
// failed part way, the replay returns the bytes that were received and then
// that error instead of a clean EOF.
func captureBody(r *http.Request) *capturedBody {
	if r.Body == nil || r.Body == http.NoBody {
		return &capturedBody{}
	}
	raw, err := io.ReadAll(r.Body)
	_ = r.Body.Close()

	var replay io.Reader = bytes.NewReader(raw)
	if err != nil {
		replay = io.MultiReader(replay, &errReader{err: err})
	}
	r.Body = io.NopCloser(replay)
	return &capturedBody{raw: raw, readErr: err}
}

type errReader struct {
	err error
}

func (e *errReader) Read([]byte) (int, error) {
	return 0, e.err
}

// DecodeBody parses raw as a single JSON document. Numbers keep their literal
// form. An empty or all-whitespace body decodes to nil. Errors wrap
// ErrBodyNotUTF8 or ErrBodyNotJSON.
func DecodeBody(raw []byte) (any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	if !utf8.Valid(raw) {
		return nil, ErrBodyNotUTF8
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBodyNotJSON, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data", ErrBodyNotJSON)
	}
	return v, nil
}

// bodyForLog turns raw bytes into the value stored in a log record: parsed
// JSON, else the text itself, else a decode error placeholder.
func bodyForLog(raw []byte) any {
	v, err := DecodeBody(raw)
	switch {
	case err == nil:
		return v
	case errors.Is(err, ErrBodyNotJSON):
		return string(raw)
	default:
		return "<decode_error: " + err.Error() + ">"
	}
}
