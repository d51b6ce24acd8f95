package middleware

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"
)

// internalErrorBody replaces the response of a handler that panicked.
var internalErrorBody = []byte(`{"detail":"Internal Server Error"}`)

// responseTap forwards every write to the wrapped writer unchanged and keeps
// a copy of the bytes that were accepted. Flush, Hijack and the status
// accessors come from the embedded writer, so streaming handlers see the same
// chunking they would see without the tap.
type responseTap struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func newResponseTap(w gin.ResponseWriter) *responseTap {
	return &responseTap{ResponseWriter: w, body: &bytes.Buffer{}}
}

func (w *responseTap) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	if n > 0 {
		w.body.Write(b[:n])
	}
	return n, err
}

func (w *responseTap) WriteString(s string) (int, error) {
	n, err := w.ResponseWriter.WriteString(s)
	if n > 0 {
		w.body.WriteString(s[:n])
	}
	return n, err
}

// Captured returns the bytes forwarded to the client so far.
func (w *responseTap) Captured() []byte {
	return w.body.Bytes()
}

// substituteInternalError answers with a generic 500 JSON body when nothing
// has reached the client yet. Once the response has started the status line
// is already on the wire; the client keeps what it received and only the
// log sees the substitute. Either way the substitute body is returned.
func (w *responseTap) substituteInternalError() []byte {
	if !w.Written() {
		w.body.Reset()
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write(internalErrorBody)
	}
	return internalErrorBody
}
