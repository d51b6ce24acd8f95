package middleware

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaptureBodyReplaysSameBytes(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"a":1}`))

	captured := captureBody(req)
	require.NoError(t, captured.readErr)
	assert.Equal(t, `{"a":1}`, string(captured.raw))

	replayed, err := io.ReadAll(req.Body)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(replayed))
}

func TestCaptureBodyReplaysReadError(t *testing.T) {
	boom := errors.New("connection reset")
	body := io.MultiReader(strings.NewReader("part"), iotest.ErrReader(boom))
	req := httptest.NewRequest(http.MethodPost, "/", body)

	captured := captureBody(req)
	assert.ErrorIs(t, captured.readErr, boom)
	assert.Equal(t, "part", string(captured.raw))

	replayed, err := io.ReadAll(req.Body)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "part", string(replayed))
}

func TestCaptureBodyWithoutBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	captured := captureBody(req)
	assert.Empty(t, captured.raw)
	assert.NoError(t, captured.readErr)
}

func TestDecodeBody(t *testing.T) {
	v, err := DecodeBody([]byte("  \n\t"))
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = DecodeBody([]byte(`{"amount": 12.50}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"amount": json.Number("12.50")}, v)

	_, err = DecodeBody([]byte(`{"a":1} {"b":2}`))
	assert.ErrorIs(t, err, ErrBodyNotJSON)

	_, err = DecodeBody([]byte("name=alice"))
	assert.ErrorIs(t, err, ErrBodyNotJSON)

	_, err = DecodeBody([]byte{0xc3, 0x28})
	assert.ErrorIs(t, err, ErrBodyNotUTF8)
}

func TestBodyForLogFallbacks(t *testing.T) {
	assert.Nil(t, bodyForLog(nil))
	assert.Equal(t, "name=alice", bodyForLog([]byte("name=alice")))
	assert.Equal(t, "<decode_error: body is not valid utf-8>", bodyForLog([]byte{0xff}))
}
