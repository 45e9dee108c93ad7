package capture

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lenslingua/internal/media"
)

type trackingSource struct {
	data   []byte
	closed bool
}

type trackingStream struct {
	*bytes.Reader
	src *trackingSource
}

func (s *trackingStream) Close() error     { s.src.closed = true; return nil }
func (s *trackingStream) MIMEType() string { return "image/png" }

func (t *trackingSource) Open(context.Context) (Stream, error) {
	return &trackingStream{Reader: bytes.NewReader(t.data), src: t}, nil
}

func TestCapture_ReadsAndCloses(t *testing.T) {
	src := &trackingSource{data: []byte("pixels")}
	m, err := Capture(context.Background(), src, 100)
	require.NoError(t, err)
	assert.Equal(t, "pixels", string(m.Data))
	assert.Equal(t, "image/png", m.MIMEType)
	assert.True(t, src.closed)
}

func TestCapture_OverLimitStillCloses(t *testing.T) {
	src := &trackingSource{data: bytes.Repeat([]byte("x"), 11)}
	_, err := Capture(context.Background(), src, 10)

	var vErr *media.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.True(t, src.closed)
}

func TestCapture_CanceledStillCloses(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src := &trackingSource{data: []byte("pixels")}
	_, err := Capture(ctx, src, 100)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, src.closed)
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "menu.JPG")
	require.NoError(t, os.WriteFile(path, []byte("jpeg"), 0o600))

	m, err := Capture(context.Background(), FileSource{Path: path}, 0)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", m.MIMEType)
	assert.Equal(t, "jpeg", string(m.Data))
}

func TestFileSource_PermissionDenied(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores file modes")
	}
	path := filepath.Join(t.TempDir(), "locked.png")
	require.NoError(t, os.WriteFile(path, []byte("png"), 0o000))

	_, err := FileSource{Path: path}.Open(context.Background())
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestURLSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/forbidden":
			w.WriteHeader(http.StatusForbidden)
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.Header().Set("Content-Type", "audio/ogg")
			_, _ = w.Write([]byte("voice"))
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	m, err := Capture(ctx, URLSource{URL: srv.URL + "/voice.oga"}, 0)
	require.NoError(t, err)
	assert.Equal(t, "audio/ogg", m.MIMEType)
	assert.Equal(t, "voice", string(m.Data))

	_, err = Capture(ctx, URLSource{URL: srv.URL + "/forbidden"}, 0)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = Capture(ctx, URLSource{URL: srv.URL + "/missing"}, 0)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrPermissionDenied)
}

func TestReaderSource(t *testing.T) {
	m, err := Capture(context.Background(), ReaderSource{Reader: bytes.NewBufferString("upload"), MIMEType: "audio/webm"}, 0)
	require.NoError(t, err)
	assert.Equal(t, "upload", string(m.Data))
	assert.Equal(t, "audio/webm", m.MIMEType)
}
