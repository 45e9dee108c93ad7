// Package capture acquires media from a permission-gated source, reads it
// under a size limit and releases the source on every exit path.
package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"

	"lenslingua/internal/media"
)

var ErrPermissionDenied = errors.New("capture: permission denied")

// Stream is an open capture handle.
type Stream interface {
	io.ReadCloser
	MIMEType() string
}

type Source interface {
	Open(ctx context.Context) (Stream, error)
}

// Media is a fully read capture.
type Media struct {
	Data     []byte
	MIMEType string
}

// Capture opens src, reads at most maxBytes and always closes the stream.
func Capture(ctx context.Context, src Source, maxBytes int64) (m Media, err error) {
	stream, err := src.Open(ctx)
	if err != nil {
		return Media{}, err
	}
	defer func() {
		if cerr := stream.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close capture: %w", cerr)
		}
	}()

	r := io.Reader(stream)
	if maxBytes > 0 {
		r = io.LimitReader(stream, maxBytes+1)
	}
	data, err := io.ReadAll(&ctxReader{ctx: ctx, r: r})
	if err != nil {
		return Media{}, fmt.Errorf("read capture: %w", err)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return Media{}, media.TooLarge(maxBytes)
	}
	return Media{Data: data, MIMEType: stream.MIMEType()}, nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

type stream struct {
	io.ReadCloser
	mimeType string
}

func (s *stream) MIMEType() string { return s.mimeType }

// FileSource reads a local file. An empty MIMEType is guessed from the extension.
type FileSource struct {
	Path     string
	MIMEType string
}

func (f FileSource) Open(ctx context.Context) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	file, err := os.Open(f.Path)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return nil, fmt.Errorf("%w: %s", ErrPermissionDenied, f.Path)
		}
		return nil, fmt.Errorf("open %s: %w", f.Path, err)
	}
	mt := f.MIMEType
	if mt == "" {
		mt = media.TypeByExtension(filepath.Ext(f.Path))
	}
	return &stream{ReadCloser: file, mimeType: mt}, nil
}

// URLSource downloads a remote file, e.g. a Telegram file link.
type URLSource struct {
	URL        string
	MIMEType   string
	HTTPClient *http.Client
}

func (u URLSource) Open(ctx context.Context) (Stream, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	client := u.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		resp.Body.Close()
		return nil, fmt.Errorf("%w: HTTP %d", ErrPermissionDenied, resp.StatusCode)
	case resp.StatusCode >= 300:
		resp.Body.Close()
		return nil, fmt.Errorf("download: HTTP %d", resp.StatusCode)
	}
	mt := u.MIMEType
	if mt == "" {
		mt = resp.Header.Get("Content-Type")
	}
	return &stream{ReadCloser: resp.Body, mimeType: mt}, nil
}

// ReaderSource wraps an already open reader, such as a multipart upload part.
type ReaderSource struct {
	Reader   io.Reader
	MIMEType string
}

func (r ReaderSource) Open(ctx context.Context) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rc, ok := r.Reader.(io.ReadCloser)
	if !ok {
		rc = io.NopCloser(r.Reader)
	}
	return &stream{ReadCloser: rc, mimeType: r.MIMEType}, nil
}
