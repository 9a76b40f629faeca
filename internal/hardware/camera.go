package hardware

import (
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
)

// FrameSource delivers frames from an open camera. It must be closed
// exactly once per session; Close releases the underlying stream.
type FrameSource interface {
	// Next blocks until the next frame (JPEG bytes) is available. A failed
	// read is transient: callers may retry on a live source.
	Next(ctx context.Context) ([]byte, error)
	Close() error
}

// Camera acquires a frame source. Acquisition maps 1:1 to release: one
// Open per session, one Close on every exit path.
type Camera interface {
	Open(ctx context.Context) (FrameSource, error)
}

// StreamCamera reads frames from an MJPEG (multipart/x-mixed-replace) HTTP
// stream, the interface the camera daemon exposes.
type StreamCamera struct {
	url    string
	client *http.Client
}

func NewStreamCamera(url string) *StreamCamera {
	return &StreamCamera{url: url, client: &http.Client{}}
}

// Open connects to the stream. The connection lives until Close or until
// ctx is cancelled, whichever comes first.
func (c *StreamCamera) Open(ctx context.Context) (FrameSource, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating stream request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("connecting to camera stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("camera stream returned status %d", resp.StatusCode)
	}

	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("parsing stream content type: %w", err)
	}
	if mediaType != "multipart/x-mixed-replace" || params["boundary"] == "" {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("unexpected stream content type %q", mediaType)
	}

	return &mjpegSource{
		body:   resp.Body,
		reader: multipart.NewReader(resp.Body, params["boundary"]),
	}, nil
}

type mjpegSource struct {
	body   io.ReadCloser
	reader *multipart.Reader
}

func (s *mjpegSource) Next(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// The part read unblocks on cancellation because the request context
	// tears the connection down.
	part, err := s.reader.NextPart()
	if err != nil {
		return nil, fmt.Errorf("reading next frame: %w", err)
	}
	defer part.Close()

	frame, err := io.ReadAll(part)
	if err != nil {
		return nil, fmt.Errorf("reading frame body: %w", err)
	}
	return frame, nil
}

func (s *mjpegSource) Close() error {
	return s.body.Close()
}
