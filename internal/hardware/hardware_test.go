package hardware

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestCredentialFromUID(t *testing.T) {
	tests := []struct {
		name     string
		uid      []byte
		expected string
	}{
		{"empty", nil, ""},
		{"single byte", []byte{0x7B}, "123"},
		{"four bytes", []byte{0x00, 0x00, 0x30, 0x39}, "12345"},
		{"typical card", []byte{0xDE, 0xAD, 0xBE, 0xEF}, "3735928559"},
		{"seven bytes", []byte{0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}, "281474976710656"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := CredentialFromUID(tc.uid); got != tc.expected {
				t.Errorf("CredentialFromUID(%x) = %q; want %q", tc.uid, got, tc.expected)
			}
		})
	}
}

func TestIsTimeout(t *testing.T) {
	if !isTimeout(fmt.Errorf("mfrc522 lowlevel: timeout waiting for IRQ edge")) {
		t.Error("timeout error should be recognized")
	}
	if isTimeout(fmt.Errorf("spi transfer failed")) {
		t.Error("bus fault must not be treated as a timeout")
	}
}

// serveMJPEG streams the given frames and then blocks until the client
// disconnects, like a real camera daemon.
func serveMJPEG(t *testing.T, frames [][]byte) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		const boundary = "frameboundary"
		w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+boundary)
		w.WriteHeader(http.StatusOK)

		flusher := w.(http.Flusher)
		for _, frame := range frames {
			fmt.Fprintf(w, "--%s\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", boundary, len(frame))
			_, _ = w.Write(frame)
			fmt.Fprint(w, "\r\n")
			flusher.Flush()
		}
		fmt.Fprintf(w, "--%s--\r\n", boundary)
		flusher.Flush()
		<-r.Context().Done()
	}))
}

func TestStreamCameraFrames(t *testing.T) {
	frames := [][]byte{[]byte("frame-one"), []byte("frame-two")}
	server := serveMJPEG(t, frames)
	defer server.Close()

	cam := NewStreamCamera(server.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	src, err := cam.Open(ctx)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer src.Close()

	for i, want := range frames {
		got, err := src.Next(ctx)
		if err != nil {
			t.Fatalf("Next frame %d failed: %v", i, err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("frame %d = %q; want %q", i, got, want)
		}
	}
}

func TestStreamCameraEndOfStream(t *testing.T) {
	server := serveMJPEG(t, [][]byte{[]byte("only")})
	defer server.Close()

	cam := NewStreamCamera(server.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	src, err := cam.Open(ctx)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer src.Close()

	if _, err := src.Next(ctx); err != nil {
		t.Fatalf("first frame failed: %v", err)
	}
	if _, err := src.Next(ctx); err == nil {
		t.Error("expected an error after the stream ended")
	}
}

func TestStreamCameraCancelledContext(t *testing.T) {
	server := serveMJPEG(t, nil)
	defer server.Close()

	cam := NewStreamCamera(server.URL)
	ctx, cancel := context.WithCancel(context.Background())

	src, err := cam.Open(ctx)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer src.Close()

	cancel()
	if _, err := src.Next(ctx); err == nil {
		t.Error("expected an error from a cancelled context")
	}
}

func TestStreamCameraBadContentType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html>not a stream</html>")
	}))
	defer server.Close()

	cam := NewStreamCamera(server.URL)
	if _, err := cam.Open(context.Background()); err == nil {
		t.Error("expected an error for a non-MJPEG response")
	}
}

func TestStreamCameraServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "camera busy", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	cam := NewStreamCamera(server.URL)
	if _, err := cam.Open(context.Background()); err == nil {
		t.Error("expected an error for a 503 response")
	}
}
