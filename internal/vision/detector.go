// Package vision talks to the face detection service and prepares images
// for it. Detection itself is an external capability: the service returns
// face regions with appearance embeddings, and the rest of the system only
// works with those.
package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
)

// Face is a single detected face region.
type Face struct {
	FaceIndex int       `json:"face_index"`
	BBox      []float64 `json:"bbox"` // [x1, y1, x2, y2] in pixels
	Embedding []float32 `json:"embedding"`
	DetScore  float64   `json:"det_score"`
}

// Detector finds face regions in an image.
type Detector interface {
	Detect(ctx context.Context, imageData []byte) ([]Face, error)
}

// detectResponse is the wire format of the detection endpoint.
type detectResponse struct {
	FacesCount int    `json:"faces_count"`
	Faces      []Face `json:"faces"`
	Model      string `json:"model"`
}

// Client calls the face detection HTTP service.
type Client struct {
	baseURL      string
	scaleFactor  float64
	minNeighbors int
	client       *http.Client
}

// NewClient creates a detector client. scaleFactor and minNeighbors are
// passed through to the service's multi-scale detector; 1.3 and 5 are the
// defaults that balance false positives against missed detections.
func NewClient(baseURL string, scaleFactor float64, minNeighbors int) *Client {
	if scaleFactor <= 1 {
		scaleFactor = 1.3
	}
	if minNeighbors <= 0 {
		minNeighbors = 5
	}
	return &Client{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		scaleFactor:  scaleFactor,
		minNeighbors: minNeighbors,
		client:       &http.Client{},
	}
}

// maxDetectDim caps the longer edge of uploaded images. The detector scales
// internally anyway; shipping full camera frames just burns bandwidth.
const maxDetectDim = 1280

// Detect posts the image to the detection service and returns all face
// regions found, in the service's detection order. Oversized images are
// resized before upload; undecodable input is sent as-is so the service
// produces the authoritative error.
func (c *Client) Detect(ctx context.Context, imageData []byte) ([]Face, error) {
	if resized, err := ResizeToFit(imageData, maxDetectDim); err == nil {
		imageData = resized
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", "frame.jpg")
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}
	if err := writer.WriteField("scale_factor", strconv.FormatFloat(c.scaleFactor, 'f', -1, 64)); err != nil {
		return nil, fmt.Errorf("failed to write scale_factor: %w", err)
	}
	if err := writer.WriteField("min_neighbors", strconv.Itoa(c.minNeighbors)); err != nil {
		return nil, fmt.Errorf("failed to write min_neighbors: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/detect/face", &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("detector error (status %d): %s", resp.StatusCode, string(body))
	}

	var detResp detectResponse
	if err := json.Unmarshal(body, &detResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return detResp.Faces, nil
}

// BBoxArea returns the pixel area of a [x1, y1, x2, y2] bounding box.
func BBoxArea(bbox []float64) float64 {
	if len(bbox) != 4 {
		return 0
	}
	w := bbox[2] - bbox[0]
	h := bbox[3] - bbox[1]
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// LargestFace returns the face with the biggest bounding box, or nil for an
// empty slice. Enrollment photos occasionally catch a bystander; the primary
// subject is assumed to be the largest region.
func LargestFace(faces []Face) *Face {
	var best *Face
	var bestArea float64
	for i := range faces {
		if area := BBoxArea(faces[i].BBox); best == nil || area > bestArea {
			best = &faces[i]
			bestArea = area
		}
	}
	return best
}
