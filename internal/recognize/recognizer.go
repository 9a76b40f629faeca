// Package recognize trains a per-session appearance model from one
// identity's enrolled images and scores live frames against it.
//
// The model is deliberately one-vs-background: a single identity is trained
// per session, so scoring only answers "how far is this face from the
// enrolled appearance", not "who is this".
package recognize

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/coder/hnsw"

	"facegate/internal/vision"
)

// ErrNoEnrollmentData is returned when training extracts zero usable face
// regions from the enrolled image set. Training with zero samples must fail
// fast rather than produce an undefined model.
var ErrNoEnrollmentData = errors.New("no usable enrollment data")

// Nearest-neighbor graph parameters, matching the usual HNSW construction
// formula Ml = 1/ln-ish 1/M.
const maxNeighbors = 16

// Attempt is one scored face region from a live frame.
type Attempt struct {
	BBox       []float64
	Confidence float64 // distance units; lower = more similar
	Match      bool    // Confidence strictly below the decision threshold
}

// Classifier holds the trained appearance model for one identity. It is
// owned by a single session and must be released with Close before the next
// session trains a new one.
type Classifier struct {
	graph   *hnsw.Graph[int]
	samples int
}

// Samples returns the number of enrolled face regions in the model.
func (c *Classifier) Samples() int {
	if c == nil {
		return 0
	}
	return c.samples
}

// Close releases the model. The graph is dropped so the next session starts
// from a clean arena; a closed classifier scores nothing.
func (c *Classifier) Close() {
	if c != nil {
		c.graph = nil
		c.samples = 0
	}
}

// Recognizer builds classifiers and scores frames using the external face
// detector for region extraction.
type Recognizer struct {
	detector  vision.Detector
	threshold float64
}

// New creates a Recognizer with the given decision threshold in distance
// units (the reference boundary is 40).
func New(detector vision.Detector, threshold float64) *Recognizer {
	return &Recognizer{detector: detector, threshold: threshold}
}

// Threshold returns the decision boundary in distance units.
func (r *Recognizer) Threshold() float64 {
	return r.threshold
}

// Train detects faces in each enrolled image, keeps the primary (largest)
// region per image and fits a nearest-neighbor appearance model over the
// region embeddings. Fails with ErrNoEnrollmentData when the whole set
// yields no usable region.
func (r *Recognizer) Train(ctx context.Context, images [][]byte) (*Classifier, error) {
	g := hnsw.NewGraph[int]()
	g.M = maxNeighbors
	g.Ml = 1.0 / float64(maxNeighbors)
	g.Distance = hnsw.CosineDistance

	samples := 0
	for _, img := range images {
		faces, err := r.detector.Detect(ctx, img)
		if err != nil {
			return nil, fmt.Errorf("detecting faces in enrollment image: %w", err)
		}
		face := vision.LargestFace(faces)
		if face == nil || len(face.Embedding) == 0 {
			continue
		}
		g.Add(hnsw.MakeNode(samples, face.Embedding))
		samples++
	}

	if samples == 0 {
		return nil, ErrNoEnrollmentData
	}

	return &Classifier{graph: g, samples: samples}, nil
}

// Score detects faces in a live frame and produces one Attempt per region,
// in detection order. The caller acts on the first decided attempt; this
// design does not resolve multiple simultaneous faces.
func (r *Recognizer) Score(ctx context.Context, frame []byte, c *Classifier) ([]Attempt, error) {
	if c == nil || c.graph == nil {
		return nil, errors.New("classifier not trained")
	}

	faces, err := r.detector.Detect(ctx, frame)
	if err != nil {
		return nil, fmt.Errorf("detecting faces in frame: %w", err)
	}

	attempts := make([]Attempt, 0, len(faces))
	for _, face := range faces {
		if len(face.Embedding) == 0 {
			continue
		}
		confidence := c.nearestDistance(face.Embedding)
		attempts = append(attempts, Attempt{
			BBox:       face.BBox,
			Confidence: confidence,
			Match:      confidence < r.threshold,
		})
	}
	return attempts, nil
}

// nearestDistance returns the confidence for an embedding: the cosine
// distance to the closest enrolled sample, scaled to the reference distance
// units (x100, so the 0..2 cosine range maps to 0..200).
func (c *Classifier) nearestDistance(embedding []float32) float64 {
	neighbors := c.graph.Search(embedding, 1)
	if len(neighbors) == 0 {
		return math.MaxFloat64
	}
	return CosineDistance(embedding, neighbors[0].Value) * 100
}

// CosineDistance computes the cosine distance between two vectors.
// Returns a value between 0 (identical) and 2 (opposite); invalid or zero
// vectors yield the maximum distance.
func CosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 2.0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 2.0
	}

	similarity := dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
	if similarity > 1 {
		similarity = 1
	}
	if similarity < -1 {
		similarity = -1
	}

	return 1 - similarity
}
