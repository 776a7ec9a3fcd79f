package score

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/ppiankov/facultyscope/internal/cache"
	"github.com/ppiankov/facultyscope/internal/llm"
)

// EmbeddingScorer compares texts by the cosine similarity of their
// embeddings. Negative similarities are clamped to 0.
type EmbeddingScorer struct {
	embedder  llm.Embedder
	threshold float64
	cache     cache.Cache
}

// NewEmbeddingScorer creates an embedding scorer; a zero threshold selects
// the calibrated default. c may be nil to disable memoization.
func NewEmbeddingScorer(embedder llm.Embedder, threshold float64, c cache.Cache) *EmbeddingScorer {
	if threshold == 0 {
		threshold = DefaultEmbeddingThreshold
	}
	return &EmbeddingScorer{
		embedder:  embedder,
		threshold: threshold,
		cache:     c,
	}
}

// Threshold returns the acceptance threshold
func (s *EmbeddingScorer) Threshold() float64 {
	return s.threshold
}

// Score returns the similarity of a and b in [0, 1]
func (s *EmbeddingScorer) Score(ctx context.Context, a, b string) (float64, error) {
	if a == "" || b == "" {
		return 0, nil
	}

	vectors := make([][]float32, 2)
	var missing []string
	var missingIdx []int
	for i, text := range []string{a, b} {
		if v, ok := s.lookup(text); ok {
			vectors[i] = v
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}

	if len(missing) > 0 {
		embedded, err := s.embedder.Embed(ctx, missing)
		if err != nil {
			return 0, fmt.Errorf("embed: %w", err)
		}
		if len(embedded) != len(missing) {
			return 0, fmt.Errorf("embed: got %d vectors for %d texts", len(embedded), len(missing))
		}
		for j, idx := range missingIdx {
			vectors[idx] = embedded[j]
			s.store(missing[j], embedded[j])
		}
	}

	return clamp01(Cosine(vectors[0], vectors[1])), nil
}

// Cosine returns the cosine similarity of two vectors, 0 when either is zero
// or the dimensions differ
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func (s *EmbeddingScorer) key(text string) string {
	return cache.CacheKey("embedding:" + s.embedder.Name() + ":" + text)
}

func (s *EmbeddingScorer) lookup(text string) ([]float32, bool) {
	if s.cache == nil {
		return nil, false
	}
	data, ok := s.cache.Get(s.key(text))
	if !ok || len(data)%4 != 0 {
		return nil, false
	}
	v := make([]float32, len(data)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return v, true
}

func (s *EmbeddingScorer) store(text string, v []float32) {
	if s.cache == nil {
		return
	}
	data := make([]byte, len(v)*4)
	for i, x := range v {
		binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(x))
	}
	_ = s.cache.Set(s.key(text), data, 0)
}
