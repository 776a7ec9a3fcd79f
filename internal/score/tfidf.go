package score

import (
	"context"
	"math"
)

// TFIDFScorer computes the cosine similarity of the TF-IDF vectors of two
// texts, fitting the vocabulary on the pair itself. Raw term counts, smoothed
// idf (ln((1+n)/(1+df)) + 1) and L2 normalization are used.
type TFIDFScorer struct {
	threshold float64
}

// NewTFIDFScorer creates a TF-IDF scorer; a zero threshold selects the
// calibrated default
func NewTFIDFScorer(threshold float64) *TFIDFScorer {
	if threshold == 0 {
		threshold = DefaultTFIDFThreshold
	}
	return &TFIDFScorer{threshold: threshold}
}

// Threshold returns the acceptance threshold
func (s *TFIDFScorer) Threshold() float64 {
	return s.threshold
}

// Score returns the similarity of a and b in [0, 1]. It never fails.
func (s *TFIDFScorer) Score(_ context.Context, a, b string) (float64, error) {
	return Similarity(a, b), nil
}

// Similarity is the TF-IDF cosine similarity of two texts
func Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}

	countsA := termCounts(Tokenize(a))
	countsB := termCounts(Tokenize(b))
	if len(countsA) == 0 || len(countsB) == 0 {
		return 0
	}

	const docs = 2.0
	idf := func(term string) float64 {
		df := 0.0
		if _, ok := countsA[term]; ok {
			df++
		}
		if _, ok := countsB[term]; ok {
			df++
		}
		return math.Log((1+docs)/(1+df)) + 1
	}

	var dot, normA, normB float64
	for term, ca := range countsA {
		w := idf(term)
		wa := float64(ca) * w
		normA += wa * wa
		if cb, ok := countsB[term]; ok {
			dot += wa * float64(cb) * w
		}
	}
	for term, cb := range countsB {
		wb := float64(cb) * idf(term)
		normB += wb * wb
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return clamp01(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

func termCounts(tokens []string) map[string]int {
	counts := make(map[string]int, len(tokens))
	for _, t := range tokens {
		counts[t]++
	}
	return counts
}
