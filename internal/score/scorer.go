// Package score implements the relevance schemes used to decide whether a
// library document was written by a faculty member.
package score

import (
	"fmt"
	"math"
	"strings"

	"github.com/ppiankov/facultyscope/internal/cache"
	"github.com/ppiankov/facultyscope/internal/llm"
	"github.com/ppiankov/facultyscope/internal/model"
)

// Calibrated acceptance thresholds per scheme
const (
	DefaultTFIDFThreshold     = 0.013
	DefaultEmbeddingThreshold = 0.4216
)

// NewScorer builds the relevance scorer selected by cfg. The embedding scheme
// memoizes vectors in c when it is non-nil.
func NewScorer(cfg model.RelevanceConfig, httpCfg model.HTTPConfig, c cache.Cache) (model.RelevanceScorer, error) {
	switch strings.ToLower(cfg.Scheme) {
	case model.SchemeTFIDF, "":
		return NewTFIDFScorer(cfg.Threshold), nil

	case model.SchemeEmbedding:
		embedder, err := llm.NewEmbedder(llm.ConfigFromModel(cfg, httpCfg))
		if err != nil {
			return nil, fmt.Errorf("create embedder: %w", err)
		}
		return NewEmbeddingScorer(embedder, cfg.Threshold, c), nil

	default:
		return nil, fmt.Errorf("unknown relevance scheme: %s (supported: tfidf, embedding)", cfg.Scheme)
	}
}

// clamp01 keeps a similarity inside [0, 1]
func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
