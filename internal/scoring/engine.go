// Package scoring computes composite confidence scores for search documents:
// keyword relevance, source reputation, and recency, blended by a
// configurable weight vector.
package scoring

import (
	"go.uber.org/zap"

	"github.com/finetunelab/websearch/internal/models"
)

// Weights is the blend vector for the three scoring signals. Values are
// normalized to sum to 1 before use.
type Weights struct {
	Keyword    float64
	Reputation float64
	Recency    float64
}

// DefaultWeights favors keyword relevance, then source trust, then recency.
func DefaultWeights() Weights {
	return Weights{Keyword: 0.5, Reputation: 0.3, Recency: 0.2}
}

func (w Weights) normalized() Weights {
	sum := w.Keyword + w.Reputation + w.Recency
	if sum <= 0 {
		return DefaultWeights()
	}
	return Weights{
		Keyword:    w.Keyword / sum,
		Reputation: w.Reputation / sum,
		Recency:    w.Recency / sum,
	}
}

// Engine scores documents against queries.
type Engine struct {
	weights Weights
	trust   *TrustList
	logger  *zap.Logger
}

// NewEngine creates a scoring engine. A nil trust list uses the built-in
// domain tiers.
func NewEngine(weights Weights, trust *TrustList, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if trust == nil {
		trust = NewTrustList(logger)
	}
	return &Engine{weights: weights.normalized(), trust: trust, logger: logger}
}

// Score computes the composite confidence score for one document in [0, 1].
func (e *Engine) Score(doc *models.Document, query string) float64 {
	terms := queryTerms(query)

	keyword := keywordScore(doc, terms)
	reputation := reputationScore(doc, e.trust)
	recency := recencyScore(doc, query)

	score := e.weights.Keyword*keyword +
		e.weights.Reputation*reputation +
		e.weights.Recency*recency

	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// ScoreBatch annotates every document with its confidence score, preserving
// order. Sorting is the caller's responsibility.
func (e *Engine) ScoreBatch(docs []*models.Document, query string) {
	for _, doc := range docs {
		doc.ConfidenceScore = e.Score(doc, query)
	}
}
