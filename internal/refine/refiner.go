// Package refine decides when a result set is too poor to return as-is,
// proposes alternative queries, and merges result sets.
package refine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/finetunelab/websearch/internal/models"
)

// QueryGenerator produces semantically adjacent queries for a poor original.
// The LLM-backed implementation lives in internal/summarize.
type QueryGenerator interface {
	RefinedQueries(ctx context.Context, query string, date time.Time) ([]string, error)
}

// Refiner owns the refinement policy: when to refine and what to try next.
type Refiner struct {
	minResults    int
	minConfidence float64
	generator     QueryGenerator
	logger        *zap.Logger
}

// NewRefiner creates a refiner. generator may be nil, in which case a
// heuristic rewrite is used.
func NewRefiner(minResults int, minConfidence float64, generator QueryGenerator, logger *zap.Logger) *Refiner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if minResults <= 0 {
		minResults = 3
	}
	if minConfidence <= 0 {
		minConfidence = 0.45
	}
	return &Refiner{
		minResults:    minResults,
		minConfidence: minConfidence,
		generator:     generator,
		logger:        logger,
	}
}

// ShouldRefine reports whether the result set warrants trying an alternative
// query: too few documents or mean confidence below threshold.
func (r *Refiner) ShouldRefine(docCount int, avgConfidence float64) bool {
	return docCount < r.minResults || avgConfidence < r.minConfidence
}

// RefinedQueries proposes alternative queries for the original, newest-best
// first. Generator failures degrade to the heuristic rewrite; the result is
// never empty and never equals the original.
func (r *Refiner) RefinedQueries(ctx context.Context, query string, date time.Time) []string {
	if r.generator != nil {
		candidates, err := r.generator.RefinedQueries(ctx, query, date)
		if err != nil {
			r.logger.Warn("query generator failed, using heuristic rewrite", zap.Error(err))
		} else if filtered := dropSame(candidates, query); len(filtered) > 0 {
			return filtered
		}
	}
	return heuristicRewrites(query, date)
}

// heuristicRewrites produces rewrites without an LLM: the query anchored to
// the current year, and a broadened variant.
func heuristicRewrites(query string, date time.Time) []string {
	year := fmt.Sprintf("%d", date.Year())
	rewrites := []string{query + " " + year}
	if !strings.Contains(strings.ToLower(query), "overview") {
		rewrites = append(rewrites, query+" overview")
	}
	return rewrites
}

func dropSame(candidates []string, original string) []string {
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c == "" || strings.EqualFold(c, original) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Merge unions two result sets by canonical URL+title key. Documents from
// the new set come first and win tie-breaks; duplicates are merged field by
// field, keeping the richer value.
func Merge(newDocs, oldDocs []*models.Document) []*models.Document {
	merged := make([]*models.Document, 0, len(newDocs)+len(oldDocs))
	byKey := make(map[string]*models.Document, len(newDocs)+len(oldDocs))

	for _, doc := range newDocs {
		key := doc.CanonicalKey()
		if existing, ok := byKey[key]; ok {
			existing.Merge(doc)
			continue
		}
		byKey[key] = doc
		merged = append(merged, doc)
	}
	for _, doc := range oldDocs {
		key := doc.CanonicalKey()
		if existing, ok := byKey[key]; ok {
			existing.Merge(doc)
			continue
		}
		byKey[key] = doc
		merged = append(merged, doc)
	}
	return merged
}

// MeanConfidence returns the average confidence score of docs, 0 when empty.
func MeanConfidence(docs []*models.Document) float64 {
	if len(docs) == 0 {
		return 0
	}
	var sum float64
	for _, doc := range docs {
		sum += doc.ConfidenceScore
	}
	return sum / float64(len(docs))
}
