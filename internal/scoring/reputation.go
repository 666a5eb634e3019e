package scoring

import (
	"strings"

	"github.com/finetunelab/websearch/internal/models"
)

// Reputation sub-scores per trust tier. Low-tier sources stay above zero so
// strong keyword relevance can still carry a document.
const (
	highTrustScore = 1.0
	mediumScore    = 0.5
	lowTrustScore  = 0.2
)

// reputationScore rates the document's source domain: curated high-trust
// domains score highest, clickbait signals in the domain or title pull the
// score down, and unclassified domains get a medium default.
func reputationScore(doc *models.Document, trust *TrustList) float64 {
	domain := models.Domain(doc.URL)

	switch trust.Tier(domain) {
	case TierHigh:
		return highTrustScore
	case TierLow:
		return lowTrustScore
	}

	if trust.HasLowSignal(domain) || trust.HasLowSignal(strings.ToLower(doc.Title)) {
		return lowTrustScore
	}
	return mediumScore
}
