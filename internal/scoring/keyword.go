package scoring

import (
	"strings"

	"github.com/finetunelab/websearch/pkg/utils"

	"github.com/finetunelab/websearch/internal/models"
)

// stopwords are excluded from keyword overlap so common glue words don't
// inflate relevance.
var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "by": true, "for": true, "from": true, "in": true, "is": true,
	"it": true, "of": true, "on": true, "or": true, "the": true, "to": true,
	"with": true, "what": true, "how": true, "why": true, "who": true,
}

const (
	titleMatchWeight   = 0.65
	snippetMatchWeight = 0.35
)

// queryTerms tokenizes the query and drops stopwords.
func queryTerms(query string) []string {
	tokens := utils.Tokenize(query)
	terms := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if !stopwords[tok] {
			terms = append(terms, tok)
		}
	}
	if len(terms) == 0 {
		return tokens
	}
	return terms
}

// keywordScore measures term overlap between the query and the document's
// title and snippet. Title matches count more than snippet matches. Returns
// a value in [0, 1]; 1 means every term appears in both fields.
func keywordScore(doc *models.Document, terms []string) float64 {
	if len(terms) == 0 {
		return 0
	}

	title := strings.ToLower(doc.Title)
	snippet := strings.ToLower(doc.Snippet)

	var titleHits, snippetHits int
	for _, term := range terms {
		if strings.Contains(title, term) {
			titleHits++
		}
		if strings.Contains(snippet, term) {
			snippetHits++
		}
	}

	n := float64(len(terms))
	return titleMatchWeight*float64(titleHits)/n + snippetMatchWeight*float64(snippetHits)/n
}
