package search

import (
	"context"

	"github.com/finetunelab/websearch/internal/models"
)

// Summarizer condenses fetched documents into short summaries. Satisfied by
// summarize.Client.
type Summarizer interface {
	SummarizeBatch(ctx context.Context, docs []*models.Document, query string) ([]models.Summary, error)
}

// SummaryStore persists generated summaries. Satisfied by storage.SummaryStore.
type SummaryStore interface {
	SaveBatch(ctx context.Context, summaries []models.Summary, query, userID, conversationID string) (saved, failed int)
}

// GraphStore indexes search results for later local retrieval. Satisfied by
// graph.Store.
type GraphStore interface {
	UploadAndProcess(ctx context.Context, docs []*models.Document, groupID string) error
	Search(ctx context.Context, query, groupID string, limit int) ([]*models.Document, error)
}
