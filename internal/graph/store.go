// Package graph provides a Bleve-backed knowledge store: searched documents
// are ingested into a local full-text index and later queried for
// supplementary results.
package graph

import (
	"context"
	"fmt"
	"os"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/google/uuid"

	"github.com/finetunelab/websearch/internal/models"
)

// indexedDoc is the flat shape stored in the index.
type indexedDoc struct {
	GroupID string `json:"group_id"`
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
	Source  string `json:"source"`
}

// Store indexes searched documents for supplementary retrieval.
type Store struct {
	index bleve.Index
}

// NewStore creates or opens a Bleve index at path. An empty path builds an
// in-memory index.
func NewStore(path string) (*Store, error) {
	mapping := newMapping()

	if path == "" {
		index, err := bleve.NewMemOnly(mapping)
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory index: %w", err)
		}
		return &Store{index: index}, nil
	}

	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open graph index: %w", openErr)
		}
		return &Store{index: index}, nil
	}

	index, err := bleve.New(path, mapping)
	if err != nil {
		return nil, fmt.Errorf("failed to create graph index: %w", err)
	}
	return &Store{index: index}, nil
}

func newMapping() *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	textField := bleve.NewTextFieldMapping()
	textField.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("title", textField)
	docMapping.AddFieldMappingsAt("content", textField)
	keywordField := bleve.NewKeywordFieldMapping()
	docMapping.AddFieldMappingsAt("group_id", keywordField)
	docMapping.AddFieldMappingsAt("url", keywordField)

	im.DefaultMapping = docMapping
	return im
}

// UploadAndProcess indexes the documents under groupID. Returns the first
// indexing error; callers treat the whole operation as best-effort.
func (s *Store) UploadAndProcess(ctx context.Context, docs []*models.Document, groupID string) error {
	batch := s.index.NewBatch()
	for _, doc := range docs {
		content := doc.FullContent
		if content == "" {
			content = doc.Snippet
		}
		entry := indexedDoc{
			GroupID: groupID,
			Title:   doc.Title,
			URL:     models.CanonicalizeURL(doc.URL),
			Content: content,
			Source:  doc.Source,
		}
		if err := batch.Index(uuid.NewString(), entry); err != nil {
			return fmt.Errorf("failed to batch document: %w", err)
		}
	}
	if err := s.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to index batch: %w", err)
	}
	return nil
}

// Search queries the index within groupID and returns up to limit
// supplementary documents.
func (s *Store) Search(ctx context.Context, query, groupID string, limit int) ([]*models.Document, error) {
	if limit <= 0 {
		limit = 5
	}

	match := bleve.NewMatchQuery(query)
	group := bleve.NewTermQuery(groupID)
	group.SetField("group_id")
	conj := bleve.NewConjunctionQuery(match, group)

	req := bleve.NewSearchRequest(conj)
	req.Size = limit
	req.Fields = []string{"title", "url", "content", "source"}

	results, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("graph search failed: %w", err)
	}

	docs := make([]*models.Document, 0, len(results.Hits))
	for _, hit := range results.Hits {
		doc := &models.Document{ConfidenceScore: hit.Score}
		if v, ok := hit.Fields["title"].(string); ok {
			doc.Title = v
		}
		if v, ok := hit.Fields["url"].(string); ok {
			doc.URL = v
		}
		if v, ok := hit.Fields["content"].(string); ok {
			doc.Snippet = v
		}
		if v, ok := hit.Fields["source"].(string); ok {
			doc.Source = v
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Close closes the underlying index.
func (s *Store) Close() error {
	return s.index.Close()
}
