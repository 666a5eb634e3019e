// Package summarize wraps an OpenAI-compatible chat API to produce document
// summaries and refined query candidates.
package summarize

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"

	"github.com/finetunelab/websearch/internal/models"
)

const (
	summaryInputBudget = 4000
	maxRefinedQueries  = 3
)

// Client calls a chat-completions API. Construct with NewClient; a nil
// *Client is a valid "not configured" value at call sites.
type Client struct {
	api    openai.Client
	model  string
	logger *zap.Logger
}

// NewClient creates a client. Returns an error when apiKey is empty.
// baseURL optionally points at an OpenAI-compatible endpoint.
func NewClient(apiKey, baseURL, model string, logger *zap.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("summarize: api key not configured")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &Client{api: openai.NewClient(opts...), model: model, logger: logger}, nil
}

// SummarizeBatch summarizes every document against the query, returning one
// entry per input document in the same order. A per-document failure yields
// an empty summary for that document, never an error for the batch.
func (c *Client) SummarizeBatch(ctx context.Context, docs []*models.Document, query string) ([]models.Summary, error) {
	out := make([]models.Summary, len(docs))
	for i, doc := range docs {
		out[i] = models.Summary{ResultTitle: doc.Title}

		content := doc.FullContent
		if content == "" {
			content = doc.Snippet
		}
		if content == "" {
			continue
		}
		if len(content) > summaryInputBudget {
			content = content[:summaryInputBudget]
		}

		summary, err := c.complete(ctx,
			"You summarize web search results. Reply with a 2-3 sentence summary relevant to the user's query. No preamble.",
			fmt.Sprintf("Query: %s\n\nTitle: %s\n\nContent:\n%s", query, doc.Title, content),
		)
		if err != nil {
			c.logger.Warn("summarization failed for document",
				zap.String("title", doc.Title), zap.Error(err))
			continue
		}
		out[i].Summary = summary
	}
	return out, nil
}

// RefinedQueries asks the model for up to three alternative queries, one per
// line. Implements the refine.QueryGenerator interface.
func (c *Client) RefinedQueries(ctx context.Context, query string, date time.Time) ([]string, error) {
	raw, err := c.complete(ctx,
		"You rewrite web search queries that returned poor results. Reply with up to three alternative queries, one per line, no numbering or commentary.",
		fmt.Sprintf("Today is %s. Original query: %s", date.Format("2006-01-02"), query),
	)
	if err != nil {
		return nil, err
	}

	var queries []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(strings.Trim(line, "-*\"'"))
		if line == "" {
			continue
		}
		queries = append(queries, line)
		if len(queries) == maxRefinedQueries {
			break
		}
	}
	if len(queries) == 0 {
		return nil, fmt.Errorf("summarize: model returned no queries")
	}
	return queries, nil
}

func (c *Client) complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: empty response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
