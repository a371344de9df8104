package pipeline

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/gretools/greharvest/internal/types"
)

// Middleware processes a question record before archiving. Return nil to
// drop the record.
type Middleware interface {
	// Name returns the middleware's identifier.
	Name() string

	// Process transforms a record. Return nil to drop it.
	Process(record *types.QuestionRecord) (*types.QuestionRecord, error)
}

// Chain runs records through middleware in order.
type Chain struct {
	middlewares []Middleware
	logger      *slog.Logger
}

// NewChain creates an empty middleware chain.
func NewChain(logger *slog.Logger) *Chain {
	return &Chain{
		logger: logger.With("component", "record_chain"),
	}
}

// Use appends a middleware to the chain.
func (c *Chain) Use(mw Middleware) {
	c.middlewares = append(c.middlewares, mw)
}

// Process runs the record through all middleware in order. A nil result
// with nil error means the record was dropped.
func (c *Chain) Process(record *types.QuestionRecord) (*types.QuestionRecord, error) {
	current := record
	for _, mw := range c.middlewares {
		result, err := mw.Process(current)
		if err != nil {
			return nil, err
		}
		if result == nil {
			c.logger.Debug("record dropped", "stage", mw.Name(), "url", record.SourceURL)
			return nil, nil
		}
		current = result
	}
	return current, nil
}

// Len returns the number of middleware in the chain.
func (c *Chain) Len() int {
	return len(c.middlewares)
}

// --- Built-in Middleware ---

// TrimMiddleware trims whitespace from all string fields.
type TrimMiddleware struct{}

func (m *TrimMiddleware) Name() string { return "trim" }

func (m *TrimMiddleware) Process(record *types.QuestionRecord) (*types.QuestionRecord, error) {
	record.Question = strings.TrimSpace(record.Question)
	record.CorrectAnswer = strings.TrimSpace(record.CorrectAnswer)
	record.Explanation = strings.TrimSpace(record.Explanation)
	for i, choice := range record.AnswerChoices {
		record.AnswerChoices[i] = strings.TrimSpace(choice)
	}
	return record, nil
}

// RequiredQuestionMiddleware drops records without question text.
type RequiredQuestionMiddleware struct{}

func (m *RequiredQuestionMiddleware) Name() string { return "required_question" }

func (m *RequiredQuestionMiddleware) Process(record *types.QuestionRecord) (*types.QuestionRecord, error) {
	if record.Question == "" {
		return nil, nil
	}
	return record, nil
}

// DedupMiddleware drops records whose source URL was already processed
// in this run. Harvest-level dedup is per category; this guards against
// the same thread being listed under two categories.
type DedupMiddleware struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewDedupMiddleware creates a DedupMiddleware.
func NewDedupMiddleware() *DedupMiddleware {
	return &DedupMiddleware{seen: make(map[string]struct{})}
}

func (m *DedupMiddleware) Name() string { return "dedup" }

func (m *DedupMiddleware) Process(record *types.QuestionRecord) (*types.QuestionRecord, error) {
	key := record.SourceURL + "|" + record.Category
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.seen[key]; exists {
		return nil, nil
	}
	m.seen[key] = struct{}{}
	return record, nil
}
