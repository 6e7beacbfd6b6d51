package retrieval

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

const defaultTopK = 4

// Retriever returns up to k passages for query, best first.
type Retriever interface {
	Search(ctx context.Context, query string, k int) ([]Passage, error)
}

// Answerer produces the final answer for a question and its context block.
type Answerer interface {
	Run(ctx context.Context, question, contextBlock string) (string, error)
}

type Config struct {
	TopK int
}

// Orchestrator runs the retrieve-then-answer cycle for a single question.
type Orchestrator struct {
	retriever Retriever
	answerer  Answerer
	cfg       Config
	logger    *zap.Logger
}

func NewOrchestrator(retriever Retriever, answerer Answerer, cfg Config, logger *zap.Logger) *Orchestrator {
	if cfg.TopK <= 0 {
		cfg.TopK = defaultTopK
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		retriever: retriever,
		answerer:  answerer,
		cfg:       cfg,
		logger:    logger,
	}
}

// AnswerQuestion returns the grounded answer to question.
// A blank question is skipped: nothing is retrieved or generated and the answer is empty.
// Errors from retrieval and from the answerer are returned unchanged.
func (o *Orchestrator) AnswerQuestion(ctx context.Context, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", nil
	}

	passages, err := o.retriever.Search(ctx, question, o.cfg.TopK)
	if err != nil {
		return "", err
	}

	pages := make([]int, 0, len(passages))
	for _, p := range passages {
		pages = append(pages, p.Page)
	}
	o.logger.Debug("retrieved passages",
		zap.Int("requested", o.cfg.TopK),
		zap.Int("found", len(passages)),
		zap.Ints("pages", pages),
	)

	return o.answerer.Run(ctx, question, BuildContext(passages))
}
