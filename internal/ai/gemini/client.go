package gemini

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/spigell/resume-agent/internal/ai"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	defaultModel = "gemini-2.5-flash"
)

// modelsAPI is the part of genai.Models used by the generator.
type modelsAPI interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	GenerateContentStream(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error]
}

// Generator wraps the Google GenAI client for streamed completions and speech.
type Generator struct {
	models modelsAPI
	model  string
	logger *zap.Logger
}

// NewGenerator creates a new Generator configured for the Gemini API backend.
func NewGenerator(ctx context.Context, apiKey, model string, logger *zap.Logger) (*Generator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Generator{models: client.Models, model: model, logger: logger}, nil
}

func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.model
}

// Stream starts a streamed completion. The request model overrides the generator default when set.
func (g *Generator) Stream(ctx context.Context, req ai.Request) (ai.Stream, error) {
	if g == nil || g.models == nil {
		return nil, errors.New("gemini generator is not initialized")
	}

	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = g.model
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(req.System, genai.RoleUser),
		Temperature:       genai.Ptr(float32(req.Options.Temperature)),
		MaxOutputTokens:   int32(req.Options.MaxTokens),
	}

	contents := genai.Text(req.User)

	g.logger.Debug("gemini stream request", zap.String("model", model))

	next, stop := iter.Pull2(g.models.GenerateContentStream(ctx, model, contents, config))

	return &responseStream{next: next, stop: stop}, nil
}

// responseStream adapts the genai iterator to ai.Stream.
// Exhausting the iterator yields one final Done increment.
type responseStream struct {
	next     func() (*genai.GenerateContentResponse, error, bool)
	stop     func()
	finished bool
}

func (s *responseStream) Next() (ai.Increment, error) {
	if s.finished {
		return ai.Increment{}, io.EOF
	}

	resp, err, ok := s.next()
	if !ok {
		s.finished = true
		return ai.Increment{Done: true}, nil
	}

	if err != nil {
		s.finished = true
		return ai.Increment{}, ai.NewTransportError("read gemini stream", err)
	}

	return ai.Increment{Delta: responseText(resp)}, nil
}

func (s *responseStream) Close() error {
	s.stop()
	return nil
}

// responseText concatenates the text parts of the first candidate, skipping thoughts.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}

	candidate := resp.Candidates[0]
	if candidate == nil || candidate.Content == nil {
		return ""
	}

	var builder strings.Builder
	for _, part := range candidate.Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		builder.WriteString(part.Text)
	}

	return builder.String()
}
