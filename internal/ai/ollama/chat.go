package ollama

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/spigell/resume-agent/internal/ai"

	"go.uber.org/zap"
)

const (
	chatPath = "/api/chat"
	// Ollama records are small, but a single long delta must not break the scanner.
	maxLineSize = 1 << 20
)

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatOptions struct {
	NumPredict  int     `json:"num_predict,omitempty"`
	Temperature float64 `json:"temperature"`
	NumCtx      int     `json:"num_ctx,omitempty"`
}

type chatRequest struct {
	Model    string      `json:"model"`
	Stream   bool        `json:"stream"`
	Options  chatOptions `json:"options"`
	Messages []message   `json:"messages"`
}

type chatChunk struct {
	Message *message `json:"message"`
	Done    bool     `json:"done"`
	Error   string   `json:"error"`
}

// Stream opens a streaming chat completion.
func (c *Client) Stream(ctx context.Context, req ai.Request) (ai.Stream, error) {
	payload := chatRequest{
		Model:  req.Model,
		Stream: true,
		Options: chatOptions{
			NumPredict:  req.Options.MaxTokens,
			Temperature: req.Options.Temperature,
			NumCtx:      req.Options.ContextWindow,
		},
		Messages: []message{
			{Role: ai.RoleSystem, Content: req.System},
			{Role: ai.RoleUser, Content: req.User},
		},
	}

	resp, err := c.post(ctx, chatPath, payload)
	if err != nil {
		return nil, ai.NewTransportError("open chat stream", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, ai.NewTransportError("open chat stream", statusError(resp))
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	return &chatStream{
		body:    resp.Body,
		scanner: scanner,
		logger:  c.logger,
	}, nil
}

// chatStream decodes the NDJSON body of /api/chat one record at a time.
type chatStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	logger  *zap.Logger
	done    bool
}

func (s *chatStream) Next() (ai.Increment, error) {
	if s.done {
		return ai.Increment{}, io.EOF
	}

	for s.scanner.Scan() {
		line := strings.TrimSpace(s.scanner.Text())
		if line == "" {
			continue
		}

		var chunk chatChunk
		if err := json.Unmarshal([]byte(line), &chunk); err != nil {
			return ai.Increment{}, ai.NewProtocolError(line, err)
		}

		if chunk.Error != "" {
			return ai.Increment{}, ai.NewTransportError("read chat stream", errors.New(chunk.Error))
		}

		inc := ai.Increment{Done: chunk.Done}
		if chunk.Message != nil {
			inc.Delta = chunk.Message.Content
		}

		if chunk.Done {
			s.done = true
		}

		return inc, nil
	}

	if err := s.scanner.Err(); err != nil {
		return ai.Increment{}, ai.NewTransportError("read chat stream", err)
	}

	return ai.Increment{}, ai.NewTransportError("read chat stream", ai.ErrStreamTruncated)
}

func (s *chatStream) Close() error {
	return s.body.Close()
}
