package answer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	_ "embed"

	"github.com/spigell/resume-agent/internal/ai"
	"github.com/spigell/resume-agent/internal/stream"
	"github.com/spigell/resume-agent/internal/utils"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

//go:embed prompt.md
var systemPrompt string

const (
	defaultLabel     = "Candidate: "
	defaultMaxLogLen = 200
	defaultTimeout   = 300 * time.Second
)

// SystemPrompt returns the fixed persona and grounding instruction.
func SystemPrompt() string {
	return strings.TrimSpace(systemPrompt)
}

// Config holds the per-exchange request settings.
type Config struct {
	Model   string
	Options ai.Options
	// Label is printed before the streamed answer.
	Label string
	// Timeout bounds the whole exchange, from opening the stream to the last increment.
	Timeout      time.Duration
	MaxLogLength int
}

// Consumer runs one question against a streaming completion endpoint and
// echoes the cleaned answer to its output as it arrives.
type Consumer struct {
	completer ai.Completer
	cfg       Config
	out       io.Writer
	logger    *zap.Logger
	label     *color.Color
}

func NewConsumer(completer ai.Completer, cfg Config, out io.Writer, logger *zap.Logger) *Consumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if out == nil {
		out = io.Discard
	}
	if cfg.Label == "" {
		cfg.Label = defaultLabel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxLogLength <= 0 {
		cfg.MaxLogLength = defaultMaxLogLen
	}

	return &Consumer{
		completer: completer,
		cfg:       cfg,
		out:       out,
		logger:    logger,
		label:     color.New(color.FgCyan, color.Bold),
	}
}

// UserMessage renders the grounded user turn.
func UserMessage(question, contextBlock string) string {
	return fmt.Sprintf("RESUME CONTEXT:\n%s\n\nQUESTION:\n%s", contextBlock, question)
}

// Run streams the answer to question grounded on contextBlock and returns the trimmed, filtered text.
// On failure no partial answer is returned.
func (c *Consumer) Run(ctx context.Context, question, contextBlock string) (string, error) {
	logger := c.logger.With(zap.String("exchange_id", uuid.NewString()))

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req := ai.Request{
		Model:   c.cfg.Model,
		System:  SystemPrompt(),
		User:    UserMessage(question, contextBlock),
		Options: c.cfg.Options,
	}

	logger.Debug("opening completion stream",
		zap.Int("prompt_length", utf8.RuneCountInString(req.User)),
		zap.String("question", utils.TruncateForLog(question, c.cfg.MaxLogLength)),
	)

	s, err := c.completer.Stream(ctx, req)
	if err != nil {
		if !ai.IsTransport(err) {
			err = ai.NewTransportError("open stream", err)
		}
		return "", err
	}
	defer s.Close()

	filter := stream.NewFilter(stream.DefaultTags)

	var (
		answer     strings.Builder
		increments int
	)

	c.label.Fprint(c.out, "\n"+c.cfg.Label)

	for {
		inc, err := s.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if !ai.IsTransport(err) && !ai.IsProtocol(err) && ctx.Err() != nil {
				err = ai.NewTransportError("read stream", err)
			}
			fmt.Fprint(c.out, "\n\n")
			logger.Debug("completion stream failed",
				zap.Int("increments", increments),
				zap.Error(err),
			)
			return "", err
		}

		increments++

		if inc.Delta != "" {
			if clean := filter.Write(inc.Delta); clean != "" {
				answer.WriteString(clean)
				fmt.Fprint(c.out, clean)
			}
		}

		if inc.Done {
			break
		}
	}

	fmt.Fprint(c.out, "\n\n")

	result := strings.TrimSpace(answer.String())

	logger.Debug("completion stream finished",
		zap.Int("increments", increments),
		zap.Int("answer_length", utf8.RuneCountInString(result)),
		zap.String("answer_preview", utils.TruncateForLog(result, c.cfg.MaxLogLength)),
		zap.Bool("unterminated_region", filter.Inside()),
	)

	return result, nil
}
