package answer

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/spigell/resume-agent/internal/ai"

	"go.uber.org/zap"
)

type step struct {
	inc ai.Increment
	err error
}

type scriptedStream struct {
	steps  []step
	pos    int
	closed bool
}

func (s *scriptedStream) Next() (ai.Increment, error) {
	if s.pos >= len(s.steps) {
		return ai.Increment{}, io.EOF
	}
	st := s.steps[s.pos]
	s.pos++
	return st.inc, st.err
}

func (s *scriptedStream) Close() error {
	s.closed = true
	return nil
}

type fakeCompleter struct {
	stream  *scriptedStream
	openErr error
	calls   int
	lastReq ai.Request
}

func (f *fakeCompleter) Stream(_ context.Context, req ai.Request) (ai.Stream, error) {
	f.calls++
	f.lastReq = req
	if f.openErr != nil {
		return nil, f.openErr
	}
	return f.stream, nil
}

func deltas(parts ...string) []step {
	steps := make([]step, 0, len(parts))
	for _, p := range parts {
		steps = append(steps, step{inc: ai.Increment{Delta: p}})
	}
	return steps
}

func done() step {
	return step{inc: ai.Increment{Done: true}}
}

func TestConsumerRunStripsThinking(t *testing.T) {
	steps := append(deltas("Hello", "<think>ignored", " still ignored</think>", " world"), done())
	completer := &fakeCompleter{stream: &scriptedStream{steps: steps}}

	var out bytes.Buffer
	consumer := NewConsumer(completer, Config{Model: "llama3.2:3b"}, &out, zap.NewNop())

	got, err := consumer.Run(context.Background(), "Who are you?", "[Source 1 | page 1]\nresume")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Hello world" {
		t.Fatalf("expected %q, got %q", "Hello world", got)
	}

	if !strings.Contains(out.String(), "Hello world") {
		t.Fatalf("expected cleaned answer to be echoed, got %q", out.String())
	}
	if strings.Contains(out.String(), "ignored") || strings.Contains(out.String(), "<think>") {
		t.Fatalf("suppressed text leaked to output: %q", out.String())
	}
	if !completer.stream.closed {
		t.Fatalf("expected stream to be closed")
	}
}

func TestConsumerRunEmptyRegionThenAnswer(t *testing.T) {
	completer := &fakeCompleter{stream: &scriptedStream{steps: []step{
		{inc: ai.Increment{Delta: "<think></think>answer"}},
		done(),
	}}}

	got, err := NewConsumer(completer, Config{}, nil, nil).Run(context.Background(), "q", "c")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "answer" {
		t.Fatalf("expected %q, got %q", "answer", got)
	}
}

func TestConsumerRunStopsAtDone(t *testing.T) {
	stream := &scriptedStream{steps: []step{
		{inc: ai.Increment{Delta: "first"}},
		{inc: ai.Increment{Delta: " last", Done: true}},
		{inc: ai.Increment{Delta: " never"}},
	}}
	completer := &fakeCompleter{stream: stream}

	got, err := NewConsumer(completer, Config{}, nil, nil).Run(context.Background(), "q", "c")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "first last" {
		t.Fatalf("unexpected answer: %q", got)
	}
	if stream.pos != 2 {
		t.Fatalf("expected reading to stop after the done record, read %d", stream.pos)
	}
}

func TestConsumerRunEndOfStreamWithoutDone(t *testing.T) {
	completer := &fakeCompleter{stream: &scriptedStream{steps: deltas("  trimmed ", "", "answer  ")}}

	got, err := NewConsumer(completer, Config{}, nil, nil).Run(context.Background(), "q", "c")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "trimmed answer" {
		t.Fatalf("unexpected answer: %q", got)
	}
}

func TestConsumerRunTransportFailureDropsPartialAnswer(t *testing.T) {
	steps := append(deltas("partial"), step{err: ai.NewTransportError("read chat stream", ai.ErrStreamTruncated)})
	completer := &fakeCompleter{stream: &scriptedStream{steps: steps}}

	got, err := NewConsumer(completer, Config{}, nil, nil).Run(context.Background(), "q", "c")
	if !ai.IsTransport(err) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if got != "" {
		t.Fatalf("expected no partial answer, got %q", got)
	}
}

func TestConsumerRunProtocolFailure(t *testing.T) {
	steps := append(deltas("partial"), step{err: ai.NewProtocolError("{", errors.New("unexpected end of JSON input"))})
	completer := &fakeCompleter{stream: &scriptedStream{steps: steps}}

	_, err := NewConsumer(completer, Config{}, nil, nil).Run(context.Background(), "q", "c")
	if !ai.IsProtocol(err) {
		t.Fatalf("expected protocol error, got %v", err)
	}
}

func TestConsumerRunOpenFailureIsTransport(t *testing.T) {
	completer := &fakeCompleter{openErr: errors.New("dial tcp: connection refused")}

	_, err := NewConsumer(completer, Config{}, nil, nil).Run(context.Background(), "q", "c")
	if !ai.IsTransport(err) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestConsumerRunBuildsRequest(t *testing.T) {
	completer := &fakeCompleter{stream: &scriptedStream{steps: []step{done()}}}
	cfg := Config{
		Model:   "llama3.2:3b",
		Options: ai.Options{Temperature: 0.2, MaxTokens: 220, ContextWindow: 4096},
	}

	if _, err := NewConsumer(completer, cfg, nil, nil).Run(context.Background(), "Where did you study?", "CTX"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := completer.lastReq
	if req.Model != cfg.Model || req.Options != cfg.Options {
		t.Fatalf("unexpected request settings: %+v", req)
	}
	if req.System != SystemPrompt() || !strings.Contains(req.System, "first person") {
		t.Fatalf("unexpected system prompt: %q", req.System)
	}
	if req.User != "RESUME CONTEXT:\nCTX\n\nQUESTION:\nWhere did you study?" {
		t.Fatalf("unexpected user message: %q", req.User)
	}
}

func TestConsumerFilterStateIsPerExchange(t *testing.T) {
	completer := &fakeCompleter{stream: &scriptedStream{steps: append(deltas("a<think>unterminated"), done())}}
	consumer := NewConsumer(completer, Config{}, nil, nil)

	if got, err := consumer.Run(context.Background(), "q1", "c"); err != nil || got != "a" {
		t.Fatalf("unexpected first answer %q, err %v", got, err)
	}

	completer.stream = &scriptedStream{steps: append(deltas("fresh answer"), done())}
	got, err := consumer.Run(context.Background(), "q2", "c")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "fresh answer" {
		t.Fatalf("filter state leaked between exchanges: %q", got)
	}
}

// stalledStream yields its deltas and then waits for the exchange context to end.
type stalledStream struct {
	ctx    context.Context
	deltas []string
}

func (s *stalledStream) Next() (ai.Increment, error) {
	if len(s.deltas) > 0 {
		delta := s.deltas[0]
		s.deltas = s.deltas[1:]
		return ai.Increment{Delta: delta}, nil
	}
	<-s.ctx.Done()
	return ai.Increment{}, s.ctx.Err()
}

func (s *stalledStream) Close() error { return nil }

type stallingCompleter struct{}

func (stallingCompleter) Stream(ctx context.Context, _ ai.Request) (ai.Stream, error) {
	return &stalledStream{ctx: ctx, deltas: []string{"partial"}}, nil
}

func TestConsumerRunTimeoutIsTransport(t *testing.T) {
	consumer := NewConsumer(stallingCompleter{}, Config{Timeout: 50 * time.Millisecond}, nil, nil)

	type result struct {
		answer string
		err    error
	}
	results := make(chan result, 1)
	go func() {
		answer, err := consumer.Run(context.Background(), "q", "c")
		results <- result{answer: answer, err: err}
	}()

	select {
	case r := <-results:
		if !ai.IsTransport(r.err) {
			t.Fatalf("expected transport error, got %v", r.err)
		}
		if !errors.Is(r.err, context.DeadlineExceeded) {
			t.Fatalf("expected deadline exceeded, got %v", r.err)
		}
		if r.answer != "" {
			t.Fatalf("expected no partial answer, got %q", r.answer)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("exchange was not bounded by the timeout")
	}
}

func TestNewConsumerDefaultsTimeout(t *testing.T) {
	consumer := NewConsumer(&fakeCompleter{}, Config{}, nil, nil)

	if consumer.cfg.Timeout != defaultTimeout {
		t.Fatalf("expected default timeout %s, got %s", defaultTimeout, consumer.cfg.Timeout)
	}
}
