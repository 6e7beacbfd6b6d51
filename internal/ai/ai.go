package ai

import (
	"context"
)

const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Options are the sampling settings sent with every completion request.
type Options struct {
	Temperature   float64
	MaxTokens     int
	ContextWindow int
}

// Request describes a single grounded completion call.
type Request struct {
	Model   string
	System  string
	User    string
	Options Options
}

// Increment is one record of a streamed completion.
// Delta may be empty; Done marks the last record of the stream.
type Increment struct {
	Delta string
	Done  bool
}

// Stream is a lazy, non-restartable sequence of increments.
// Next returns io.EOF when the producer finished without an explicit completion record.
type Stream interface {
	Next() (Increment, error)
	Close() error
}

// Completer opens streaming completions against a model-serving endpoint.
type Completer interface {
	Stream(ctx context.Context, req Request) (Stream, error)
}
