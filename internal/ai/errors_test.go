package ai

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestErrorClassification(t *testing.T) {
	t.Parallel()

	transport := fmt.Errorf("answer: %w", NewTransportError("read stream", ErrStreamTruncated))
	if !IsTransport(transport) {
		t.Fatalf("expected transport error to be detected through wrapping")
	}
	if IsProtocol(transport) {
		t.Fatalf("transport error must not be reported as protocol error")
	}
	if !errors.Is(transport, ErrStreamTruncated) {
		t.Fatalf("expected cause to be preserved")
	}

	protocol := NewProtocolError("{oops", errors.New("invalid character"))
	if !IsProtocol(protocol) {
		t.Fatalf("expected protocol error to be detected")
	}
	if IsTransport(protocol) {
		t.Fatalf("protocol error must not be reported as transport error")
	}

	if IsTransport(context.Canceled) || IsProtocol(context.Canceled) {
		t.Fatalf("plain errors must not be classified")
	}
}
