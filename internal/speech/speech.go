package speech

import (
	"context"
)

// Synthesizer turns a final answer into an audio file and returns its path.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, lang, outPath string) (string, error)
}
