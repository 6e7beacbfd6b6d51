package speech

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

const defaultPlayer = "ffplay"

// Player plays audio files with an external command.
type Player struct {
	Command string
	Args    []string
	logger  *zap.Logger

	lookPath func(file string) (string, error)
	run      func(ctx context.Context, name string, args ...string) error
}

func NewPlayer(logger *zap.Logger) *Player {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Player{
		Command:  defaultPlayer,
		Args:     []string{"-nodisp", "-autoexit", "-loglevel", "quiet"},
		logger:   logger,
		lookPath: exec.LookPath,
		run:      runCommand,
	}
}

// Play blocks until playback ends. A missing or failing player is logged and ignored.
func (p *Player) Play(ctx context.Context, path string) {
	if strings.TrimSpace(path) == "" {
		return
	}

	if _, err := p.lookPath(p.Command); err != nil {
		p.logger.Warn("audio player not found, skipping playback",
			zap.String("player", p.Command),
			zap.String("hint", "install ffmpeg to enable playback"),
			zap.Error(err),
		)
		return
	}

	args := append(append([]string{}, p.Args...), path)
	if err := p.run(ctx, p.Command, args...); err != nil {
		p.logger.Warn("audio playback failed", zap.String("file", path), zap.Error(err))
	}
}

func runCommand(ctx context.Context, name string, args ...string) error {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(out)))
	}
	return nil
}
