package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spigell/resume-agent/internal/ai"
	"github.com/spigell/resume-agent/internal/ai/gemini"
	"github.com/spigell/resume-agent/internal/ai/ollama"
	"github.com/spigell/resume-agent/internal/answer"
	"github.com/spigell/resume-agent/internal/index"
	"github.com/spigell/resume-agent/internal/logger"
	"github.com/spigell/resume-agent/internal/retrieval"
	"github.com/spigell/resume-agent/internal/secrets"
	"github.com/spigell/resume-agent/internal/speech"

	"go.uber.org/zap"
)

const (
	providerOllama = "ollama"
	providerGemini = "gemini"
	geminiKeyEnv   = "GEMINI_API_KEY"
)

// agent holds everything one chat session needs.
type agent struct {
	orchestrator *retrieval.Orchestrator
	store        *index.Store
	speaker      speech.Synthesizer
	player       *speech.Player
	config       *Config
	logger       *zap.Logger
}

func (a *agent) Close() error {
	return a.store.Close()
}

func newEmbedder(config *Config, logger *zap.Logger) *ollama.Embedder {
	client := ollama.New(logger, config.Ollama.URL, config.Ollama.Timeout)
	return ollama.NewEmbedder(client, config.Embedding.Model)
}

func newGeminiGenerator(ctx context.Context, config *Config, logger *zap.Logger) (*gemini.Generator, error) {
	apiKey, err := secrets.Load(secrets.Source{
		Name: "gemini api key",
		File: config.Gemini.APIKeyFile,
		Env:  geminiKeyEnv,
	})
	if err != nil {
		return nil, err
	}

	return gemini.NewGenerator(ctx, apiKey, config.Gemini.Model, logger.With(zap.String("provider", providerGemini)))
}

// newCompleter returns the completion backend and the model name to request.
func newCompleter(ctx context.Context, config *Config, logger *zap.Logger) (ai.Completer, string, error) {
	provider := strings.TrimSpace(strings.ToLower(config.LLM.Provider))

	switch provider {
	case "", providerOllama:
		return ollama.New(logger, config.Ollama.URL, config.Ollama.Timeout), config.LLM.Model, nil
	case providerGemini:
		generator, err := newGeminiGenerator(ctx, config, logger)
		if err != nil {
			return nil, "", fmt.Errorf("building gemini completer: %w", err)
		}
		return generator, generator.Model(), nil
	default:
		return nil, "", fmt.Errorf("unsupported llm provider: %s", config.LLM.Provider)
	}
}

func openIndex(config *Config, log *zap.Logger) (*index.Store, error) {
	embedder := newEmbedder(config, log)
	indexLogger := logger.WithIndexFields(log, config.IndexDir, embedder.Model())

	return index.Open(config.IndexDir, embedder, indexLogger)
}

// newAgent wires the index, the completion backend and the optional speech output.
func newAgent(ctx context.Context, config *Config, out io.Writer, log *zap.Logger) (*agent, error) {
	store, err := openIndex(config, log)
	if err != nil {
		return nil, err
	}

	if err := store.Load(); err != nil {
		store.Close()
		return nil, err
	}

	log.Info("index opened",
		zap.String("index_dir", config.IndexDir),
		zap.String("source", store.Source()),
		zap.Int("chunks", store.Len()),
	)

	completer, model, err := newCompleter(ctx, config, log)
	if err != nil {
		store.Close()
		return nil, err
	}

	llmLogger := logger.WithCommonFields(log, config.LLM.Provider, model)

	consumer := answer.NewConsumer(completer, answer.Config{
		Model: model,
		Options: ai.Options{
			Temperature:   config.LLM.Temperature,
			MaxTokens:     config.LLM.MaxTokens,
			ContextWindow: config.LLM.ContextWindow,
		},
		Timeout:      config.LLM.Timeout,
		MaxLogLength: config.Log.MaxLength,
	}, out, llmLogger)

	a := &agent{
		orchestrator: retrieval.NewOrchestrator(store, consumer, retrieval.Config{TopK: config.Retrieval.TopK}, llmLogger),
		store:        store,
		config:       config,
		logger:       log,
	}

	if config.Speech.Enabled {
		generator, err := newGeminiGenerator(ctx, config, log)
		if err != nil {
			log.Warn("speech disabled", zap.Error(err))
		} else {
			a.speaker = gemini.NewSpeaker(generator, config.Speech.Model, config.Speech.Voice)
			if config.Speech.Play {
				a.player = speech.NewPlayer(log)
			}
		}
	}

	return a, nil
}

// speak synthesizes the answer and plays it. Failures never end the session.
func (a *agent) speak(ctx context.Context, text string) {
	if a.speaker == nil || strings.TrimSpace(text) == "" {
		return
	}

	path, err := a.speaker.Synthesize(ctx, text, a.config.Speech.Language, a.config.Speech.Output)
	if err != nil {
		a.logger.Warn("speech synthesis failed", zap.Error(err))
		return
	}

	a.logger.Info("saved voice", zap.String("file", path))

	if a.player != nil {
		a.player.Play(ctx, path)
	}
}
