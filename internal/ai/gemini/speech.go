package gemini

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spigell/resume-agent/internal/speech"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	defaultSpeechModel = "gemini-2.5-flash-preview-tts"
	defaultVoice       = "Kore"
)

// Speaker synthesizes answers with a Gemini text-to-speech model.
type Speaker struct {
	generator *Generator
	model     string
	voice     string
}

func NewSpeaker(generator *Generator, model, voice string) *Speaker {
	if model = strings.TrimSpace(model); model == "" {
		model = defaultSpeechModel
	}
	if voice = strings.TrimSpace(voice); voice == "" {
		voice = defaultVoice
	}
	return &Speaker{generator: generator, model: model, voice: voice}
}

// Synthesize writes the spoken text to outPath as a WAV file and returns its path.
func (s *Speaker) Synthesize(ctx context.Context, text, lang, outPath string) (string, error) {
	if s == nil || s.generator == nil || s.generator.models == nil {
		return "", errors.New("gemini speaker is not initialized")
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("text must not be empty")
	}

	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			LanguageCode: lang,
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: s.voice},
			},
		},
	}

	s.generator.logger.Debug("gemini speech request",
		zap.String("model", s.model),
		zap.String("voice", s.voice),
		zap.String("language", lang),
	)

	resp, err := s.generator.models.GenerateContent(ctx, s.model, genai.Text(text), config)
	if err != nil {
		return "", fmt.Errorf("generate speech: %w", err)
	}

	pcm := audioData(resp)
	if len(pcm) == 0 {
		return "", errors.New("gemini api returned no audio")
	}

	if dir := filepath.Dir(outPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create output directory: %w", err)
		}
	}

	f, err := os.Create(outPath)
	if err != nil {
		return "", fmt.Errorf("create audio file: %w", err)
	}
	defer f.Close()

	if err := speech.WriteWAV(f, pcm, speech.DefaultPCMFormat); err != nil {
		return "", fmt.Errorf("write audio file: %w", err)
	}

	return outPath, nil
}

func audioData(resp *genai.GenerateContentResponse) []byte {
	if resp == nil {
		return nil
	}

	var data []byte
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil || part.InlineData == nil {
				continue
			}
			data = append(data, part.InlineData.Data...)
		}
	}
	return data
}
