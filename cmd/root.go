package cmd

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app       = "resume-agent"
	envPrefix = "RESUME_AGENT"
)

type Config struct {
	IndexDir  string          `mapstructure:"index-dir"`
	PDF       string          `mapstructure:"pdf"`
	Ollama    OllamaConfig    `mapstructure:"ollama"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Retrieval RetrievalConfig `mapstructure:"retrieval"`
	Chunking  ChunkingConfig  `mapstructure:"chunking"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	Speech    SpeechConfig    `mapstructure:"speech"`
	Log       LogConfig       `mapstructure:"log"`
}

type OllamaConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type LLMConfig struct {
	Provider      string        `mapstructure:"provider"`
	Model         string        `mapstructure:"model"`
	Temperature   float64       `mapstructure:"temperature"`
	MaxTokens     int           `mapstructure:"max-tokens"`
	ContextWindow int           `mapstructure:"context-window"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

type EmbeddingConfig struct {
	Model     string `mapstructure:"model"`
	BatchSize int    `mapstructure:"batch-size"`
}

type RetrievalConfig struct {
	TopK int `mapstructure:"top-k"`
}

type ChunkingConfig struct {
	Size    int `mapstructure:"size"`
	Overlap int `mapstructure:"overlap"`
}

type GeminiConfig struct {
	APIKeyFile string `mapstructure:"api-key-file"`
	Model      string `mapstructure:"model"`
}

type SpeechConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Model    string `mapstructure:"model"`
	Voice    string `mapstructure:"voice"`
	Language string `mapstructure:"language"`
	Output   string `mapstructure:"output"`
	Play     bool   `mapstructure:"play"`
}

type LogConfig struct {
	MaxLength int `mapstructure:"max-length"`
}

var defaults = map[string]any{
	"index-dir":            "resume_index",
	"pdf":                  "resume.pdf",
	"ollama.url":           "http://localhost:11434",
	"ollama.timeout":       "300s",
	"llm.provider":         "ollama",
	"llm.model":            "llama3.2:3b",
	"llm.temperature":      0.2,
	"llm.max-tokens":       220,
	"llm.context-window":   4096,
	"llm.timeout":          "300s",
	"embedding.model":      "all-minilm:l6-v2",
	"embedding.batch-size": 16,
	"retrieval.top-k":      4,
	"chunking.size":        1000,
	"chunking.overlap":     200,
	"gemini.api-key-file":  "",
	"gemini.model":         "gemini-2.5-flash",
	"speech.enabled":       false,
	"speech.model":         "gemini-2.5-flash-preview-tts",
	"speech.voice":         "Kore",
	"speech.language":      "en-US",
	"speech.output":        "answer.wav",
	"speech.play":          true,
	"log.max-length":       200,
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "resume-agent answers questions about a PDF resume in the first person",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is resume-agent.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().String("index-dir", "", "directory of the vector index")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	viper.BindPFlag("index-dir", rootCmd.PersistentFlags().Lookup("index-dir"))
}

func setDefaults(v *viper.Viper) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
}

func initConfig() {
	setDefaults(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// An explicit config file must be readable. The default one is optional.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	return decodeConfig(viper.GetViper())
}

func decodeConfig(v *viper.Viper) (*Config, error) {
	var config *Config
	err := v.Unmarshal(&config, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.TextUnmarshallerHookFunc(),
	)))
	if err != nil {
		return config, err
	}

	if config == nil {
		return nil, errors.New("empty configuration")
	}

	return config, nil
}
