package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/spigell/resume-agent/internal/ai"
	"github.com/spigell/resume-agent/internal/logger"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const answerSeparator = "\n---\n"

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Ask questions about the resume in an interactive session",
	Run: func(cmd *cobra.Command, _ []string) {
		chat(cmd)
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().Bool("speak", false, "synthesize every answer to speech")
}

// setup builds the logger, the config and the agent shared by chat and ask.
// Both commands own a --speak flag, so it is bound for the running one only.
func setup(ctx context.Context, cmd *cobra.Command) (*agent, *zap.Logger) {
	if flag := cmd.Flags().Lookup("speak"); flag != nil {
		viper.BindPFlag("speech.enabled", flag)
	}

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the resume-agent", zap.String("version", version))

	a, err := newAgent(ctx, config, cmd.OutOrStdout(), logger)
	if err != nil {
		logger.Fatal("preparing the agent",
			zap.Error(err),
			zap.String("hint", "run the ingest command with the same embedding model first"),
		)
	}

	return a, logger
}

func chat(cmd *cobra.Command) {
	ctx := context.Background()
	out := cmd.OutOrStdout()

	a, logger := setup(ctx, cmd)
	defer a.Close()

	fmt.Fprintln(out, "Ask me anything about my experience. Type 'exit' to quit.")

	prompt := promptui.Prompt{
		Label: "You",
	}

	for {
		question, err := prompt.Run()
		if err != nil {
			if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
				fmt.Fprintln(out, "Bye!")
				return
			}
			logger.Fatal("reading a question", zap.Error(err))
		}

		question = strings.TrimSpace(question)
		if question == "" {
			continue
		}

		if isExitCommand(question) {
			fmt.Fprintln(out, "Bye!")
			return
		}

		a.answer(ctx, question)
		fmt.Fprint(out, answerSeparator)
	}
}

// answer runs one question. Ctrl+C cancels only the question in flight.
func (a *agent) answer(ctx context.Context, question string) {
	questionCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	result, err := a.orchestrator.AnswerQuestion(questionCtx, question)
	if err != nil {
		a.logger.Error("answering the question", zap.String("kind", errorKind(err)), zap.Error(err))
		return
	}

	a.speak(questionCtx, result)
}

func isExitCommand(input string) bool {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "exit", "quit":
		return true
	default:
		return false
	}
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "canceled"
	case ai.IsProtocol(err):
		return "protocol"
	case ai.IsTransport(err):
		return "transport"
	default:
		return "retrieval"
	}
}
