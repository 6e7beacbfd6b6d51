package cmd

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a single question about the resume",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ask(cmd, strings.Join(args, " "))
	},
}

func init() {
	rootCmd.AddCommand(askCmd)

	askCmd.Flags().Bool("speak", false, "synthesize the answer to speech")
}

func ask(cmd *cobra.Command, question string) {
	ctx := context.Background()

	a, logger := setup(ctx, cmd)
	defer a.Close()

	result, err := a.orchestrator.AnswerQuestion(ctx, question)
	if err != nil {
		a.Close()
		logger.Fatal("answering the question", zap.String("kind", errorKind(err)), zap.Error(err))
	}

	a.speak(ctx, result)
}
