package intents

import (
	"github.com/spf13/cobra"
)

func NewIntentsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "intents",
		Short: "Manage Dialogflow intents",
		Example: `  verbsbot intents load
  verbsbot intents load -f data/health_questions.json`,
	}

	var path string
	load := &cobra.Command{
		Use:   "load",
		Short: "Create Dialogflow intents from a training file",
		Args:  cobra.NoArgs,
		Example: `  verbsbot intents load
  verbsbot intents load --file data/health_questions.json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return loadIntents(cmd.Context(), path, cmd.OutOrStdout())
		},
	}
	load.Flags().StringVarP(&path, "file", "f", "questions.json",
		"Training data: {\"<intent>\": {\"questions\": [...], \"answer\": \"...\"}}")

	cmd.AddCommand(load)

	return cmd
}
