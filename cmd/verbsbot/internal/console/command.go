package console

import (
	"github.com/spf13/cobra"
)

func NewConsoleCommand() *cobra.Command {
	var (
		dryRun    bool
		sessionID string
	)

	cmd := &cobra.Command{
		Use:   "console",
		Short: "Chat with the intent backend from the terminal",
		Args:  cobra.NoArgs,
		Example: `  verbsbot console
  verbsbot console --dry-run
  verbsbot console --session vk-42`,
		RunE: func(_ *cobra.Command, _ []string) error {
			return consoleCmd(dryRun, sessionID)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Answer with a fixed reply instead of calling the backend")
	cmd.Flags().StringVarP(&sessionID, "session", "s", "console-1", "Session id passed to the backend")

	return cmd
}
