package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tinyland-inc/verbsbot/cmd/verbsbot/internal"
	"github.com/tinyland-inc/verbsbot/cmd/verbsbot/internal/console"
	"github.com/tinyland-inc/verbsbot/cmd/verbsbot/internal/gateway"
	"github.com/tinyland-inc/verbsbot/cmd/verbsbot/internal/intents"
	"github.com/tinyland-inc/verbsbot/cmd/verbsbot/internal/version"
)

func NewVerbsbotCommand() *cobra.Command {
	short := fmt.Sprintf("%s verbsbot - VK and Telegram support bot v%s\n\n", internal.Logo, internal.GetVersion())

	cmd := &cobra.Command{
		Use:     "verbsbot",
		Short:   short,
		Example: "verbsbot gateway",
	}

	cmd.AddCommand(
		gateway.NewGatewayCommand(),
		console.NewConsoleCommand(),
		intents.NewIntentsCommand(),
		version.NewVersionCommand(),
	)

	return cmd
}

func main() {
	cmd := NewVerbsbotCommand()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
