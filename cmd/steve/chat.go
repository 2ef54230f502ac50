package main

import (
	"os"

	"github.com/aretw0/steve"
	"github.com/aretw0/steve/internal/cli"
	"github.com/aretw0/steve/internal/presentation/tui"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to Steve in the terminal",
	Long: `Starts a fresh conversation with Steve. Type 'reset' to start over and
'quit' to leave. Every conversation is logged under the logs directory.`,
	RunE: runChat,
}

func chatFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("chat", pflag.ContinueOnError)
	fs.String("name", "", "Your name (asked interactively when empty)")
	fs.Bool("no-color", false, "Disable colors and markdown rendering")
	return fs
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	name, _ := cmd.Flags().GetString("name")
	noColor, _ := cmd.Flags().GetBool("no-color")

	ctx := cli.NewSignalContext(cmd.Context())
	defer ctx.Cancel()

	logger := cli.NewLogger(cfg.Debug)
	rt, err := cli.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	return cli.RunChat(ctx, rt.Session, cli.ChatOptions{
		In:        os.Stdin,
		Printer:   tui.NewPrinter(os.Stdout, !noColor && tui.IsTerminal(os.Stdout)),
		Version:   steve.Version,
		Name:      name,
		LogsDir:   cfg.Logs.Dir,
		MaxSizeMB: cfg.Logs.MaxSizeMB,
		Logger:    logger,
	})
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().AddFlagSet(chatFlags())
}
