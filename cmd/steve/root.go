package main

import (
	"fmt"
	"os"

	"github.com/aretw0/steve/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "steve",
	Short: "Steve's Room is a conversation with a friend stuck on an art assignment",
	Long: `Steve is a teenager who has to make an art piece about himself and believes
there is nothing special about him. Talk him through it in the terminal, over
HTTP or as MCP tools.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Chat is the default experience.
		return runChat(cmd, args)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "Path to the config file (default steve.yaml, if present)")
	rootCmd.PersistentFlags().Bool("debug", false, "Log prompts, raw responses and retries to stderr")
	rootCmd.PersistentFlags().String("provider", "", "Model provider: gemini or openai")
	rootCmd.PersistentFlags().String("model", "", "Model name for the provider")

	rootCmd.Flags().AddFlagSet(chatFlags())
}

// loadConfig resolves the configuration and applies the flags the user set.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if cmd.Flags().Changed("debug") {
		cfg.Debug, _ = cmd.Flags().GetBool("debug")
	}
	if cmd.Flags().Changed("provider") {
		cfg.Provider, _ = cmd.Flags().GetString("provider")
	}
	if cmd.Flags().Changed("model") {
		cfg.Model, _ = cmd.Flags().GetString("model")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
