package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aretw0/steve/internal/cli"
	"github.com/aretw0/steve/pkg/domain"
	"github.com/spf13/cobra"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Inspect or reset the persisted conversation state",
}

var stateShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the persisted state as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		store, closeStore, err := cli.NewStoreOnly(cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		state, err := store.Load(cmd.Context())
		if errors.Is(err, domain.ErrStateNotFound) {
			fmt.Fprintln(cmd.OutOrStdout(), "No conversation has started yet.")
			return nil
		}
		if err != nil {
			return err
		}
		return printState(cmd, state)
	},
}

var stateResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Copy the template over the persisted state",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		store, closeStore, err := cli.NewStoreOnly(cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		state, err := store.Reset(cmd.Context())
		if err != nil {
			return err
		}
		return printState(cmd, state)
	},
}

func printState(cmd *cobra.Command, state *domain.ConversationState) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(state)
}

func init() {
	rootCmd.AddCommand(stateCmd)
	stateCmd.AddCommand(stateShowCmd, stateResetCmd)
}
