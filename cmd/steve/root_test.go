package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/steve"
	"github.com/aretw0/steve/internal/testutils"
	"github.com/aretw0/steve/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T) (configPath, statePath string) {
	t.Helper()
	statePath, templatePath := testutils.WriteTemplate(t)
	configPath = filepath.Join(filepath.Dir(statePath), "steve.yaml")
	body := fmt.Sprintf("state:\n  path: %q\n  template: %q\n", statePath, templatePath)
	require.NoError(t, os.WriteFile(configPath, []byte(body), 0644))
	return configPath, statePath
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "steve version "+steve.Version+"\n", out)
}

func TestStateCommands(t *testing.T) {
	configPath, statePath := writeConfig(t)

	out, err := execute(t, "state", "show", "--config", configPath)
	require.NoError(t, err)
	assert.Contains(t, out, "No conversation has started yet.")
	assert.NoFileExists(t, statePath)

	out, err = execute(t, "state", "reset", "--config", configPath)
	require.NoError(t, err)
	var reset domain.ConversationState
	require.NoError(t, json.Unmarshal([]byte(out), &reset))
	assert.Equal(t, domain.StateDefaultStasis, reset.SteveState)
	assert.FileExists(t, statePath)

	out, err = execute(t, "state", "show", "--config", configPath)
	require.NoError(t, err)
	var shown domain.ConversationState
	require.NoError(t, json.Unmarshal([]byte(out), &shown))
	assert.True(t, reset.Equal(&shown))
}

func TestInvalidConfig(t *testing.T) {
	configPath, _ := writeConfig(t)

	_, err := execute(t, "state", "show", "--config", configPath, "--provider", "clippy")
	assert.Error(t, err)
}
