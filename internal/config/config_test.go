package config_test

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/steve/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(vars map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func noDotenv(t *testing.T) string {
	return writeFile(t, ".env", "")
}

func TestLoad_Defaults(t *testing.T) {
	l := &config.Loader{Path: writeFile(t, "steve.yaml", ""), EnvFile: noDotenv(t), LookupEnv: env(nil)}

	cfg, err := l.Load()
	require.NoError(t, err)

	assert.Equal(t, config.ProviderGemini, cfg.Provider)
	assert.Equal(t, "state.json", cfg.State.Path)
	assert.Equal(t, "template.json", cfg.State.Template)
	assert.Equal(t, config.BackendFile, cfg.State.Backend)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 3*time.Second, cfg.Retry.Delay)
	assert.Equal(t, 20*time.Second, cfg.Retry.AttemptTimeout)
	assert.Equal(t, 5000, cfg.HTTP.Port)
	assert.Equal(t, "logs", cfg.Logs.Dir)
	assert.Equal(t, "steve:", cfg.Redis.Prefix)
	assert.False(t, cfg.Debug)

	policy := cfg.RetryPolicy()
	assert.Equal(t, 3, policy.MaxAttempts)
	assert.Equal(t, 3*time.Second, policy.Delay)
}

func TestLoad_Precedence(t *testing.T) {
	yamlPath := writeFile(t, "steve.yaml", `
provider: openai
model: gpt-4o-mini
retry:
  max_attempts: 5
  delay: 500ms
http:
  port: 8080
state:
  backend: redis
`)
	dotenv := writeFile(t, ".env", "STEVE_HTTP_PORT=9090\nOPENAI_API_KEY=sk-from-dotenv\nSTEVE_DEBUG=true\n")

	l := &config.Loader{
		Path:    yamlPath,
		EnvFile: dotenv,
		LookupEnv: env(map[string]string{
			"STEVE_HTTP_PORT":      "7070",
			"STEVE_REDIS_ADDR":     "redis:6379",
			"STEVE_REDIS_DB":       "2",
			"STEVE_STATE_TEMPLATE": "/etc/steve/template.json",
		}),
	}

	cfg, err := l.Load()
	require.NoError(t, err)

	assert.Equal(t, config.ProviderOpenAI, cfg.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.Model)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Retry.Delay)
	assert.Equal(t, 20*time.Second, cfg.Retry.AttemptTimeout, "untouched nested keys keep their defaults")
	assert.Equal(t, 7070, cfg.HTTP.Port, "process env beats .env beats yaml")
	assert.True(t, cfg.Debug)
	assert.Equal(t, "sk-from-dotenv", cfg.APIKey)
	assert.Equal(t, config.BackendRedis, cfg.State.Backend)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, "/etc/steve/template.json", cfg.State.Template)
}

func TestLoad_ProviderKey(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
		want string
	}{
		{"Gemini", map[string]string{"GOOGLE_GEMINI_KEY": "g-key", "OPENAI_API_KEY": "o-key"}, "g-key"},
		{"OpenAI", map[string]string{"STEVE_PROVIDER": "openai", "GOOGLE_GEMINI_KEY": "g-key", "OPENAI_API_KEY": "o-key"}, "o-key"},
		{"Explicit wins", map[string]string{"STEVE_API_KEY": "s-key", "GOOGLE_GEMINI_KEY": "g-key"}, "s-key"},
		{"None", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := &config.Loader{Path: writeFile(t, "steve.yaml", ""), EnvFile: noDotenv(t), LookupEnv: env(tt.vars)}
			cfg, err := l.Load()
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.APIKey)
		})
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]map[string]string{
		"Provider":    {"STEVE_PROVIDER": "llama"},
		"Backend":     {"STEVE_STATE_BACKEND": "sqlite"},
		"Attempts":    {"STEVE_RETRY_MAX_ATTEMPTS": "0"},
		"Port":        {"STEVE_HTTP_PORT": "70000"},
		"NotADelay":   {"STEVE_RETRY_DELAY": "soon"},
		"NotANumber":  {"STEVE_REDIS_DB": "two"},
		"NoTemplate":  {"STEVE_STATE_TEMPLATE": ""},
		"NegativeDly": {"STEVE_RETRY_DELAY": "-1s"},
	}
	for name, vars := range tests {
		t.Run(name, func(t *testing.T) {
			l := &config.Loader{Path: writeFile(t, "steve.yaml", ""), EnvFile: noDotenv(t), LookupEnv: env(vars)}
			_, err := l.Load()
			assert.ErrorIs(t, err, config.ErrInvalidConfig)
		})
	}
}

func TestLoad_Files(t *testing.T) {
	t.Run("Explicit config file must exist", func(t *testing.T) {
		l := &config.Loader{Path: filepath.Join(t.TempDir(), "missing.yaml"), EnvFile: noDotenv(t), LookupEnv: env(nil)}
		_, err := l.Load()
		assert.Error(t, err)
	})

	t.Run("Broken YAML", func(t *testing.T) {
		l := &config.Loader{Path: writeFile(t, "steve.yaml", "provider: [unclosed"), EnvFile: noDotenv(t), LookupEnv: env(nil)}
		_, err := l.Load()
		assert.ErrorIs(t, err, config.ErrInvalidConfig)
	})

	t.Run("Explicit env file must exist", func(t *testing.T) {
		l := &config.Loader{
			Path:      writeFile(t, "steve.yaml", ""),
			EnvFile:   filepath.Join(t.TempDir(), "missing.env"),
			LookupEnv: env(nil),
		}
		_, err := l.Load()
		assert.Error(t, err)
	})
}

func TestEncryptionKeys(t *testing.T) {
	raw := strings.Repeat("k", 32)
	old := make([]byte, 32)
	old[0] = 1
	encoded := base64.StdEncoding.EncodeToString(old)

	l := &config.Loader{
		Path:    writeFile(t, "steve.yaml", ""),
		EnvFile: noDotenv(t),
		LookupEnv: env(map[string]string{
			"STEVE_STATE_ENCRYPTION_KEY": raw,
			"STEVE_STATE_FALLBACK_KEYS":  encoded + ", ",
		}),
	}
	cfg, err := l.Load()
	require.NoError(t, err)

	active, fallback, ok, err := cfg.EncryptionKeys()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte(raw), active)
	assert.Equal(t, [][]byte{old}, fallback)

	cfg.State.EncryptionKey = "too-short"
	_, _, _, err = cfg.EncryptionKeys()
	assert.ErrorIs(t, err, config.ErrInvalidConfig)

	cfg.State.EncryptionKey = ""
	_, _, ok, err = cfg.EncryptionKeys()
	assert.NoError(t, err)
	assert.False(t, ok)
}
