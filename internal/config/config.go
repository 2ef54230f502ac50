// Package config resolves runtime settings from defaults, an optional YAML file,
// a .env file and the environment, in that order of precedence (last wins).
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aretw0/steve/pkg/turn"
	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultFile is read when no explicit config path is given and it exists.
	DefaultFile = "steve.yaml"

	// DefaultEnvFile is read when it exists. Real environment variables take precedence.
	DefaultEnvFile = ".env"

	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"

	BackendFile  = "file"
	BackendRedis = "redis"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the resolved runtime configuration.
type Config struct {
	Provider string `mapstructure:"provider" yaml:"provider"`
	Model    string `mapstructure:"model" yaml:"model"`
	APIKey   string `mapstructure:"api_key" yaml:"api_key"`
	Debug    bool   `mapstructure:"debug" yaml:"debug"`

	State StateConfig `mapstructure:"state" yaml:"state"`
	Redis RedisConfig `mapstructure:"redis" yaml:"redis"`
	Retry RetryConfig `mapstructure:"retry" yaml:"retry"`
	HTTP  HTTPConfig  `mapstructure:"http" yaml:"http"`
	Logs  LogsConfig  `mapstructure:"logs" yaml:"logs"`
}

type StateConfig struct {
	Path          string   `mapstructure:"path" yaml:"path"`
	Template      string   `mapstructure:"template" yaml:"template"`
	Backend       string   `mapstructure:"backend" yaml:"backend"`
	EncryptionKey string   `mapstructure:"encryption_key" yaml:"encryption_key"`
	FallbackKeys  []string `mapstructure:"fallback_keys" yaml:"fallback_keys"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr" yaml:"addr"`
	Password string        `mapstructure:"password" yaml:"password"`
	DB       int           `mapstructure:"db" yaml:"db"`
	Prefix   string        `mapstructure:"prefix" yaml:"prefix"`
	TTL      time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

type RetryConfig struct {
	MaxAttempts    int           `mapstructure:"max_attempts" yaml:"max_attempts"`
	Delay          time.Duration `mapstructure:"delay" yaml:"delay"`
	AttemptTimeout time.Duration `mapstructure:"attempt_timeout" yaml:"attempt_timeout"`
}

type HTTPConfig struct {
	Port int `mapstructure:"port" yaml:"port"`
}

type LogsConfig struct {
	Dir       string `mapstructure:"dir" yaml:"dir"`
	MaxSizeMB int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
}

func defaults() map[string]any {
	return map[string]any{
		"provider": ProviderGemini,
		"model":    "",
		"api_key":  "",
		"debug":    false,
		"state": map[string]any{
			"path":     "state.json",
			"template": "template.json",
			"backend":  BackendFile,
		},
		"redis": map[string]any{
			"addr":   "localhost:6379",
			"db":     0,
			"prefix": "steve:",
		},
		"retry": map[string]any{
			"max_attempts":    3,
			"delay":           "3s",
			"attempt_timeout": "20s",
		},
		"http": map[string]any{
			"port": 5000,
		},
		"logs": map[string]any{
			"dir":         "logs",
			"max_size_mb": 10,
		},
	}
}

// envKeys maps environment variables onto dotted config keys.
var envKeys = map[string]string{
	"STEVE_PROVIDER":              "provider",
	"STEVE_MODEL":                 "model",
	"STEVE_API_KEY":               "api_key",
	"STEVE_DEBUG":                 "debug",
	"STEVE_STATE_PATH":            "state.path",
	"STEVE_STATE_TEMPLATE":        "state.template",
	"STEVE_STATE_BACKEND":         "state.backend",
	"STEVE_STATE_ENCRYPTION_KEY":  "state.encryption_key",
	"STEVE_STATE_FALLBACK_KEYS":   "state.fallback_keys",
	"STEVE_REDIS_ADDR":            "redis.addr",
	"STEVE_REDIS_PASSWORD":        "redis.password",
	"STEVE_REDIS_DB":              "redis.db",
	"STEVE_REDIS_PREFIX":          "redis.prefix",
	"STEVE_REDIS_TTL":             "redis.ttl",
	"STEVE_RETRY_MAX_ATTEMPTS":    "retry.max_attempts",
	"STEVE_RETRY_DELAY":           "retry.delay",
	"STEVE_RETRY_ATTEMPT_TIMEOUT": "retry.attempt_timeout",
	"STEVE_HTTP_PORT":             "http.port",
	"STEVE_LOGS_DIR":              "logs.dir",
	"STEVE_LOGS_MAX_SIZE_MB":      "logs.max_size_mb",
}

// providerKeys are the vendor variables consulted when api_key is still empty.
var providerKeys = map[string]string{
	ProviderGemini: "GOOGLE_GEMINI_KEY",
	ProviderOpenAI: "OPENAI_API_KEY",
}

// Loader resolves a Config.
type Loader struct {
	// Path is the YAML file. Empty means DefaultFile, if present.
	Path string

	// EnvFile is the dotenv file. Empty means DefaultEnvFile, if present.
	EnvFile string

	// LookupEnv reads the process environment. Nil uses os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

// Load resolves the configuration using the process environment.
func Load(path string) (*Config, error) {
	return (&Loader{Path: path}).Load()
}

// Load resolves the configuration.
func (l *Loader) Load() (*Config, error) {
	raw := defaults()

	if err := l.mergeFile(raw); err != nil {
		return nil, err
	}

	lookup, err := l.lookup()
	if err != nil {
		return nil, err
	}
	for env, key := range envKeys {
		if v, ok := lookup(env); ok {
			var value any = v
			if key == "state.fallback_keys" {
				value = splitList(v)
			}
			set(raw, key, value)
		}
	}

	var cfg Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		WeaklyTypedInput: true,
		Result:           &cfg,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if cfg.APIKey == "" {
		if v, ok := lookup(providerKeys[cfg.Provider]); ok {
			cfg.APIKey = v
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (l *Loader) mergeFile(raw map[string]any) error {
	path, explicit := l.Path, l.Path != ""
	if !explicit {
		path = DefaultFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var file map[string]any
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("%w: failed to parse %s: %v", ErrInvalidConfig, path, err)
	}
	merge(raw, file)
	return nil
}

// lookup layers the process environment over the dotenv file without touching os.Environ.
func (l *Loader) lookup() (func(string) (string, bool), error) {
	envFile, explicit := l.EnvFile, l.EnvFile != ""
	if !explicit {
		envFile = DefaultEnvFile
	}

	dotenv, err := godotenv.Read(envFile)
	if err != nil {
		if !os.IsNotExist(err) || explicit {
			return nil, fmt.Errorf("failed to read %s: %w", envFile, err)
		}
		dotenv = map[string]string{}
	}

	processEnv := l.LookupEnv
	if processEnv == nil {
		processEnv = os.LookupEnv
	}

	return func(key string) (string, bool) {
		if key == "" {
			return "", false
		}
		if v, ok := processEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}, nil
}

// Validate checks enumerations and bounds.
func (c *Config) Validate() error {
	if _, ok := providerKeys[c.Provider]; !ok {
		return fmt.Errorf("%w: provider must be %q or %q, got %q", ErrInvalidConfig, ProviderGemini, ProviderOpenAI, c.Provider)
	}
	if c.State.Backend != BackendFile && c.State.Backend != BackendRedis {
		return fmt.Errorf("%w: state.backend must be %q or %q, got %q", ErrInvalidConfig, BackendFile, BackendRedis, c.State.Backend)
	}
	if c.State.Template == "" {
		return fmt.Errorf("%w: state.template is required", ErrInvalidConfig)
	}
	if c.State.Backend == BackendFile && c.State.Path == "" {
		return fmt.Errorf("%w: state.path is required for the file backend", ErrInvalidConfig)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("%w: retry.max_attempts must be at least 1", ErrInvalidConfig)
	}
	if c.Retry.Delay < 0 || c.Retry.AttemptTimeout < 0 {
		return fmt.Errorf("%w: retry durations must not be negative", ErrInvalidConfig)
	}
	if c.HTTP.Port < 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("%w: http.port out of range", ErrInvalidConfig)
	}
	return nil
}

// RetryPolicy converts the retry settings for the orchestrator.
func (c *Config) RetryPolicy() turn.RetryPolicy {
	return turn.RetryPolicy{
		MaxAttempts: c.Retry.MaxAttempts,
		Delay:       c.Retry.Delay,
	}
}

// EncryptionKeys decodes the active and fallback keys. Each key is either 32 raw
// bytes or the standard base64 encoding of 32 bytes. ok is false when encryption is off.
func (c *Config) EncryptionKeys() (active []byte, fallback [][]byte, ok bool, err error) {
	if c.State.EncryptionKey == "" {
		return nil, nil, false, nil
	}
	if active, err = decodeKey(c.State.EncryptionKey); err != nil {
		return nil, nil, false, err
	}
	for _, k := range c.State.FallbackKeys {
		key, err := decodeKey(k)
		if err != nil {
			return nil, nil, false, err
		}
		fallback = append(fallback, key)
	}
	return active, fallback, true, nil
}

func decodeKey(s string) ([]byte, error) {
	if len(s) == 32 {
		return []byte(s), nil
	}
	key, err := base64.StdEncoding.DecodeString(s)
	if err != nil || len(key) != 32 {
		return nil, fmt.Errorf("%w: encryption keys must be 32 bytes, raw or base64", ErrInvalidConfig)
	}
	return key, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// set assigns value at a dotted key, creating intermediate maps.
func set(m map[string]any, key string, value any) {
	parts := strings.Split(key, ".")
	for _, p := range parts[:len(parts)-1] {
		next, ok := m[p].(map[string]any)
		if !ok {
			next = map[string]any{}
			m[p] = next
		}
		m = next
	}
	m[parts[len(parts)-1]] = value
}

// merge deep-merges src into dst.
func merge(dst, src map[string]any) {
	for k, v := range src {
		if sv, ok := v.(map[string]any); ok {
			if dv, ok := dst[k].(map[string]any); ok {
				merge(dv, sv)
				continue
			}
		}
		dst[k] = v
	}
}
