package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete parley configuration
type Config struct {
	Defaults DefaultsConfig           `mapstructure:"defaults"`
	Backends map[string]BackendConfig `mapstructure:"backends"`
	Context  ContextConfig            `mapstructure:"context"`
	Invoker  InvokerConfig            `mapstructure:"invoker"`
	Paths    PathsConfig              `mapstructure:"paths"`
	Logging  LoggingConfig            `mapstructure:"logging"`
}

// DefaultsConfig holds values used when a command does not override them
type DefaultsConfig struct {
	// Timeout is the per-invocation deadline (default: 120s)
	Timeout time.Duration `mapstructure:"timeout"`
	// Rounds is the number of debate rounds (default: 3)
	Rounds int `mapstructure:"rounds"`
	// Synthesizer is the backend used for --synthesize and generate-agents (default: "claude")
	Synthesizer string `mapstructure:"synthesizer"`
}

// Input modes for BackendConfig.InputMode
const (
	InputStdin   = "stdin"
	InputArgLast = "arg_last"
	InputFlag    = "flag"
)

// BackendConfig is the invocation template for one builtin backend
type BackendConfig struct {
	// Command is the executable name or path
	Command string `mapstructure:"command" yaml:"command"`
	// Args are always passed before the prompt
	Args []string `mapstructure:"args" yaml:"args"`
	// InputMode is how the prompt reaches the process: "stdin", "arg_last" or "flag"
	InputMode string `mapstructure:"input_mode" yaml:"input_mode"`
	// PromptFlag precedes the prompt when InputMode is "flag"
	PromptFlag string `mapstructure:"prompt_flag" yaml:"prompt_flag"`
	// ModelFlag precedes the model name when a participant selects one
	ModelFlag string `mapstructure:"model_flag" yaml:"model_flag"`
	// ReadOnlyArgs are appended in read-only access mode
	ReadOnlyArgs []string `mapstructure:"readonly_args" yaml:"readonly_args"`
	// WriteArgs are appended in write access mode
	WriteArgs []string `mapstructure:"write_args" yaml:"write_args"`
}

// ContextConfig bounds the text folded into prompts
type ContextConfig struct {
	// MaxTranscriptChars caps prior-round text in debate prompts (0 = unbounded)
	MaxTranscriptChars int `mapstructure:"max_transcript_chars"`
	// MaxHistoryChars caps conversation history in session prompts (0 = unbounded)
	MaxHistoryChars int `mapstructure:"max_history_chars"`
}

// InvokerConfig controls subprocess handling
type InvokerConfig struct {
	// GracePeriod is how long a timed-out process gets between SIGTERM and SIGKILL
	GracePeriod time.Duration `mapstructure:"grace_period"`
}

// PathsConfig controls where parley keeps its files.
// Empty values resolve under ConfigDir().
type PathsConfig struct {
	SessionsDir  string `mapstructure:"sessions_dir"`
	PluginsDir   string `mapstructure:"plugins_dir"`
	TemplatesDir string `mapstructure:"templates_dir"`
}

// LoggingConfig controls debug logging behavior
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level" yaml:"level"`
	// File writes logs to parley.log in the config directory instead of stderr
	File bool `mapstructure:"file" yaml:"file"`
	// MaxSizeMB is the log file size that triggers rotation (default: 10)
	MaxSizeMB int `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	// MaxBackups is the number of rotated files to keep (default: 3)
	MaxBackups int `mapstructure:"max_backups" yaml:"max_backups"`
}

// ResolveSessionsDir returns the sessions directory.
func (p *PathsConfig) ResolveSessionsDir() string {
	return resolveDir(p.SessionsDir, "sessions")
}

// ResolvePluginsDir returns the plugin descriptor directory.
func (p *PathsConfig) ResolvePluginsDir() string {
	return resolveDir(p.PluginsDir, "plugins")
}

// ResolveTemplatesDir returns the user template directory.
func (p *PathsConfig) ResolveTemplatesDir() string {
	return resolveDir(p.TemplatesDir, "templates")
}

func resolveDir(path, fallback string) string {
	if path == "" {
		return filepath.Join(ConfigDir(), fallback)
	}
	return ExpandHome(path)
}

// ExpandHome expands a leading ~ to the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, path[2:])
}

// Builtin backend identifiers
const (
	BackendClaude = "claude"
	BackendCodex  = "codex"
	BackendGemini = "gemini"
)

// BuiltinBackends returns the builtin backend identifiers in display order.
func BuiltinBackends() []string {
	return []string{BackendClaude, BackendCodex, BackendGemini}
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Defaults: DefaultsConfig{
			Timeout:     120 * time.Second,
			Rounds:      3,
			Synthesizer: BackendClaude,
		},
		Backends: map[string]BackendConfig{
			BackendClaude: {
				Command:      "claude",
				Args:         []string{"-p"},
				InputMode:    InputStdin,
				ModelFlag:    "--model",
				ReadOnlyArgs: []string{},
				WriteArgs:    []string{"--permission-mode", "acceptEdits"},
			},
			BackendCodex: {
				Command:      "codex",
				Args:         []string{"exec", "--full-auto"},
				InputMode:    InputStdin,
				ModelFlag:    "--model",
				ReadOnlyArgs: []string{},
				WriteArgs:    []string{},
			},
			BackendGemini: {
				Command:      "gemini",
				Args:         []string{"--yolo"},
				InputMode:    InputStdin,
				ModelFlag:    "--model",
				ReadOnlyArgs: []string{},
				WriteArgs:    []string{},
			},
		},
		Context: ContextConfig{
			MaxTranscriptChars: 24000,
			MaxHistoryChars:    24000,
		},
		Invoker: InvokerConfig{
			GracePeriod: 5 * time.Second,
		},
		Logging: LoggingConfig{
			Level:      "info",
			File:       false,
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Defaults
	viper.SetDefault("defaults.timeout", defaults.Defaults.Timeout)
	viper.SetDefault("defaults.rounds", defaults.Defaults.Rounds)
	viper.SetDefault("defaults.synthesizer", defaults.Defaults.Synthesizer)

	// Builtin backends
	for name, b := range defaults.Backends {
		prefix := "backends." + name + "."
		viper.SetDefault(prefix+"command", b.Command)
		viper.SetDefault(prefix+"args", b.Args)
		viper.SetDefault(prefix+"input_mode", b.InputMode)
		viper.SetDefault(prefix+"prompt_flag", b.PromptFlag)
		viper.SetDefault(prefix+"model_flag", b.ModelFlag)
		viper.SetDefault(prefix+"readonly_args", b.ReadOnlyArgs)
		viper.SetDefault(prefix+"write_args", b.WriteArgs)
	}

	// Context bounds
	viper.SetDefault("context.max_transcript_chars", defaults.Context.MaxTranscriptChars)
	viper.SetDefault("context.max_history_chars", defaults.Context.MaxHistoryChars)

	// Invoker
	viper.SetDefault("invoker.grace_period", defaults.Invoker.GracePeriod)

	// Paths
	viper.SetDefault("paths.sessions_dir", defaults.Paths.SessionsDir)
	viper.SetDefault("paths.plugins_dir", defaults.Paths.PluginsDir)
	viper.SetDefault("paths.templates_dir", defaults.Paths.TemplatesDir)

	// Logging
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.file", defaults.Logging.File)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, errs
	}

	return &cfg, nil
}

// Get returns the current configuration, falling back to defaults when the
// loaded configuration is invalid.
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "parley")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".parley"
	}
	return filepath.Join(home, ".config", "parley")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
