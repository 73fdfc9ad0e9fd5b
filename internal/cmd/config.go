package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/Iron-Ham/parley/internal/config"
	perrors "github.com/Iron-Ham/parley/internal/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or modify parley configuration",
	Long: `View or modify parley configuration.

Without arguments, displays the current configuration.
Use subcommands to modify settings or create a config file.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in the user's config file.

Keys use dot notation, e.g.:
  parley config set defaults.rounds 2
  parley config set defaults.timeout 90s
  parley config set backends.claude.command /opt/bin/claude

Valid keys:
  defaults.timeout              - Per-invocation timeout (duration, e.g. 120s)
  defaults.rounds               - Debate rounds
  defaults.synthesizer          - Backend used for synthesis and generate-agents
  backends.<cli>.command        - Executable for a builtin backend
  backends.<cli>.input_mode     - How the prompt is passed: stdin, arg_last, flag
  backends.<cli>.prompt_flag    - Flag preceding the prompt in flag mode
  backends.<cli>.model_flag     - Flag preceding --model values
  context.max_transcript_chars  - Bound on prior-round text (0 = unbounded)
  context.max_history_chars     - Bound on session history (0 = unbounded)
  invoker.grace_period          - Delay between SIGTERM and SIGKILL
  paths.sessions_dir            - Session storage directory
  paths.plugins_dir             - Plugin descriptor directory
  paths.templates_dir           - User template directory
  logging.level                 - debug, info, warn, error
  logging.file                  - Write logs to the config directory (true/false)`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	Long:  `Create a default config file at ~/.config/parley/config.yaml with all available options.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file path",
	RunE:  runConfigPath,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
}

// shownConfig is the YAML shape printed by config show.
type shownConfig struct {
	Defaults struct {
		Timeout     string `yaml:"timeout"`
		Rounds      int    `yaml:"rounds"`
		Synthesizer string `yaml:"synthesizer"`
	} `yaml:"defaults"`
	Backends map[string]config.BackendConfig `yaml:"backends"`
	Context  struct {
		MaxTranscriptChars int `yaml:"max_transcript_chars"`
		MaxHistoryChars    int `yaml:"max_history_chars"`
	} `yaml:"context"`
	Invoker struct {
		GracePeriod string `yaml:"grace_period"`
	} `yaml:"invoker"`
	Paths struct {
		SessionsDir  string `yaml:"sessions_dir"`
		PluginsDir   string `yaml:"plugins_dir"`
		TemplatesDir string `yaml:"templates_dir"`
	} `yaml:"paths"`
	Logging config.LoggingConfig `yaml:"logging"`
}

func newShownConfig(cfg *config.Config) shownConfig {
	var s shownConfig
	s.Defaults.Timeout = cfg.Defaults.Timeout.String()
	s.Defaults.Rounds = cfg.Defaults.Rounds
	s.Defaults.Synthesizer = cfg.Defaults.Synthesizer
	s.Backends = cfg.Backends
	s.Context.MaxTranscriptChars = cfg.Context.MaxTranscriptChars
	s.Context.MaxHistoryChars = cfg.Context.MaxHistoryChars
	s.Invoker.GracePeriod = cfg.Invoker.GracePeriod.String()
	s.Paths.SessionsDir = cfg.Paths.ResolveSessionsDir()
	s.Paths.PluginsDir = cfg.Paths.ResolvePluginsDir()
	s.Paths.TemplatesDir = cfg.Paths.ResolveTemplatesDir()
	s.Logging = cfg.Logging
	return s
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()

	// Show where config is being read from
	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(w, "# Config file: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintln(w, "# Config file: (none - using defaults)")
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(newShownConfig(cfg)); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return enc.Close()
}

type keyType int

const (
	keyString keyType = iota
	keyInt
	keyBool
	keyDuration
)

var validKeys = map[string]keyType{
	"defaults.timeout":             keyDuration,
	"defaults.rounds":              keyInt,
	"defaults.synthesizer":         keyString,
	"context.max_transcript_chars": keyInt,
	"context.max_history_chars":    keyInt,
	"invoker.grace_period":         keyDuration,
	"paths.sessions_dir":           keyString,
	"paths.plugins_dir":            keyString,
	"paths.templates_dir":          keyString,
	"logging.level":                keyString,
	"logging.file":                 keyBool,
	"logging.max_size_mb":          keyInt,
	"logging.max_backups":          keyInt,
}

var backendKeys = []string{"command", "input_mode", "prompt_flag", "model_flag"}

// lookupKey resolves key to its value type, accepting backends.<builtin>.<field>.
func lookupKey(key string) (keyType, bool) {
	if t, ok := validKeys[key]; ok {
		return t, true
	}
	parts := strings.Split(key, ".")
	if len(parts) == 3 && parts[0] == "backends" &&
		slices.Contains(config.BuiltinBackends(), parts[1]) && slices.Contains(backendKeys, parts[2]) {
		return keyString, true
	}
	return 0, false
}

func parseValue(key string, kt keyType, value string) (any, error) {
	invalid := func(msg string) error {
		return perrors.NewValidationError(msg).WithField(key).WithValue(value)
	}
	switch kt {
	case keyBool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, invalid("expected true or false")
		}
		return b, nil
	case keyInt:
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, invalid("expected integer")
		}
		if n < 0 {
			return nil, invalid("must be non-negative")
		}
		return n, nil
	case keyDuration:
		d, err := time.ParseDuration(value)
		if err != nil {
			return nil, invalid("expected a duration such as 90s")
		}
		return d.String(), nil
	}
	if key == "logging.level" && !slices.Contains(config.ValidLogLevels(), strings.ToLower(value)) {
		return nil, invalid("must be one of: " + strings.Join(config.ValidLogLevels(), ", "))
	}
	return value, nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	value := args[1]

	kt, ok := lookupKey(key)
	if !ok {
		return perrors.NewValidationError("unknown configuration key; run 'parley config set --help' to see valid keys").
			WithField("key").WithValue(key)
	}
	typedValue, err := parseValue(key, kt, value)
	if err != nil {
		return err
	}

	// Ensure config directory exists
	configDir := config.ConfigDir()
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return perrors.NewIOError("mkdir", configDir, err)
	}

	viper.Set(key, typedValue)

	configFile := config.ConfigFile()
	if used := viper.ConfigFileUsed(); used != "" {
		configFile = used
	}
	if err := viper.WriteConfigAs(configFile); err != nil {
		return perrors.NewIOError("write", configFile, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %v\n", key, typedValue)
	fmt.Fprintf(cmd.OutOrStdout(), "Config saved to %s\n", configFile)
	return nil
}

const configTemplate = `# parley configuration
# Every key can also be set through the environment, e.g. PARLEY_DEFAULTS_ROUNDS=2

defaults:
  # Deadline for each backend invocation
  timeout: 120s
  # Number of debate rounds
  rounds: 3
  # Backend used for --synthesize and generate-agents
  synthesizer: claude

# Builtin backends. input_mode is stdin, arg_last or flag (flag needs prompt_flag).
backends:
  claude:
    command: claude
    args: ["-p"]
    input_mode: stdin
    model_flag: --model
    write_args: ["--permission-mode", "acceptEdits"]
  codex:
    command: codex
    args: ["exec", "--full-auto"]
    input_mode: stdin
    model_flag: --model
  gemini:
    command: gemini
    args: ["--yolo"]
    input_mode: stdin
    model_flag: --model

# Bounds on text folded into prompts, in characters (0 = unbounded)
context:
  max_transcript_chars: 24000
  max_history_chars: 24000

invoker:
  # Time between SIGTERM and SIGKILL when an invocation times out
  grace_period: 5s

# Empty paths default to directories under the config directory
paths:
  sessions_dir: ""
  plugins_dir: ""
  templates_dir: ""

logging:
  # debug, info, warn, error
  level: info
  # Write parley.log to the config directory instead of stderr
  file: false
  max_size_mb: 10
  max_backups: 3
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	configDir := config.ConfigDir()
	configFile := config.ConfigFile()

	// Check if config file already exists
	if _, err := os.Stat(configFile); err == nil {
		return perrors.NewValidationError("config file already exists; use 'parley config set' to modify values").
			WithField("config").WithValue(configFile)
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return perrors.NewIOError("mkdir", configDir, err)
	}

	// The template must stay loadable
	var probe map[string]any
	if err := yaml.Unmarshal([]byte(configTemplate), &probe); err != nil {
		return fmt.Errorf("default config template is invalid: %w", err)
	}

	if err := os.WriteFile(configFile, []byte(configTemplate), 0644); err != nil {
		return perrors.NewIOError("write", configFile, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created config file at %s\n", configFile)
	fmt.Fprintln(cmd.OutOrStdout(), "Edit this file to customize parley's behavior.")
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	w := cmd.OutOrStdout()
	configFile := config.ConfigFile()

	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(w, "Active config: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintf(w, "Default path: %s (not created)\n", configFile)
	}

	// Also show config search paths
	fmt.Fprintln(w, "\nSearch paths:")
	fmt.Fprintf(w, "  1. %s\n", filepath.Join(config.ConfigDir(), "config.yaml"))
	fmt.Fprintf(w, "  2. $HOME/.config/parley/config.yaml\n")
	fmt.Fprintf(w, "  3. ./config.yaml (current directory)\n")
	fmt.Fprintln(w, "\nEnvironment variables: PARLEY_* (e.g., PARLEY_DEFAULTS_TIMEOUT)")
	return nil
}
