package config

import (
	"fmt"
	"slices"
	"strings"

	perrors "github.com/Iron-Ham/parley/internal/errors"
)

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidInputModes returns the list of valid backend input modes
func ValidInputModes() []string {
	return []string{InputStdin, InputArgLast, InputFlag}
}

func invalid(field string, value any, msg string) *perrors.ValidationError {
	return perrors.NewValidationError(msg).WithField(field).WithValue(value)
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() perrors.ValidationErrors {
	var errs perrors.ValidationErrors

	errs = append(errs, c.validateDefaults()...)
	errs = append(errs, c.validateBackends()...)
	errs = append(errs, c.validateContext()...)
	errs = append(errs, c.validateInvoker()...)
	errs = append(errs, c.validateLogging()...)
	errs = append(errs, c.validatePaths()...)

	return errs
}

func (c *Config) validateDefaults() perrors.ValidationErrors {
	var errs perrors.ValidationErrors

	if c.Defaults.Timeout <= 0 {
		errs = append(errs, invalid("defaults.timeout", c.Defaults.Timeout, "must be positive"))
	}
	if c.Defaults.Rounds < 1 {
		errs = append(errs, invalid("defaults.rounds", c.Defaults.Rounds, "must be at least 1"))
	}
	if strings.TrimSpace(c.Defaults.Synthesizer) == "" {
		errs = append(errs, invalid("defaults.synthesizer", c.Defaults.Synthesizer, "must not be empty"))
	}

	return errs
}

func (c *Config) validateBackends() perrors.ValidationErrors {
	var errs perrors.ValidationErrors

	names := make([]string, 0, len(c.Backends))
	for name := range c.Backends {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		b := c.Backends[name]
		field := "backends." + name

		if strings.TrimSpace(b.Command) == "" {
			errs = append(errs, invalid(field+".command", b.Command, "must not be empty"))
		}
		if !slices.Contains(ValidInputModes(), b.InputMode) {
			errs = append(errs, invalid(field+".input_mode", b.InputMode,
				fmt.Sprintf("must be one of: %s", strings.Join(ValidInputModes(), ", "))))
		}
		if b.InputMode == InputFlag && strings.TrimSpace(b.PromptFlag) == "" {
			errs = append(errs, invalid(field+".prompt_flag", b.PromptFlag, "is required when input_mode is flag"))
		}
	}

	return errs
}

func (c *Config) validateContext() perrors.ValidationErrors {
	var errs perrors.ValidationErrors

	if c.Context.MaxTranscriptChars < 0 {
		errs = append(errs, invalid("context.max_transcript_chars", c.Context.MaxTranscriptChars, "must be non-negative"))
	}
	if c.Context.MaxHistoryChars < 0 {
		errs = append(errs, invalid("context.max_history_chars", c.Context.MaxHistoryChars, "must be non-negative"))
	}

	return errs
}

func (c *Config) validateInvoker() perrors.ValidationErrors {
	if c.Invoker.GracePeriod < 0 {
		return perrors.ValidationErrors{invalid("invoker.grace_period", c.Invoker.GracePeriod, "must be non-negative")}
	}
	return nil
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() perrors.ValidationErrors {
	var errs perrors.ValidationErrors

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errs = append(errs, invalid("logging.level", c.Logging.Level,
			fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", "))))
	}

	if c.Logging.MaxSizeMB <= 0 {
		errs = append(errs, invalid("logging.max_size_mb", c.Logging.MaxSizeMB, "must be positive"))
	}

	const maxLogSizeMB = 1000
	if c.Logging.MaxSizeMB > maxLogSizeMB {
		errs = append(errs, invalid("logging.max_size_mb", c.Logging.MaxSizeMB,
			fmt.Sprintf("exceeds maximum of %dMB", maxLogSizeMB)))
	}

	if c.Logging.MaxBackups < 0 {
		errs = append(errs, invalid("logging.max_backups", c.Logging.MaxBackups, "must be non-negative"))
	}

	return errs
}

func (c *Config) validatePaths() perrors.ValidationErrors {
	var errs perrors.ValidationErrors

	check := func(field, path string) {
		if path == "" {
			return
		}
		if strings.ContainsRune(path, '\x00') {
			errs = append(errs, invalid(field, path, "path contains invalid null character"))
		}
		const maxPathLength = 4096
		if len(path) > maxPathLength {
			errs = append(errs, invalid(field, path,
				fmt.Sprintf("path exceeds maximum length of %d characters", maxPathLength)))
		}
	}

	check("paths.sessions_dir", c.Paths.SessionsDir)
	check("paths.plugins_dir", c.Paths.PluginsDir)
	check("paths.templates_dir", c.Paths.TemplatesDir)

	return errs
}
