package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/marmos91/dittoftp/pkg/behavior"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom rules.
//
// Note: Log level normalization is handled in ApplyDefaults, not here.
// Validation accepts both uppercase and lowercase log levels.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	if err := validateCustomRules(cfg); err != nil {
		return err
	}

	return nil
}

// validateCustomRules performs custom validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	if !cfg.Adapters.FTP.Enabled && !cfg.Adapters.Control.Enabled {
		return fmt.Errorf("adapters: at least one adapter must be enabled")
	}

	if cfg.Adapters.FTP.Enabled && cfg.Adapters.Control.Enabled &&
		cfg.Adapters.FTP.Port == cfg.Adapters.Control.Port {
		return fmt.Errorf("adapters: ftp and control cannot share port %d", cfg.Adapters.FTP.Port)
	}

	if cfg.Server.Metrics.Enabled {
		for name, port := range map[string]int{"ftp": cfg.Adapters.FTP.Port, "control": cfg.Adapters.Control.Port} {
			if port == cfg.Server.Metrics.Port {
				return fmt.Errorf("server.metrics: port %d already used by the %s adapter", port, name)
			}
		}
	}

	// Iterate in a stable order so the reported error is deterministic
	names := make([]string, 0, len(cfg.Behaviors.Commands))
	for name := range cfg.Behaviors.Commands {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if !behavior.IsSupported(name) {
			return fmt.Errorf("behaviors.commands: unknown command %q (supported: %s)",
				name, strings.Join(behavior.Commands, ", "))
		}
		b := cfg.Behaviors.Commands[name]
		if b.DelaySeconds < 0 || b.DelaySeconds > behavior.MaxDelaySeconds {
			return fmt.Errorf("behaviors.commands.%s: delay %d out of range [0, %d]",
				name, b.DelaySeconds, behavior.MaxDelaySeconds)
		}
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		if len(validationErrs) > 0 {
			e := validationErrs[0]
			return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
				e.Namespace(), e.Tag(), e.Value())
		}
	}
	return err
}
