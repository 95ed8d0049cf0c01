package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom rules.
//
// go-playground/validator handles the declarative part via struct tags;
// rules that cannot be expressed in tags live in validateCustomRules.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	return validateCustomRules(cfg)
}

// validateCustomRules performs custom validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	// The durable pairings need their one required option up front, not at
	// first request.
	if cfg.Vault.Type == "badger" {
		if path, _ := cfg.Vault.Badger["path"].(string); path == "" {
			return fmt.Errorf("vault.badger: path is required")
		}
	}
	if cfg.Content.Type == "filesystem" {
		if path, _ := cfg.Content.Filesystem["path"].(string); path == "" {
			return fmt.Errorf("content.filesystem: path is required")
		}
	}

	// A persistent index over ephemeral blobs loses content on restart while
	// the index keeps promising it.
	if cfg.Vault.Type == "badger" && cfg.Content.Type == "memory" {
		return fmt.Errorf("content: memory content store cannot back a persistent vault store")
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
