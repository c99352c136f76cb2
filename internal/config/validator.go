package config

import (
	"fmt"
	"net/mail"
	"regexp"
)

// Validator validates configuration values
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,32}$`)

// ValidateConfig checks a loaded configuration for values the server
// cannot start with.
func (v *Validator) ValidateConfig(cfg *Config) error {
	if err := v.ValidatePort(cfg.Server.Port); err != nil {
		return err
	}
	if err := v.ValidateSecret(cfg.Auth.Secret); err != nil {
		return err
	}
	if cfg.Auth.TokenTTLMinutes <= 0 {
		return fmt.Errorf("token ttl must be positive, got %d", cfg.Auth.TokenTTLMinutes)
	}
	if cfg.Database.Path == "" {
		return fmt.Errorf("database path cannot be empty")
	}
	return nil
}

// ValidatePort validates a TCP port number
func (v *Validator) ValidatePort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("invalid port: %d (must be 1-65535)", port)
	}
	return nil
}

// ValidateSecret validates the JWT signing secret
func (v *Validator) ValidateSecret(secret string) error {
	if secret == "" {
		return fmt.Errorf("auth secret cannot be empty")
	}
	if len(secret) < 16 {
		return fmt.Errorf("auth secret too short (need at least 16 characters)")
	}
	return nil
}

// ValidateUsername validates a username supplied at registration
func (v *Validator) ValidateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("username cannot be empty")
	}
	if !usernamePattern.MatchString(username) {
		return fmt.Errorf("invalid username format")
	}
	return nil
}

// ValidateEmail validates an email address
func (v *Validator) ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email cannot be empty")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("invalid email address: %w", err)
	}
	return nil
}
