package config

import (
	"encoding/json"
	"fmt"
)

// Config represents the main collabco configuration
type Config struct {
	// Server
	Server ServerConfig `json:"server" mapstructure:"server"`

	// Database
	Database DatabaseConfig `json:"database" mapstructure:"database"`

	// Auth
	Auth AuthConfig `json:"auth" mapstructure:"auth"`

	// Session
	Session SessionConfig `json:"session" mapstructure:"session"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Data directory
	DataDir string `json:"data_dir" mapstructure:"data_dir"`
}

// ServerConfig holds HTTP/websocket server configuration
type ServerConfig struct {
	Host string `json:"host" mapstructure:"host"`
	Port int    `json:"port" mapstructure:"port"`
}

// DatabaseConfig holds sqlite configuration
type DatabaseConfig struct {
	Path string `json:"path" mapstructure:"path"`
}

// AuthConfig holds token issuance configuration
type AuthConfig struct {
	Secret          string `json:"secret" mapstructure:"secret"`
	TokenTTLMinutes int    `json:"token_ttl_minutes" mapstructure:"token_ttl_minutes"`
}

// SessionConfig holds live-session behavior toggles
type SessionConfig struct {
	// NotifyOnLeave broadcasts a peer-left event when a participant
	// disconnects. Off by default: departures are silent and peers'
	// participant lists go stale.
	NotifyOnLeave bool `json:"notify_on_leave" mapstructure:"notify_on_leave"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `json:"level" mapstructure:"level"`
	File   string `json:"file" mapstructure:"file"`
	Pretty bool   `json:"pretty" mapstructure:"pretty"`
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 3000,
		},
		Database: DatabaseConfig{
			Path: "collabco.db",
		},
		Auth: AuthConfig{
			TokenTTLMinutes: 60,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Pretty: true,
		},
	}
}

// ToJSON serializes the config to indented JSON
func (c *Config) ToJSON() ([]byte, error) {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}
