// Package config loads the teekay configuration: a YAML file with
// environment variable expansion, .env support and OS keyring resolution
// for secrets.
package config

import (
	"fmt"

	"github.com/teekay-ai/teekay/pkg/teekay/agent"
	"github.com/teekay-ai/teekay/pkg/teekay/channels/imessage"
	"github.com/teekay-ai/teekay/pkg/teekay/store"
	"github.com/teekay-ai/teekay/pkg/teekay/webui"
)

// Config is the root configuration.
type Config struct {
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
	// LogFormat is "text" or "json".
	LogFormat string `yaml:"log_format"`

	// WebhookAddr is the listen address for the inbound message webhook.
	WebhookAddr string `yaml:"webhook_addr"`

	Store    store.Config    `yaml:"store"`
	IMessage imessage.Config `yaml:"imessage"`
	Agent    agent.Config    `yaml:"agent"`
	WebUI    webui.Config    `yaml:"webui"`
}

// DefaultConfig returns a config with working defaults for everything
// that does not require credentials.
func DefaultConfig() *Config {
	cfg := &Config{
		LogLevel:    "info",
		LogFormat:   "text",
		WebhookAddr: ":8080",
	}
	cfg.Agent.ApplyDefaults()
	cfg.WebUI.ApplyDefaults()
	return cfg
}

// Validate checks that the settings required to serve are present.
func (c *Config) Validate() error {
	if c.IMessage.BaseURL == "" {
		return fmt.Errorf("imessage.base_url is required")
	}
	if c.IMessage.Token == "" {
		return fmt.Errorf("imessage.token is required (config, TEEKAY_IMESSAGE_TOKEN or keyring)")
	}
	if c.Agent.Runtime.APIKey == "" {
		return fmt.Errorf("agent.runtime.api_key is required (config, TEEKAY_API_KEY or keyring)")
	}
	return nil
}
