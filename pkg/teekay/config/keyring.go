// Secrets resolve through a priority chain: OS keyring (Linux Secret
// Service, macOS Keychain, Windows Credential Manager) → environment
// variable → config file value.
package config

import (
	"fmt"
	"os"

	"github.com/zalando/go-keyring"
	"golang.org/x/term"
)

const keyringService = "teekay"

// Keyring entry names.
const (
	KeyAPIKey        = "api_key"
	KeyIMessageToken = "imessage_token"
	KeyWebhookSecret = "webhook_secret"
)

// StoreKeyring saves a secret to the OS keyring.
func StoreKeyring(key, value string) error {
	return keyring.Set(keyringService, key, value)
}

// GetKeyring retrieves a secret from the OS keyring; empty if absent.
func GetKeyring(key string) string {
	val, err := keyring.Get(keyringService, key)
	if err != nil {
		return ""
	}
	return val
}

// DeleteKeyring removes a secret from the OS keyring.
func DeleteKeyring(key string) error {
	return keyring.Delete(keyringService, key)
}

// KeyringAvailable checks whether the OS keyring is usable by running a
// write and delete cycle with a throwaway key.
func KeyringAvailable() bool {
	testKey := "__teekay_test__"
	if err := keyring.Set(keyringService, testKey, "test"); err != nil {
		return false
	}
	_ = keyring.Delete(keyringService, testKey)
	return true
}

// ResolveSecrets fills empty secret fields from the keyring and
// environment, in that order. Values already set in the config win.
func ResolveSecrets(cfg *Config) {
	cfg.Agent.Runtime.APIKey = resolve(cfg.Agent.Runtime.APIKey, KeyAPIKey, "TEEKAY_API_KEY", "OPENAI_API_KEY")
	cfg.IMessage.Token = resolve(cfg.IMessage.Token, KeyIMessageToken, "TEEKAY_IMESSAGE_TOKEN")
	cfg.IMessage.WebhookSecret = resolve(cfg.IMessage.WebhookSecret, KeyWebhookSecret, "TEEKAY_WEBHOOK_SECRET")
}

func resolve(current, keyringKey string, envVars ...string) string {
	if current != "" && !isEnvReference(current) {
		return current
	}
	if val := GetKeyring(keyringKey); val != "" {
		return val
	}
	for _, env := range envVars {
		if val := os.Getenv(env); val != "" {
			return val
		}
	}
	if isEnvReference(current) {
		return ""
	}
	return current
}

// ReadPassword prompts for a secret without echoing it. Falls back to a
// plain-text warning when stdin is not a terminal.
func ReadPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", fmt.Errorf("stdin is not a terminal")
	}
	pass, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(pass), nil
}
