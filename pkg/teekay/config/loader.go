package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR}, ${VAR:-default}, ${VAR:?error} and bare
// $VAR references in config values.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::(-|\?)([^}]*))?\}|\$([A-Z_][A-Z0-9_]*)`)

// LoadFromFile reads and parses a YAML config file. .env files are
// loaded first (without overwriting the process environment), env var
// references in the YAML are expanded, and secrets left empty are
// resolved from the keyring and environment.
func LoadFromFile(path string) (*Config, error) {
	loadEnvFiles()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded, err := expandEnvVars(string(data))
	if err != nil {
		return nil, fmt.Errorf("expanding environment variables: %w", err)
	}

	cfg, err := Parse([]byte(expanded))
	if err != nil {
		return nil, err
	}
	ResolveSecrets(cfg)
	return cfg, nil
}

// Load finds the config file in the standard locations and loads it,
// falling back to defaults plus environment when none exists.
func Load() (*Config, error) {
	if path := FindConfigFile(); path != "" {
		return LoadFromFile(path)
	}
	loadEnvFiles()
	cfg := DefaultConfig()
	ResolveSecrets(cfg)
	return cfg, nil
}

// Parse parses YAML bytes over the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}
	cfg.Agent.ApplyDefaults()
	cfg.WebUI.ApplyDefaults()
	return cfg, nil
}

// Save writes the config as YAML with owner-only permissions. Secrets
// are replaced with env var references so they never land on disk.
func Save(cfg *Config, path string) error {
	sanitized := *cfg
	sanitized.Agent.Runtime.APIKey = sanitizeSecret(cfg.Agent.Runtime.APIKey, "TEEKAY_API_KEY")
	sanitized.IMessage.Token = sanitizeSecret(cfg.IMessage.Token, "TEEKAY_IMESSAGE_TOKEN")
	sanitized.IMessage.WebhookSecret = sanitizeSecret(cfg.IMessage.WebhookSecret, "TEEKAY_WEBHOOK_SECRET")

	data, err := yaml.Marshal(&sanitized)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// FindConfigFile searches the standard locations.
func FindConfigFile() string {
	candidates := []string{
		"config.yaml",
		"config.yml",
		"teekay.yaml",
		"teekay.yml",
		"configs/teekay.yaml",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// loadEnvFiles loads .env files without overwriting existing env vars.
func loadEnvFiles() {
	for _, f := range []string{".env", ".env.local"} {
		_ = godotenv.Load(f)
	}
}

// expandEnvVars substitutes env var references. A ${VAR:?message}
// reference with VAR unset is an error.
func expandEnvVars(input string) (string, error) {
	var missing []string
	out := envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		sub := envVarPattern.FindStringSubmatch(match)
		varName, modifier, modValue, bareVar := sub[1], sub[2], sub[3], sub[4]

		if bareVar != "" {
			if val, ok := os.LookupEnv(bareVar); ok {
				return val
			}
			return match
		}
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		switch modifier {
		case "-":
			return modValue
		case "?":
			missing = append(missing, fmt.Sprintf("%s (%s)", varName, modValue))
			return match
		}
		return match
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("required environment variables unset: %s", strings.Join(missing, ", "))
	}
	return out, nil
}

// sanitizeSecret returns an env reference in place of a real secret
// value. Empty values and existing references pass through.
func sanitizeSecret(value, envVar string) string {
	if value == "" || isEnvReference(value) {
		return value
	}
	return fmt.Sprintf("${%s}", envVar)
}

func isEnvReference(value string) bool {
	return strings.HasPrefix(value, "${") || strings.HasPrefix(value, "$")
}
