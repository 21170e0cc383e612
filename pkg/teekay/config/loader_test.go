package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseOverlaysDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
log_level: debug
webhook_addr: ":9000"
agent:
  spawn_delay_seconds: 5
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.LogLevel != "debug" || cfg.WebhookAddr != ":9000" {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.Agent.SpawnDelaySeconds != 5 {
		t.Errorf("spawn delay = %d, want 5", cfg.Agent.SpawnDelaySeconds)
	}
	// Untouched fields keep their defaults.
	if cfg.Agent.TypingMinMillis != 3000 || cfg.Agent.TypingMaxMillis != 7000 {
		t.Errorf("typing defaults lost: %+v", cfg.Agent)
	}
	if cfg.WebUI.Addr != ":8090" {
		t.Errorf("webui default lost: %q", cfg.WebUI.Addr)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TEEKAY_TEST_SET", "value")
	os.Unsetenv("TEEKAY_TEST_UNSET")

	tests := []struct {
		name  string
		in    string
		want  string
		fails bool
	}{
		{"set variable", "x: ${TEEKAY_TEST_SET}", "x: value", false},
		{"unset keeps placeholder", "x: ${TEEKAY_TEST_UNSET}", "x: ${TEEKAY_TEST_UNSET}", false},
		{"default applies", "x: ${TEEKAY_TEST_UNSET:-fallback}", "x: fallback", false},
		{"default ignored when set", "x: ${TEEKAY_TEST_SET:-fallback}", "x: value", false},
		{"required unset fails", "x: ${TEEKAY_TEST_UNSET:?token needed}", "", true},
		{"bare variable", "x: $TEEKAY_TEST_SET", "x: value", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := expandEnvVars(tt.in)
			if tt.fails {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				if !strings.Contains(err.Error(), "token needed") {
					t.Errorf("error missing message: %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("expandEnvVars: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoadFromFileResolvesEnv(t *testing.T) {
	t.Setenv("TEEKAY_TEST_TOKEN", "tok-123")
	path := filepath.Join(t.TempDir(), "teekay.yaml")
	content := `
imessage:
  base_url: https://api.partner.test
  token: ${TEEKAY_TEST_TOKEN}
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if cfg.IMessage.Token != "tok-123" {
		t.Errorf("token = %q, want tok-123", cfg.IMessage.Token)
	}
	if cfg.IMessage.BaseURL != "https://api.partner.test" {
		t.Errorf("base_url = %q", cfg.IMessage.BaseURL)
	}
}

func TestSaveSanitizesSecrets(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Agent.Runtime.APIKey = "sk-verysecret"
	cfg.IMessage.Token = "tok-secret"

	path := filepath.Join(t.TempDir(), "teekay.yaml")
	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading saved config: %v", err)
	}
	if strings.Contains(string(data), "sk-verysecret") || strings.Contains(string(data), "tok-secret") {
		t.Fatalf("secrets written to disk:\n%s", data)
	}
	if !strings.Contains(string(data), "${TEEKAY_API_KEY}") {
		t.Errorf("api key not replaced with env reference")
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err == nil {
		t.Fatalf("empty config should not validate")
	}
	cfg.IMessage.BaseURL = "https://api.partner.test"
	cfg.IMessage.Token = "tok"
	cfg.Agent.Runtime.APIKey = "sk-1"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}
