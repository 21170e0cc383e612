package agent

// Config controls spawn debouncing, simulated typing and the links the
// agent can hand out.
type Config struct {
	// SpawnDelaySeconds debounces message-triggered sessions so rapid
	// bursts of texts start one session instead of several.
	SpawnDelaySeconds int `yaml:"spawn_delay_seconds"`

	// TypingMinMillis and TypingMaxMillis bound the simulated typing
	// delay before each outbound message.
	TypingMinMillis int `yaml:"typing_min_millis"`
	TypingMaxMillis int `yaml:"typing_max_millis"`

	// ContactCardURL is the hosted vCard the send_contact_card tool
	// attaches. Empty disables the tool.
	ContactCardURL string `yaml:"contact_card_url"`

	// DashboardURL is the public base URL login links point at.
	DashboardURL string `yaml:"dashboard_url"`

	// Runtime configures the model backend.
	Runtime RuntimeConfig `yaml:"runtime"`
}

// ApplyDefaults fills zero-valued fields with working defaults.
func (c *Config) ApplyDefaults() {
	if c.SpawnDelaySeconds <= 0 {
		c.SpawnDelaySeconds = 2
	}
	if c.TypingMinMillis <= 0 {
		c.TypingMinMillis = 3000
	}
	if c.TypingMaxMillis <= 0 {
		c.TypingMaxMillis = 7000
	}
	if c.DashboardURL == "" {
		c.DashboardURL = "http://localhost:8090"
	}
}
