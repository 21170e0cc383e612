package commands

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/teekay-ai/teekay/pkg/teekay/config"
)

// newSetupCmd creates the `teekay setup` wizard.
func newSetupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Interactive setup wizard",
		Long: `Creates your initial teekay.yaml. Asks for the messaging platform
credentials, the model backend, and where to store secrets. API keys go
to the OS keyring when available, never into the config file.

Examples:
  teekay setup`,
		RunE: runSetup,
	}
}

func runSetup(_ *cobra.Command, _ []string) error {
	cfg := config.DefaultConfig()

	var apiKey, partnerToken, webhookSecret string
	var useKeyring bool

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Messaging API base URL").
				Description("The partner iMessage API root, e.g. https://api.example.com/v1").
				Value(&cfg.IMessage.BaseURL).
				Validate(requireValue("base URL")),
			huh.NewInput().
				Title("Messaging API token").
				EchoMode(huh.EchoModePassword).
				Value(&partnerToken).
				Validate(requireValue("token")),
			huh.NewInput().
				Title("Webhook signing secret").
				Description("Shared secret the platform signs webhook payloads with").
				EchoMode(huh.EchoModePassword).
				Value(&webhookSecret),
			huh.NewInput().
				Title("Your phone number on the platform").
				Description("Used to tell your own messages apart in group chats").
				Value(&cfg.IMessage.SelfPhone),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Model API base URL").
				Value(&cfg.Agent.Runtime.BaseURL).
				Placeholder("https://api.openai.com/v1"),
			huh.NewInput().
				Title("Model name").
				Value(&cfg.Agent.Runtime.Model).
				Placeholder("gpt-4o"),
			huh.NewInput().
				Title("Model API key").
				EchoMode(huh.EchoModePassword).
				Value(&apiKey).
				Validate(requireValue("API key")),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Dashboard URL").
				Description("Public base URL for magic-link logins").
				Value(&cfg.Agent.DashboardURL),
			huh.NewConfirm().
				Title("Store secrets in the OS keyring?").
				Description("Recommended. Otherwise secrets must come from environment variables.").
				Value(&useKeyring),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("setup aborted: %w", err)
	}

	if useKeyring && config.KeyringAvailable() {
		stored := []string{}
		for key, value := range map[string]string{
			config.KeyAPIKey:        apiKey,
			config.KeyIMessageToken: partnerToken,
			config.KeyWebhookSecret: webhookSecret,
		} {
			if value == "" {
				continue
			}
			if err := config.StoreKeyring(key, value); err != nil {
				return fmt.Errorf("storing %s in keyring: %w", key, err)
			}
			stored = append(stored, key)
		}
		fmt.Printf("Stored in OS keyring: %s\n", strings.Join(stored, ", "))
	} else {
		if useKeyring {
			fmt.Println("OS keyring unavailable; set TEEKAY_API_KEY, TEEKAY_IMESSAGE_TOKEN and TEEKAY_WEBHOOK_SECRET in the environment or .env.")
		}
		// Keep them in the in-memory config so Save writes env references.
		cfg.Agent.Runtime.APIKey = apiKey
		cfg.IMessage.Token = partnerToken
		cfg.IMessage.WebhookSecret = webhookSecret
	}

	path := "teekay.yaml"
	if err := config.Save(cfg, path); err != nil {
		return err
	}
	fmt.Printf("Wrote %s. Start the assistant with: teekay serve\n", path)
	return nil
}

func requireValue(name string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", name)
		}
		return nil
	}
}
