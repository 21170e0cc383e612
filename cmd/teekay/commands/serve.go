package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/teekay-ai/teekay/pkg/teekay/agent"
	"github.com/teekay-ai/teekay/pkg/teekay/channels/imessage"
	"github.com/teekay-ai/teekay/pkg/teekay/schedule"
	"github.com/teekay-ai/teekay/pkg/teekay/store"
	"github.com/teekay-ai/teekay/pkg/teekay/webui"
)

// newServeCmd creates the `teekay serve` command that runs the webhook,
// the reminder poller and the dashboard.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the assistant",
		Long: `Start teekay: listens for inbound message webhooks, polls for due
reminders, and serves the dashboard API.

Examples:
  teekay serve
  teekay serve --config ./teekay.yaml`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	logger := buildLogger(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	st, err := store.Open(cfg.Store)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	timers := schedule.NewTimers()
	defer timers.StopAll()
	svc := schedule.NewService(st, timers, logger)

	channel := imessage.NewClient(cfg.IMessage, logger)
	runtime := agent.NewOpenAIRuntime(cfg.Agent.Runtime, logger)
	tracker := agent.NewTracker(st, logger)
	toolbox := agent.NewToolbox(st, channel, svc, cfg.Agent, logger)
	runner := agent.NewRunner(st, channel, svc, runtime, tracker, toolbox, logger)
	coordinator := agent.NewCoordinator(st, channel, svc, timers, tracker, runner, cfg.Agent, logger)

	// One-time reminder wake-ups and poller ticks both funnel through the
	// coordinator's spawn policy.
	svc.Spawn = coordinator.OnRemindersDue

	// A previous process may have died mid-session; stale claims would
	// block every future spawn for those conversations.
	if n, err := st.ClearActiveAgents(); err != nil {
		logger.Warn("clearing stale agent claims failed", "error", err)
	} else if n > 0 {
		logger.Info("cleared stale agent claims", "count", n)
	}

	poller := schedule.NewPoller(st, svc, logger)
	if err := poller.Start(); err != nil {
		return fmt.Errorf("starting reminder poller: %w", err)
	}
	defer poller.Stop()

	webhook := imessage.NewWebhook(cfg.IMessage.WebhookSecret, coordinator, logger)
	webhookSrv := &http.Server{
		Addr:              cfg.WebhookAddr,
		Handler:           webhook.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("webhook listening", "addr", cfg.WebhookAddr)
		if err := webhookSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("webhook server failed", "error", err)
		}
	}()

	dashboard := webui.NewServer(st, svc, cfg.WebUI, logger)
	go func() {
		if err := dashboard.Start(); err != nil {
			logger.Error("dashboard server failed", "error", err)
		}
	}()

	logger.Info("teekay running, press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received, stopping")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := webhookSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("webhook shutdown incomplete", "error", err)
	}
	if err := dashboard.Shutdown(shutdownCtx); err != nil {
		logger.Warn("dashboard shutdown incomplete", "error", err)
	}
	return nil
}
