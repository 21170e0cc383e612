package schedule

import (
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/teekay-ai/teekay/pkg/teekay/store"
)

// Poller scans for due pending reminders at a fixed interval and feeds
// each affected conversation to the spawn path. Recurring reminders have
// no individual wake-ups; this scan is what fires them.
type Poller struct {
	store   *store.Store
	service *Service
	log     *slog.Logger
	cron    *cron.Cron
	now     func() time.Time
}

// NewPoller creates the poller around the reminder service.
func NewPoller(st *store.Store, service *Service, logger *slog.Logger) *Poller {
	return &Poller{
		store:   st,
		service: service,
		log:     logger.With("component", "poller"),
		cron:    cron.New(),
		now:     time.Now,
	}
}

// Start begins the minute-interval scan in the background.
func (p *Poller) Start() error {
	if _, err := p.cron.AddFunc("@every 1m", p.Tick); err != nil {
		return err
	}
	p.cron.Start()
	p.log.Info("reminder poller started", "interval", "1m")
	return nil
}

// Stop halts the scan and waits for a running tick to finish.
func (p *Poller) Stop() {
	ctx := p.cron.Stop()
	<-ctx.Done()
}

// Tick runs one scan. Conversations are processed concurrently with no
// ordering between them; within one conversation reminders are marked
// pending_trigger before the activity check so a running session's sweep
// can always see them.
func (p *Poller) Tick() {
	now := p.now()
	due, err := p.store.DuePendingReminders(now)
	if err != nil {
		p.log.Error("query due reminders", "error", err)
		return
	}
	if len(due) == 0 {
		return
	}

	byConversation := make(map[string][]*store.Reminder)
	for _, r := range due {
		byConversation[r.Conversation] = append(byConversation[r.Conversation], r)
	}
	p.log.Info("due reminders found", "reminders", len(due), "conversations", len(byConversation))

	var wg sync.WaitGroup
	for conversation, reminders := range byConversation {
		wg.Add(1)
		go func(conversation string, reminders []*store.Reminder) {
			defer wg.Done()
			p.handleConversation(conversation, reminders)
		}(conversation, reminders)
	}
	wg.Wait()
}

func (p *Poller) handleConversation(conversation string, reminders []*store.Reminder) {
	for _, r := range reminders {
		if err := p.store.MarkPendingTrigger(r.ID); err != nil {
			p.log.Error("mark reminder pending_trigger", "reminder_id", r.ID, "error", err)
		}
	}

	active, err := p.store.IsAgentActive(conversation)
	if err != nil {
		p.log.Error("check agent activity", "conversation", conversation, "error", err)
		return
	}
	if active {
		// The running session sweeps pending_trigger reminders before it
		// releases the conversation.
		p.log.Info("agent already active, reminders left for sweep", "conversation", conversation)
		return
	}

	if p.service.Spawn != nil {
		p.service.Spawn(conversation)
	}
}
