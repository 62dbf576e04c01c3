package notifier

import (
	"context"
	"log/slog"
	"time"

	"github.com/shadowstrike/topup-bot/internal/adminstore"
	"github.com/shadowstrike/topup-bot/internal/backend"
	"github.com/shadowstrike/topup-bot/internal/config"
)

// PendingLister fetches the current pending top-up queue.
type PendingLister interface {
	ListPending(ctx context.Context, actor string) ([]backend.TopupRequest, error)
}

// TopupSender delivers one request notification to a chat.
type TopupSender interface {
	SendTopup(ctx context.Context, chatID int64, req backend.TopupRequest) error
}

// AdminDirectory returns the bound admin chat, or adminstore.ErrNotSet.
type AdminDirectory interface {
	Get() (int64, error)
}

// SeenSet records rendered request IDs and reports newness.
type SeenSet interface {
	MarkSeen(id string) bool
}

// Notifier periodically fetches pending top-up requests and pushes each new
// one to the admin chat exactly once per process lifetime.
type Notifier struct {
	cfg    *config.Config
	admins AdminDirectory
	seen   SeenSet
	server PendingLister
	sender TopupSender
	log    *slog.Logger
}

// New creates a Notifier.
func New(cfg *config.Config, admins AdminDirectory, seen SeenSet, server PendingLister, sender TopupSender, log *slog.Logger) *Notifier {
	return &Notifier{
		cfg:    cfg,
		admins: admins,
		seen:   seen,
		server: server,
		sender: sender,
		log:    log,
	}
}

// Start runs the notification loop: one tick per interval, first tick after
// an initial delay of one interval. Returns when the context is cancelled.
func (n *Notifier) Start(ctx context.Context, interval time.Duration) {
	n.log.Info("topup notifier started", "interval", interval)

	select {
	case <-ctx.Done():
		return
	case <-time.After(interval):
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	n.Tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n.Tick(ctx)
		}
	}
}

// Tick performs one fetch-and-notify cycle. Every failure here is dropped
// for this tick; the next tick starts fresh.
func (n *Notifier) Tick(ctx context.Context) {
	if n.cfg.BotAPIKey == "" {
		return
	}

	chatID, err := n.admins.Get()
	if err != nil {
		// No admin chat bound yet; expected until the first /start.
		return
	}

	rows, err := n.server.ListPending(ctx, n.cfg.AdminUsername)
	if err != nil {
		n.log.Warn("list pending topups", "error", err)
		return
	}

	for _, req := range rows {
		if req.ID == "" {
			continue
		}
		if !n.seen.MarkSeen(req.ID) {
			continue
		}
		if err := n.sender.SendTopup(ctx, chatID, req); err != nil {
			// The ID stays marked: a broken payload must not be retried
			// every tick and flood the chat.
			n.log.Error("send topup notification", "request_id", req.ID, "error", err)
		}
	}
}

var _ AdminDirectory = (*adminstore.Store)(nil)
