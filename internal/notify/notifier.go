// Package notify delivers run lifecycle notifications to external channels
// (Telegram, Discord). Channels can be filtered by event type so operators
// only receive the alerts they care about.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/alanyoungcy/backtestbot/internal/domain"
)

// Event types emitted by the application.
const (
	EventRunComplete = "run_complete"
	EventRunFailed   = "run_failed"
)

// Sender is the interface each notification channel implements.
type Sender interface {
	// Send delivers a notification with the given title and message body.
	Send(ctx context.Context, title, message string) error
	// Name returns a human-readable identifier for the sender (e.g. "telegram").
	Name() string
}

// Notifier dispatches notifications to one or more Senders. It maintains a
// set of allowed event types; Notify only forwards messages whose event type
// is in the allowed set. An empty set allows everything.
type Notifier struct {
	senders []Sender
	events  map[string]bool
	logger  *slog.Logger
}

// NewNotifier creates a Notifier delivering to the given senders. Only events
// named in events are forwarded; an empty slice allows all event types.
func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		allowed[strings.TrimSpace(e)] = true
	}
	return &Notifier{
		senders: senders,
		events:  allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// RunCompleted notifies that a run finished, with its score summary.
func (n *Notifier) RunCompleted(ctx context.Context, runID, strategy string, report domain.ScoreReport) error {
	title := fmt.Sprintf("Run complete: %s", strategy)
	return n.Notify(ctx, EventRunComplete, title, formatReport(runID, report))
}

// RunFailed notifies that a run aborted with an error.
func (n *Notifier) RunFailed(ctx context.Context, runID, strategy string, runErr error) error {
	title := fmt.Sprintf("Run failed: %s", strategy)
	message := fmt.Sprintf("run %s\nerror: %v", runID, runErr)
	return n.Notify(ctx, EventRunFailed, title, message)
}

// Notify sends a notification to all senders if the event type is allowed.
func (n *Notifier) Notify(ctx context.Context, event, title, message string) error {
	if len(n.events) > 0 && !n.events[event] {
		n.logger.DebugContext(ctx, "event filtered out",
			slog.String("event", event),
		)
		return nil
	}
	return n.dispatch(ctx, title, message)
}

// dispatch fans the notification out to every sender. A single sender failure
// does not prevent delivery to the remaining senders; failures are collected
// into one combined error.
func (n *Notifier) dispatch(ctx context.Context, title, message string) error {
	if len(n.senders) == 0 {
		return nil
	}

	var errs []string
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Sprintf("%s: %v", s.Name(), err))
			continue
		}
		n.logger.DebugContext(ctx, "notification sent",
			slog.String("sender", s.Name()),
			slog.String("title", title),
		)
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}

func formatReport(runID string, r domain.ScoreReport) string {
	sharpe := "n/a"
	if !math.IsNaN(r.Sharpe) {
		sharpe = fmt.Sprintf("%.4f", r.Sharpe)
	}
	return fmt.Sprintf(
		"run %s\nequity: %.2f -> %.2f (%+.2f%%)\nsharpe: %s  max drawdown: %.2f%%\ntrades: %d  fees: %.2f\nscore: %.4f",
		runID,
		r.InitialEquity, r.FinalEquity, r.PctPnL,
		sharpe, r.MaxDrawdown*100,
		r.TradeCount, r.FeesPaid,
		r.Score,
	)
}
