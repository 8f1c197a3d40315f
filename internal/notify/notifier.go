// Package notify provides a multi-channel notification system. Notifications
// are dispatched to all registered senders (Telegram, Discord) and can be
// filtered by event type so operators receive only the alerts they care
// about.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"cardarb/internal/domain"
)

// Event types emitted by the scanner and health service.
const (
	EventOpportunityFound = "opportunity_found"
	EventScanFailed       = "scan_failed"
	EventHealthDegraded   = "health_degraded"
)

// Sender is the interface that each notification channel must implement.
type Sender interface {
	// Send delivers a notification with the given title and message body.
	Send(ctx context.Context, title, message string) error
	// Name returns a human-readable identifier for the sender (e.g. "telegram").
	Name() string
}

// Notifier dispatches notifications to one or more Senders. It maintains a
// set of allowed event types; Notify only forwards messages whose event type
// is in the allowed set.
type Notifier struct {
	senders []Sender
	events  map[string]bool
	logger  *slog.Logger
}

// NewNotifier creates a Notifier that will deliver to the given senders. Only
// events whose type appears in the events slice will be forwarded by Notify.
// If events is empty, all event types are allowed.
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

// Notify sends a notification to all senders only if the event type is in the
// allowed list. If no events were configured (empty list), all events pass.
func (n *Notifier) Notify(ctx context.Context, event, title, message string) error {
	if len(n.events) > 0 && !n.events[event] {
		n.logger.DebugContext(ctx, "event filtered out",
			slog.String("event", event),
		)
		return nil
	}

	return n.dispatch(ctx, title, message)
}

// NotifyOpportunities formats and sends an alert for the top ranked
// opportunities of one card. No-op on an empty page.
func (n *Notifier) NotifyOpportunities(ctx context.Context, cardName string, opps []domain.ArbitrageOpportunity) error {
	if len(opps) == 0 {
		return nil
	}
	title := fmt.Sprintf("Arbitrage: %s", cardName)
	return n.Notify(ctx, EventOpportunityFound, title, FormatOpportunities(opps))
}

// NotifyScanFailed reports a failed background scan for one card.
func (n *Notifier) NotifyScanFailed(ctx context.Context, cardName string, cause error) error {
	title := fmt.Sprintf("Scan failed: %s", cardName)
	return n.Notify(ctx, EventScanFailed, title, cause.Error())
}

// NotifyHealthDegraded reports the system leaving the healthy state.
func (n *Notifier) NotifyHealthDegraded(ctx context.Context, health domain.SystemHealth) error {
	title := fmt.Sprintf("System %s", health.Status)
	return n.Notify(ctx, EventHealthDegraded, title, FormatHealth(health))
}

// dispatch iterates over all senders and sends the notification. Errors from
// individual senders are collected and returned as a combined error; a single
// sender failure does not prevent delivery to the remaining senders.
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
		} else {
			n.logger.DebugContext(ctx, "notification sent",
				slog.String("sender", s.Name()),
				slog.String("title", title),
			)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}

// maxAlertLines caps how many opportunities one alert lists.
const maxAlertLines = 5

var hundred = decimal.NewFromInt(100)

// FormatOpportunities renders a compact per-line summary of the given
// opportunities, best first.
func FormatOpportunities(opps []domain.ArbitrageOpportunity) string {
	var b strings.Builder
	for i, opp := range opps {
		if i == maxAlertLines {
			fmt.Fprintf(&b, "... and %d more\n", len(opps)-maxAlertLines)
			break
		}
		fmt.Fprintf(&b, "buy %s @ $%s, sell %s @ $%s | profit $%s (%s%%) risk %.1f\n",
			opp.BuyPlatform.DisplayName(), opp.BuyPrice.StringFixed(2),
			opp.SellPlatform.DisplayName(), opp.SellPrice.StringFixed(2),
			opp.ProfitAmount.StringFixed(2),
			opp.ProfitMargin.Mul(hundred).StringFixed(1),
			opp.RiskScore,
		)
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatHealth renders one line per component that is not healthy.
func FormatHealth(health domain.SystemHealth) string {
	var b strings.Builder
	for _, c := range health.Components {
		if c.Severity == domain.SeverityHealthy {
			continue
		}
		fmt.Fprintf(&b, "%s %s: %s", c.Kind, c.ResourceID, c.Severity)
		if c.Detail != "" {
			fmt.Fprintf(&b, " (%s)", c.Detail)
		}
		b.WriteString("\n")
	}
	if b.Len() == 0 {
		return string(health.Status)
	}
	return strings.TrimRight(b.String(), "\n")
}
