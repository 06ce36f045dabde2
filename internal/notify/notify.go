// Package notify fans a completed-registration event out to the
// configured operator ids. Deliveries are independent: one operator's
// failure never blocks the rest and is never surfaced to the end user.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/m3rciful/regbot/core/logger"
	"github.com/m3rciful/regbot/core/telegram/format"
	"github.com/m3rciful/regbot/internal/records"
	"log/slog"
)

// Sender delivers one message to one operator.
type Sender interface {
	Send(ctx context.Context, operatorID int64, text string) error
}

// Event describes a finished registration together with the sink outcome,
// so operators can recover records that failed to persist.
type Event struct {
	Record records.Record
	Stored bool
}

// Delivery is the result of one operator send attempt.
type Delivery struct {
	OperatorID int64
	Err        error
}

// Notifier broadcasts events to a fixed operator set loaded at startup.
type Notifier struct {
	operators []int64
	sender    Sender
}

// New builds a Notifier over the given operator ids.
func New(operators []int64, sender Sender) *Notifier {
	return &Notifier{operators: operators, sender: sender}
}

// Operators returns the configured operator ids.
func (n *Notifier) Operators() []int64 {
	return n.operators
}

// Broadcast attempts one delivery per operator and returns every result.
// Failures are aggregated into a single warning line.
func (n *Notifier) Broadcast(ctx context.Context, ev Event) []Delivery {
	text := FormatEvent(ev)

	deliveries := make([]Delivery, 0, len(n.operators))
	var failures *multierror.Error
	for _, id := range n.operators {
		err := n.sender.Send(ctx, id, text)
		deliveries = append(deliveries, Delivery{OperatorID: id, Err: err})
		if err != nil {
			failures = multierror.Append(failures, fmt.Errorf("operator %d: %w", id, err))
		}
	}

	failed := failures.ErrorOrNil()
	if failed != nil {
		logger.TG.Warn("operator notify failures",
			slog.String("event", "notify.failed"),
			slog.Int("operators", len(n.operators)),
			slog.Int("failed", len(failures.Errors)),
			slog.String("err", failed.Error()),
		)
	} else {
		logger.TG.Info("operators notified",
			slog.String("event", "notify.delivered"),
			slog.Int("operators", len(n.operators)),
			slog.Int64("user_id", ev.Record.UserID),
		)
	}

	return deliveries
}

// FormatEvent renders the operator notification body.
func FormatEvent(ev Event) string {
	handle := ev.Record.Handle
	if handle == "" {
		handle = "yo'q"
	}
	stored := "✅ Saqlandi"
	if !ev.Stored {
		stored = "❌ Saqlanmadi"
	}

	// User-supplied fields are escaped so a name with Markdown control
	// characters cannot break the parse-mode send.
	var b strings.Builder
	b.WriteString("🎯 *Yangi ro'yxatdan o'tish:*\n\n")
	fmt.Fprintf(&b, "👤 *Ism:* %s\n", format.EscapeV1(ev.Record.Name))
	fmt.Fprintf(&b, "📍 *Tuman:* %s\n", format.EscapeV1(ev.Record.District))
	fmt.Fprintf(&b, "📱 *Telefon:* %s\n", ev.Record.Phone)
	fmt.Fprintf(&b, "🆔 *User ID:* %d\n", ev.Record.UserID)
	fmt.Fprintf(&b, "📛 *To'liq ism:* %s\n", format.EscapeV1(ev.Record.DisplayName))
	fmt.Fprintf(&b, "👤 *Username:* @%s\n", format.EscapeV1(handle))
	fmt.Fprintf(&b, "📅 *Vaqt:* %s %s\n", ev.Record.Date, ev.Record.Time)
	fmt.Fprintf(&b, "📊 *Saqlash:* %s\n", stored)
	if !ev.Stored {
		b.WriteString("\n⚠️ *Ma'lumot bazaga yozilmadi!*\n")
	}
	b.WriteString("\n#yangi_royhat")
	return b.String()
}
