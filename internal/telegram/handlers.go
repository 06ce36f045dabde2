package telegram

import (
	"context"

	tghelpers "github.com/m3rciful/regbot/core/telegram/helpers"
	"github.com/m3rciful/regbot/core/telegram/ui"
	"github.com/m3rciful/regbot/internal/flow"
	"github.com/m3rciful/regbot/internal/records"

	tele "gopkg.in/telebot.v4"
)

const msgStartHint = "ℹ️ Ro'yxatdan o'tishni boshlash uchun /start ni bosing."

// Store is the read side of the record sink consumed by the reporting
// commands.
type Store interface {
	RowCount(ctx context.Context) (int, error)
	ReadAll(ctx context.Context) ([]records.Record, error)
}

// Options configures the handler set.
type Options struct {
	Operators []int64
	GuidePath string
	// PageSize bounds the /users listing page length.
	PageSize int
}

// Handlers owns every user-facing and operator-facing bot handler.
type Handlers struct {
	machine   *flow.Machine
	store     Store
	operators map[int64]struct{}
	guidePath string
	pageSize  int
}

// NewHandlers builds the handler set over the flow machine and store.
func NewHandlers(machine *flow.Machine, store Store, opts Options) *Handlers {
	ops := make(map[int64]struct{}, len(opts.Operators))
	for _, id := range opts.Operators {
		ops[id] = struct{}{}
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = 10
	}
	return &Handlers{
		machine:   machine,
		store:     store,
		operators: ops,
		guidePath: opts.GuidePath,
		pageSize:  pageSize,
	}
}

func (h *Handlers) isOperator(id int64) bool {
	_, ok := h.operators[id]
	return ok
}

// Start begins (or restarts) a registration. Operators get the admin
// panel instead, after any in-flight form of theirs is dropped.
func (h *Handlers) Start(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	in := inputFrom(c)

	if h.isOperator(in.UserID) {
		if h.machine.InProgress(in.UserID) {
			h.machine.Cancel(ctx, in)
		}
		return h.AdminPanel(c)
	}

	reply := h.machine.Start(ctx, in)
	return h.renderReply(c, reply)
}

// Restart behaves exactly like Start, discarding partial progress.
func (h *Handlers) Restart(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	in := inputFrom(c)
	if h.isOperator(in.UserID) {
		if h.machine.InProgress(in.UserID) {
			h.machine.Cancel(ctx, in)
		}
		return h.AdminPanel(c)
	}
	reply := h.machine.Restart(ctx, in)
	return h.renderReply(c, reply)
}

// Cancel aborts the registration from any stage.
func (h *Handlers) Cancel(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	reply := h.machine.Cancel(ctx, inputFrom(c))
	return h.renderReply(c, reply)
}

// StartHint answers any message that reached the bot outside a form.
func (h *Handlers) StartHint(c tele.Context) error {
	return tghelpers.SendText(c, msgStartHint)
}

// Handlers is the fallback surface for unroutable updates.
var _ ui.FallbackProvider = (*Handlers)(nil)

// UnknownText answers free text with no form in progress.
func (h *Handlers) UnknownText() tele.HandlerFunc { return h.StartHint }

// UnknownContact handles a shared contact with no form in progress.
func (h *Handlers) UnknownContact() tele.HandlerFunc { return h.StartHint }

// UnknownCallback answers presses of stale or unregistered inline buttons.
func (h *Handlers) UnknownCallback() tele.HandlerFunc {
	return func(c tele.Context) error {
		return c.Respond(&tele.CallbackResponse{Text: "Noma'lum buyruq"})
	}
}
