// Package telegram binds the registration flow to the bot transport:
// it adapts incoming updates into flow inputs, renders flow replies
// into messages and keyboards, and hosts the operator command surface.
package telegram

import (
	"os"

	"github.com/m3rciful/regbot/core/logger"
	tghelpers "github.com/m3rciful/regbot/core/telegram/helpers"
	"github.com/m3rciful/regbot/core/telegram/keyboard"
	"github.com/m3rciful/regbot/internal/flow"
	"log/slog"

	tele "gopkg.in/telebot.v4"
)

// inputFrom projects the transport update onto the flow's input type.
func inputFrom(c tele.Context) flow.Input {
	sender := c.Sender()
	in := flow.Input{Text: c.Text()}
	if sender != nil {
		in.UserID = sender.ID
		in.DisplayName = displayName(sender)
		in.Handle = sender.Username
	}
	if msg := c.Message(); msg != nil && msg.Contact != nil {
		in.Contact = &flow.Contact{PhoneNumber: msg.Contact.PhoneNumber}
	}
	return in
}

func displayName(u *tele.User) string {
	name := u.FirstName
	if u.LastName != "" {
		name += " " + u.LastName
	}
	return name
}

// renderReply sends a flow reply back to the user, attaching the guide
// document on completion. A missing guide file degrades to a notice.
func (h *Handlers) renderReply(c tele.Context, reply flow.Reply) error {
	markup := h.markupFor(reply.Keyboard)

	if err := tghelpers.SendMD(c, reply.Text, markup); err != nil {
		return err
	}

	if !reply.Document {
		return nil
	}
	if _, err := os.Stat(h.guidePath); err != nil {
		logger.TG.Warn("guide file unavailable",
			slog.String("event", "guide.missing"),
			slog.String("path", h.guidePath),
			slog.String("err", err.Error()),
		)
		return tghelpers.SendText(c, "❌ Qo'llanma fayli hozirda mavjud emas.")
	}
	doc := &tele.Document{File: tele.FromDisk(h.guidePath)}
	return tghelpers.SendDocument(c, doc)
}

func (h *Handlers) markupFor(kb flow.Keyboard) *tele.ReplyMarkup {
	switch kb {
	case flow.KeyboardDistricts:
		districts := h.machine.Districts()
		if len(districts) == 0 {
			return keyboard.RemoveKeyboard()
		}
		markup := keyboard.ReplyGrid(districts, 2)
		markup.OneTimeKeyboard = true
		return markup
	case flow.KeyboardPhone:
		return keyboard.ContactRequest(flow.ContactButton, flow.ManualEntryButton)
	case flow.KeyboardRemove:
		return keyboard.RemoveKeyboard()
	}
	return nil
}

// FSMAdapter exposes the flow machine through the message router's FSM
// interface so in-progress users bypass command dispatch.
type FSMAdapter struct {
	handlers *Handlers
}

// NewFSMAdapter wraps the handler set for router wiring.
func NewFSMAdapter(h *Handlers) *FSMAdapter {
	return &FSMAdapter{handlers: h}
}

func (a *FSMAdapter) InProgress(userID int64) bool {
	return a.handlers.machine.InProgress(userID)
}

func (a *FSMAdapter) ManagerHandler(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	reply, ok := a.handlers.machine.Handle(ctx, inputFrom(c))
	if !ok {
		return a.handlers.StartHint(c)
	}
	return a.handlers.renderReply(c, reply)
}
