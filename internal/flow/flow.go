// Package flow drives the three-step registration conversation: name,
// district, phone. It owns the stage transitions and the final
// persist-then-notify sequence; transport concerns stay with the caller.
package flow

import (
	"context"
	"strings"
	"unicode"

	"github.com/m3rciful/regbot/core/logger"
	"github.com/m3rciful/regbot/core/telegram/format"
	"github.com/m3rciful/regbot/internal/notify"
	"github.com/m3rciful/regbot/internal/phone"
	"github.com/m3rciful/regbot/internal/records"
	"github.com/m3rciful/regbot/internal/session"
	"log/slog"
)

// Contact is a platform-verified phone payload.
type Contact struct {
	PhoneNumber string
}

// Input is one inbound user event, already stripped of transport detail.
// Contact, when set, takes precedence over Text at the phone step.
type Input struct {
	UserID      int64
	DisplayName string
	Handle      string
	Text        string
	Contact     *Contact
}

// Keyboard selects which reply keyboard accompanies a Reply.
type Keyboard int

const (
	KeyboardNone Keyboard = iota
	KeyboardDistricts
	KeyboardPhone
	KeyboardRemove
)

// Reply is what the caller should present to the user.
type Reply struct {
	Text     string
	Keyboard Keyboard
	// Document asks the caller to attach the guide document.
	Document bool
	// Completed marks a finished registration.
	Completed bool
	// Stored reports the sink outcome when Completed.
	Stored bool
}

// Appender persists completed registrations and returns the stored row
// with its stamped ordinal and timestamp.
type Appender interface {
	Append(ctx context.Context, rec records.Record) (records.Record, error)
}

// Broadcaster notifies operators about completed registrations.
type Broadcaster interface {
	Broadcast(ctx context.Context, ev notify.Event) []notify.Delivery
}

// Options tunes flow behaviour.
type Options struct {
	// Districts, when non-empty, restricts the district step to listed values.
	Districts []string
}

// Machine is the registration state machine. One instance serves all
// users; per-user progress lives in the session manager.
type Machine struct {
	sessions  session.Manager
	sink      Appender
	notifier  Broadcaster
	districts map[string]struct{}
	ordered   []string
}

// NewMachine wires the state machine. sink and notifier may not be nil.
func NewMachine(sessions session.Manager, sink Appender, notifier Broadcaster, opts Options) *Machine {
	m := &Machine{
		sessions: sessions,
		sink:     sink,
		notifier: notifier,
		ordered:  opts.Districts,
	}
	if len(opts.Districts) > 0 {
		m.districts = make(map[string]struct{}, len(opts.Districts))
		for _, d := range opts.Districts {
			m.districts[strings.ToLower(strings.TrimSpace(d))] = struct{}{}
		}
	}
	return m
}

// Districts returns the configured district list in display order.
func (m *Machine) Districts() []string {
	return m.ordered
}

// InProgress reports whether the user has a registration in flight.
func (m *Machine) InProgress(userID int64) bool {
	return m.sessions.InProgress(userID)
}

// Start creates a fresh session, discarding any partial progress, and
// prompts for the name.
func (m *Machine) Start(ctx context.Context, in Input) Reply {
	m.sessions.Create(in.UserID)
	logger.TG.Info("registration started",
		slog.String("event", "flow.start"),
		slog.Int64("user_id", in.UserID),
	)
	return Reply{
		Text:     welcomeText(in.DisplayName),
		Keyboard: KeyboardRemove,
	}
}

// Restart is a destructive restart, identical to Start from any stage.
func (m *Machine) Restart(ctx context.Context, in Input) Reply {
	return m.Start(ctx, in)
}

// Cancel destroys the session from any stage. With nothing in flight it
// reports so instead.
func (m *Machine) Cancel(ctx context.Context, in Input) Reply {
	if !m.sessions.Delete(in.UserID) {
		return Reply{Text: msgNothingInProgress}
	}
	logger.TG.Info("registration cancelled",
		slog.String("event", "flow.cancel"),
		slog.Int64("user_id", in.UserID),
	)
	return Reply{Text: msgCancelled, Keyboard: KeyboardRemove}
}

// Handle advances the conversation by one input. The second return is
// false when the user has no session; the caller falls back to its
// start hint.
func (m *Machine) Handle(ctx context.Context, in Input) (Reply, bool) {
	switch m.sessions.Stage(in.UserID) {
	case session.StageAwaitingName:
		return m.handleName(in), true
	case session.StageAwaitingDistrict:
		return m.handleDistrict(in), true
	case session.StageAwaitingPhone:
		return m.handlePhone(ctx, in), true
	}
	return Reply{}, false
}

func (m *Machine) handleName(in Input) Reply {
	name := strings.TrimSpace(in.Text)
	if !validName(name) {
		return Reply{Text: msgBadName}
	}
	m.sessions.Update(in.UserID, func(s *session.Session) {
		s.Name = name
		s.Stage = session.StageAwaitingDistrict
	})
	return Reply{Text: msgAskDistrict, Keyboard: KeyboardDistricts}
}

func (m *Machine) handleDistrict(in Input) Reply {
	district := strings.TrimSpace(in.Text)
	if district == "" {
		return Reply{Text: msgBadDistrict, Keyboard: KeyboardDistricts}
	}
	if m.districts != nil {
		if _, ok := m.districts[strings.ToLower(district)]; !ok {
			return Reply{Text: msgBadDistrict, Keyboard: KeyboardDistricts}
		}
	}
	m.sessions.Update(in.UserID, func(s *session.Session) {
		s.District = district
		s.Stage = session.StageAwaitingPhone
	})
	return Reply{Text: msgAskPhone, Keyboard: KeyboardPhone}
}

func (m *Machine) handlePhone(ctx context.Context, in Input) Reply {
	var (
		canonical string
		err       error
	)
	if in.Contact != nil {
		canonical, err = phone.Normalize(in.Contact.PhoneNumber, phone.SourceContact)
	} else {
		if in.Text == ManualEntryButton {
			// Stage unchanged, just swap the keyboard for manual digits.
			return Reply{Text: msgManualEntry, Keyboard: KeyboardRemove}
		}
		canonical, err = phone.Normalize(in.Text, phone.SourceText)
	}
	if err != nil {
		// The normalizer only fails with phone.ErrFormat; re-prompt
		// with the accepted formats and stay on this stage.
		return Reply{Text: msgBadPhone}
	}

	sess, ok := m.sessions.Get(in.UserID)
	if !ok {
		return Reply{Text: msgNothingInProgress}
	}

	rec := records.Record{
		Name:        sess.Name,
		District:    sess.District,
		Phone:       canonical,
		UserID:      in.UserID,
		DisplayName: in.DisplayName,
		Handle:      in.Handle,
	}

	// Persist, notify, then reply. Later failures never roll back
	// earlier steps. Operators get the stored row so the notification
	// carries the stamped ordinal and timestamp.
	stored := true
	if stamped, err := m.sink.Append(ctx, rec); err != nil {
		stored = false
		logger.DB.Error("registration not stored",
			slog.String("event", "append.failed"),
			slog.Int64("user_id", in.UserID),
			slog.String("err", err.Error()),
		)
	} else {
		rec = stamped
	}

	m.notifier.Broadcast(ctx, notify.Event{Record: rec, Stored: stored})

	m.sessions.Delete(in.UserID)
	logger.TG.Info("registration completed",
		slog.String("event", "flow.complete"),
		slog.Int64("user_id", in.UserID),
		slog.String("district", sess.District),
		slog.Bool("stored", stored),
	)

	return Reply{
		Text:      successText(stored),
		Keyboard:  KeyboardRemove,
		Document:  true,
		Completed: true,
		Stored:    stored,
	}
}

// validName accepts text that is alphabetic once internal spaces are
// removed and is at least two letters long.
func validName(name string) bool {
	stripped := strings.ReplaceAll(name, " ", "")
	if len([]rune(stripped)) < 2 {
		return false
	}
	for _, r := range stripped {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

func welcomeText(displayName string) string {
	return "Assalomu Alaykum, *" + format.EscapeV1(displayName) + "* 😊\n" +
		"Autizm haqidagi qo'llanmani olish uchun 3 qadam qoldi 🤩\n\n" +
		"*1-qadam:*\nIsmingizni kiriting:"
}

func successText(stored bool) string {
	text := "✅ Siz muvaffaqiyatli ro'yxatdan o'tdingiz!\n\n"
	if !stored {
		text += "⚠️ _Ma'lumotlaringiz saqlanmadi. Admin bilan bog'laning._\n\n"
	}
	text += "📚 Marhamat, autizm haqidagi maxsus qo'llanma:"
	return text
}
