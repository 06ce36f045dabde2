package telegram

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/regbot/core/telegram/ui"
	"github.com/m3rciful/regbot/internal/flow"
	"github.com/m3rciful/regbot/internal/notify"
	"github.com/m3rciful/regbot/internal/records"
	"github.com/m3rciful/regbot/internal/session"
)

type nopSink struct{}

func (nopSink) Append(_ context.Context, rec records.Record) (records.Record, error) {
	return rec, nil
}

type nopBroadcaster struct{}

func (nopBroadcaster) Broadcast(context.Context, notify.Event) []notify.Delivery { return nil }

type stubStore struct{}

func (stubStore) RowCount(context.Context) (int, error)            { return 0, nil }
func (stubStore) ReadAll(context.Context) ([]records.Record, error) { return nil, nil }

// fakeTeleContext covers just the surface the handlers touch; anything
// else panics through the embedded nil interface.
type fakeTeleContext struct {
	tele.Context
	user *tele.User
	data map[string]interface{}
	sent []interface{}
}

func newFakeContext(user *tele.User) *fakeTeleContext {
	return &fakeTeleContext{user: user, data: map[string]interface{}{}}
}

func (f *fakeTeleContext) Sender() *tele.User                    { return f.user }
func (f *fakeTeleContext) Chat() *tele.Chat                      { return &tele.Chat{ID: f.user.ID} }
func (f *fakeTeleContext) Update() tele.Update                   { return tele.Update{ID: 1} }
func (f *fakeTeleContext) Message() *tele.Message                { return nil }
func (f *fakeTeleContext) Text() string                          { return "" }
func (f *fakeTeleContext) Get(key string) interface{}            { return f.data[key] }
func (f *fakeTeleContext) Set(key string, val interface{})       { f.data[key] = val }
func (f *fakeTeleContext) Send(what interface{}, _ ...interface{}) error {
	f.sent = append(f.sent, what)
	return nil
}

func (f *fakeTeleContext) Respond(resp ...*tele.CallbackResponse) error {
	for _, r := range resp {
		f.sent = append(f.sent, r.Text)
	}
	return nil
}

func (f *fakeTeleContext) lastText(t *testing.T) string {
	t.Helper()
	require.NotEmpty(t, f.sent)
	text, ok := f.sent[len(f.sent)-1].(string)
	require.True(t, ok)
	return text
}

func newHandlerFixture(operators ...int64) (*Handlers, *flow.Machine, *session.MemoryManager) {
	sessions := session.NewMemoryManager()
	machine := flow.NewMachine(sessions, nopSink{}, nopBroadcaster{}, flow.Options{})
	h := NewHandlers(machine, stubStore{}, Options{Operators: operators})
	return h, machine, sessions
}

func TestStartCancelsOperatorForm(t *testing.T) {
	h, machine, sessions := newHandlerFixture(99)

	sessions.Create(99)
	require.True(t, machine.InProgress(99))

	c := newFakeContext(&tele.User{ID: 99, FirstName: "Op"})
	require.NoError(t, h.Start(c))

	assert.False(t, machine.InProgress(99))
	assert.Contains(t, c.lastText(t), "Admin panel")
}

// /restart drops an operator's in-flight form the same way /start does.
func TestRestartCancelsOperatorForm(t *testing.T) {
	h, machine, sessions := newHandlerFixture(99)

	sessions.Create(99)
	require.True(t, machine.InProgress(99))

	c := newFakeContext(&tele.User{ID: 99, FirstName: "Op"})
	require.NoError(t, h.Restart(c))

	assert.False(t, machine.InProgress(99))
	assert.Contains(t, c.lastText(t), "Admin panel")
}

// The fallback surface routes every unroutable update back to the
// start hint, and unknown callback presses get a toast.
func TestFallbackProviderSurface(t *testing.T) {
	h, _, _ := newHandlerFixture(99)

	var p ui.FallbackProvider = h

	c := newFakeContext(&tele.User{ID: 7, FirstName: "Ali"})
	require.NoError(t, p.UnknownText()(c))
	assert.Contains(t, c.lastText(t), "/start")

	require.NoError(t, p.UnknownContact()(c))
	assert.Contains(t, c.lastText(t), "/start")

	require.NoError(t, p.UnknownCallback()(c))
	assert.Equal(t, "Noma'lum buyruq", c.lastText(t))
}

func TestRestartBeginsFormForRegularUser(t *testing.T) {
	h, machine, _ := newHandlerFixture(99)

	c := newFakeContext(&tele.User{ID: 7, FirstName: "Ali"})
	require.NoError(t, h.Restart(c))

	assert.True(t, machine.InProgress(7))
	assert.Contains(t, c.lastText(t), "1-qadam")
}
