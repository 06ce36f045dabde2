package flow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/regbot/internal/notify"
	"github.com/m3rciful/regbot/internal/records"
	"github.com/m3rciful/regbot/internal/session"
)

type fakeSink struct {
	appended []records.Record
	err      error
}

// Append stamps the row the way the real sink does, so event assertions
// see the stored shape.
func (f *fakeSink) Append(_ context.Context, rec records.Record) (records.Record, error) {
	if f.err != nil {
		return records.Record{}, f.err
	}
	rec.Ordinal = len(f.appended) + 1
	rec.Date = "2025-03-14"
	rec.Time = "10:30:00"
	rec.Status = records.StatusRegistered
	f.appended = append(f.appended, rec)
	return rec, nil
}

type fakeBroadcaster struct {
	events []notify.Event
}

func (f *fakeBroadcaster) Broadcast(_ context.Context, ev notify.Event) []notify.Delivery {
	f.events = append(f.events, ev)
	return nil
}

type fixture struct {
	machine  *Machine
	sessions *session.MemoryManager
	sink     *fakeSink
	notifier *fakeBroadcaster
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	f := &fixture{
		sessions: session.NewMemoryManager(),
		sink:     &fakeSink{},
		notifier: &fakeBroadcaster{},
	}
	f.machine = NewMachine(f.sessions, f.sink, f.notifier, opts)
	return f
}

func input(userID int64, text string) Input {
	return Input{UserID: userID, DisplayName: "Ali Valiyev", Handle: "aliv", Text: text}
}

func TestHappyPathWithContact(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	reply := f.machine.Start(ctx, input(1, "/start"))
	assert.Contains(t, reply.Text, "1-qadam")
	assert.Equal(t, session.StageAwaitingName, f.sessions.Stage(1))

	reply, ok := f.machine.Handle(ctx, input(1, "Ali"))
	require.True(t, ok)
	assert.Equal(t, KeyboardDistricts, reply.Keyboard)
	assert.Equal(t, session.StageAwaitingDistrict, f.sessions.Stage(1))

	reply, ok = f.machine.Handle(ctx, input(1, "Chilonzor"))
	require.True(t, ok)
	assert.Equal(t, KeyboardPhone, reply.Keyboard)
	assert.Equal(t, session.StageAwaitingPhone, f.sessions.Stage(1))

	in := input(1, "")
	in.Contact = &Contact{PhoneNumber: "998901234567"}
	reply, ok = f.machine.Handle(ctx, in)
	require.True(t, ok)
	assert.True(t, reply.Completed)
	assert.True(t, reply.Stored)
	assert.True(t, reply.Document)

	require.Len(t, f.sink.appended, 1)
	rec := f.sink.appended[0]
	assert.Equal(t, "Ali", rec.Name)
	assert.Equal(t, "Chilonzor", rec.District)
	assert.Equal(t, "+998901234567", rec.Phone)
	assert.Equal(t, int64(1), rec.UserID)
	assert.Equal(t, "aliv", rec.Handle)

	// Operators get the stored row, stamp included.
	require.Len(t, f.notifier.events, 1)
	ev := f.notifier.events[0]
	assert.True(t, ev.Stored)
	assert.Equal(t, 1, ev.Record.Ordinal)
	assert.NotEmpty(t, ev.Record.Date)
	assert.NotEmpty(t, ev.Record.Time)

	// Session destroyed, not reset.
	assert.False(t, f.sessions.InProgress(1))
}

func TestNameRejectsNonAlphabetic(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	f.machine.Start(ctx, input(1, "/start"))

	for _, bad := range []string{"A1", "x", "", "  ", "Ali2 Vali"} {
		reply, ok := f.machine.Handle(ctx, input(1, bad))
		require.True(t, ok)
		assert.Contains(t, reply.Text, "❌", "input %q", bad)
		assert.Equal(t, session.StageAwaitingName, f.sessions.Stage(1), "input %q", bad)
	}

	reply, ok := f.machine.Handle(ctx, input(1, "Ali Vali"))
	require.True(t, ok)
	assert.NotContains(t, reply.Text, "to'g'ri ism")
	assert.Equal(t, session.StageAwaitingDistrict, f.sessions.Stage(1))
}

// Phone-shaped input at the name step must not short-circuit to
// completion; the flow always passes through the district step.
func TestStateExclusivity(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	f.machine.Start(ctx, input(1, "/start"))

	reply, ok := f.machine.Handle(ctx, input(1, "+998901234567"))
	require.True(t, ok)
	assert.False(t, reply.Completed)
	assert.Equal(t, session.StageAwaitingName, f.sessions.Stage(1))
	assert.Empty(t, f.sink.appended)
	assert.Empty(t, f.notifier.events)

	in := input(1, "")
	in.Contact = &Contact{PhoneNumber: "+998901234567"}
	reply, ok = f.machine.Handle(ctx, in)
	require.True(t, ok)
	assert.False(t, reply.Completed)
	assert.Empty(t, f.sink.appended)
}

func TestDistrictValidation(t *testing.T) {
	f := newFixture(t, Options{Districts: []string{"Chilonzor", "Yunusobod"}})
	ctx := context.Background()

	f.machine.Start(ctx, input(1, "/start"))
	f.machine.Handle(ctx, input(1, "Ali"))

	reply, ok := f.machine.Handle(ctx, input(1, "Parij"))
	require.True(t, ok)
	assert.Equal(t, KeyboardDistricts, reply.Keyboard)
	assert.Equal(t, session.StageAwaitingDistrict, f.sessions.Stage(1))

	// Matching is case-insensitive.
	reply, ok = f.machine.Handle(ctx, input(1, "yunusobod"))
	require.True(t, ok)
	assert.Equal(t, KeyboardPhone, reply.Keyboard)
	assert.Equal(t, session.StageAwaitingPhone, f.sessions.Stage(1))
}

func TestDistrictFreeTextWhenUnrestricted(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	f.machine.Start(ctx, input(1, "/start"))
	f.machine.Handle(ctx, input(1, "Ali"))

	_, ok := f.machine.Handle(ctx, input(1, "Qo'qon"))
	require.True(t, ok)
	assert.Equal(t, session.StageAwaitingPhone, f.sessions.Stage(1))
}

func TestManualEntryButtonKeepsStage(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	f.machine.Start(ctx, input(1, "/start"))
	f.machine.Handle(ctx, input(1, "Ali"))
	f.machine.Handle(ctx, input(1, "Chilonzor"))

	reply, ok := f.machine.Handle(ctx, input(1, ManualEntryButton))
	require.True(t, ok)
	assert.False(t, reply.Completed)
	assert.Equal(t, KeyboardRemove, reply.Keyboard)
	assert.Equal(t, session.StageAwaitingPhone, f.sessions.Stage(1))
	assert.Empty(t, f.sink.appended)
}

func TestBadPhoneReprompts(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	f.machine.Start(ctx, input(1, "/start"))
	f.machine.Handle(ctx, input(1, "Ali"))
	f.machine.Handle(ctx, input(1, "Chilonzor"))

	reply, ok := f.machine.Handle(ctx, input(1, "12345"))
	require.True(t, ok)
	assert.Contains(t, reply.Text, "Qabul qilinadigan formatlar")
	assert.Equal(t, session.StageAwaitingPhone, f.sessions.Stage(1))

	reply, ok = f.machine.Handle(ctx, input(1, "901234567"))
	require.True(t, ok)
	assert.True(t, reply.Completed)
	require.Len(t, f.sink.appended, 1)
	assert.Equal(t, "+998901234567", f.sink.appended[0].Phone)
}

func TestCancelFromEveryStage(t *testing.T) {
	ctx := context.Background()

	advance := map[string]func(f *fixture){
		"awaiting_name": func(f *fixture) {},
		"awaiting_district": func(f *fixture) {
			f.machine.Handle(ctx, input(1, "Ali"))
		},
		"awaiting_phone": func(f *fixture) {
			f.machine.Handle(ctx, input(1, "Ali"))
			f.machine.Handle(ctx, input(1, "Chilonzor"))
		},
	}

	for name, setup := range advance {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, Options{})
			f.machine.Start(ctx, input(1, "/start"))
			setup(f)

			reply := f.machine.Cancel(ctx, input(1, "/cancel"))
			assert.Contains(t, reply.Text, "bekor qilindi")
			assert.False(t, f.sessions.InProgress(1))

			// Second cancel finds nothing in flight.
			reply = f.machine.Cancel(ctx, input(1, "/cancel"))
			assert.Equal(t, msgNothingInProgress, reply.Text)
		})
	}
}

func TestRestartDiscardsProgress(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	f.machine.Start(ctx, input(1, "/start"))
	f.machine.Handle(ctx, input(1, "Ali"))
	f.machine.Handle(ctx, input(1, "Chilonzor"))

	reply := f.machine.Restart(ctx, input(1, "/start"))
	assert.Contains(t, reply.Text, "1-qadam")
	assert.Equal(t, session.StageAwaitingName, f.sessions.Stage(1))

	s, ok := f.sessions.Get(1)
	require.True(t, ok)
	assert.Empty(t, s.Name)
	assert.Empty(t, s.District)
}

func TestDegradedSinkStillCompletes(t *testing.T) {
	f := newFixture(t, Options{})
	f.sink.err = errors.New("connection refused")
	ctx := context.Background()

	f.machine.Start(ctx, input(1, "/start"))
	f.machine.Handle(ctx, input(1, "Ali"))
	f.machine.Handle(ctx, input(1, "Chilonzor"))

	reply, ok := f.machine.Handle(ctx, input(1, "901234567"))
	require.True(t, ok)
	assert.True(t, reply.Completed)
	assert.False(t, reply.Stored)
	assert.Contains(t, reply.Text, "muvaffaqiyatli")
	assert.Contains(t, reply.Text, "saqlanmadi")

	// Operators still hear about it, flagged as not stored.
	require.Len(t, f.notifier.events, 1)
	assert.False(t, f.notifier.events[0].Stored)

	assert.False(t, f.sessions.InProgress(1))
}

func TestHandleIdleFallsThrough(t *testing.T) {
	f := newFixture(t, Options{})

	_, ok := f.machine.Handle(context.Background(), input(1, "hello"))
	assert.False(t, ok)
	assert.Empty(t, f.sink.appended)
}

func TestConversationsAreIndependent(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	f.machine.Start(ctx, input(1, "/start"))
	f.machine.Start(ctx, input(2, "/start"))

	f.machine.Handle(ctx, input(1, "Ali"))
	assert.Equal(t, session.StageAwaitingDistrict, f.sessions.Stage(1))
	assert.Equal(t, session.StageAwaitingName, f.sessions.Stage(2))

	f.machine.Cancel(ctx, input(2, "/cancel"))
	assert.True(t, f.sessions.InProgress(1))
	assert.False(t, f.sessions.InProgress(2))
}
