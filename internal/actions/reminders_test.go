package actions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"panda-assistant/internal/localstore"
)

func TestSaveReminder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.a.SaveReminder(ctx, "water plants", "2026-03-01T18:00"))
	require.NoError(t, f.a.SaveReminder(ctx, "call mom", "2026-03-02T09:15"))

	require.Equal(t, []localstore.Reminder{
		{Message: "water plants", Time: "2026-03-01T18:00"},
		{Message: "call mom", Time: "2026-03-02T09:15"},
	}, f.store.reminders)
	require.Equal(t, `Reminder set for "water plants" at 3/1/2026, 6:00:00 PM`, f.display.shown()[0])
}

func TestSaveReminder_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.ErrorIs(t, f.a.SaveReminder(ctx, "", "2026-03-01T18:00"), ErrIncompleteReminder)
	require.ErrorIs(t, f.a.SaveReminder(ctx, "water plants", " "), ErrIncompleteReminder)
	require.ErrorIs(t, f.a.SaveReminder(ctx, "water plants", "tomorrow"), ErrInvalidTime)

	require.Empty(t, f.store.reminders)
	require.Equal(t, []string{incompleteReminderMsg, incompleteReminderMsg, invalidTimeMsg}, f.display.shown())
}

func TestSaveReminder_ReplacesUnreadableList(t *testing.T) {
	f := newFixture(t)
	f.store.loadErr = errors.New("decode reminders")
	require.NoError(t, f.a.SaveReminder(context.Background(), "stretch", "2026-03-01T18:00"))
	require.Len(t, f.store.reminders, 1)
}

func TestListReminders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.a.ListReminders(ctx))
	f.store.reminders = []localstore.Reminder{
		{Message: "water plants", Time: "2026-03-01T18:00"},
		{Message: "legacy", Time: "sometime"},
	}
	require.NoError(t, f.a.ListReminders(ctx))

	require.Equal(t, []string{
		"You have no reminders.",
		"Your reminders:\n1. water plants at 3/1/2026, 6:00:00 PM\n2. legacy at sometime",
	}, f.display.shown())
}

func TestArmReminders(t *testing.T) {
	now := time.Now()
	f := newFixture(t, WithClock(func() time.Time { return now }))
	f.store.reminders = []localstore.Reminder{
		{Message: "past", Time: now.Add(-time.Hour).Format(ReminderLayout)},
		{Message: "soon", Time: now.Add(time.Minute).Format(ReminderLayout)},
		{Message: "broken", Time: "x"},
	}

	armed, err := f.a.ArmReminders(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, armed)
}

func TestArmedReminderFires(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.a.arm("stand up", fixedNow.Add(5*time.Millisecond)))
	require.Eventually(t, func() bool {
		said := f.speaker.said()
		return len(said) == 1 && said[0] == "Reminder: stand up"
	}, time.Second, 5*time.Millisecond)
}
