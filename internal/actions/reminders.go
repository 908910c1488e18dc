package actions

import (
	"context"
	"fmt"
	"strings"
	"time"

	"panda-assistant/internal/localstore"
)

// SaveReminder appends a reminder to the saved list and arms its alert.
func (a *Actions) SaveReminder(ctx context.Context, message, at string) error {
	message, at = strings.TrimSpace(message), strings.TrimSpace(at)
	if message == "" || at == "" {
		a.display.Show(incompleteReminderMsg)
		return ErrIncompleteReminder
	}
	due, err := time.ParseInLocation(ReminderLayout, at, a.now().Location())
	if err != nil {
		a.display.Show(invalidTimeMsg)
		return ErrInvalidTime
	}

	rems, err := a.store.Reminders(ctx)
	if err != nil {
		a.logger.Warn("discarding unreadable reminders", "err", err)
		rems = nil
	}
	rems = append(rems, localstore.Reminder{Message: message, Time: at})
	if err := a.store.SaveReminders(ctx, rems); err != nil {
		return fmt.Errorf("actions: save reminder: %w", err)
	}

	a.display.Show(fmt.Sprintf("Reminder set for \"%s\" at %s", message, due.Format(reminderDisplay)))
	a.arm(message, due)
	return nil
}

func (a *Actions) ListReminders(ctx context.Context) error {
	rems, err := a.store.Reminders(ctx)
	if err != nil {
		return fmt.Errorf("actions: load reminders: %w", err)
	}
	if len(rems) == 0 {
		a.display.Show("You have no reminders.")
		return nil
	}
	lines := make([]string, 0, len(rems)+1)
	lines = append(lines, "Your reminders:")
	for i, r := range rems {
		when := r.Time
		if due, err := time.ParseInLocation(ReminderLayout, r.Time, a.now().Location()); err == nil {
			when = due.Format(reminderDisplay)
		}
		lines = append(lines, fmt.Sprintf("%d. %s at %s", i+1, r.Message, when))
	}
	a.display.Show(strings.Join(lines, "\n"))
	return nil
}

// ArmReminders schedules alerts for saved reminders that are still ahead.
func (a *Actions) ArmReminders(ctx context.Context) (int, error) {
	rems, err := a.store.Reminders(ctx)
	if err != nil {
		return 0, fmt.Errorf("actions: load reminders: %w", err)
	}
	armed := 0
	for _, r := range rems {
		due, err := time.ParseInLocation(ReminderLayout, r.Time, a.now().Location())
		if err != nil {
			continue
		}
		if a.arm(r.Message, due) {
			armed++
		}
	}
	return armed, nil
}

func (a *Actions) arm(message string, due time.Time) bool {
	wait := due.Sub(a.now())
	if wait <= 0 {
		return false
	}
	a.after(wait, func() {
		a.say("Reminder: " + message)
	})
	return true
}
