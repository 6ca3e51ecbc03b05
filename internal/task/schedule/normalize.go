// Package schedule normalizes task due dates and reminder times against the
// business rules every task mutation must satisfy.
package schedule

import (
	"errors"
	"time"
)

// ErrInvalidDateFormat is returned when a supplied timestamp string cannot be
// parsed. It is the only normalization failure surfaced to callers; every
// other input is clamped into a valid range.
var ErrInvalidDateFormat = errors.New("invalid date format")

const (
	minDueLead            = 2 * time.Minute
	defaultDueLead        = 48 * time.Hour
	preferredReminderLead = 24 * time.Hour
)

// NormalizeDates turns raw optional RFC3339 timestamps into a consistent
// (dueAt, reminderAt) pair relative to now. Empty strings mean "not supplied".
//
// The due date is clamped to at least now+2m and defaults to now+2d. The
// reminder defaults to 24h before the due date when that is still in the
// future, otherwise to now plus half the remaining time (floored to whole
// minutes). A supplied reminder is kept only if it lies strictly between now
// and dueAt; out-of-range reminders are recomputed, never rejected.
func NormalizeDates(now time.Time, dueRaw, reminderRaw string) (dueAt, reminderAt time.Time, err error) {
	var parsedDue, parsedReminder time.Time
	if dueRaw != "" {
		parsedDue, err = time.Parse(time.RFC3339, dueRaw)
		if err != nil {
			return time.Time{}, time.Time{}, ErrInvalidDateFormat
		}
	}
	if reminderRaw != "" {
		parsedReminder, err = time.Parse(time.RFC3339, reminderRaw)
		if err != nil {
			return time.Time{}, time.Time{}, ErrInvalidDateFormat
		}
	}

	now = now.UTC()

	if dueRaw == "" {
		dueAt = now.Add(defaultDueLead)
	} else {
		dueAt = parsedDue.UTC()
		if minDue := now.Add(minDueLead); dueAt.Before(minDue) {
			dueAt = minDue
		}
	}

	if reminderRaw != "" {
		reminderAt = parsedReminder.UTC()
		if !reminderAt.After(now) || !reminderAt.Before(dueAt) {
			reminderAt = defaultReminder(now, dueAt)
		}
	} else {
		reminderAt = defaultReminder(now, dueAt)
	}

	return dueAt, reminderAt, nil
}

// defaultReminder prefers 24h before due; once that has passed it falls back
// to the midpoint of the remaining time, floored to whole minutes.
func defaultReminder(now, dueAt time.Time) time.Time {
	preferred := dueAt.Add(-preferredReminderLead)
	if preferred.After(now) {
		return preferred
	}
	halfRemaining := dueAt.Sub(now) / (2 * time.Minute)
	return now.Add(halfRemaining * time.Minute)
}
