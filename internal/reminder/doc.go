// Package reminder is the scheduling and persistence core: the SQLite-backed
// store of pending reminders, the recurrence-advancement math, and the
// due-check sweep that dispatches through a caller-supplied notifier.
package reminder
