// Package schedule runs background jobs on cron specs, including "@every"
// intervals. A job that is still running when its next tick fires is
// skipped rather than started twice.
package schedule
