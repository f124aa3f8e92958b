// Package follow polls followed tags for posts newer than the last one seen.
//
// A Checker is a schedule.Job. The first check of a tag only records the
// newest post id so that following a busy tag does not report its whole
// history; later checks count posts with a larger id, skipping blacklisted
// ones, and hand a Report to a Notifier.
package follow
