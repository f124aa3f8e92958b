// Package app is the composition root for snout.
//
// Open builds an Env: config and prefs are loaded, logging is pointed at the
// configured file, credentials are unlocked from the vault when a passphrase
// is given, and the SQLite store and e621 client are created. CLI commands
// use an Env directly; Run adds the pieces the TUI needs.
//
// Two background workers feed state.Store, which the UI copies on every tick:
//
//   - StartPoller refreshes the signed-in user and unread dmail count.
//     Consecutive failures back off exponentially up to 30 minutes.
//   - FollowService schedules follow.Checker through schedule.CronScheduler
//     and republishes the followed tags after every check.
//
// Failed polls are logged with zap and appended to the error log unless the
// user turned it off with error_log_enabled.
package app
