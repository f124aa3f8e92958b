// Package state provides thread-safe state shared between snout's
// background pollers and the UI.
//
// # Overview
//
// The account poller and the followed-tag checker both publish into a
// Store; the UI reads a Snapshot on every refresh tick and renders the
// status bar from it (signed-in user, unread dmails, new posts, offline).
//
//	Producers:                       Consumer (UI):
//	┌──────────────────────┐        ┌─────────────────┐
//	│ CurrentUser()        │        │                 │
//	│ UnreadDmailCount()   │        │                 │
//	│   → store.Update()   │───────→│ store.Snapshot()│
//	│ follow checker       │ (mutex)│      ↓          │
//	│   → UpdateFollows()  │        │  render status  │
//	└──────────────────────┘        └─────────────────┘
//
// # Update Semantics
//
//	// Success: replace account data, reset the failure counter
//	store.Update(user, unread, nil)
//
//	// Error: keep old data, record the error, count the failure
//	store.Update(nil, 0, err)
//
// A Snapshot with two or more consecutive failures reports IsOffline, which
// the UI shows instead of stale counts.
//
// # Copying
//
// Snapshot returns copies: the follows slice is cloned and the error is
// re-wrapped, so the UI may hold a snapshot while pollers keep writing.
//
// The zero Store is ready to use.
package state
