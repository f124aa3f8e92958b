package state

import (
	"fmt"
	"sync"
	"time"

	"github.com/five82/snout/internal/e621"
	"github.com/five82/snout/internal/store"
)

// Snapshot represents the latest data available to the UI.
type Snapshot struct {
	User                e621.User
	HasUser             bool
	UnreadDmails        int
	Follows             []store.FollowedTag
	FollowsCheckedAt    time.Time
	LastUpdated         time.Time
	LastError           error
	ConsecutiveFailures int // Number of consecutive poll failures
}

// IsOffline returns true when the API has been unreachable for multiple polls.
func (s Snapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

// NewPosts sums unseen posts across followed tags.
func (s Snapshot) NewPosts() int {
	total := 0
	for _, f := range s.Follows {
		total += f.NewCount
	}
	return total
}

// Store coordinates concurrent updates to the snapshot.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
}

// Update records the result of an account poll. When err is non-nil the
// previous data is kept but the error is recorded for visibility. A nil user
// means the client is anonymous.
func (s *Store) Update(user *e621.User, unread int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.snapshot.LastError = err
		s.snapshot.LastUpdated = time.Now()
		s.snapshot.ConsecutiveFailures++
		return
	}

	if user != nil {
		s.snapshot.User = *user
		s.snapshot.HasUser = true
	} else {
		s.snapshot.User = e621.User{}
		s.snapshot.HasUser = false
	}
	s.snapshot.UnreadDmails = unread
	s.snapshot.LastError = nil
	s.snapshot.LastUpdated = time.Now()
	s.snapshot.ConsecutiveFailures = 0
}

// UpdateFollows replaces the followed tag list after a check or an edit.
func (s *Store) UpdateFollows(follows []store.FollowedTag, checkedAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.Follows = cloneFollows(follows)
	if !checkedAt.IsZero() {
		s.snapshot.FollowsCheckedAt = checkedAt
	}
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.Follows = cloneFollows(s.snapshot.Follows)
	if s.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snapshot.LastError)
	}
	return snap
}

func cloneFollows(items []store.FollowedTag) []store.FollowedTag {
	if len(items) == 0 {
		return nil
	}
	dup := make([]store.FollowedTag, len(items))
	copy(dup, items)
	return dup
}
