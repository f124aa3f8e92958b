package state

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/five82/snout/internal/e621"
	"github.com/five82/snout/internal/store"
)

func TestStore_UpdateAndSnapshotClone(t *testing.T) {
	var s Store

	before := time.Now()
	s.Update(&e621.User{ID: 123, Name: "fox"}, 2, nil)
	s.UpdateFollows([]store.FollowedTag{{Tag: "wolf", NewCount: 3}, {Tag: "cat", NewCount: 1}}, before)

	snap := s.Snapshot()
	if !snap.HasUser || snap.User.ID != 123 {
		t.Fatalf("snapshot user = %#v, want id=123 HasUser=true", snap.User)
	}
	if snap.UnreadDmails != 2 {
		t.Fatalf("UnreadDmails = %d, want 2", snap.UnreadDmails)
	}
	if len(snap.Follows) != 2 || snap.NewPosts() != 4 {
		t.Fatalf("snapshot follows = %#v, want 2 tags with 4 new posts", snap.Follows)
	}
	if !snap.FollowsCheckedAt.Equal(before) {
		t.Fatalf("FollowsCheckedAt = %v, want %v", snap.FollowsCheckedAt, before)
	}
	if snap.LastUpdated.Before(before) {
		t.Fatalf("LastUpdated = %v, want >= %v", snap.LastUpdated, before)
	}
	if snap.LastError != nil {
		t.Fatalf("LastError = %v, want nil", snap.LastError)
	}

	// Returned snapshot should be independent of the stored one.
	snap.Follows[0].NewCount = 999
	snap2 := s.Snapshot()
	if snap2.Follows[0].NewCount != 3 {
		t.Fatalf("Snapshot should clone follows; got %d want 3", snap2.Follows[0].NewCount)
	}
}

func TestStore_UpdateErrorKeepsPreviousData(t *testing.T) {
	var s Store

	s.Update(&e621.User{ID: 1}, 5, nil)
	prev := s.Snapshot()

	before := time.Now()
	origErr := errors.New("boom")
	s.Update(nil, 0, origErr)

	snap := s.Snapshot()
	if snap.HasUser != prev.HasUser || snap.User.ID != prev.User.ID {
		t.Fatalf("user changed on error: got %#v want %#v", snap.User, prev.User)
	}
	if snap.UnreadDmails != 5 {
		t.Fatalf("UnreadDmails changed on error: got %d want 5", snap.UnreadDmails)
	}
	if snap.LastUpdated.Before(before) {
		t.Fatalf("LastUpdated = %v, want >= %v", snap.LastUpdated, before)
	}
	if snap.LastError == nil || snap.LastError.Error() != "boom" {
		t.Fatalf("LastError = %v, want boom", snap.LastError)
	}
	if reflect.ValueOf(snap.LastError).Pointer() == reflect.ValueOf(origErr).Pointer() {
		t.Fatalf("Snapshot should clone error instance")
	}
	if !errors.Is(snap.LastError, origErr) {
		t.Fatalf("cloned error should wrap the original")
	}
}

func TestStore_AnonymousUpdateClearsUser(t *testing.T) {
	var s Store

	s.Update(&e621.User{ID: 7}, 1, nil)
	s.Update(nil, 0, nil)

	snap := s.Snapshot()
	if snap.HasUser || snap.User.ID != 0 {
		t.Fatalf("user = %#v, want cleared", snap.User)
	}
}

func TestStore_UpdateFollowsKeepsCheckTime(t *testing.T) {
	var s Store

	checked := time.Unix(1_700_000_000, 0)
	s.UpdateFollows([]store.FollowedTag{{Tag: "fox"}}, checked)
	s.UpdateFollows(nil, time.Time{})

	snap := s.Snapshot()
	if snap.Follows != nil {
		t.Fatalf("Follows = %#v, want nil", snap.Follows)
	}
	if !snap.FollowsCheckedAt.Equal(checked) {
		t.Fatalf("FollowsCheckedAt = %v, want %v", snap.FollowsCheckedAt, checked)
	}
}

func TestStore_ConsecutiveFailures(t *testing.T) {
	var s Store

	// Initially zero failures
	snap := s.Snapshot()
	if snap.ConsecutiveFailures != 0 {
		t.Fatalf("ConsecutiveFailures = %d, want 0", snap.ConsecutiveFailures)
	}
	if snap.IsOffline() {
		t.Fatal("IsOffline() = true, want false with 0 failures")
	}

	// First failure
	s.Update(nil, 0, errors.New("fail 1"))
	snap = s.Snapshot()
	if snap.ConsecutiveFailures != 1 {
		t.Fatalf("ConsecutiveFailures = %d, want 1", snap.ConsecutiveFailures)
	}
	if snap.IsOffline() {
		t.Fatal("IsOffline() = true, want false with 1 failure")
	}

	// Second failure - now offline
	s.Update(nil, 0, errors.New("fail 2"))
	snap = s.Snapshot()
	if !snap.IsOffline() {
		t.Fatal("IsOffline() = false, want true with 2 failures")
	}

	// Success resets counter
	s.Update(nil, 0, nil)
	snap = s.Snapshot()
	if snap.ConsecutiveFailures != 0 {
		t.Fatalf("ConsecutiveFailures = %d, want 0 after success", snap.ConsecutiveFailures)
	}
	if snap.IsOffline() {
		t.Fatal("IsOffline() = true, want false after success")
	}
}
