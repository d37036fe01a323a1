// Package sync keeps the local assignment cache consistent across optimistic
// local edits, the database change-feed, cross-device and same-process
// broadcasts, and forced refreshes.
package sync

import (
	stdsync "sync"
	"time"

	"dandori/sync/internal/assignment"
)

// Window is the [Start, End] date interval currently mirrored into the store.
// Only assignments dated inside it are guaranteed present.
type Window struct {
	Start time.Time
	End   time.Time
}

// Equal compares windows at day granularity.
func (w Window) Equal(other Window) bool {
	return assignment.DayOf(w.Start).Equal(assignment.DayOf(other.Start)) &&
		assignment.DayOf(w.End).Equal(assignment.DayOf(other.End))
}

// Contains reports whether day falls inside the window, inclusive.
func (w Window) Contains(day time.Time) bool {
	d := assignment.DayOf(day)
	return !d.Before(assignment.DayOf(w.Start)) && !d.After(assignment.DayOf(w.End))
}

// Store holds the currently loaded assignments and the window they cover.
// Every mutator (optimistic writer, channel merger, poller) goes through the
// same entry points; the mutex serializes them.
type Store struct {
	mu          stdsync.Mutex
	window      *Window
	assignments []assignment.Assignment
}

// NewStore returns an empty store with no loaded window.
func NewStore() *Store {
	return &Store{}
}

// Window returns the loaded window, or ok=false before the first range load.
func (s *Store) Window() (Window, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.window == nil {
		return Window{}, false
	}
	return *s.window, true
}

// Snapshot returns a deep copy of the current collection.
func (s *Store) Snapshot() []assignment.Assignment {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]assignment.Assignment, 0, len(s.assignments))
	for _, a := range s.assignments {
		out = append(out, a.Clone())
	}
	return out
}

// Get returns a copy of the assignment with the given id.
func (s *Store) Get(id string) (assignment.Assignment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.assignments {
		if a.ID == id {
			return a.Clone(), true
		}
	}
	return assignment.Assignment{}, false
}

// Len returns the number of cached assignments.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.assignments)
}

// ReplaceAll swaps in a freshly fetched collection and records its window.
func (s *Store) ReplaceAll(w Window, list []assignment.Assignment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	win := Window{Start: assignment.DayOf(w.Start), End: assignment.DayOf(w.End)}
	s.window = &win
	s.assignments = make([]assignment.Assignment, 0, len(list))
	for _, a := range list {
		s.assignments = append(s.assignments, a.Clone())
	}
}

// UpsertOne merges by id: replaces an existing entry or appends a new one.
// Used by both the local confirmation path and the remote-merge path.
func (s *Store) UpsertOne(a assignment.Assignment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.assignments {
		if s.assignments[i].ID == a.ID {
			s.assignments[i] = a.Clone()
			return
		}
	}
	s.assignments = append(s.assignments, a.Clone())
}

// MergeRemote applies a remotely fetched record only when it is not older
// than the cached copy, judged by UpdatedAt. A late-resolving stale fetch is
// dropped instead of clobbering a newer record. Returns whether it applied.
func (s *Store) MergeRemote(a assignment.Assignment) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.assignments {
		if s.assignments[i].ID == a.ID {
			if a.UpdatedAt.Before(s.assignments[i].UpdatedAt) {
				return false
			}
			s.assignments[i] = a.Clone()
			return true
		}
	}
	s.assignments = append(s.assignments, a.Clone())
	return true
}

// RemoveByID removes the entry with that id; no-op if absent.
func (s *Store) RemoveByID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.assignments {
		if s.assignments[i].ID == id {
			s.assignments = append(s.assignments[:i], s.assignments[i+1:]...)
			return
		}
	}
}

// ReplaceMasterSnapshot swaps the embedded project-master snapshot on every
// cached assignment referencing pm.ID. One master change fans out to all of
// its assignments.
func (s *Store) ReplaceMasterSnapshot(pm assignment.ProjectMasterSnapshot) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for i := range s.assignments {
		if s.assignments[i].ProjectMasterID == pm.ID {
			snap := pm
			s.assignments[i].ProjectMaster = &snap
			n++
		}
	}
	return n
}

// Reset clears the window and collection. Used on sign-out.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.window = nil
	s.assignments = nil
}
