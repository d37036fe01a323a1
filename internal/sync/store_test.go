package sync

import (
	"reflect"
	"testing"
	"time"

	"dandori/sync/internal/assignment"
)

func day(s string) time.Time {
	t, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		panic(err)
	}
	return t
}

func testWindow() Window {
	return Window{Start: day("2026-03-01"), End: day("2026-03-31")}
}

func seeded(t *testing.T, list ...assignment.Assignment) *Store {
	t.Helper()
	s := NewStore()
	s.ReplaceAll(testWindow(), list)
	return s
}

func TestUpsertOneAppendsThenReplaces(t *testing.T) {
	s := seeded(t)
	s.UpsertOne(assignment.Assignment{ID: "a1", Remarks: "first"})
	if s.Len() != 1 {
		t.Fatalf("len = %d, want 1", s.Len())
	}
	s.UpsertOne(assignment.Assignment{ID: "a1", Remarks: "second"})
	if s.Len() != 1 {
		t.Fatalf("len after replace = %d, want 1", s.Len())
	}
	got, _ := s.Get("a1")
	if got.Remarks != "second" {
		t.Errorf("remarks = %q, want %q", got.Remarks, "second")
	}
}

func TestRemoveByID(t *testing.T) {
	s := seeded(t,
		assignment.Assignment{ID: "a1", Date: day("2026-03-10")},
		assignment.Assignment{ID: "a2", Date: day("2026-03-11")},
	)
	s.RemoveByID("a1")
	if _, ok := s.Get("a1"); ok {
		t.Error("a1 still present after remove")
	}
	if _, ok := s.Get("a2"); !ok {
		t.Error("a2 removed unexpectedly")
	}

	// Removing an absent id is a no-op.
	before := s.Snapshot()
	s.RemoveByID("missing")
	if !reflect.DeepEqual(before, s.Snapshot()) {
		t.Error("removing absent id changed the cache")
	}
}

func TestMergeRemoteDropsStaleRecord(t *testing.T) {
	s := seeded(t, assignment.Assignment{
		ID:        "a1",
		Remarks:   "newer",
		UpdatedAt: day("2026-03-10").Add(12 * time.Hour),
	})

	stale := assignment.Assignment{
		ID:        "a1",
		Remarks:   "older",
		UpdatedAt: day("2026-03-10"),
	}
	if s.MergeRemote(stale) {
		t.Error("stale record applied")
	}
	got, _ := s.Get("a1")
	if got.Remarks != "newer" {
		t.Errorf("remarks = %q, stale merge clobbered newer record", got.Remarks)
	}

	fresh := stale
	fresh.Remarks = "freshest"
	fresh.UpdatedAt = day("2026-03-11")
	if !s.MergeRemote(fresh) {
		t.Error("newer record rejected")
	}
	got, _ = s.Get("a1")
	if got.Remarks != "freshest" {
		t.Errorf("remarks = %q, want %q", got.Remarks, "freshest")
	}
}

func TestReplaceMasterSnapshotFansOut(t *testing.T) {
	pm := &assignment.ProjectMasterSnapshot{ID: "pm1", Title: "Old title", CustomerName: "Old customer"}
	other := &assignment.ProjectMasterSnapshot{ID: "pm2", Title: "Unrelated"}
	s := seeded(t,
		assignment.Assignment{ID: "a1", ProjectMasterID: "pm1", ProjectMaster: pm},
		assignment.Assignment{ID: "a2", ProjectMasterID: "pm1", ProjectMaster: pm},
		assignment.Assignment{ID: "a3", ProjectMasterID: "pm2", ProjectMaster: other},
	)

	n := s.ReplaceMasterSnapshot(assignment.ProjectMasterSnapshot{
		ID: "pm1", Title: "New title", CustomerName: "New customer",
	})
	if n != 2 {
		t.Fatalf("replaced %d snapshots, want 2", n)
	}
	for _, id := range []string{"a1", "a2"} {
		got, _ := s.Get(id)
		if got.ProjectMaster.Title != "New title" || got.ProjectMaster.CustomerName != "New customer" {
			t.Errorf("%s snapshot = %+v, want refreshed", id, got.ProjectMaster)
		}
	}
	got, _ := s.Get("a3")
	if got.ProjectMaster.Title != "Unrelated" {
		t.Errorf("unrelated assignment touched: %+v", got.ProjectMaster)
	}
}

func TestResetClearsWindowAndCollection(t *testing.T) {
	s := seeded(t, assignment.Assignment{ID: "a1"})
	s.Reset()
	if s.Len() != 0 {
		t.Errorf("len = %d after reset", s.Len())
	}
	if _, ok := s.Window(); ok {
		t.Error("window still loaded after reset")
	}
}

func TestSnapshotIsDetached(t *testing.T) {
	s := seeded(t, assignment.Assignment{ID: "a1", Workers: []string{"w1"}})
	snap := s.Snapshot()
	snap[0].Workers[0] = "changed"
	got, _ := s.Get("a1")
	if got.Workers[0] != "w1" {
		t.Error("snapshot shares memory with the store")
	}
}

func TestWindowContains(t *testing.T) {
	w := testWindow()
	if !w.Contains(day("2026-03-01")) || !w.Contains(day("2026-03-31")) {
		t.Error("window bounds not inclusive")
	}
	if w.Contains(day("2026-04-01")) || w.Contains(day("2026-02-28")) {
		t.Error("window contains dates outside bounds")
	}
}
