package models

import "testing"

func TestTaskStatus_Valid(t *testing.T) {
	for _, s := range []TaskStatus{TaskStatusOpen, TaskStatusCompleted, TaskStatusDropped} {
		if !s.Valid() {
			t.Errorf("status %q should be valid", s)
		}
	}
	if TaskStatus("archived").Valid() {
		t.Error("unknown status should not be valid")
	}
}

func TestPriority_Valid(t *testing.T) {
	for _, p := range []Priority{PriorityHigh, PriorityMedium, PriorityLow, PriorityNone} {
		if !p.Valid() {
			t.Errorf("priority %q should be valid", p)
		}
	}
	if Priority("urgent").Valid() {
		t.Error("unknown priority should not be valid")
	}
}

func TestListName_Active(t *testing.T) {
	tests := []struct {
		list   ListName
		active bool
	}{
		{ListToday, true},
		{ListDueSoon, true},
		{ListBacklog, true},
		{ListDone, false},
		{ListDropped, false},
	}
	for _, tt := range tests {
		if got := tt.list.Active(); got != tt.active {
			t.Errorf("%s.Active() = %v, want %v", tt.list, got, tt.active)
		}
	}
}

func TestListOrders(t *testing.T) {
	if len(ActiveLists) != 3 {
		t.Fatalf("ActiveLists count = %d, want 3", len(ActiveLists))
	}
	if len(AllLists) != 5 {
		t.Fatalf("AllLists count = %d, want 5", len(AllLists))
	}
	// Read scans first-match-wins across the active lists, so today must
	// come before due_soon and backlog.
	if ActiveLists[0] != ListToday {
		t.Errorf("ActiveLists[0] = %s, want today", ActiveLists[0])
	}
	for i, l := range ActiveLists {
		if AllLists[i] != l {
			t.Errorf("AllLists[%d] = %s, want %s", i, AllLists[i], l)
		}
	}
}
