package taskstore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aide-sh/aide/pkg/models"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s := New(t.TempDir())
	s.now = func() time.Time {
		return time.Date(2025, 3, 2, 9, 30, 0, 0, time.UTC)
	}
	return s
}

func TestCreate_RequiresDate(t *testing.T) {
	s := testStore(t)

	_, err := s.Create(CreateInput{Title: "No dates"}, "aide")
	if err == nil {
		t.Fatal("create without deadline or target_date should fail")
	}

	_, err = s.Create(CreateInput{Title: "Both dates", Deadline: "2025-04-01", TargetDate: "2025-04-02"}, "aide")
	if err == nil {
		t.Fatal("create with both deadline and target_date should fail")
	}

	task, err := s.Create(CreateInput{Title: "One date", TargetDate: "2025-04-01"}, "aide")
	if err != nil {
		t.Fatalf("create with target_date failed: %v", err)
	}
	if task.ID != "one-date" {
		t.Errorf("id = %q, want one-date", task.ID)
	}
}

func TestCreate_UniqueAcrossAllLists(t *testing.T) {
	s := testStore(t)

	first, err := s.Create(CreateInput{Title: "Ship report", TargetDate: "2025-03-01"}, "aide")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.MarkDone(first.ID, "", "aide"); err != nil {
		t.Fatal(err)
	}

	// The original now lives only in the done archive; the slug must
	// still be treated as taken.
	second, err := s.Create(CreateInput{Title: "Ship report", TargetDate: "2025-05-01"}, "aide")
	if err != nil {
		t.Fatal(err)
	}
	if second.ID != "ship-report-1" {
		t.Errorf("second id = %q, want ship-report-1", second.ID)
	}

	third, err := s.Create(CreateInput{Title: "Ship report", TargetDate: "2025-06-01"}, "aide")
	if err != nil {
		t.Fatal(err)
	}
	if third.ID != "ship-report-2" {
		t.Errorf("third id = %q, want ship-report-2", third.ID)
	}
}

func TestCreate_LinksParentSubtasks(t *testing.T) {
	s := testStore(t)

	parent, err := s.Create(CreateInput{Title: "Parent", TargetDate: "2025-03-01"}, "aide")
	if err != nil {
		t.Fatal(err)
	}
	child, err := s.Create(CreateInput{Title: "Child", TargetDate: "2025-03-01", ParentID: parent.ID}, "aide")
	if err != nil {
		t.Fatal(err)
	}

	got, _, err := s.Get(parent.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Subtasks) != 1 || got.Subtasks[0] != child.ID {
		t.Errorf("parent subtasks = %v, want [%s]", got.Subtasks, child.ID)
	}
	if child.ParentID != parent.ID {
		t.Errorf("child parent_id = %q, want %q", child.ParentID, parent.ID)
	}
}

func TestCreate_MissingParent(t *testing.T) {
	s := testStore(t)
	_, err := s.Create(CreateInput{Title: "Orphan", TargetDate: "2025-03-01", ParentID: "ghost"}, "aide")
	if err == nil {
		t.Fatal("create with missing parent should fail")
	}
}

func TestGet_AbsentIsNil(t *testing.T) {
	s := testStore(t)
	task, _, err := s.Get("nothing-here")
	if err != nil {
		t.Fatalf("get on empty store errored: %v", err)
	}
	if task != nil {
		t.Errorf("task = %+v, want nil", task)
	}
}

func TestList_MissingFilesAreEmptyLists(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "never-created"))
	out, err := s.List(ListFilter{})
	if err != nil {
		t.Fatalf("list over absent files errored: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("list = %d rows, want 0", len(out))
	}
}

func TestUpdate_NotesAreAppendOnly(t *testing.T) {
	s := testStore(t)

	task, err := s.Create(CreateInput{Title: "Noted", TargetDate: "2025-03-01",
		Notes: []string{"first"}}, "aide")
	if err != nil {
		t.Fatal(err)
	}
	before := len(task.Notes)

	updated, err := s.Update(task.ID, UpdatePatch{AddNotes: []string{"second", "third"}}, "agent-x")
	if err != nil {
		t.Fatal(err)
	}
	if len(updated.Notes) != before+2 {
		t.Fatalf("notes count = %d, want %d", len(updated.Notes), before+2)
	}
	if !strings.Contains(updated.Notes[0], "first") {
		t.Error("pre-existing note was lost")
	}
	if !strings.Contains(updated.Notes[1], "agent-x") {
		t.Errorf("appended note %q should carry its author", updated.Notes[1])
	}
}

func TestUpdate_PatchSemantics(t *testing.T) {
	s := testStore(t)

	task, err := s.Create(CreateInput{Title: "Patch me", TargetDate: "2025-03-01"}, "aide")
	if err != nil {
		t.Fatal(err)
	}

	high := models.PriorityHigh
	updated, err := s.Update(task.ID, UpdatePatch{Priority: &high}, "aide")
	if err != nil {
		t.Fatal(err)
	}
	if updated.Priority != models.PriorityHigh {
		t.Errorf("priority = %q, want high", updated.Priority)
	}
	// Absent fields stay untouched.
	if updated.Title != "Patch me" || updated.TargetDate != "2025-03-01" {
		t.Error("fields absent from the patch were modified")
	}
}

func TestUpdate_UnknownTask(t *testing.T) {
	s := testStore(t)
	if _, err := s.Update("ghost", UpdatePatch{}, "aide"); err == nil {
		t.Fatal("update of unknown task should fail")
	}
}

// TestScenario_CreateListUpdateDone walks the end-to-end store scenario:
// create in backlog, filter by priority, raise priority, mark done.
func TestScenario_CreateListUpdateDone(t *testing.T) {
	s := testStore(t)

	task, err := s.Create(CreateInput{Title: "Ship report", TargetDate: "2025-03-01"}, "aide")
	if err != nil {
		t.Fatal(err)
	}
	if task.ID != "ship-report" {
		t.Fatalf("id = %q, want ship-report", task.ID)
	}

	rows, err := s.List(ListFilter{Priority: models.PriorityHigh})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 0 {
		t.Fatalf("high-priority list = %d rows, want 0", len(rows))
	}

	high := models.PriorityHigh
	if _, err := s.Update(task.ID, UpdatePatch{Priority: &high}, "aide"); err != nil {
		t.Fatal(err)
	}

	rows, err = s.List(ListFilter{Priority: models.PriorityHigh})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("high-priority list = %d rows, want 1", len(rows))
	}
	if rows[0].ID != "ship-report" || rows[0].NotesCount != 0 {
		t.Errorf("row = %+v, want ship-report with notes_count 0", rows[0])
	}
	if rows[0].List != models.ListBacklog {
		t.Errorf("row list = %q, want backlog", rows[0].List)
	}

	done, err := s.MarkDone(task.ID, "done", "aide")
	if err != nil {
		t.Fatal(err)
	}
	if done.Status != models.TaskStatusCompleted {
		t.Errorf("status = %q, want completed", done.Status)
	}
	if done.CompletedDate != "2025-03-02" {
		t.Errorf("completed_date = %q, want 2025-03-02", done.CompletedDate)
	}

	// Gone from the active lists.
	if got, _, _ := s.Get(task.ID); got != nil {
		t.Error("task should no longer be readable from active lists")
	}

	// Present in the done archive file.
	content, err := os.ReadFile(s.ListPath(models.ListDone))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(content), "id: ship-report") {
		t.Error("done archive should contain the record")
	}
	if !strings.Contains(string(content), "status: completed") {
		t.Error("archived record should carry status completed")
	}
}

func TestMove_Idempotent(t *testing.T) {
	s := testStore(t)

	task, err := s.Create(CreateInput{Title: "Mover", TargetDate: "2025-03-01"}, "aide")
	if err != nil {
		t.Fatal(err)
	}

	moved, err := s.Move(task.ID, models.ListBacklog)
	if err != nil {
		t.Fatalf("no-op move errored: %v", err)
	}
	if moved {
		t.Error("moving to current list should report no change")
	}

	// Still exactly one record.
	rows, err := s.List(ListFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("list = %d rows after no-op move, want 1", len(rows))
	}
}

func TestMove_UpdatesDaysInToday(t *testing.T) {
	s := testStore(t)

	task, err := s.Create(CreateInput{Title: "Mover", TargetDate: "2025-03-01"}, "aide")
	if err != nil {
		t.Fatal(err)
	}

	moved, err := s.Move(task.ID, models.ListToday)
	if err != nil {
		t.Fatal(err)
	}
	if !moved {
		t.Fatal("move to today should report a change")
	}
	got, list, _ := s.Get(task.ID)
	if list != models.ListToday {
		t.Errorf("list = %q, want today", list)
	}
	if got.DaysInToday != 1 {
		t.Errorf("days_in_today = %d, want 1", got.DaysInToday)
	}

	if _, err := s.Move(task.ID, models.ListDueSoon); err != nil {
		t.Fatal(err)
	}
	got, _, _ = s.Get(task.ID)
	if got.DaysInToday != 0 {
		t.Errorf("days_in_today after leaving today = %d, want 0", got.DaysInToday)
	}
}

func TestMove_RejectsArchiveDestination(t *testing.T) {
	s := testStore(t)
	task, err := s.Create(CreateInput{Title: "Mover", TargetDate: "2025-03-01"}, "aide")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Move(task.ID, models.ListDone); err == nil {
		t.Fatal("moving into an archive list should fail")
	}
}

func TestAttachFile(t *testing.T) {
	s := testStore(t)

	task, err := s.Create(CreateInput{Title: "With files", TargetDate: "2025-03-01"}, "aide")
	if err != nil {
		t.Fatal(err)
	}

	src := filepath.Join(t.TempDir(), "deliverable.md")
	if err := os.WriteFile(src, []byte("# Draft"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := s.AttachFile(task.ID, src, "agent-x"); err != nil {
		t.Fatalf("attach failed: %v", err)
	}

	copied, err := os.ReadFile(filepath.Join(s.AttachmentsDir(task.ID), "deliverable.md"))
	if err != nil {
		t.Fatalf("attachment not copied: %v", err)
	}
	if string(copied) != "# Draft" {
		t.Error("attachment content mismatch")
	}

	names, err := s.Attachments(task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 1 || names[0] != "deliverable.md" {
		t.Errorf("attachments = %v", names)
	}

	got, _, _ := s.Get(task.ID)
	if len(got.Notes) == 0 || !strings.Contains(got.Notes[len(got.Notes)-1], "agent-x") {
		t.Error("attach should append an attribution note")
	}

	// Attaching the same filename twice must not duplicate the entry.
	if err := s.AttachFile(task.ID, src, "agent-x"); err != nil {
		t.Fatal(err)
	}
	names, _ = s.Attachments(task.ID)
	if len(names) != 1 {
		t.Errorf("attachments after re-attach = %v, want one entry", names)
	}
}

func TestWatcher_SignalsListWrites(t *testing.T) {
	s := testStore(t)
	// The directory must exist before fsnotify can watch it.
	if _, err := s.Create(CreateInput{Title: "Seed", TargetDate: "2025-03-01"}, "aide"); err != nil {
		t.Fatal(err)
	}

	w, err := Watch(s)
	if err != nil {
		t.Fatalf("watch failed: %v", err)
	}
	defer w.Close()

	if _, err := s.Create(CreateInput{Title: "Trigger", TargetDate: "2025-03-01"}, "aide"); err != nil {
		t.Fatal(err)
	}

	select {
	case list := <-w.Changes():
		if list != models.ListBacklog {
			t.Errorf("changed list = %q, want backlog", list)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no change notification received")
	}
}
