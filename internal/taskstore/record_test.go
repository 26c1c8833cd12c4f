package taskstore

import (
	"strings"
	"testing"

	"github.com/aide-sh/aide/pkg/models"
)

func TestParseList_Empty(t *testing.T) {
	if tasks := ParseList(""); len(tasks) != 0 {
		t.Errorf("ParseList(\"\") = %d tasks, want 0", len(tasks))
	}
}

func TestParseList_Defaults(t *testing.T) {
	content := "## Bare task\nid: bare-task\nnotes:\n"
	tasks := ParseList(content)
	if len(tasks) != 1 {
		t.Fatalf("parsed %d tasks, want 1", len(tasks))
	}

	task := tasks[0]
	if task.Status != models.TaskStatusOpen {
		t.Errorf("default status = %q, want open", task.Status)
	}
	if task.Priority != models.PriorityNone {
		t.Errorf("default priority = %q, want none", task.Priority)
	}
	if task.DaysInToday != 0 {
		t.Errorf("default days_in_today = %d, want 0", task.DaysInToday)
	}
	if task.ParentID != "" || task.Deadline != "" || task.TargetDate != "" {
		t.Error("unset string fields should be empty")
	}
}

func TestParseList_DropsRecordWithoutID(t *testing.T) {
	content := "## Has no id\nstatus: open\nnotes:\n\n## Has id\nid: has-id\nnotes:\n"
	tasks := ParseList(content)
	if len(tasks) != 1 {
		t.Fatalf("parsed %d tasks, want 1", len(tasks))
	}
	if tasks[0].ID != "has-id" {
		t.Errorf("kept task id = %q, want has-id", tasks[0].ID)
	}
}

func TestParseList_IgnoresUnknownKeys(t *testing.T) {
	content := "## Task\nid: task\nfuture_field: whatever\nnotes:\n"
	tasks := ParseList(content)
	if len(tasks) != 1 {
		t.Fatalf("parsed %d tasks, want 1", len(tasks))
	}
}

func TestParseList_Notes(t *testing.T) {
	content := strings.Join([]string{
		"## Noted",
		"id: noted",
		"notes:",
		"- [2025-03-01 10:00] aide: first",
		"- [2025-03-01 11:00] agent-x: second",
		"",
	}, "\n")

	tasks := ParseList(content)
	if len(tasks) != 1 {
		t.Fatalf("parsed %d tasks, want 1", len(tasks))
	}
	notes := tasks[0].Notes
	if len(notes) != 2 {
		t.Fatalf("notes count = %d, want 2", len(notes))
	}
	if notes[0] != "[2025-03-01 10:00] aide: first" {
		t.Errorf("note[0] = %q", notes[0])
	}
}

func fullTask() *models.Task {
	return &models.Task{
		Title:         "Ship quarterly report",
		ID:            "ship-quarterly-report",
		ParentID:      "q1-goals",
		Subtasks:      []string{"draft-outline", "gather-numbers"},
		Status:        models.TaskStatusCompleted,
		Priority:      models.PriorityHigh,
		TargetDate:    "2025-03-01",
		DaysInToday:   2,
		CompletedDate: "2025-03-02",
		Attachments:   []string{"report.md", "numbers.csv"},
		Notes:         []string{"[2025-03-02 09:00] aide: done"},
	}
}

func TestRoundTrip(t *testing.T) {
	serialized := SerializeList([]*models.Task{fullTask()})

	reparsed := ParseList(serialized)
	if len(reparsed) != 1 {
		t.Fatalf("reparsed %d tasks, want 1", len(reparsed))
	}

	// serialize(parse(serialize(x))) must equal serialize(x).
	again := SerializeList(reparsed)
	if again != serialized {
		t.Errorf("round-trip mismatch:\nfirst:\n%s\nsecond:\n%s", serialized, again)
	}
}

func TestRoundTrip_MinimalTask(t *testing.T) {
	task := &models.Task{
		Title:      "Small thing",
		ID:         "small-thing",
		Status:     models.TaskStatusOpen,
		Priority:   models.PriorityNone,
		TargetDate: "2025-06-01",
	}
	serialized := SerializeList([]*models.Task{task})
	if SerializeList(ParseList(serialized)) != serialized {
		t.Error("minimal task should round-trip byte-identically")
	}
	if strings.Contains(serialized, "completed_date") {
		t.Error("unset completed_date should not be serialized")
	}
	if strings.Contains(serialized, "attachments") {
		t.Error("empty attachments should not be serialized")
	}
}

func TestSerializeList_FieldOrder(t *testing.T) {
	serialized := SerializeList([]*models.Task{fullTask()})
	keys := []string{"## ", "id:", "parent_id:", "subtasks:", "status:", "priority:",
		"deadline:", "target_date:", "days_in_today:", "completed_date:", "attachments:", "notes:"}

	pos := -1
	for _, key := range keys {
		i := strings.Index(serialized, key)
		if i < 0 {
			t.Fatalf("serialized record missing %q", key)
		}
		if i < pos {
			t.Errorf("key %q out of order", key)
		}
		pos = i
	}
}

func TestSerializeList_MultipleBlocks(t *testing.T) {
	a := fullTask()
	b := &models.Task{Title: "Other", ID: "other", Status: models.TaskStatusOpen,
		Priority: models.PriorityNone, Deadline: "2025-04-01"}

	tasks := ParseList(SerializeList([]*models.Task{a, b}))
	if len(tasks) != 2 {
		t.Fatalf("parsed %d tasks, want 2", len(tasks))
	}
	if tasks[0].ID != a.ID || tasks[1].ID != b.ID {
		t.Error("block order not preserved")
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Ship report", "ship-report"},
		{"Ship  report", "ship-report"},
		{"Fix bug #42 (urgent!)", "fix-bug-42-urgent"},
		{"UPPER Case", "upper-case"},
		{"  padded  ", "padded"},
		{"???", ""},
	}
	for _, tt := range tests {
		if got := Slugify(tt.title); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.title, got, tt.want)
		}
	}
}

func TestSlugify_Truncates(t *testing.T) {
	long := strings.Repeat("word ", 30)
	slug := Slugify(long)
	if len(slug) > 50 {
		t.Errorf("slug length = %d, want <= 50", len(slug))
	}
	if strings.HasSuffix(slug, "-") {
		t.Errorf("slug %q should not end with a hyphen", slug)
	}
}
