package tools

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aide-sh/aide/internal/taskstore"
	"github.com/aide-sh/aide/pkg/models"
)

func testExecutor(t *testing.T) (*Executor, *models.Agent) {
	t.Helper()
	exec := NewExecutor(taskstore.New(t.TempDir()))
	ag := &models.Agent{
		ID:           "agent-1",
		Name:         "report-writer",
		WorkspaceDir: t.TempDir(),
	}
	return exec, ag
}

func run(t *testing.T, e *Executor, ag *models.Agent, tool, input string) Result {
	t.Helper()
	return e.Execute(context.Background(), ag, tool, json.RawMessage(input))
}

func TestWriteReadFile(t *testing.T) {
	e, ag := testExecutor(t)

	res := run(t, e, ag, ToolWriteFile, `{"filename":"notes/draft.md","content":"hello"}`)
	if res.IsError {
		t.Fatalf("write_file failed: %s", res.Content)
	}
	if len(ag.CreatedFiles) != 1 || ag.CreatedFiles[0] != "notes/draft.md" {
		t.Errorf("CreatedFiles = %v", ag.CreatedFiles)
	}
	if ag.PrimaryArtifact != "notes/draft.md" {
		t.Errorf("PrimaryArtifact = %q", ag.PrimaryArtifact)
	}

	res = run(t, e, ag, ToolReadFile, `{"filename":"notes/draft.md"}`)
	if res.IsError {
		t.Fatalf("read_file failed: %s", res.Content)
	}
	if res.Content != "hello" {
		t.Errorf("content = %q, want hello", res.Content)
	}
}

func TestWriteFile_RewriteDoesNotDuplicate(t *testing.T) {
	e, ag := testExecutor(t)

	run(t, e, ag, ToolWriteFile, `{"filename":"a.txt","content":"1"}`)
	run(t, e, ag, ToolWriteFile, `{"filename":"b.txt","content":"2"}`)
	run(t, e, ag, ToolWriteFile, `{"filename":"a.txt","content":"3"}`)

	if len(ag.CreatedFiles) != 2 {
		t.Errorf("CreatedFiles = %v, want two entries", ag.CreatedFiles)
	}
	// Last write wins the artifact slot even for a re-written file.
	if ag.PrimaryArtifact != "a.txt" {
		t.Errorf("PrimaryArtifact = %q, want a.txt", ag.PrimaryArtifact)
	}
}

func TestWorkspaceEscapeRejected(t *testing.T) {
	e, ag := testExecutor(t)

	for _, input := range []string{
		`{"filename":"../outside.txt","content":"x"}`,
		`{"filename":"","content":"x"}`,
	} {
		res := run(t, e, ag, ToolWriteFile, input)
		if !res.IsError {
			t.Errorf("input %s: expected error result", input)
		}
	}
}

func TestReadFile_Missing(t *testing.T) {
	e, ag := testExecutor(t)
	res := run(t, e, ag, ToolReadFile, `{"filename":"nope.txt"}`)
	if !res.IsError {
		t.Error("expected error result for a missing file")
	}
}

func TestListFiles(t *testing.T) {
	e, ag := testExecutor(t)
	run(t, e, ag, ToolWriteFile, `{"filename":"b.txt","content":"x"}`)
	run(t, e, ag, ToolWriteFile, `{"filename":"a.txt","content":"x"}`)

	res := run(t, e, ag, ToolListFiles, `{}`)
	if res.IsError {
		t.Fatalf("list_files failed: %s", res.Content)
	}
	var out struct {
		Files []string `json:"files"`
	}
	if err := json.Unmarshal([]byte(res.Content), &out); err != nil {
		t.Fatal(err)
	}
	if len(out.Files) != 2 || out.Files[0] != "a.txt" || out.Files[1] != "b.txt" {
		t.Errorf("files = %v, want sorted [a.txt b.txt]", out.Files)
	}
}

func TestViewImage_StagesPendingImage(t *testing.T) {
	e, ag := testExecutor(t)
	data := []byte{0x89, 'P', 'N', 'G'}
	if err := os.WriteFile(filepath.Join(ag.WorkspaceDir, "chart.png"), data, 0644); err != nil {
		t.Fatal(err)
	}

	res := run(t, e, ag, ToolViewImage, `{"filename":"chart.png"}`)
	if res.IsError {
		t.Fatalf("view_image failed: %s", res.Content)
	}
	if ag.PendingImage == nil {
		t.Fatal("no image staged")
	}
	if ag.PendingImage.MediaType != "image/png" {
		t.Errorf("MediaType = %q", ag.PendingImage.MediaType)
	}
	if string(ag.PendingImage.Data) != string(data) {
		t.Error("staged data does not match file contents")
	}
}

func TestViewImage_UnsupportedExtension(t *testing.T) {
	e, ag := testExecutor(t)
	res := run(t, e, ag, ToolViewImage, `{"filename":"diagram.svg"}`)
	if !res.IsError {
		t.Error("expected error result for unsupported image type")
	}
	if ag.PendingImage != nil {
		t.Error("nothing should be staged on failure")
	}
}

func TestAskUser(t *testing.T) {
	e, ag := testExecutor(t)
	res := run(t, e, ag, ToolAskUser, `{"question":"Which quarter?"}`)
	if res.IsError {
		t.Fatalf("ask_user failed: %s", res.Content)
	}
	if ag.PendingQuestion != "Which quarter?" {
		t.Errorf("PendingQuestion = %q", ag.PendingQuestion)
	}

	res = run(t, e, ag, ToolAskUser, `{}`)
	if !res.IsError {
		t.Error("expected error for empty question")
	}
}

func TestMarkComplete(t *testing.T) {
	e, ag := testExecutor(t)
	res := run(t, e, ag, ToolMarkComplete, `{"summary":"Report shipped.","needs_review":true}`)
	if res.IsError {
		t.Fatalf("mark_complete failed: %s", res.Content)
	}
	if ag.CompletionSummary != "Report shipped." {
		t.Errorf("CompletionSummary = %q", ag.CompletionSummary)
	}

	parsed, err := ParseMarkComplete(json.RawMessage(`{"summary":"s","needs_review":true}`))
	if err != nil {
		t.Fatal(err)
	}
	if !parsed.NeedsReview {
		t.Error("NeedsReview should be true")
	}
}

func TestTaskTools(t *testing.T) {
	e, ag := testExecutor(t)

	res := run(t, e, ag, ToolCreateTask, `{"title":"Ship Report","deadline":"2025-03-07","priority":"high","list":"today"}`)
	if res.IsError {
		t.Fatalf("create_task failed: %s", res.Content)
	}
	var created models.Task
	if err := json.Unmarshal([]byte(res.Content), &created); err != nil {
		t.Fatal(err)
	}
	if created.ID != "ship-report" {
		t.Errorf("id = %q, want ship-report", created.ID)
	}

	res = run(t, e, ag, ToolGetTask, `{"id":"ship-report"}`)
	if res.IsError {
		t.Fatalf("get_task failed: %s", res.Content)
	}
	if !strings.Contains(res.Content, `"list":"today"`) {
		t.Errorf("get_task result missing list: %s", res.Content)
	}

	res = run(t, e, ag, ToolListTasks, `{"priority":"high"}`)
	if res.IsError {
		t.Fatalf("list_tasks failed: %s", res.Content)
	}
	var listed struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal([]byte(res.Content), &listed); err != nil {
		t.Fatal(err)
	}
	if listed.Count != 1 {
		t.Errorf("count = %d, want 1", listed.Count)
	}

	res = run(t, e, ag, ToolUpdateTask, `{"id":"ship-report","add_notes":["drafted outline"]}`)
	if res.IsError {
		t.Fatalf("update_task failed: %s", res.Content)
	}
	if !strings.Contains(res.Content, "drafted outline") {
		t.Errorf("update_task result missing note: %s", res.Content)
	}

	res = run(t, e, ag, ToolMoveTask, `{"id":"ship-report","destination":"backlog"}`)
	if res.IsError {
		t.Fatalf("move_task failed: %s", res.Content)
	}

	res = run(t, e, ag, ToolMarkTaskDone, `{"id":"ship-report","completion_notes":"sent to leadership"}`)
	if res.IsError {
		t.Fatalf("mark_task_done failed: %s", res.Content)
	}
	if !strings.Contains(res.Content, `"completed"`) {
		t.Errorf("done task should carry completed status: %s", res.Content)
	}

	// Archived tasks are out of reach for the id-based tools.
	res = run(t, e, ag, ToolGetTask, `{"id":"ship-report"}`)
	if !res.IsError {
		t.Error("get_task should not find an archived task")
	}
}

func TestCreateTask_DateInvariantSurfacesAsError(t *testing.T) {
	e, ag := testExecutor(t)
	res := run(t, e, ag, ToolCreateTask, `{"title":"No Dates"}`)
	if !res.IsError {
		t.Error("expected error result when neither date is set")
	}
}

func TestAttachTools(t *testing.T) {
	e, ag := testExecutor(t)

	run(t, e, ag, ToolCreateTask, `{"title":"Ship Report","target_date":"2025-03-10"}`)
	run(t, e, ag, ToolWriteFile, `{"filename":"report.md","content":"# Q1"}`)

	res := run(t, e, ag, ToolAttachFile, `{"id":"ship-report","filename":"report.md"}`)
	if res.IsError {
		t.Fatalf("attach_file failed: %s", res.Content)
	}

	res = run(t, e, ag, ToolListAttachments, `{"id":"ship-report"}`)
	if res.IsError {
		t.Fatalf("list_attachments failed: %s", res.Content)
	}
	var out struct {
		Attachments []string `json:"attachments"`
	}
	if err := json.Unmarshal([]byte(res.Content), &out); err != nil {
		t.Fatal(err)
	}
	if len(out.Attachments) != 1 || out.Attachments[0] != "report.md" {
		t.Errorf("attachments = %v", out.Attachments)
	}
}

func TestUnknownTool(t *testing.T) {
	e, ag := testExecutor(t)
	res := run(t, e, ag, "launch_missiles", `{}`)
	if !res.IsError {
		t.Error("expected error result for an unknown tool")
	}
}
