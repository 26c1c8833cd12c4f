package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/aide-sh/aide/internal/taskstore"
	"github.com/aide-sh/aide/pkg/models"
)

// maxFetchBytes caps fetched web content before it goes into the
// conversation.
const maxFetchBytes = 100 * 1024

// Result is the outcome of one tool execution. Errors are data returned
// to the model, not Go errors; the model decides how to proceed.
type Result struct {
	Content string
	IsError bool
}

func errResult(format string, args ...interface{}) Result {
	return Result{Content: fmt.Sprintf(format, args...), IsError: true}
}

func jsonResult(v interface{}) Result {
	data, err := json.Marshal(v)
	if err != nil {
		return errResult("encode result: %v", err)
	}
	return Result{Content: string(data)}
}

// Executor carries out tool invocations on behalf of agents. File tools
// operate inside the invoking agent's private workspace; task tools hit
// the shared store with the agent as the attributed author.
type Executor struct {
	store      *taskstore.Store
	httpClient *http.Client
}

// NewExecutor creates an executor over the given task store.
func NewExecutor(store *taskstore.Store) *Executor {
	return &Executor{
		store:      store,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Execute runs a tool by name. The caller must hold the agent's lock:
// several tools mutate the agent record (created files, staged image,
// pending question, completion summary).
func (e *Executor) Execute(ctx context.Context, ag *models.Agent, name string, input json.RawMessage) Result {
	switch name {
	case ToolWriteFile:
		return e.execWriteFile(ag, input)
	case ToolReadFile:
		return e.execReadFile(ag, input)
	case ToolListFiles:
		return e.execListFiles(ag)
	case ToolFetchURL:
		return e.execFetchURL(ctx, input)
	case ToolViewImage:
		return e.execViewImage(ag, input)
	case ToolAskUser:
		return e.execAskUser(ag, input)
	case ToolMarkComplete:
		return e.execMarkComplete(ag, input)
	case ToolCreateTask:
		return e.execCreateTask(ag, input)
	case ToolGetTask:
		return e.execGetTask(input)
	case ToolListTasks:
		return e.execListTasks(input)
	case ToolUpdateTask:
		return e.execUpdateTask(ag, input)
	case ToolMarkTaskDone:
		return e.execMarkTaskDone(ag, input)
	case ToolMoveTask:
		return e.execMoveTask(input)
	case ToolAttachFile:
		return e.execAttachFile(ag, input)
	case ToolListAttachments:
		return e.execListAttachments(input)
	default:
		return errResult("unknown tool: %s", name)
	}
}

// workspacePath resolves a filename inside the agent's workspace and
// refuses escapes.
func workspacePath(ag *models.Agent, filename string) (string, error) {
	if filename == "" {
		return "", fmt.Errorf("filename is required")
	}
	path := filepath.Join(ag.WorkspaceDir, filepath.Clean(filename))
	rel, err := filepath.Rel(ag.WorkspaceDir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("filename %q escapes the workspace", filename)
	}
	return path, nil
}

func (e *Executor) execWriteFile(ag *models.Agent, input json.RawMessage) Result {
	var params struct {
		Filename string `json:"filename"`
		Content  string `json:"content"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return errResult("invalid parameters: %v", err)
	}

	path, err := workspacePath(ag, params.Filename)
	if err != nil {
		return errResult("%v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errResult("create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(params.Content), 0644); err != nil {
		return errResult("write file: %v", err)
	}

	seen := false
	for _, f := range ag.CreatedFiles {
		if f == params.Filename {
			seen = true
			break
		}
	}
	if !seen {
		ag.CreatedFiles = append(ag.CreatedFiles, params.Filename)
	}
	// The most recently written file is treated as the deliverable.
	ag.PrimaryArtifact = params.Filename

	return jsonResult(map[string]interface{}{
		"written": params.Filename,
		"bytes":   len(params.Content),
	})
}

func (e *Executor) execReadFile(ag *models.Agent, input json.RawMessage) Result {
	var params struct {
		Filename string `json:"filename"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return errResult("invalid parameters: %v", err)
	}

	path, err := workspacePath(ag, params.Filename)
	if err != nil {
		return errResult("%v", err)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return errResult("read file: %v", err)
	}
	return Result{Content: string(content)}
}

func (e *Executor) execListFiles(ag *models.Agent) Result {
	var names []string
	err := filepath.WalkDir(ag.WorkspaceDir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(ag.WorkspaceDir, path)
		if relErr == nil {
			names = append(names, rel)
		}
		return nil
	})
	if err != nil {
		return errResult("list files: %v", err)
	}
	sort.Strings(names)
	return jsonResult(map[string]interface{}{"files": names})
}

func (e *Executor) execFetchURL(ctx context.Context, input json.RawMessage) Result {
	var params struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return errResult("invalid parameters: %v", err)
	}
	if !strings.HasPrefix(params.URL, "http://") && !strings.HasPrefix(params.URL, "https://") {
		return errResult("url must be absolute http(s): %q", params.URL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, params.URL, nil)
	if err != nil {
		return errResult("build request: %v", err)
	}
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return errResult("fetch: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes+1))
	if err != nil {
		return errResult("read response: %v", err)
	}
	truncated := false
	if len(body) > maxFetchBytes {
		body = body[:maxFetchBytes]
		truncated = true
	}

	if resp.StatusCode >= 400 {
		return errResult("fetch %s: status %d", params.URL, resp.StatusCode)
	}

	content := string(body)
	if truncated {
		content += "\n... (content truncated)"
	}
	return Result{Content: content}
}

// imageMediaTypes maps file extensions to the media types the model API
// accepts.
var imageMediaTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
}

func (e *Executor) execViewImage(ag *models.Agent, input json.RawMessage) Result {
	var params struct {
		Filename string `json:"filename"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return errResult("invalid parameters: %v", err)
	}

	mediaType, ok := imageMediaTypes[strings.ToLower(filepath.Ext(params.Filename))]
	if !ok {
		return errResult("unsupported image type: %s", params.Filename)
	}

	path, err := workspacePath(ag, params.Filename)
	if err != nil {
		return errResult("%v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return errResult("read image: %v", err)
	}

	// Staged for the next tool-result message; the driver attaches it and
	// clears the slot.
	ag.PendingImage = &models.StagedImage{MediaType: mediaType, Data: data}

	return Result{Content: fmt.Sprintf("Image %s follows this result.", params.Filename)}
}

func (e *Executor) execAskUser(ag *models.Agent, input json.RawMessage) Result {
	var params struct {
		Question string `json:"question"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return errResult("invalid parameters: %v", err)
	}
	if params.Question == "" {
		return errResult("question is required")
	}

	ag.PendingQuestion = params.Question
	return Result{Content: "Question delivered; waiting for the user's answer."}
}

// MarkCompleteInput is the parsed input of the mark_complete tool. The
// driver needs it to decide the terminal state.
type MarkCompleteInput struct {
	Summary     string `json:"summary"`
	NeedsReview bool   `json:"needs_review"`
}

// ParseMarkComplete decodes mark_complete input.
func ParseMarkComplete(input json.RawMessage) (MarkCompleteInput, error) {
	var params MarkCompleteInput
	if err := json.Unmarshal(input, &params); err != nil {
		return params, fmt.Errorf("invalid parameters: %w", err)
	}
	return params, nil
}

func (e *Executor) execMarkComplete(ag *models.Agent, input json.RawMessage) Result {
	params, err := ParseMarkComplete(input)
	if err != nil {
		return errResult("%v", err)
	}

	ag.CompletionSummary = params.Summary
	if params.NeedsReview {
		return Result{Content: "Task marked complete; awaiting user review."}
	}
	return Result{Content: "Task marked complete."}
}

func (e *Executor) execCreateTask(ag *models.Agent, input json.RawMessage) Result {
	var params struct {
		Title      string   `json:"title"`
		List       string   `json:"list"`
		Priority   string   `json:"priority"`
		Deadline   string   `json:"deadline"`
		TargetDate string   `json:"target_date"`
		ParentID   string   `json:"parent_id"`
		Notes      []string `json:"notes"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return errResult("invalid parameters: %v", err)
	}

	task, err := e.store.Create(taskstore.CreateInput{
		Title:      params.Title,
		ParentID:   params.ParentID,
		Priority:   models.Priority(params.Priority),
		Deadline:   params.Deadline,
		TargetDate: params.TargetDate,
		List:       models.ListName(params.List),
		Notes:      params.Notes,
	}, ag.Name)
	if err != nil {
		return errResult("create task: %v", err)
	}
	return jsonResult(task)
}

func (e *Executor) execGetTask(input json.RawMessage) Result {
	var params struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return errResult("invalid parameters: %v", err)
	}

	task, list, err := e.store.Get(params.ID)
	if err != nil {
		return errResult("get task: %v", err)
	}
	if task == nil {
		return errResult("task %q not found", params.ID)
	}
	return jsonResult(map[string]interface{}{"task": task, "list": list})
}

func (e *Executor) execListTasks(input json.RawMessage) Result {
	var params struct {
		List        string `json:"list"`
		Priority    string `json:"priority"`
		HasDeadline *bool  `json:"has_deadline"`
		ParentID    string `json:"parent_id"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return errResult("invalid parameters: %v", err)
	}

	filter := taskstore.ListFilter{
		Priority:    models.Priority(params.Priority),
		HasDeadline: params.HasDeadline,
		ParentID:    params.ParentID,
	}
	if params.List != "" {
		filter.Lists = []models.ListName{models.ListName(params.List)}
	}

	rows, err := e.store.List(filter)
	if err != nil {
		return errResult("list tasks: %v", err)
	}
	return jsonResult(map[string]interface{}{"tasks": rows, "count": len(rows)})
}

func (e *Executor) execUpdateTask(ag *models.Agent, input json.RawMessage) Result {
	var params struct {
		ID         string   `json:"id"`
		Title      *string  `json:"title"`
		Priority   *string  `json:"priority"`
		Deadline   *string  `json:"deadline"`
		TargetDate *string  `json:"target_date"`
		AddNotes   []string `json:"add_notes"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return errResult("invalid parameters: %v", err)
	}

	patch := taskstore.UpdatePatch{
		Title:      params.Title,
		Deadline:   params.Deadline,
		TargetDate: params.TargetDate,
		AddNotes:   params.AddNotes,
	}
	if params.Priority != nil {
		p := models.Priority(*params.Priority)
		patch.Priority = &p
	}

	task, err := e.store.Update(params.ID, patch, ag.Name)
	if err != nil {
		return errResult("update task: %v", err)
	}
	return jsonResult(task)
}

func (e *Executor) execMarkTaskDone(ag *models.Agent, input json.RawMessage) Result {
	var params struct {
		ID              string `json:"id"`
		CompletionNotes string `json:"completion_notes"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return errResult("invalid parameters: %v", err)
	}

	task, err := e.store.MarkDone(params.ID, params.CompletionNotes, ag.Name)
	if err != nil {
		return errResult("mark task done: %v", err)
	}
	return jsonResult(task)
}

func (e *Executor) execMoveTask(input json.RawMessage) Result {
	var params struct {
		ID          string `json:"id"`
		Destination string `json:"destination"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return errResult("invalid parameters: %v", err)
	}

	moved, err := e.store.Move(params.ID, models.ListName(params.Destination))
	if err != nil {
		return errResult("move task: %v", err)
	}
	return jsonResult(map[string]interface{}{"moved": moved, "destination": params.Destination})
}

func (e *Executor) execAttachFile(ag *models.Agent, input json.RawMessage) Result {
	var params struct {
		ID       string `json:"id"`
		Filename string `json:"filename"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return errResult("invalid parameters: %v", err)
	}

	path, err := workspacePath(ag, params.Filename)
	if err != nil {
		return errResult("%v", err)
	}
	if err := e.store.AttachFile(params.ID, path, ag.Name); err != nil {
		return errResult("attach file: %v", err)
	}
	return jsonResult(map[string]interface{}{"attached": params.Filename, "task": params.ID})
}

func (e *Executor) execListAttachments(input json.RawMessage) Result {
	var params struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return errResult("invalid parameters: %v", err)
	}

	names, err := e.store.Attachments(params.ID)
	if err != nil {
		return errResult("list attachments: %v", err)
	}
	return jsonResult(map[string]interface{}{"attachments": names})
}
