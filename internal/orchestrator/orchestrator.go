package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aide-sh/aide/internal/llm"
	"github.com/aide-sh/aide/internal/state"
	"github.com/aide-sh/aide/internal/taskstore"
	"github.com/aide-sh/aide/internal/tools"
	"github.com/aide-sh/aide/pkg/models"
)

const defaultSystemPrompt = `You are an autonomous assistant working on one delegated task.
You have a private workspace for files and a set of tools for working with
the user's task lists. Work step by step. Use ask_user only when you are
blocked on a decision the user must make. When the task is done, call
mark_complete with a short summary; set needs_review when the user should
look over the deliverable first.`

// agentEntry pairs an agent record with its lock. The lock serializes the
// turn loop against the control-surface operations for that one agent;
// different agents never contend.
type agentEntry struct {
	mu      sync.Mutex
	agent   *models.Agent
	running bool
}

// Options configures an Orchestrator.
type Options struct {
	Caller        llm.Caller
	Gate          *tools.Gate
	Executor      *tools.Executor
	Store         *taskstore.Store
	DB            *state.DB
	Logger        *DebugLogger
	CheapModel    string
	CapableModel  string
	MaxTurns      int
	WorkspaceRoot string
	SystemPrompt  string
	EventBuffer   int
}

// Orchestrator owns the agent registry and exposes the control surface:
// spawn, approve, reject, feedback, terminate. Each agent's conversation
// loop runs on its own goroutine.
type Orchestrator struct {
	caller        llm.Caller
	gate          *tools.Gate
	executor      *tools.Executor
	store         *taskstore.Store
	db            *state.DB
	logger        *DebugLogger
	emitter       *EventEmitter
	cheapModel    string
	capableModel  string
	maxTurns      int
	workspaceRoot string
	systemPrompt  string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	agents map[string]*agentEntry
}

// New creates an orchestrator. The database and logger are optional.
func New(opts Options) *Orchestrator {
	if opts.MaxTurns <= 0 {
		opts.MaxTurns = 50
	}
	if opts.SystemPrompt == "" {
		opts.SystemPrompt = defaultSystemPrompt
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = 64
	}
	if opts.Logger == nil {
		opts.Logger = NopLogger()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		caller:        opts.Caller,
		gate:          opts.Gate,
		executor:      opts.Executor,
		store:         opts.Store,
		db:            opts.DB,
		logger:        opts.Logger,
		emitter:       NewEventEmitter(opts.EventBuffer),
		cheapModel:    opts.CheapModel,
		capableModel:  opts.CapableModel,
		maxTurns:      opts.MaxTurns,
		workspaceRoot: opts.WorkspaceRoot,
		systemPrompt:  opts.SystemPrompt,
		ctx:           ctx,
		cancel:        cancel,
		agents:        make(map[string]*agentEntry),
	}
}

// Events returns the subscription channel for orchestrator events.
func (o *Orchestrator) Events() <-chan Event {
	return o.emitter.Events()
}

// Close cancels in-flight model calls, waits for agent loops to stop, and
// closes the event channel.
func (o *Orchestrator) Close() {
	o.cancel()
	o.wg.Wait()
	o.emitter.Close()
}

// deriveName builds a short human-readable agent name from the task text.
func deriveName(taskDescription string) string {
	words := strings.Fields(taskDescription)
	if len(words) > 4 {
		words = words[:4]
	}
	name := taskstore.Slugify(strings.Join(words, " "))
	if name == "" {
		name = "agent"
	}
	return name
}

// Spawn creates an agent for a delegated task, optionally linked to a
// task-store record, and starts its conversation loop.
func (o *Orchestrator) Spawn(taskDescription, linkedTaskID string) (*models.Agent, error) {
	if strings.TrimSpace(taskDescription) == "" {
		return nil, fmt.Errorf("task description is required")
	}
	if linkedTaskID != "" && o.store != nil {
		task, _, err := o.store.Get(linkedTaskID)
		if err != nil {
			return nil, fmt.Errorf("check linked task: %w", err)
		}
		if task == nil {
			return nil, fmt.Errorf("linked task %q not found", linkedTaskID)
		}
	}

	id := uuid.New().String()
	name := deriveName(taskDescription)
	workspace := filepath.Join(o.workspaceRoot, name+"-"+id[:8])
	if err := os.MkdirAll(workspace, 0755); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}

	prompt := taskDescription
	if linkedTaskID != "" {
		prompt += fmt.Sprintf("\n\nThis work is linked to task %q in the task store.", linkedTaskID)
	}

	ag := &models.Agent{
		ID:              id,
		Name:            name,
		TaskDescription: taskDescription,
		LinkedTaskID:    linkedTaskID,
		State:           models.AgentStateInitializing,
		Conversation:    []models.Message{models.TextMessage(models.RoleUser, prompt)},
		WorkspaceDir:    workspace,
		CreatedAt:       time.Now(),
	}

	entry := &agentEntry{agent: ag, running: true}
	o.mu.Lock()
	o.agents[id] = entry
	o.mu.Unlock()

	o.persist(ag)
	o.emitter.Emit(Event{
		Type: EventAgentSpawned, AgentID: id, AgentName: name,
		State: ag.State, Message: taskDescription, Timestamp: time.Now(),
	})
	o.logger.Log("spawned agent %s (%s): %s", name, id, taskDescription)

	o.wg.Add(1)
	go o.runLoop(entry)

	return snapshot(ag), nil
}

// entry returns the registry entry, or nil if the agent is gone.
func (o *Orchestrator) entry(id string) *agentEntry {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.agents[id]
}

// registered reports whether the agent is still in the registry. The turn
// loop checks this after every model call so a terminated agent's
// in-flight response is discarded instead of applied.
func (o *Orchestrator) registered(id string) bool {
	return o.entry(id) != nil
}

// Get returns a point-in-time copy of the agent record.
func (o *Orchestrator) Get(id string) (*models.Agent, error) {
	e := o.entry(id)
	if e == nil {
		return nil, fmt.Errorf("agent %q not found", id)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return snapshot(e.agent), nil
}

// ListAgents returns copies of all registered agents, oldest first.
func (o *Orchestrator) ListAgents() []*models.Agent {
	o.mu.RLock()
	entries := make([]*agentEntry, 0, len(o.agents))
	for _, e := range o.agents {
		entries = append(entries, e)
	}
	o.mu.RUnlock()

	out := make([]*models.Agent, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, snapshot(e.agent))
		e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// ApproveTool executes the pending tool invocation. The rest of the batch
// that was gated alongside it was never recorded and is not revived; the
// model re-requests anything it still needs.
func (o *Orchestrator) ApproveTool(id string) error {
	e := o.entry(id)
	if e == nil {
		return fmt.Errorf("agent %q not found", id)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	ag := e.agent
	if ag.State != models.AgentStateWaitingToolApproval || ag.PendingToolUse == nil {
		return fmt.Errorf("agent %q has no tool awaiting approval", id)
	}

	use := *ag.PendingToolUse
	ag.PendingToolUse = nil

	model := llm.SelectForAgent(ag, o.cheapModel, o.capableModel)
	res := o.executeOne(ag, use, model)

	blocks := []models.ContentBlock{{
		Kind:      models.BlockToolResult,
		ToolUseID: use.ID,
		Text:      res.Content,
		IsError:   res.IsError,
	}}
	if ag.PendingImage != nil {
		blocks = append(blocks, models.ContentBlock{
			Kind:           models.BlockImage,
			ImageMediaType: ag.PendingImage.MediaType,
			ImageData:      ag.PendingImage.Data,
		})
		ag.PendingImage = nil
	}
	ag.Conversation = append(ag.Conversation, models.Message{Role: models.RoleUser, Blocks: blocks})

	// Terminal tools keep the loop paused; everything else resumes.
	switch {
	case use.Name == tools.ToolMarkComplete && !res.IsError:
		params, err := tools.ParseMarkComplete(use.Input)
		if err == nil {
			o.finishCompletion(ag, params.NeedsReview)
		}
	case use.Name == tools.ToolAskUser && !res.IsError:
		o.setState(ag, models.AgentStateWaitingUserFeedback)
		o.emitter.Emit(Event{
			Type: EventFeedbackNeeded, AgentID: ag.ID, AgentName: ag.Name,
			State: ag.State, Message: ag.PendingQuestion, Timestamp: time.Now(),
		})
	default:
		o.setState(ag, models.AgentStateWorking)
		o.resumeLocked(e)
	}

	o.persist(ag)
	return nil
}

// RejectTool declines the pending tool invocation. The model sees the
// rejection as an ordinary tool failure and adapts.
func (o *Orchestrator) RejectTool(id, reason string) error {
	e := o.entry(id)
	if e == nil {
		return fmt.Errorf("agent %q not found", id)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	ag := e.agent
	if ag.State != models.AgentStateWaitingToolApproval || ag.PendingToolUse == nil {
		return fmt.Errorf("agent %q has no tool awaiting approval", id)
	}

	use := *ag.PendingToolUse
	ag.PendingToolUse = nil
	if reason == "" {
		reason = "no reason given"
	}

	ag.Conversation = append(ag.Conversation, models.Message{
		Role: models.RoleUser,
		Blocks: []models.ContentBlock{{
			Kind:      models.BlockToolResult,
			ToolUseID: use.ID,
			Text:      fmt.Sprintf("Tool call rejected by the user: %s", reason),
			IsError:   true,
		}},
	})
	o.logger.Log("agent %s: rejected %s: %s", ag.Name, use.Name, reason)

	o.setState(ag, models.AgentStateWorking)
	o.persist(ag)
	o.resumeLocked(e)
	return nil
}

// ProvideFeedback appends a user message and resumes the loop. Valid in
// any non-terminal state, not just waiting_for_user_feedback.
func (o *Orchestrator) ProvideFeedback(id, text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("feedback text is required")
	}
	e := o.entry(id)
	if e == nil {
		return fmt.Errorf("agent %q not found", id)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	ag := e.agent
	if ag.State.Terminal() {
		return fmt.Errorf("agent %q is %s and cannot accept feedback", id, ag.State)
	}

	var blocks []models.ContentBlock
	// A pending tool call must still get a result before any new user
	// text, or the conversation becomes invalid for the API.
	if ag.PendingToolUse != nil {
		blocks = append(blocks, models.ContentBlock{
			Kind:      models.BlockToolResult,
			ToolUseID: ag.PendingToolUse.ID,
			Text:      "Tool call superseded by user feedback.",
			IsError:   true,
		})
		ag.PendingToolUse = nil
	}
	blocks = append(blocks, models.ContentBlock{Kind: models.BlockText, Text: text})

	ag.Conversation = append(ag.Conversation, models.Message{Role: models.RoleUser, Blocks: blocks})
	ag.PendingQuestion = ""

	o.setState(ag, models.AgentStateWorking)
	o.persist(ag)
	o.resumeLocked(e)
	return nil
}

// Terminate removes the agent from the registry. Any in-flight model
// response is discarded when the loop notices the agent is gone.
func (o *Orchestrator) Terminate(id string) error {
	o.mu.Lock()
	e, ok := o.agents[id]
	if ok {
		delete(o.agents, id)
	}
	o.mu.Unlock()
	if !ok {
		return fmt.Errorf("agent %q not found", id)
	}

	e.mu.Lock()
	ag := e.agent
	ag.State = models.AgentStateTerminated
	o.persist(ag)
	e.mu.Unlock()

	o.emitter.Emit(Event{
		Type: EventAgentTerminated, AgentID: ag.ID, AgentName: ag.Name,
		State: models.AgentStateTerminated, Timestamp: time.Now(),
	})
	o.logger.Log("terminated agent %s (%s)", ag.Name, ag.ID)
	return nil
}

// PrimaryArtifact returns the path and contents of the agent's deliverable.
func (o *Orchestrator) PrimaryArtifact(id string) (string, []byte, error) {
	ag, err := o.Get(id)
	if err != nil {
		return "", nil, err
	}
	if ag.PrimaryArtifact == "" {
		return "", nil, fmt.Errorf("agent %q has no artifact", id)
	}
	path := filepath.Join(ag.WorkspaceDir, ag.PrimaryArtifact)
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, fmt.Errorf("read artifact: %w", err)
	}
	return ag.PrimaryArtifact, data, nil
}

// ActivityLog returns a copy of the agent's activity log.
func (o *Orchestrator) ActivityLog(id string) ([]models.ActivityLogEntry, error) {
	ag, err := o.Get(id)
	if err != nil {
		return nil, err
	}
	return ag.ActivityLog, nil
}

// WorkspaceFiles lists the files in the agent's workspace.
func (o *Orchestrator) WorkspaceFiles(id string) ([]string, error) {
	ag, err := o.Get(id)
	if err != nil {
		return nil, err
	}
	var names []string
	err = filepath.WalkDir(ag.WorkspaceDir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if rel, relErr := filepath.Rel(ag.WorkspaceDir, path); relErr == nil {
			names = append(names, rel)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

// WorkspaceFileContent returns the contents of one workspace file. Paths
// resolving outside the workspace are refused.
func (o *Orchestrator) WorkspaceFileContent(id, name string) ([]byte, error) {
	ag, err := o.Get(id)
	if err != nil {
		return nil, err
	}
	path := filepath.Join(ag.WorkspaceDir, name)
	rel, err := filepath.Rel(ag.WorkspaceDir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, fmt.Errorf("%q is outside the agent workspace", name)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workspace file: %w", err)
	}
	return data, nil
}

// resumeLocked restarts the turn loop if it is not already running. The
// caller holds the entry lock.
func (o *Orchestrator) resumeLocked(e *agentEntry) {
	if e.running {
		return
	}
	e.running = true
	o.wg.Add(1)
	go o.runLoop(e)
}

// setState applies a transition if the table allows it.
func (o *Orchestrator) setState(ag *models.Agent, to models.AgentState) {
	if ag.State == to {
		return
	}
	if !models.CanTransition(ag.State, to) {
		o.logger.Log("agent %s: illegal transition %s -> %s ignored", ag.Name, ag.State, to)
		return
	}
	ag.State = to
	o.emitter.Emit(Event{
		Type: EventStateChanged, AgentID: ag.ID, AgentName: ag.Name,
		State: to, Timestamp: time.Now(),
	})
}

// persist writes the agent snapshot to the audit database, if configured.
func (o *Orchestrator) persist(ag *models.Agent) {
	if o.db == nil {
		return
	}
	if err := o.db.SaveAgentSnapshot(ag); err != nil {
		o.logger.Log("agent %s: persist snapshot: %v", ag.Name, err)
	}
}

// snapshot deep-copies the mutable slices of an agent record.
func snapshot(ag *models.Agent) *models.Agent {
	cp := *ag
	cp.Conversation = append([]models.Message(nil), ag.Conversation...)
	cp.CreatedFiles = append([]string(nil), ag.CreatedFiles...)
	cp.ActivityLog = append([]models.ActivityLogEntry(nil), ag.ActivityLog...)
	if ag.PendingToolUse != nil {
		use := *ag.PendingToolUse
		cp.PendingToolUse = &use
	}
	if ag.PendingImage != nil {
		img := *ag.PendingImage
		cp.PendingImage = &img
	}
	return &cp
}
