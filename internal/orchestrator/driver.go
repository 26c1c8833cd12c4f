package orchestrator

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/aide-sh/aide/internal/llm"
	"github.com/aide-sh/aide/internal/tools"
	"github.com/aide-sh/aide/pkg/models"
)

// runLoop drives one agent's conversation until a pause or terminal
// condition. One goroutine per agent; the entry lock is released around
// the model call so the control surface stays responsive, and the
// registry is re-checked afterwards so a terminated agent's in-flight
// response is discarded.
func (o *Orchestrator) runLoop(e *agentEntry) {
	defer o.wg.Done()

	// The turn cap is per resume: every approval, rejection, or feedback
	// hands the agent a fresh budget, so a long-lived agent is never
	// permanently locked out by its own history.
	turnsThisResume := 0
	for {
		e.mu.Lock()
		ag := e.agent

		if !o.registered(ag.ID) {
			e.running = false
			e.mu.Unlock()
			return
		}
		if ag.State == models.AgentStateInitializing {
			o.setState(ag, models.AgentStateWorking)
		}
		if ag.State != models.AgentStateWorking {
			e.running = false
			e.mu.Unlock()
			return
		}
		if turnsThisResume >= o.maxTurns {
			o.fail(ag, fmt.Sprintf("turn limit reached (%d)", o.maxTurns))
			e.running = false
			e.mu.Unlock()
			return
		}
		turnsThisResume++

		model := llm.SelectForAgent(ag, o.cheapModel, o.capableModel)
		req := llm.Request{
			Model:    model,
			System:   o.systemPrompt,
			Messages: append([]models.Message(nil), ag.Conversation...),
			Tools:    tools.Definitions(),
		}
		e.mu.Unlock()

		resp, err := o.caller.Complete(o.ctx, req)

		e.mu.Lock()
		if !o.registered(ag.ID) || ag.State == models.AgentStateTerminated {
			// Terminated while the request was in flight; discard.
			e.running = false
			e.mu.Unlock()
			return
		}
		if err != nil {
			o.fail(ag, err.Error())
			e.running = false
			e.mu.Unlock()
			return
		}

		ag.InputTokens += resp.InputTokens
		ag.OutputTokens += resp.OutputTokens
		ag.Conversation = append(ag.Conversation, models.Message{
			Role:   models.RoleAssistant,
			Blocks: resp.Blocks,
		})
		last := ag.Conversation[len(ag.Conversation)-1]
		if text := last.JoinedText(); text != "" {
			ag.LastText = text
		}

		uses := last.ToolUses()
		if len(uses) == 0 {
			// Text-only reply: the turn ends, the agent stays working.
			o.persist(ag)
			e.running = false
			e.mu.Unlock()
			return
		}

		// Any approval-needing tool gates the whole batch: record the
		// first such and execute nothing, auto tools included.
		var pending *models.ToolUse
		for _, use := range uses {
			if o.gate.Resolve(use.ToolName) == tools.TierApprove {
				pending = &models.ToolUse{ID: use.ToolUseID, Name: use.ToolName, Input: use.ToolInput}
				break
			}
		}
		if pending != nil {
			ag.PendingToolUse = pending
			o.setState(ag, models.AgentStateWaitingToolApproval)
			o.emitter.Emit(Event{
				Type: EventApprovalNeeded, AgentID: ag.ID, AgentName: ag.Name,
				State: ag.State, Tool: pending.Name,
				Message: string(pending.Input), Timestamp: time.Now(),
			})
			o.persist(ag)
			e.running = false
			e.mu.Unlock()
			return
		}

		var blocks []models.ContentBlock
		var askedUser bool
		var completion *tools.MarkCompleteInput
		for _, use := range uses {
			res := o.executeOne(ag, models.ToolUse{ID: use.ToolUseID, Name: use.ToolName, Input: use.ToolInput}, model)
			blocks = append(blocks, models.ContentBlock{
				Kind:      models.BlockToolResult,
				ToolUseID: use.ToolUseID,
				Text:      res.Content,
				IsError:   res.IsError,
			})
			if use.ToolName == tools.ToolViewImage && ag.PendingImage != nil {
				blocks = append(blocks, models.ContentBlock{
					Kind:           models.BlockImage,
					ImageMediaType: ag.PendingImage.MediaType,
					ImageData:      ag.PendingImage.Data,
				})
				ag.PendingImage = nil
			}
			if res.IsError {
				continue
			}
			switch use.ToolName {
			case tools.ToolAskUser:
				askedUser = true
			case tools.ToolMarkComplete:
				if params, err := tools.ParseMarkComplete(use.ToolInput); err == nil {
					completion = &params
				}
			}
		}
		ag.Conversation = append(ag.Conversation, models.Message{Role: models.RoleUser, Blocks: blocks})

		// Two tools end the loop regardless of tier; mark_complete wins
		// when both appear in one batch.
		if completion != nil {
			o.finishCompletion(ag, completion.NeedsReview)
			o.persist(ag)
			e.running = false
			e.mu.Unlock()
			return
		}
		if askedUser {
			o.setState(ag, models.AgentStateWaitingUserFeedback)
			o.emitter.Emit(Event{
				Type: EventFeedbackNeeded, AgentID: ag.ID, AgentName: ag.Name,
				State: ag.State, Message: ag.PendingQuestion, Timestamp: time.Now(),
			})
			o.persist(ag)
			e.running = false
			e.mu.Unlock()
			return
		}

		o.persist(ag)
		e.mu.Unlock()
	}
}

// executeOne runs a single tool invocation with an auditable trail: the
// activity entry is written optimistically before execution and finalized
// in place afterwards. The caller holds the entry lock.
func (o *Orchestrator) executeOne(ag *models.Agent, use models.ToolUse, model string) tools.Result {
	entry := models.ActivityLogEntry{
		ID:        uuid.New().String(),
		Timestamp: time.Now(),
		Tool:      use.Name,
		Input:     use.Input,
		Status:    models.ActivityExecuting,
		Model:     model,
	}
	ag.ActivityLog = append(ag.ActivityLog, entry)
	idx := len(ag.ActivityLog) - 1
	o.recordActivity(ag, entry)

	start := time.Now()
	res := o.executor.Execute(o.ctx, ag, use.Name, use.Input)

	final := &ag.ActivityLog[idx]
	final.Duration = time.Since(start)
	if res.IsError {
		final.Status = models.ActivityError
		final.Error = res.Content
	} else {
		final.Status = models.ActivitySuccess
		final.Result = res.Content
	}
	o.recordActivity(ag, *final)

	o.emitter.Emit(Event{
		Type: EventToolExecuted, AgentID: ag.ID, AgentName: ag.Name,
		State: ag.State, Tool: use.Name, Message: res.Content, Timestamp: time.Now(),
	})
	o.logger.Log("agent %s: %s %s (%s)", ag.Name, use.Name, final.Status, final.Duration)
	return res
}

func (o *Orchestrator) recordActivity(ag *models.Agent, entry models.ActivityLogEntry) {
	if o.db == nil {
		return
	}
	if err := o.db.RecordActivity(ag.ID, entry); err != nil {
		o.logger.Log("agent %s: record activity: %v", ag.Name, err)
	}
}

// finishCompletion ends the task: the primary artifact is attached to the
// linked task on a best-effort basis, then the agent lands in completed or
// waiting_for_completion_review.
func (o *Orchestrator) finishCompletion(ag *models.Agent, needsReview bool) {
	if ag.LinkedTaskID != "" && ag.PrimaryArtifact != "" && o.store != nil {
		path := filepath.Join(ag.WorkspaceDir, ag.PrimaryArtifact)
		if err := o.store.AttachFile(ag.LinkedTaskID, path, ag.Name); err != nil {
			// Attachment failure never blocks completion.
			o.logger.Log("agent %s: attach artifact to %s: %v", ag.Name, ag.LinkedTaskID, err)
		}
	}

	if needsReview {
		o.setState(ag, models.AgentStateWaitingCompletionReview)
	} else {
		o.setState(ag, models.AgentStateCompleted)
	}
}

// fail moves the agent to the absorbing failed state.
func (o *Orchestrator) fail(ag *models.Agent, msg string) {
	ag.Error = msg
	o.setState(ag, models.AgentStateFailed)
	o.persist(ag)
	o.logger.Log("agent %s failed: %s", ag.Name, msg)
}
