// Package tools defines the capabilities agents may invoke: the static
// registry of tool schemas sent to the model, the permission gate that
// decides which invocations need human approval, and the executor that
// carries them out.
package tools

import (
	"github.com/anthropics/anthropic-sdk-go"
)

// Tool names. The registry is static and shared by all agents.
const (
	ToolWriteFile       = "write_file"
	ToolReadFile        = "read_file"
	ToolListFiles       = "list_files"
	ToolFetchURL        = "fetch_url"
	ToolViewImage       = "view_image"
	ToolAskUser         = "ask_user"
	ToolMarkComplete    = "mark_complete"
	ToolCreateTask      = "create_task"
	ToolGetTask         = "get_task"
	ToolListTasks       = "list_tasks"
	ToolUpdateTask      = "update_task"
	ToolMarkTaskDone    = "mark_task_done"
	ToolMoveTask        = "move_task"
	ToolAttachFile      = "attach_file"
	ToolListAttachments = "list_attachments"
)

// Definitions returns the tool schemas for model API calls.
func Definitions() []anthropic.ToolUnionParam {
	return []anthropic.ToolUnionParam{
		{
			OfTool: &anthropic.ToolParam{
				Name:        ToolWriteFile,
				Description: anthropic.String("Write content to a file in your workspace. Creates parent directories if needed."),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: map[string]interface{}{
						"filename": map[string]interface{}{
							"type":        "string",
							"description": "File name relative to your workspace",
						},
						"content": map[string]interface{}{
							"type":        "string",
							"description": "Content to write",
						},
					},
					Required: []string{"filename", "content"},
				},
			},
		},
		{
			OfTool: &anthropic.ToolParam{
				Name:        ToolReadFile,
				Description: anthropic.String("Read a file from your workspace and return its contents."),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: map[string]interface{}{
						"filename": map[string]interface{}{
							"type":        "string",
							"description": "File name relative to your workspace",
						},
					},
					Required: []string{"filename"},
				},
			},
		},
		{
			OfTool: &anthropic.ToolParam{
				Name:        ToolListFiles,
				Description: anthropic.String("List the files in your workspace."),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: map[string]interface{}{},
				},
			},
		},
		{
			OfTool: &anthropic.ToolParam{
				Name:        ToolFetchURL,
				Description: anthropic.String("Fetch the content of a web page or resource over HTTP."),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: map[string]interface{}{
						"url": map[string]interface{}{
							"type":        "string",
							"description": "Absolute http(s) URL to fetch",
						},
					},
					Required: []string{"url"},
				},
			},
		},
		{
			OfTool: &anthropic.ToolParam{
				Name:        ToolViewImage,
				Description: anthropic.String("View an image file from your workspace. The image content is returned with the tool result."),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: map[string]interface{}{
						"filename": map[string]interface{}{
							"type":        "string",
							"description": "Image file name relative to your workspace (png, jpeg, gif, or webp)",
						},
					},
					Required: []string{"filename"},
				},
			},
		},
		{
			OfTool: &anthropic.ToolParam{
				Name:        ToolAskUser,
				Description: anthropic.String("Ask the user a question and wait for their answer. Use this when you are blocked on a decision only the user can make."),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: map[string]interface{}{
						"question": map[string]interface{}{
							"type":        "string",
							"description": "The question to ask",
						},
					},
					Required: []string{"question"},
				},
			},
		},
		{
			OfTool: &anthropic.ToolParam{
				Name:        ToolMarkComplete,
				Description: anthropic.String("Mark the delegated task as complete. Set needs_review when the user should look over the deliverable before it counts as done."),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: map[string]interface{}{
						"summary": map[string]interface{}{
							"type":        "string",
							"description": "Short summary of what was accomplished",
						},
						"needs_review": map[string]interface{}{
							"type":        "boolean",
							"description": "If true, pause for the user to review the result",
						},
					},
					Required: []string{"summary"},
				},
			},
		},
		{
			OfTool: &anthropic.ToolParam{
				Name:        ToolCreateTask,
				Description: anthropic.String("Create a task in the task store. Exactly one of deadline or target_date must be set."),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: map[string]interface{}{
						"title": map[string]interface{}{
							"type":        "string",
							"description": "Task title",
						},
						"list": map[string]interface{}{
							"type":        "string",
							"description": "Destination list (default backlog)",
							"enum":        []string{"today", "due_soon", "backlog"},
						},
						"priority": map[string]interface{}{
							"type": "string",
							"enum": []string{"high", "medium", "low", "none"},
						},
						"deadline": map[string]interface{}{
							"type":        "string",
							"description": "Hard deadline date (YYYY-MM-DD)",
						},
						"target_date": map[string]interface{}{
							"type":        "string",
							"description": "Soft target date (YYYY-MM-DD)",
						},
						"parent_id": map[string]interface{}{
							"type":        "string",
							"description": "Parent task id, if this is a subtask",
						},
						"notes": map[string]interface{}{
							"type":        "array",
							"items":       map[string]interface{}{"type": "string"},
							"description": "Initial notes",
						},
					},
					Required: []string{"title"},
				},
			},
		},
		{
			OfTool: &anthropic.ToolParam{
				Name:        ToolGetTask,
				Description: anthropic.String("Read a task by id, including its full notes."),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: map[string]interface{}{
						"id": map[string]interface{}{
							"type":        "string",
							"description": "Task id",
						},
					},
					Required: []string{"id"},
				},
			},
		},
		{
			OfTool: &anthropic.ToolParam{
				Name:        ToolListTasks,
				Description: anthropic.String("List tasks across the active lists. Notes are returned as a count only."),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: map[string]interface{}{
						"list": map[string]interface{}{
							"type":        "string",
							"description": "Restrict to one list",
							"enum":        []string{"today", "due_soon", "backlog"},
						},
						"priority": map[string]interface{}{
							"type": "string",
							"enum": []string{"high", "medium", "low", "none"},
						},
						"has_deadline": map[string]interface{}{
							"type":        "boolean",
							"description": "Keep only tasks with (true) or without (false) a deadline",
						},
						"parent_id": map[string]interface{}{
							"type":        "string",
							"description": "Keep only subtasks of this task",
						},
					},
				},
			},
		},
		{
			OfTool: &anthropic.ToolParam{
				Name:        ToolUpdateTask,
				Description: anthropic.String("Update fields of a task. Notes in add_notes are appended; existing notes are never removed."),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: map[string]interface{}{
						"id": map[string]interface{}{
							"type":        "string",
							"description": "Task id",
						},
						"title": map[string]interface{}{
							"type": "string",
						},
						"priority": map[string]interface{}{
							"type": "string",
							"enum": []string{"high", "medium", "low", "none"},
						},
						"deadline": map[string]interface{}{
							"type": "string",
						},
						"target_date": map[string]interface{}{
							"type": "string",
						},
						"add_notes": map[string]interface{}{
							"type":  "array",
							"items": map[string]interface{}{"type": "string"},
						},
					},
					Required: []string{"id"},
				},
			},
		},
		{
			OfTool: &anthropic.ToolParam{
				Name:        ToolMarkTaskDone,
				Description: anthropic.String("Mark a task completed and move it to the done archive."),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: map[string]interface{}{
						"id": map[string]interface{}{
							"type":        "string",
							"description": "Task id",
						},
						"completion_notes": map[string]interface{}{
							"type":        "string",
							"description": "Note describing how the task was completed",
						},
					},
					Required: []string{"id"},
				},
			},
		},
		{
			OfTool: &anthropic.ToolParam{
				Name:        ToolMoveTask,
				Description: anthropic.String("Move a task between the active lists."),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: map[string]interface{}{
						"id": map[string]interface{}{
							"type":        "string",
							"description": "Task id",
						},
						"destination": map[string]interface{}{
							"type": "string",
							"enum": []string{"today", "due_soon", "backlog"},
						},
					},
					Required: []string{"id", "destination"},
				},
			},
		},
		{
			OfTool: &anthropic.ToolParam{
				Name:        ToolAttachFile,
				Description: anthropic.String("Attach a file from your workspace to a task."),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: map[string]interface{}{
						"id": map[string]interface{}{
							"type":        "string",
							"description": "Task id",
						},
						"filename": map[string]interface{}{
							"type":        "string",
							"description": "Workspace file to attach",
						},
					},
					Required: []string{"id", "filename"},
				},
			},
		},
		{
			OfTool: &anthropic.ToolParam{
				Name:        ToolListAttachments,
				Description: anthropic.String("List the files attached to a task."),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: map[string]interface{}{
						"id": map[string]interface{}{
							"type":        "string",
							"description": "Task id",
						},
					},
					Required: []string{"id"},
				},
			},
		},
	}
}
