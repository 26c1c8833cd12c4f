package models

// TaskStatus represents the lifecycle state of a stored task.
type TaskStatus string

const (
	// TaskStatusOpen indicates the task is still actionable.
	TaskStatusOpen TaskStatus = "open"
	// TaskStatusCompleted indicates the task was finished and archived.
	TaskStatusCompleted TaskStatus = "completed"
	// TaskStatusDropped indicates the task was abandoned.
	TaskStatusDropped TaskStatus = "dropped"
)

// Valid returns true if the status is a known value.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusOpen, TaskStatusCompleted, TaskStatusDropped:
		return true
	default:
		return false
	}
}

// Priority represents the urgency of a task.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
	PriorityNone   Priority = "none"
)

// Valid returns true if the priority is a known value.
func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow, PriorityNone:
		return true
	default:
		return false
	}
}

// ListName identifies one of the five task list files.
type ListName string

const (
	// ListToday holds tasks scheduled for the current day.
	ListToday ListName = "today"
	// ListDueSoon holds tasks with approaching deadlines.
	ListDueSoon ListName = "due_soon"
	// ListBacklog holds everything not yet scheduled.
	ListBacklog ListName = "backlog"
	// ListDone is the archive of completed tasks.
	ListDone ListName = "done"
	// ListDropped is the archive of abandoned tasks.
	ListDropped ListName = "dropped"
)

// Valid returns true if the list name is a known value.
func (l ListName) Valid() bool {
	switch l {
	case ListToday, ListDueSoon, ListBacklog, ListDone, ListDropped:
		return true
	default:
		return false
	}
}

// Active returns true if the list holds open tasks (not an archive).
func (l ListName) Active() bool {
	switch l {
	case ListToday, ListDueSoon, ListBacklog:
		return true
	default:
		return false
	}
}

// ActiveLists are the three lists scanned for open tasks, in scan order.
var ActiveLists = []ListName{ListToday, ListDueSoon, ListBacklog}

// AllLists are every list including the two archives, in scan order.
var AllLists = []ListName{ListToday, ListDueSoon, ListBacklog, ListDone, ListDropped}

// None is the sentinel written for unset string fields in record files.
const None = "none"

// Task is one record block in a list file. A task lives in exactly one
// list at a time; moving it removes it from the source and appends it to
// the destination.
type Task struct {
	// Title is the record's human-readable heading.
	Title string `json:"title"`
	// ID is the slug derived from the title, unique across all five lists.
	ID string `json:"id"`
	// ParentID references the parent task, or empty for top-level tasks.
	ParentID string `json:"parent_id,omitempty"`
	// Subtasks lists child task IDs in creation order.
	Subtasks []string `json:"subtasks,omitempty"`
	// Status is the lifecycle state.
	Status TaskStatus `json:"status"`
	// Priority is the urgency level.
	Priority Priority `json:"priority"`
	// Deadline is a hard date ("none" semantics when empty).
	Deadline string `json:"deadline,omitempty"`
	// TargetDate is a soft date; exactly one of Deadline/TargetDate is
	// required to be set at creation.
	TargetDate string `json:"target_date,omitempty"`
	// DaysInToday counts consecutive days the task has sat in today.
	DaysInToday int `json:"days_in_today"`
	// CompletedDate is stamped when the task is marked done.
	CompletedDate string `json:"completed_date,omitempty"`
	// Attachments lists filenames stored in the task's attachment directory.
	Attachments []string `json:"attachments,omitempty"`
	// Notes is the append-only audit trail. Entries are pre-rendered with
	// their timestamp and author and are never rewritten.
	Notes []string `json:"notes,omitempty"`
}

// TaskSummary is a compact listing row: the full notes are stripped and
// only their count is reported.
type TaskSummary struct {
	Title      string     `json:"title"`
	ID         string     `json:"id"`
	List       ListName   `json:"list"`
	ParentID   string     `json:"parent_id,omitempty"`
	Status     TaskStatus `json:"status"`
	Priority   Priority   `json:"priority"`
	Deadline   string     `json:"deadline,omitempty"`
	TargetDate string     `json:"target_date,omitempty"`
	NotesCount int        `json:"notes_count"`
}
