package taskstore

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aide-sh/aide/pkg/models"
)

// Store provides durable CRUD over the five flat list files. A single
// mutex serializes every read-modify-write cycle so concurrent agents in
// one process cannot lose updates; cross-process writers remain unguarded,
// an accepted risk given the low write frequency.
type Store struct {
	dir string
	mu  sync.Mutex
	now func() time.Time
}

// New creates a store rooted at the given directory. List files are
// allowed to be absent until first written.
func New(dir string) *Store {
	return &Store{dir: dir, now: time.Now}
}

// Dir returns the store's root directory.
func (s *Store) Dir() string {
	return s.dir
}

// ListPath returns the on-disk path of a list file.
func (s *Store) ListPath(list models.ListName) string {
	return filepath.Join(s.dir, string(list)+".md")
}

// AttachmentsDir returns the per-task attachment directory.
func (s *Store) AttachmentsDir(taskID string) string {
	return filepath.Join(s.dir, "attachments", taskID)
}

// readList loads and parses one list. A missing file is an empty list,
// not an error.
func (s *Store) readList(list models.ListName) ([]*models.Task, error) {
	content, err := os.ReadFile(s.ListPath(list))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s list: %w", list, err)
	}
	return ParseList(string(content)), nil
}

func (s *Store) writeList(list models.ListName, tasks []*models.Task) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}
	if err := os.WriteFile(s.ListPath(list), []byte(SerializeList(tasks)), 0644); err != nil {
		return fmt.Errorf("write %s list: %w", list, err)
	}
	return nil
}

// CreateInput carries the fields accepted at task creation.
type CreateInput struct {
	Title      string
	ParentID   string
	Priority   models.Priority
	Deadline   string
	TargetDate string
	// List is the destination; defaults to backlog.
	List models.ListName
	// Notes are initial note lines, stamped and attributed on write.
	Notes []string
}

// Create appends a new record to the destination list. The id is the
// slugified title, suffixed -1, -2, ... on collision; uniqueness holds
// across all five lists. Exactly one of Deadline/TargetDate must be set.
// When ParentID is given the parent's subtask list is updated as well.
func (s *Store) Create(in CreateInput, author string) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if in.Title == "" {
		return nil, fmt.Errorf("task title is required")
	}
	if in.Deadline == "" && in.TargetDate == "" {
		return nil, fmt.Errorf("either deadline or target_date must be set")
	}
	if in.Deadline != "" && in.TargetDate != "" {
		return nil, fmt.Errorf("deadline and target_date are mutually exclusive")
	}

	dest := in.List
	if dest == "" {
		dest = models.ListBacklog
	}
	if !dest.Active() {
		return nil, fmt.Errorf("cannot create task in archive list %q", dest)
	}

	priority := in.Priority
	if priority == "" {
		priority = models.PriorityNone
	}
	if !priority.Valid() {
		return nil, fmt.Errorf("invalid priority %q", in.Priority)
	}

	id, err := s.uniqueID(in.Title)
	if err != nil {
		return nil, err
	}

	task := &models.Task{
		Title:      in.Title,
		ID:         id,
		ParentID:   in.ParentID,
		Status:     models.TaskStatusOpen,
		Priority:   priority,
		Deadline:   in.Deadline,
		TargetDate: in.TargetDate,
	}
	for _, n := range in.Notes {
		task.Notes = append(task.Notes, s.renderNote(author, n))
	}

	if in.ParentID != "" {
		if err := s.linkSubtask(in.ParentID, id); err != nil {
			return nil, err
		}
	}

	tasks, err := s.readList(dest)
	if err != nil {
		return nil, err
	}
	tasks = append(tasks, task)
	if err := s.writeList(dest, tasks); err != nil {
		return nil, err
	}
	return task, nil
}

// uniqueID slugifies the title and probes all five lists for collisions.
func (s *Store) uniqueID(title string) (string, error) {
	base := Slugify(title)
	if base == "" {
		return "", fmt.Errorf("title %q produces an empty id", title)
	}

	taken := make(map[string]bool)
	for _, list := range models.AllLists {
		tasks, err := s.readList(list)
		if err != nil {
			return "", err
		}
		for _, t := range tasks {
			taken[t.ID] = true
		}
	}

	if !taken[base] {
		return base, nil
	}
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s-%d", base, i)
		if !taken[candidate] {
			return candidate, nil
		}
	}
}

// linkSubtask appends a child id to the parent's subtask list.
func (s *Store) linkSubtask(parentID, childID string) error {
	parent, list, err := s.find(parentID)
	if err != nil {
		return err
	}
	if parent == nil {
		return fmt.Errorf("parent task %q not found", parentID)
	}
	parent.Subtasks = append(parent.Subtasks, childID)
	return s.replace(list, parent)
}

// find scans the active lists for a task; first match wins. A nil task
// with a nil error means the id is absent.
func (s *Store) find(id string) (*models.Task, models.ListName, error) {
	for _, list := range models.ActiveLists {
		tasks, err := s.readList(list)
		if err != nil {
			return nil, "", err
		}
		for _, t := range tasks {
			if t.ID == id {
				return t, list, nil
			}
		}
	}
	return nil, "", nil
}

// replace rewrites one list with the given task substituted in place.
func (s *Store) replace(list models.ListName, task *models.Task) error {
	tasks, err := s.readList(list)
	if err != nil {
		return err
	}
	for i, t := range tasks {
		if t.ID == task.ID {
			tasks[i] = task
			return s.writeList(list, tasks)
		}
	}
	return fmt.Errorf("task %q vanished from %s list", task.ID, list)
}

// remove deletes a task from one list and rewrites it.
func (s *Store) remove(list models.ListName, id string) error {
	tasks, err := s.readList(list)
	if err != nil {
		return err
	}
	kept := tasks[:0]
	for _, t := range tasks {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	return s.writeList(list, kept)
}

// append adds a task to the end of one list.
func (s *Store) append(list models.ListName, task *models.Task) error {
	tasks, err := s.readList(list)
	if err != nil {
		return err
	}
	return s.writeList(list, append(tasks, task))
}

// Get returns the task with the given id, scanning the three active lists.
// Returns a nil task when absent.
func (s *Store) Get(id string) (*models.Task, models.ListName, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.find(id)
}

// ListFilter narrows List results. Zero values mean "no constraint".
type ListFilter struct {
	// Lists restricts the scan; empty means all three active lists.
	Lists []models.ListName
	// Priority keeps only tasks at the given priority.
	Priority models.Priority
	// HasDeadline, when non-nil, keeps tasks with (true) or without
	// (false) a hard deadline.
	HasDeadline *bool
	// ParentID keeps only subtasks of the given task.
	ParentID string
}

// List scans the requested lists and returns compact summaries with notes
// stripped to a count.
func (s *Store) List(filter ListFilter) ([]models.TaskSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lists := filter.Lists
	if len(lists) == 0 {
		lists = models.ActiveLists
	}

	var out []models.TaskSummary
	for _, list := range lists {
		if !list.Active() {
			return nil, fmt.Errorf("cannot list archive %q", list)
		}
		tasks, err := s.readList(list)
		if err != nil {
			return nil, err
		}
		for _, t := range tasks {
			if filter.Priority != "" && t.Priority != filter.Priority {
				continue
			}
			if filter.HasDeadline != nil && (t.Deadline != "") != *filter.HasDeadline {
				continue
			}
			if filter.ParentID != "" && t.ParentID != filter.ParentID {
				continue
			}
			out = append(out, models.TaskSummary{
				Title:      t.Title,
				ID:         t.ID,
				List:       list,
				ParentID:   t.ParentID,
				Status:     t.Status,
				Priority:   t.Priority,
				Deadline:   t.Deadline,
				TargetDate: t.TargetDate,
				NotesCount: len(t.Notes),
			})
		}
	}
	return out, nil
}

// UpdatePatch overwrites any field that is present; nil pointers leave the
// field untouched. AddNotes entries are appended, never replacing existing
// notes.
type UpdatePatch struct {
	Title      *string
	Priority   *models.Priority
	Deadline   *string
	TargetDate *string
	AddNotes   []string
}

// Update applies a patch to the task with the given id.
func (s *Store) Update(id string, patch UpdatePatch, author string) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, list, err := s.find(id)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, fmt.Errorf("task %q not found", id)
	}

	if patch.Title != nil {
		task.Title = *patch.Title
	}
	if patch.Priority != nil {
		if !patch.Priority.Valid() {
			return nil, fmt.Errorf("invalid priority %q", *patch.Priority)
		}
		task.Priority = *patch.Priority
	}
	if patch.Deadline != nil {
		task.Deadline = *patch.Deadline
	}
	if patch.TargetDate != nil {
		task.TargetDate = *patch.TargetDate
	}
	for _, n := range patch.AddNotes {
		task.Notes = append(task.Notes, s.renderNote(author, n))
	}

	if err := s.replace(list, task); err != nil {
		return nil, err
	}
	return task, nil
}

// MarkDone removes the task from its active list, stamps it completed, and
// appends it to the done archive. The two writes are not transactional: a
// crash between them can leave the record in neither or both files.
func (s *Store) MarkDone(id, completionNote, author string) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, list, err := s.find(id)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, fmt.Errorf("task %q not found", id)
	}

	if err := s.remove(list, id); err != nil {
		return nil, err
	}

	task.Status = models.TaskStatusCompleted
	task.CompletedDate = s.now().Format("2006-01-02")
	if completionNote != "" {
		task.Notes = append(task.Notes, s.renderNote(author, completionNote))
	}

	if err := s.append(models.ListDone, task); err != nil {
		return nil, err
	}
	return task, nil
}

// Move relocates a task between active lists. Moving to the current list
// is a no-op; the returned bool reports whether anything changed. Entering
// today resets the days_in_today counter to 1, leaving it resets to 0.
func (s *Store) Move(id string, dest models.ListName) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !dest.Active() {
		return false, fmt.Errorf("invalid destination %q", dest)
	}

	task, list, err := s.find(id)
	if err != nil {
		return false, err
	}
	if task == nil {
		return false, fmt.Errorf("task %q not found", id)
	}
	if list == dest {
		return false, nil
	}

	if err := s.remove(list, id); err != nil {
		return false, err
	}
	if dest == models.ListToday {
		task.DaysInToday = 1
	} else {
		task.DaysInToday = 0
	}
	if err := s.append(dest, task); err != nil {
		return false, err
	}
	return true, nil
}

// AttachFile copies a file into the task's attachment directory, records
// the filename on the task, and appends an attribution note.
func (s *Store) AttachFile(id, srcPath, author string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, list, err := s.find(id)
	if err != nil {
		return err
	}
	if task == nil {
		return fmt.Errorf("task %q not found", id)
	}

	name := filepath.Base(srcPath)
	destDir := s.AttachmentsDir(id)
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return fmt.Errorf("create attachment directory: %w", err)
	}
	if err := copyFile(srcPath, filepath.Join(destDir, name)); err != nil {
		return fmt.Errorf("copy attachment: %w", err)
	}

	already := false
	for _, a := range task.Attachments {
		if a == name {
			already = true
			break
		}
	}
	if !already {
		task.Attachments = append(task.Attachments, name)
	}
	task.Notes = append(task.Notes, s.renderNote(author, fmt.Sprintf("attached file %s", name)))

	return s.replace(list, task)
}

// Attachments returns the attachment filenames recorded on a task.
func (s *Store) Attachments(id string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, _, err := s.find(id)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, fmt.Errorf("task %q not found", id)
	}
	return task.Attachments, nil
}

func (s *Store) renderNote(author, text string) string {
	if author == "" {
		author = "aide"
	}
	return fmt.Sprintf("[%s] %s: %s", s.now().Format("2006-01-02 15:04"), author, text)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
