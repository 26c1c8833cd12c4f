// Package taskstore implements the flat-file task record store shared by
// all agents and the tool layer. Each list is one human-readable file of
// record blocks; every mutation reads the full file, edits the in-memory
// record list, and rewrites the file.
package taskstore

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aide-sh/aide/pkg/models"
)

// titleMarker starts a record block inside a list file.
const titleMarker = "## "

// ParseList parses raw list-file content into task records. Parsing is
// tolerant: unknown keys are ignored, missing keys take their defaults,
// and a record without an id line is silently dropped (it would be
// unreferenceable anyway).
func ParseList(content string) []*models.Task {
	var tasks []*models.Task

	lines := strings.Split(content, "\n")
	var block []string
	flush := func() {
		if len(block) == 0 {
			return
		}
		if t := parseBlock(block); t != nil {
			tasks = append(tasks, t)
		}
		block = nil
	}

	for _, line := range lines {
		if strings.HasPrefix(line, titleMarker) {
			flush()
		}
		if len(block) > 0 || strings.HasPrefix(line, titleMarker) {
			block = append(block, line)
		}
	}
	flush()

	return tasks
}

func parseBlock(lines []string) *models.Task {
	t := &models.Task{
		Title:    strings.TrimSpace(strings.TrimPrefix(lines[0], titleMarker)),
		Status:   models.TaskStatusOpen,
		Priority: models.PriorityNone,
	}

	inNotes := false
	for _, line := range lines[1:] {
		if inNotes {
			trimmed := strings.TrimSpace(line)
			if strings.HasPrefix(trimmed, "- ") {
				t.Notes = append(t.Notes, strings.TrimPrefix(trimmed, "- "))
			}
			continue
		}

		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch key {
		case "id":
			t.ID = value
		case "parent_id":
			t.ParentID = fromNone(value)
		case "subtasks":
			if v := fromNone(value); v != "" {
				t.Subtasks = splitCSV(v)
			}
		case "status":
			if s := models.TaskStatus(value); s.Valid() {
				t.Status = s
			}
		case "priority":
			if p := models.Priority(value); p.Valid() {
				t.Priority = p
			}
		case "deadline":
			t.Deadline = fromNone(value)
		case "target_date":
			t.TargetDate = fromNone(value)
		case "days_in_today":
			if n, err := strconv.Atoi(value); err == nil {
				t.DaysInToday = n
			}
		case "completed_date":
			t.CompletedDate = fromNone(value)
		case "attachments":
			if v := fromNone(value); v != "" {
				t.Attachments = splitCSV(v)
			}
		case "notes":
			inNotes = true
		}
	}

	if t.ID == "" {
		return nil
	}
	return t
}

// SerializeList renders records back into list-file content. Field order is
// fixed so that parse → serialize → parse reproduces the same logical
// record.
func SerializeList(tasks []*models.Task) string {
	var b strings.Builder
	for i, t := range tasks {
		if i > 0 {
			b.WriteString("\n")
		}
		serializeTask(&b, t)
	}
	return b.String()
}

func serializeTask(b *strings.Builder, t *models.Task) {
	fmt.Fprintf(b, "%s%s\n", titleMarker, t.Title)
	fmt.Fprintf(b, "id: %s\n", t.ID)
	fmt.Fprintf(b, "parent_id: %s\n", toNone(t.ParentID))
	fmt.Fprintf(b, "subtasks: %s\n", toNone(strings.Join(t.Subtasks, ",")))
	fmt.Fprintf(b, "status: %s\n", t.Status)
	fmt.Fprintf(b, "priority: %s\n", t.Priority)
	fmt.Fprintf(b, "deadline: %s\n", toNone(t.Deadline))
	fmt.Fprintf(b, "target_date: %s\n", toNone(t.TargetDate))
	fmt.Fprintf(b, "days_in_today: %d\n", t.DaysInToday)
	if t.CompletedDate != "" {
		fmt.Fprintf(b, "completed_date: %s\n", t.CompletedDate)
	}
	if len(t.Attachments) > 0 {
		fmt.Fprintf(b, "attachments: %s\n", strings.Join(t.Attachments, ","))
	}
	b.WriteString("notes:\n")
	for _, n := range t.Notes {
		fmt.Fprintf(b, "- %s\n", n)
	}
}

func fromNone(v string) string {
	if v == models.None {
		return ""
	}
	return v
}

func toNone(v string) string {
	if v == "" {
		return models.None
	}
	return v
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
