package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/aide-sh/aide/internal/taskstore"
	"github.com/aide-sh/aide/pkg/models"
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "Work with the task lists",
}

var (
	tasksListName  string
	tasksPriority  string
	tasksWatchFlag bool

	addList     string
	addPriority string
	addDeadline string
	addTarget   string
	addParent   string
	addNotes    []string

	doneNote string
)

var tasksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks across the active lists",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, store, err := openStore()
		if err != nil {
			return err
		}

		if err := printTasks(store); err != nil {
			return err
		}
		if !tasksWatchFlag {
			return nil
		}

		// Reprint whenever a list file changes on disk.
		w, err := taskstore.Watch(store)
		if err != nil {
			return err
		}
		defer w.Close()
		for range w.Changes() {
			fmt.Println()
			if err := printTasks(store); err != nil {
				return err
			}
		}
		return nil
	},
}

func printTasks(store *taskstore.Store) error {
	filter := taskstore.ListFilter{Priority: models.Priority(tasksPriority)}
	if tasksListName != "" {
		filter.Lists = []models.ListName{models.ListName(tasksListName)}
	}

	rows, err := store.List(filter)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Println("no tasks")
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tLIST\tPRI\tDUE\tTITLE\tNOTES")
	for _, t := range rows {
		due := t.Deadline
		if due == "" {
			due = t.TargetDate
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\n",
			t.ID, t.List, renderPriority(t.Priority), due, t.Title, t.NotesCount)
	}
	return tw.Flush()
}

func renderPriority(p models.Priority) string {
	switch p {
	case models.PriorityHigh:
		return color.RedString(string(p))
	case models.PriorityMedium:
		return color.YellowString(string(p))
	default:
		return string(p)
	}
}

var tasksAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Create a task (exactly one of --deadline or --target required)",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, store, err := openStore()
		if err != nil {
			return err
		}

		task, err := store.Create(taskstore.CreateInput{
			Title:      strings.Join(args, " "),
			ParentID:   addParent,
			Priority:   models.Priority(addPriority),
			Deadline:   addDeadline,
			TargetDate: addTarget,
			List:       models.ListName(addList),
			Notes:      addNotes,
		}, "user")
		if err != nil {
			return err
		}
		fmt.Printf("created %s\n", color.CyanString(task.ID))
		return nil
	},
}

var tasksShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one task with its notes and attachments",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, store, err := openStore()
		if err != nil {
			return err
		}

		task, list, err := store.Get(args[0])
		if err != nil {
			return err
		}
		if task == nil {
			return fmt.Errorf("task %q not found", args[0])
		}

		fmt.Printf("%s (%s, %s)\n", color.New(color.Bold).Sprint(task.Title), task.ID, list)
		fmt.Printf("status: %s  priority: %s\n", task.Status, task.Priority)
		if task.Deadline != "" {
			fmt.Printf("deadline: %s\n", task.Deadline)
		}
		if task.TargetDate != "" {
			fmt.Printf("target: %s\n", task.TargetDate)
		}
		if task.ParentID != "" {
			fmt.Printf("parent: %s\n", task.ParentID)
		}
		if len(task.Subtasks) > 0 {
			fmt.Printf("subtasks: %s\n", strings.Join(task.Subtasks, ", "))
		}
		if len(task.Attachments) > 0 {
			fmt.Printf("attachments: %s\n", strings.Join(task.Attachments, ", "))
		}
		for _, n := range task.Notes {
			fmt.Printf("  %s\n", n)
		}
		return nil
	},
}

var tasksDoneCmd = &cobra.Command{
	Use:   "done <id>",
	Short: "Mark a task completed and archive it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, store, err := openStore()
		if err != nil {
			return err
		}
		if _, err := store.MarkDone(args[0], doneNote, "user"); err != nil {
			return err
		}
		fmt.Printf("%s %s\n", color.GreenString("done"), args[0])
		return nil
	},
}

var tasksMoveCmd = &cobra.Command{
	Use:   "move <id> <today|due_soon|backlog>",
	Short: "Move a task between active lists",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, store, err := openStore()
		if err != nil {
			return err
		}
		moved, err := store.Move(args[0], models.ListName(args[1]))
		if err != nil {
			return err
		}
		if !moved {
			fmt.Printf("%s already in %s\n", args[0], args[1])
			return nil
		}
		fmt.Printf("moved %s to %s\n", args[0], args[1])
		return nil
	},
}

var tasksAttachCmd = &cobra.Command{
	Use:   "attach <id> <file>",
	Short: "Attach a file to a task",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, store, err := openStore()
		if err != nil {
			return err
		}
		if err := store.AttachFile(args[0], args[1], "user"); err != nil {
			return err
		}
		fmt.Printf("attached %s to %s\n", args[1], args[0])
		return nil
	},
}

func init() {
	tasksListCmd.Flags().StringVar(&tasksListName, "list", "", "Restrict to one list")
	tasksListCmd.Flags().StringVar(&tasksPriority, "priority", "", "Filter by priority")
	tasksListCmd.Flags().BoolVar(&tasksWatchFlag, "watch", false, "Reprint when the list files change")

	tasksAddCmd.Flags().StringVar(&addList, "list", "", "Destination list (default backlog)")
	tasksAddCmd.Flags().StringVar(&addPriority, "priority", "", "Priority (high, medium, low)")
	tasksAddCmd.Flags().StringVar(&addDeadline, "deadline", "", "Hard deadline (YYYY-MM-DD)")
	tasksAddCmd.Flags().StringVar(&addTarget, "target", "", "Soft target date (YYYY-MM-DD)")
	tasksAddCmd.Flags().StringVar(&addParent, "parent", "", "Parent task id")
	tasksAddCmd.Flags().StringArrayVar(&addNotes, "note", nil, "Initial note (repeatable)")

	tasksDoneCmd.Flags().StringVarP(&doneNote, "message", "m", "", "Completion note")

	tasksCmd.AddCommand(tasksListCmd)
	tasksCmd.AddCommand(tasksAddCmd)
	tasksCmd.AddCommand(tasksShowCmd)
	tasksCmd.AddCommand(tasksDoneCmd)
	tasksCmd.AddCommand(tasksMoveCmd)
	tasksCmd.AddCommand(tasksAttachCmd)
}
