package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nlevents/calpipe/internal/event"
)

func (a *App) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [task-id]",
		Short: "Delete a task by ID, cascading to its subtasks if it is a parent",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if err := a.ensurePipeline(); err != nil {
				return err
			}
			printDeleteResult(a.pipeline.Delete(context.Background(), args[0]))
			return nil
		},
	}
}

func (a *App) deleteChildrenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-children [parent-id]",
		Short: "Delete every subtask of a parent task",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if err := a.ensurePipeline(); err != nil {
				return err
			}
			printDeleteResult(a.pipeline.DeleteChildren(context.Background(), args[0]))
			return nil
		},
	}
}

func printDeleteResult(r event.DeleteResult) {
	fmt.Printf("Deleted %d, skipped %d, errored %d\n", len(r.Deleted), len(r.Skipped), len(r.Errors))
	for _, d := range r.Deleted {
		fmt.Printf("  deleted: %s (event %s)\n", d.TaskID, d.CalendarEventID)
	}
	for _, s := range r.Skipped {
		fmt.Printf("  skipped: %s (%s)\n", s.TaskID, s.Reason)
	}
	for _, e := range r.Errors {
		fmt.Printf("  error: %s (%s)\n", e.TaskID, e.Reason)
	}
}
