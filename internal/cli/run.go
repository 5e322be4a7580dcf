package cli

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/nlevents/calpipe/internal/pipeline"
)

func (a *App) runCmd() *cobra.Command {
	var timezone string

	cmd := &cobra.Command{
		Use:   "run [query]",
		Short: "Process a natural-language request and schedule it",
		Long: `Run the full eight-stage pipeline against a natural-language
request and write the resulting event(s) to the calendar.

Example:
  calpipe run "Call mom tomorrow at 2pm for 30 minutes"
  calpipe run "Plan a 5-day Japan trip by Nov 15" --timezone "America/Los_Angeles"`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if err := a.ensurePipeline(); err != nil {
				return err
			}

			tz := timezone
			if tz == "" {
				tz = a.config.Pipeline.Timezone
			}

			result, err := a.pipeline.Run(context.Background(), args[0], tz)
			if err != nil {
				return fmt.Errorf("running pipeline: %w", err)
			}

			printRunResult(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&timezone, "timezone", "", "IANA timezone to resolve relative dates against (default: configured pipeline timezone)")
	return cmd
}

func printRunResult(r pipeline.Result) {
	switch {
	case r.Simple != nil:
		fmt.Printf("Scheduled simple task %s: %s\n", r.Simple.ID, r.Simple.Title)
		fmt.Printf("  Slot: %s -> %s (%s, %s)\n",
			r.Simple.Slot.Start.Format("2006-01-02 15:04"), r.Simple.Slot.End.Format("2006-01-02 15:04"),
			humanize.Time(r.Simple.Slot.Start), humanize.RelTime(r.Simple.Slot.Start, r.Simple.Slot.End, "", ""))
	case r.Complex != nil:
		fmt.Printf("Scheduled complex task %s: %s (%d subtasks)\n", r.Complex.ID, r.Complex.Title, len(r.Complex.Subtasks))
		for _, st := range r.Complex.Subtasks {
			fmt.Printf("  %s: %s -> %s (%s, %s)\n", st.Title,
				st.Slot.Start.Format("2006-01-02 15:04"), st.Slot.End.Format("2006-01-02 15:04"),
				humanize.Time(st.Slot.Start), humanize.RelTime(st.Slot.Start, st.Slot.End, "", ""))
		}
	}

	for _, c := range r.Created {
		fmt.Printf("  created event %s for task %s\n", c.CalendarEventID, c.TaskID)
	}
	for _, f := range r.Failed {
		fmt.Printf("  failed task %s: %s\n", f.TaskID, f.Error)
	}
}
