package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/piragazh/feasto-signage/api/types/v1alpha1"
	"github.com/piragazh/feasto-signage/internal/fleetctl/util"
)

func newScheduleCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Work with content schedules",
	}
	cmd.AddCommand(newScheduleCheckCmd(opts))
	return cmd
}

func newScheduleCheckCmd(opts *rootOptions) *cobra.Command {
	var (
		sched    util.ScheduleFlags
		at       string
		inactive bool
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check whether a schedule admits an instant",
		Long: `Ask the server whether a schedule built from the flags admits an instant.
Without --at the server's current time is used. Days and times are read in
the offset of --at, so pass the restaurant's local offset.`,
		Example: `  # Would a weekday lunch rule play on Monday at noon?
  fleetctl schedule check --day=mon --day=fri --time=11:00-15:00 --at=2024-03-04T12:00:00Z`,
		RunE: func(cmd *cobra.Command, args []string) error {
			schedule, err := util.ParseSchedule(sched)
			if err != nil {
				return err
			}
			req := &v1alpha1.ScheduleCheckRequest{IsActive: !inactive}
			if schedule != nil {
				req.Schedule = *schedule
			}
			if at != "" {
				t, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("invalid --at %q: %w", at, err)
				}
				req.At = t
			}

			c, err := opts.client()
			if err != nil {
				return err
			}
			res, err := c.CheckSchedule(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("error checking schedule: %w", err)
			}

			out := cmd.OutOrStdout()
			verdict := "not eligible"
			if res.Eligible {
				verdict = "eligible"
			}
			fmt.Fprintf(out, "%s at %s\n", verdict, res.At.Format(time.RFC3339))
			for _, w := range res.Warnings {
				fmt.Fprintf(out, "warning: %s\n", w)
			}
			return nil
		},
	}

	addScheduleFlags(cmd, &sched)
	cmd.Flags().StringVar(&at, "at", "", "Instant to check (RFC 3339)")
	cmd.Flags().BoolVar(&inactive, "inactive", false, "Check as a switched-off item")

	return cmd
}
