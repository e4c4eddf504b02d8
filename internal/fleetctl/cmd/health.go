package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/piragazh/feasto-signage/api/types/v1alpha1"
	"github.com/piragazh/feasto-signage/internal/fleetctl/client"
	"github.com/piragazh/feasto-signage/internal/fleetctl/util"
)

// newHealthCmd creates the fleet health summary command
func newHealthCmd(opts *rootOptions) *cobra.Command {
	var (
		filter client.ScreenFilter
		output string
	)

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Summarize fleet health",
		Long: `Count screens by derived health and total the unresolved issues.
A screen is online while its last heartbeat is within two intervals, warning
up to four intervals, and offline after that. Open errors turn an online
screen into error, open warnings into warning.`,
		Example: `  fleetctl health --restaurant=soho`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkOutput(output); err != nil {
				return err
			}
			c, err := opts.client()
			if err != nil {
				return err
			}
			sum, err := c.Health(cmd.Context(), filter)
			if err != nil {
				return fmt.Errorf("error getting health: %w", err)
			}

			out := cmd.OutOrStdout()
			if output == "json" {
				return util.PrintJSON(out, sum)
			}
			tw := util.NewTabWriter(out)
			fmt.Fprintf(tw, "TOTAL\tONLINE\tWARNING\tERROR\tOFFLINE\tOPEN ERRORS\tOPEN WARNINGS\n")
			fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t%d\t%d\t%d\n",
				sum.Total, sum.Online, sum.Warning, sum.Error, sum.Offline, sum.PendingErrors, sum.PendingWarnings)
			if err := tw.Flush(); err != nil {
				return err
			}

			if sum.Total == sum.Online {
				return nil
			}
			// List the screens that need attention.
			screens, err := c.ListScreens(cmd.Context(), filter)
			if err != nil {
				return fmt.Errorf("error listing screens: %w", err)
			}
			var unhealthy []v1alpha1.Screen
			for _, s := range screens {
				if s.Status.Health != v1alpha1.HealthOnline {
					unhealthy = append(unhealthy, s)
				}
			}
			fmt.Fprintln(out)
			printScreens(out, unhealthy, time.Now())
			return nil
		},
	}

	cmd.Flags().StringVar(&filter.RestaurantID, "restaurant", "", "Only screens of this restaurant")
	cmd.Flags().StringVar(&filter.Wall, "wall", "", "Only screens of this wall")
	cmd.Flags().StringVar(&filter.Group, "group", "", "Only screens with this group label")
	addOutputFlag(cmd, &output)

	return cmd
}
