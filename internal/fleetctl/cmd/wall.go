package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/piragazh/feasto-signage/api/types/v1alpha1"
	"github.com/piragazh/feasto-signage/internal/fleetctl/util"
)

// newWallCmd creates the video wall command
func newWallCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "wall",
		Aliases: []string{"walls"},
		Short:   "Manage video walls",
		Long: `A video wall is a named grid of screens that share one playback cursor.
Walls exist as long as at least one screen is bound to them.`,
	}

	cmd.AddCommand(
		newWallListCmd(opts),
		newWallGetCmd(opts),
		newWallProvisionCmd(opts),
		newWallTimelineCmd(opts),
		newWallNowPlayingCmd(opts),
	)

	return cmd
}

func formatPositions(ps []v1alpha1.Position) string {
	if len(ps) == 0 {
		return "-"
	}
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, fmt.Sprintf("[%d,%d]", p.Row, p.Col))
	}
	return strings.Join(out, " ")
}

func printWall(w io.Writer, wl *v1alpha1.Wall) {
	fmt.Fprintf(w, "Name:     %s\n", wl.Name)
	fmt.Fprintf(w, "Grid:     %dx%d\n", wl.GridSize.Rows, wl.GridSize.Cols)
	fmt.Fprintf(w, "Complete: %v\n", wl.Complete)
	fmt.Fprintf(w, "Missing:  %s\n", formatPositions(wl.Missing))
	fmt.Fprintf(w, "Health:   %d online, %d warning, %d error, %d offline\n\n",
		wl.Health.Online, wl.Health.Warning, wl.Health.Error, wl.Health.Offline)

	tw := util.NewTabWriter(w)
	defer tw.Flush()
	fmt.Fprintf(tw, "POSITION\tSCREEN\tHEALTH\n")
	for _, cell := range wl.Cells {
		fmt.Fprintf(tw, "[%d,%d]\t%s\t%s\n", cell.Position.Row, cell.Position.Col, cell.ScreenName, cell.Health)
	}
}

func printTimeline(w io.Writer, tl *v1alpha1.Timeline) {
	fmt.Fprintf(w, "Target: %s\n", tl.Target)
	fmt.Fprintf(w, "At:     %s\n", tl.At.Format("2006-01-02 15:04:05 MST"))
	if len(tl.Tracks) == 0 {
		fmt.Fprintf(w, "\nNothing eligible to play\n")
		return
	}

	tw := util.NewTabWriter(w)
	defer tw.Flush()
	fmt.Fprintf(tw, "\nLAYER\tSTART\tEND\tPRIORITY\tTYPE\tTITLE\n")
	for _, track := range tl.Tracks {
		for _, e := range track.Entries {
			fmt.Fprintf(tw, "%d\t%ds\t%ds\t%d\t%s\t%s\n",
				track.Layer, e.StartOffset, e.EndOffset, e.Priority, e.MediaType, e.Title)
		}
	}
}

func newWallListCmd(opts *rootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List walls",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkOutput(output); err != nil {
				return err
			}
			c, err := opts.client()
			if err != nil {
				return err
			}
			walls, err := c.ListWalls(cmd.Context())
			if err != nil {
				return fmt.Errorf("error listing walls: %w", err)
			}

			if output == "json" {
				return util.PrintJSON(cmd.OutOrStdout(), walls)
			}
			tw := util.NewTabWriter(cmd.OutOrStdout())
			defer tw.Flush()
			fmt.Fprintf(tw, "NAME\tGRID\tSCREENS\tCOMPLETE\tONLINE\tMISSING\n")
			for _, wl := range walls {
				fmt.Fprintf(tw, "%s\t%dx%d\t%d\t%v\t%d/%d\t%s\n",
					wl.Name, wl.GridSize.Rows, wl.GridSize.Cols, len(wl.Cells), wl.Complete,
					wl.Health.Online, wl.Health.Total, formatPositions(wl.Missing))
			}
			return nil
		},
	}
	addOutputFlag(cmd, &output)

	return cmd
}

func newWallGetCmd(opts *rootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "get NAME",
		Short: "Show a wall's composition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkOutput(output); err != nil {
				return err
			}
			c, err := opts.client()
			if err != nil {
				return err
			}
			wl, err := c.GetWall(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("error getting wall: %w", err)
			}

			if output == "json" {
				return util.PrintJSON(cmd.OutOrStdout(), wl)
			}
			printWall(cmd.OutOrStdout(), wl)
			return nil
		},
	}
	addOutputFlag(cmd, &output)

	return cmd
}

func newWallProvisionCmd(opts *rootOptions) *cobra.Command {
	var req v1alpha1.WallProvisionRequest

	cmd := &cobra.Command{
		Use:   "provision NAME",
		Short: "Create a wall of new screens",
		Long: `Create rows x cols new screens, each bound to one position of a new wall.
Screens are named <prefix>-r<row>c<col> counting from 1, with the wall name as
the default prefix.
Nothing is created if any name or the wall already exists.`,
		Example: `  fleetctl wall provision lobby --rows=2 --cols=3 --restaurant=soho`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Name = args[0]
			c, err := opts.client()
			if err != nil {
				return err
			}
			wl, err := c.ProvisionWall(cmd.Context(), &req)
			if err != nil {
				return fmt.Errorf("error provisioning wall: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wall %q provisioned with %d screens\n", wl.Name, len(wl.Cells))
			return nil
		},
	}

	cmd.Flags().IntVar(&req.Rows, "rows", 1, "Wall rows")
	cmd.Flags().IntVar(&req.Cols, "cols", 1, "Wall columns")
	cmd.Flags().StringVar(&req.RestaurantID, "restaurant", "", "Restaurant the screens belong to")
	cmd.Flags().StringVar(&req.NamePrefix, "prefix", "", "Screen name prefix (default is the wall name)")
	cmd.Flags().IntVar(&req.HeartbeatInterval, "heartbeat-interval", 0, "Expected heartbeat period in seconds")
	cmd.Flags().IntVar(&req.BezelCompensation, "bezel", 0, "Bezel compensation in pixels")
	cmd.Flags().StringSliceVar(&req.Groups, "group", nil, "Group label for every screen (repeatable)")

	return cmd
}

func newWallTimelineCmd(opts *rootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "timeline NAME",
		Short: "Show a wall's resolved playback timeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkOutput(output); err != nil {
				return err
			}
			c, err := opts.client()
			if err != nil {
				return err
			}
			tl, err := c.WallTimeline(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("error getting timeline: %w", err)
			}

			if output == "json" {
				return util.PrintJSON(cmd.OutOrStdout(), tl)
			}
			printTimeline(cmd.OutOrStdout(), tl)
			return nil
		},
	}
	addOutputFlag(cmd, &output)

	return cmd
}

func newWallNowPlayingCmd(opts *rootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "now-playing NAME",
		Short: "Show what a wall is playing right now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkOutput(output); err != nil {
				return err
			}
			c, err := opts.client()
			if err != nil {
				return err
			}
			np, err := c.NowPlaying(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("error getting playback: %w", err)
			}

			out := cmd.OutOrStdout()
			if output == "json" {
				return util.PrintJSON(out, np)
			}
			switch {
			case np.Finished:
				fmt.Fprintf(out, "Wall %q finished its non-looping playlist\n", np.WallName)
				return nil
			case np.Idle:
				fmt.Fprintf(out, "Wall %q is idle\n", np.WallName)
				return nil
			}
			fmt.Fprintf(out, "Wall %q cycle %d, %ds in\n", np.WallName, np.Cycle, np.Offset)
			tw := util.NewTabWriter(out)
			defer tw.Flush()
			fmt.Fprintf(tw, "LAYER\tTITLE\tELAPSED\tREMAINING\n")
			for _, p := range np.Playing {
				length := p.Entry.EndOffset - p.Entry.StartOffset
				fmt.Fprintf(tw, "%d\t%s\t%ds\t%ds\n", p.Layer, p.Entry.Title, p.Offset, length-p.Offset)
			}
			return nil
		},
	}
	addOutputFlag(cmd, &output)

	return cmd
}
