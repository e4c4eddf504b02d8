package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/piragazh/feasto-signage/api/types/v1alpha1"
	"github.com/piragazh/feasto-signage/internal/fleetctl/client"
	"github.com/piragazh/feasto-signage/internal/fleetctl/util"
)

// newScreenCmd creates the screen management command
func newScreenCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "screen",
		Aliases: []string{"screens"},
		Short:   "Manage screens",
		Long: `The screen command manages registered screens: creating and removing
them, placing them in video walls, labelling them with groups and resolving
the issues their devices report.

Screens can be referenced by ID or by name.`,
	}

	cmd.AddCommand(
		newScreenListCmd(opts),
		newScreenGetCmd(opts),
		newScreenCreateCmd(opts),
		newScreenDeleteCmd(opts),
		newScreenBindWallCmd(opts),
		newScreenUnbindWallCmd(opts),
		newScreenGroupsCmd(opts),
		newScreenResolveCmd(opts),
		newScreenClearIssuesCmd(opts),
		newScreenTimelineCmd(opts),
	)

	return cmd
}

func wallCell(s *v1alpha1.Screen) string {
	w := s.Spec.Wall
	if w == nil || !w.Enabled {
		return "-"
	}
	return fmt.Sprintf("%s[%d,%d]", w.WallName, w.Position.Row, w.Position.Col)
}

func openIssues(s *v1alpha1.Screen) (errs, warns int) {
	for _, is := range s.Status.Issues {
		if is.Resolved {
			continue
		}
		if is.Kind == "error" {
			errs++
		} else {
			warns++
		}
	}
	return errs, warns
}

func printScreens(w io.Writer, screens []v1alpha1.Screen, now time.Time) {
	tw := util.NewTabWriter(w)
	defer tw.Flush()

	fmt.Fprintf(tw, "NAME\tRESTAURANT\tHEALTH\tLAST HEARTBEAT\tWALL\tGROUPS\tISSUES\n")
	for i := range screens {
		s := &screens[i]
		errs, warns := openIssues(s)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%dE/%dW\n",
			s.Name,
			util.OrDash(s.Spec.RestaurantID),
			s.Status.Health,
			util.FormatAge(s.Status.LastHeartbeat, now),
			wallCell(s),
			util.OrDash(strings.Join(s.Spec.Groups, ",")),
			errs, warns)
	}
}

func printScreen(w io.Writer, s *v1alpha1.Screen, now time.Time) {
	fmt.Fprintf(w, "Name:               %s\n", s.Name)
	fmt.Fprintf(w, "ID:                 %s\n", s.ID)
	fmt.Fprintf(w, "Restaurant:         %s\n", util.OrDash(s.Spec.RestaurantID))
	fmt.Fprintf(w, "Health:             %s\n", s.Status.Health)
	fmt.Fprintf(w, "Last Heartbeat:     %s\n", util.FormatAge(s.Status.LastHeartbeat, now))
	fmt.Fprintf(w, "Heartbeat Interval: %ds\n", s.Spec.HeartbeatInterval)
	fmt.Fprintf(w, "Wall:               %s\n", wallCell(s))
	fmt.Fprintf(w, "Groups:             %s\n", util.OrDash(strings.Join(s.Spec.Groups, ",")))
	if pc := s.Status.PendingCommand; pc != nil {
		fmt.Fprintf(w, "Pending Command:    %s (%s, issued %s)\n", pc.Command, pc.CommandID, util.FormatAge(&pc.IssuedAt, now))
	}
	if len(s.Status.Issues) == 0 {
		return
	}

	fmt.Fprintf(w, "\nIssues:\n")
	tw := util.NewTabWriter(w)
	defer tw.Flush()
	fmt.Fprintf(tw, "  ID\tKIND\tSEVERITY\tRESOLVED\tREPORTED\tMESSAGE\n")
	for _, is := range s.Status.Issues {
		ts := is.Timestamp
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%v\t%s\t%s\n",
			is.ID, is.Kind, util.OrDash(is.Severity), is.Resolved, util.FormatAge(&ts, now), is.Message)
	}
}

func newScreenListCmd(opts *rootOptions) *cobra.Command {
	var (
		filter client.ScreenFilter
		output string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List screens",
		Long: `List screens, optionally filtered by restaurant, wall or group.
Health is derived by the server from the heartbeat age and open issues.`,
		Example: `  # All screens
  fleetctl screen list

  # Screens in one wall as JSON
  fleetctl screen list --wall=lobby -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkOutput(output); err != nil {
				return err
			}
			c, err := opts.client()
			if err != nil {
				return err
			}
			screens, err := c.ListScreens(cmd.Context(), filter)
			if err != nil {
				return fmt.Errorf("error listing screens: %w", err)
			}

			if output == "json" {
				return util.PrintJSON(cmd.OutOrStdout(), screens)
			}
			printScreens(cmd.OutOrStdout(), screens, time.Now())
			return nil
		},
	}

	cmd.Flags().StringVar(&filter.RestaurantID, "restaurant", "", "Filter by restaurant")
	cmd.Flags().StringVar(&filter.Wall, "wall", "", "Filter by wall name")
	cmd.Flags().StringVar(&filter.Group, "group", "", "Filter by group label")
	addOutputFlag(cmd, &output)

	return cmd
}

func newScreenGetCmd(opts *rootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "get SCREEN",
		Short: "Show a screen",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkOutput(output); err != nil {
				return err
			}
			c, err := opts.client()
			if err != nil {
				return err
			}
			s, err := c.GetScreen(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("error getting screen: %w", err)
			}

			if output == "json" {
				return util.PrintJSON(cmd.OutOrStdout(), s)
			}
			printScreen(cmd.OutOrStdout(), s, time.Now())
			return nil
		},
	}
	addOutputFlag(cmd, &output)

	return cmd
}

func newScreenCreateCmd(opts *rootOptions) *cobra.Command {
	var req v1alpha1.ScreenCreateRequest

	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Register a screen",
		Long: `Register a new screen. Names are unique across the fleet. The device
uses the returned ID for its heartbeats and control channel.`,
		Example: `  # Menu board polling every 15 seconds
  fleetctl screen create menu-left --restaurant=soho --heartbeat-interval=15 --group=menu`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Name = args[0]
			c, err := opts.client()
			if err != nil {
				return err
			}
			s, err := c.CreateScreen(cmd.Context(), &req)
			if err != nil {
				return fmt.Errorf("error creating screen: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Screen %q created (id %s)\n", s.Name, s.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.RestaurantID, "restaurant", "", "Restaurant the screen belongs to")
	cmd.Flags().IntVar(&req.HeartbeatInterval, "heartbeat-interval", 0, "Expected heartbeat period in seconds (server default when 0)")
	cmd.Flags().StringSliceVar(&req.Groups, "group", nil, "Group label (repeatable)")

	return cmd
}

func newScreenDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete SCREEN",
		Short: "Remove a screen",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			id, err := c.ResolveScreenID(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("error finding screen: %w", err)
			}
			if err := c.DeleteScreen(cmd.Context(), id); err != nil {
				return fmt.Errorf("error deleting screen: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Screen %q deleted\n", args[0])
			return nil
		},
	}
}

func newScreenBindWallCmd(opts *rootOptions) *cobra.Command {
	var wall v1alpha1.WallConfig

	cmd := &cobra.Command{
		Use:   "bind-wall SCREEN",
		Short: "Place a screen in a video wall",
		Long: `Bind a screen to a position in a wall grid. Every screen of a wall must
agree on the grid size, and a position holds at most one screen.`,
		Example: `  # Top-right cell of a 2x3 wall
  fleetctl screen bind-wall lobby-3 --wall=lobby --row=0 --col=2 --rows=2 --cols=3`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wall.Enabled = true
			c, err := opts.client()
			if err != nil {
				return err
			}
			id, err := c.ResolveScreenID(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("error finding screen: %w", err)
			}
			s, err := c.SetWall(cmd.Context(), id, &wall)
			if err != nil {
				return fmt.Errorf("error binding screen: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Screen %q bound to %s\n", s.Name, wallCell(s))
			return nil
		},
	}

	cmd.Flags().StringVar(&wall.WallName, "wall", "", "Wall name (required)")
	cmd.Flags().IntVar(&wall.Position.Row, "row", 0, "Zero-based row")
	cmd.Flags().IntVar(&wall.Position.Col, "col", 0, "Zero-based column")
	cmd.Flags().IntVar(&wall.GridSize.Rows, "rows", 1, "Wall rows")
	cmd.Flags().IntVar(&wall.GridSize.Cols, "cols", 1, "Wall columns")
	cmd.Flags().IntVar(&wall.BezelCompensation, "bezel", 0, "Bezel compensation in pixels")
	cmd.Flags().IntVar(&wall.Rotation, "rotation", 0, "Rotation in degrees (0, 90, 180, 270)")
	_ = cmd.MarkFlagRequired("wall")

	return cmd
}

func newScreenUnbindWallCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "unbind-wall SCREEN",
		Short: "Remove a screen from its wall",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			id, err := c.ResolveScreenID(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("error finding screen: %w", err)
			}
			if _, err := c.SetWall(cmd.Context(), id, nil); err != nil {
				return fmt.Errorf("error unbinding screen: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Screen %q unbound\n", args[0])
			return nil
		},
	}
}

func newScreenGroupsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "groups SCREEN [GROUP...]",
		Short: "Replace a screen's group labels",
		Example: `  # Label a screen
  fleetctl screen groups bar-tv bar sports

  # Clear all labels
  fleetctl screen groups bar-tv`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			id, err := c.ResolveScreenID(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("error finding screen: %w", err)
			}
			s, err := c.SetGroups(cmd.Context(), id, args[1:])
			if err != nil {
				return fmt.Errorf("error setting groups: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Screen %q groups: %s\n", s.Name, util.OrDash(strings.Join(s.Spec.Groups, ",")))
			return nil
		},
	}
}

func newScreenResolveCmd(opts *rootOptions) *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "resolve SCREEN [ISSUE_ID]",
		Short: "Resolve reported issues",
		Long: `Mark one issue resolved by ID, or every open issue of a kind with --kind.
Resolving the last open error lets the screen's health return to online.`,
		Example: `  fleetctl screen resolve bar-tv 6f1c2f0e-8f5e-4d8e-9b7a-0c4c8f9b1e21
  fleetctl screen resolve bar-tv --kind=error`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (len(args) == 2) == (kind != "") {
				return fmt.Errorf("give either an issue ID or --kind")
			}
			c, err := opts.client()
			if err != nil {
				return err
			}
			id, err := c.ResolveScreenID(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("error finding screen: %w", err)
			}

			var s *v1alpha1.Screen
			if kind != "" {
				s, err = c.ResolveIssues(cmd.Context(), id, kind)
			} else {
				issueID, perr := uuid.Parse(args[1])
				if perr != nil {
					return fmt.Errorf("invalid issue ID %q", args[1])
				}
				s, err = c.ResolveIssue(cmd.Context(), id, issueID)
			}
			if err != nil {
				return fmt.Errorf("error resolving issues: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Screen %q is %s\n", s.Name, s.Status.Health)
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "Resolve every open issue of this kind (error, warning)")

	return cmd
}

func newScreenClearIssuesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-issues SCREEN",
		Short: "Drop resolved issues from a screen",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			id, err := c.ResolveScreenID(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("error finding screen: %w", err)
			}
			s, err := c.ClearResolvedIssues(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("error clearing issues: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Screen %q has %d issues left\n", s.Name, len(s.Status.Issues))
			return nil
		},
	}
}

func newScreenTimelineCmd(opts *rootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "timeline SCREEN",
		Short: "Show what a screen will play",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkOutput(output); err != nil {
				return err
			}
			c, err := opts.client()
			if err != nil {
				return err
			}
			id, err := c.ResolveScreenID(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("error finding screen: %w", err)
			}
			tl, err := c.ScreenTimeline(cmd.Context(), id)
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
