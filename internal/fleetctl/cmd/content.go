package cmd

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/piragazh/feasto-signage/api/types/v1alpha1"
	"github.com/piragazh/feasto-signage/internal/fleetctl/client"
	"github.com/piragazh/feasto-signage/internal/fleetctl/util"
)

// newContentCmd creates the content library command
func newContentCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "content",
		Short: "Manage content items",
		Long: `Content items are media targeted at a whole wall or a single screen.
Their priority, display order, layer and schedule decide when and where they
play.`,
	}

	cmd.AddCommand(
		newContentListCmd(opts),
		newContentGetCmd(opts),
		newContentCreateCmd(opts),
		newContentDeleteCmd(opts),
	)

	return cmd
}

func targetString(t v1alpha1.ContentTarget) string {
	if t.Kind == "wall" {
		return "wall/" + t.WallName
	}
	return "screen/" + t.ScreenID.String()
}

func newContentListCmd(opts *rootOptions) *cobra.Command {
	var (
		wall   string
		screen string
		output string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List content items",
		Example: `  fleetctl content list --wall=lobby
  fleetctl content list --screen=bar-tv -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkOutput(output); err != nil {
				return err
			}
			c, err := opts.client()
			if err != nil {
				return err
			}
			filter := client.ContentFilter{Wall: wall}
			if screen != "" {
				if filter.ScreenID, err = c.ResolveScreenID(cmd.Context(), screen); err != nil {
					return fmt.Errorf("error finding screen: %w", err)
				}
			}
			items, err := c.ListContent(cmd.Context(), filter)
			if err != nil {
				return fmt.Errorf("error listing content: %w", err)
			}

			if output == "json" {
				return util.PrintJSON(cmd.OutOrStdout(), items)
			}
			tw := util.NewTabWriter(cmd.OutOrStdout())
			defer tw.Flush()
			fmt.Fprintf(tw, "ID\tTITLE\tTARGET\tTYPE\tDURATION\tPRIORITY\tORDER\tLAYER\tACTIVE\tSCHEDULE\n")
			for _, it := range items {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%ds\t%d\t%d\t%d\t%v\t%s\n",
					it.ID, it.Title, targetString(it.Target), it.MediaType, it.Duration,
					it.Priority, it.DisplayOrder, it.Layer, it.IsActive, util.FormatSchedule(it.Schedule))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&wall, "wall", "", "Only items targeting this wall")
	cmd.Flags().StringVar(&screen, "screen", "", "Only items targeting this screen")
	cmd.MarkFlagsMutuallyExclusive("wall", "screen")
	addOutputFlag(cmd, &output)

	return cmd
}

func newContentGetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get ID",
		Short: "Show a content item as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid content ID %q", args[0])
			}
			c, err := opts.client()
			if err != nil {
				return err
			}
			item, err := c.GetContent(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("error getting content: %w", err)
			}
			return util.PrintJSON(cmd.OutOrStdout(), item)
		},
	}
}

func newContentCreateCmd(opts *rootOptions) *cobra.Command {
	var (
		item     v1alpha1.ContentItem
		wall     string
		screen   string
		inactive bool
		sched    util.ScheduleFlags
	)

	cmd := &cobra.Command{
		Use:   "create TITLE",
		Short: "Add a content item",
		Long: `Add a content item targeted at a wall (--wall) or a single screen (--screen).

Schedule flags restrict when the item may play: --start and --end bound the
dates, --day and --time add a weekly rule. Time ranges that cross midnight are
accepted but never match; split them into two ranges instead.`,
		Example: `  # Breakfast menu on weekday mornings
  fleetctl content create "Breakfast" --wall=lobby --url=https://cdn.example.com/bfast.mp4 \
    --type=video --duration=20 --priority=5 --day=mon --day=tue --day=wed --day=thu --day=fri \
    --time=06:00-11:00`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			item.Title = args[0]
			item.IsActive = !inactive

			schedule, err := util.ParseSchedule(sched)
			if err != nil {
				return err
			}
			item.Schedule = schedule

			c, err := opts.client()
			if err != nil {
				return err
			}
			switch {
			case wall != "":
				item.Target = v1alpha1.ContentTarget{Kind: "wall", WallName: wall}
			case screen != "":
				id, err := c.ResolveScreenID(cmd.Context(), screen)
				if err != nil {
					return fmt.Errorf("error finding screen: %w", err)
				}
				item.Target = v1alpha1.ContentTarget{Kind: "screen", ScreenID: id}
			default:
				return fmt.Errorf("one of --wall or --screen is required")
			}

			created, err := c.CreateContent(cmd.Context(), &item)
			if err != nil {
				return fmt.Errorf("error creating content: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Content %q created (id %s)\n", created.Title, created.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&wall, "wall", "", "Target wall")
	cmd.Flags().StringVar(&screen, "screen", "", "Target screen name or ID")
	cmd.MarkFlagsMutuallyExclusive("wall", "screen")
	cmd.Flags().StringVar(&item.MediaURL, "url", "", "Media URL (required)")
	cmd.Flags().StringVar(&item.MediaType, "type", "image", "Media type (image, video, widget)")
	cmd.Flags().StringVar(&item.Description, "description", "", "Free text description")
	cmd.Flags().IntVar(&item.Duration, "duration", 10, "Seconds on screen")
	cmd.Flags().IntVar(&item.Priority, "priority", 1, "Priority 1-10, higher plays first")
	cmd.Flags().IntVar(&item.DisplayOrder, "order", 0, "Order among items of equal priority")
	cmd.Flags().IntVar(&item.Layer, "layer", 0, "Wall track the item plays on")
	cmd.Flags().BoolVar(&item.SyncEnabled, "sync", false, "Play in sync across the wall")
	cmd.Flags().BoolVar(&inactive, "inactive", false, "Create the item switched off")
	addScheduleFlags(cmd, &sched)
	_ = cmd.MarkFlagRequired("url")

	return cmd
}

func addScheduleFlags(cmd *cobra.Command, f *util.ScheduleFlags) {
	cmd.Flags().StringVar(&f.Start, "start", "", "First instant the schedule admits (RFC 3339)")
	cmd.Flags().StringVar(&f.End, "end", "", "Last instant the schedule admits (RFC 3339)")
	cmd.Flags().StringSliceVar(&f.Days, "day", nil, "Day of week, e.g. mon (repeatable)")
	cmd.Flags().StringSliceVar(&f.TimeRanges, "time", nil, "Time of day range HH:MM-HH:MM (repeatable)")
}

func newContentDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Remove a content item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid content ID %q", args[0])
			}
			c, err := opts.client()
			if err != nil {
				return err
			}
			if err := c.DeleteContent(cmd.Context(), id); err != nil {
				return fmt.Errorf("error deleting content: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Content %s deleted\n", id)
			return nil
		},
	}
}

// newPlaylistCmd creates the playlist command
func newPlaylistCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "playlist",
		Aliases: []string{"playlists"},
		Short:   "Manage wall playlists",
		Long: `A playlist is an ordered selection of a wall's content. While an active,
eligible playlist exists for a wall it replaces the wall's priority-ordered
content; the highest-priority playlist wins.`,
	}

	cmd.AddCommand(
		newPlaylistListCmd(opts),
		newPlaylistCreateCmd(opts),
		newPlaylistDeleteCmd(opts),
	)

	return cmd
}

func newPlaylistListCmd(opts *rootOptions) *cobra.Command {
	var (
		wall   string
		output string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List playlists",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkOutput(output); err != nil {
				return err
			}
			c, err := opts.client()
			if err != nil {
				return err
			}
			playlists, err := c.ListPlaylists(cmd.Context(), wall)
			if err != nil {
				return fmt.Errorf("error listing playlists: %w", err)
			}

			if output == "json" {
				return util.PrintJSON(cmd.OutOrStdout(), playlists)
			}
			tw := util.NewTabWriter(cmd.OutOrStdout())
			defer tw.Flush()
			fmt.Fprintf(tw, "ID\tNAME\tWALL\tITEMS\tPRIORITY\tLOOP\tSHUFFLE\tACTIVE\tSCHEDULE\n")
			for _, p := range playlists {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%v\t%v\t%v\t%s\n",
					p.ID, p.Name, p.WallName, len(p.ContentIDs), p.Priority,
					p.Loop, p.Shuffle, p.IsActive, util.FormatSchedule(p.Schedule))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&wall, "wall", "", "Only playlists of this wall")
	addOutputFlag(cmd, &output)

	return cmd
}

func newPlaylistCreateCmd(opts *rootOptions) *cobra.Command {
	var (
		p        v1alpha1.Playlist
		noLoop   bool
		inactive bool
		sched    util.ScheduleFlags
	)

	cmd := &cobra.Command{
		Use:   "create NAME CONTENT_ID...",
		Short: "Create a playlist for a wall",
		Example: `  fleetctl playlist create lunch 0b6e... 4f1a... --wall=lobby --priority=10 --time=11:00-15:00`,
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p.Name = args[0]
			for _, raw := range args[1:] {
				id, err := uuid.Parse(raw)
				if err != nil {
					return fmt.Errorf("invalid content ID %q", raw)
				}
				p.ContentIDs = append(p.ContentIDs, id)
			}
			p.Loop = !noLoop
			p.IsActive = !inactive

			schedule, err := util.ParseSchedule(sched)
			if err != nil {
				return err
			}
			p.Schedule = schedule

			c, err := opts.client()
			if err != nil {
				return err
			}
			created, err := c.CreatePlaylist(cmd.Context(), &p)
			if err != nil {
				return fmt.Errorf("error creating playlist: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Playlist %q created with %d items (id %s)\n",
				created.Name, len(created.ContentIDs), created.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&p.WallName, "wall", "", "Wall the playlist plays on (required)")
	cmd.Flags().IntVar(&p.Priority, "priority", 1, "Priority 1-10, higher playlists win")
	cmd.Flags().BoolVar(&p.Shuffle, "shuffle", false, "Shuffle item order")
	cmd.Flags().BoolVar(&noLoop, "no-loop", false, "Play once instead of looping")
	cmd.Flags().BoolVar(&inactive, "inactive", false, "Create the playlist switched off")
	addScheduleFlags(cmd, &sched)
	_ = cmd.MarkFlagRequired("wall")

	return cmd
}

func newPlaylistDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Remove a playlist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid playlist ID %q", args[0])
			}
			c, err := opts.client()
			if err != nil {
				return err
			}
			if err := c.DeletePlaylist(cmd.Context(), id); err != nil {
				return fmt.Errorf("error deleting playlist: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Playlist %s deleted\n", id)
			return nil
		},
	}
}
