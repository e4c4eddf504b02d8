package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/piragazh/feasto-signage/api/types/v1alpha1"
	"github.com/piragazh/feasto-signage/internal/fleetctl/client"
	"github.com/piragazh/feasto-signage/internal/fleetctl/util"
)

// newCommandCmd creates the remote command command
func newCommandCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "command",
		Aliases: []string{"commands", "cmd"},
		Short:   "Send remote commands to screens",
		Long: `Send a remote command to a screen and follow its outcome.

Players understand refresh_content, reboot and clear_cache; any other command
is passed through to the device unchanged. A screen holds
at most one pending command: issuing a new one supersedes the previous one.
Devices receive commands over their control channel or on their next
heartbeat, and acknowledge them when done.`,
	}

	cmd.AddCommand(
		newCommandIssueCmd(opts),
		newCommandListCmd(opts),
		newCommandGetCmd(opts),
		newCommandSweepCmd(opts),
	)

	return cmd
}

func printCommands(cmd *cobra.Command, cmds []v1alpha1.Command) {
	now := time.Now()
	tw := util.NewTabWriter(cmd.OutOrStdout())
	defer tw.Flush()

	fmt.Fprintf(tw, "ID\tSCREEN\tCOMMAND\tSTATUS\tISSUED\tPARAMS\tERROR\n")
	for _, c := range cmds {
		screen := c.ScreenName
		if screen == "" {
			screen = c.ScreenID.String()
		}
		issued := c.IssuedAt
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			c.ID, screen, c.Command, c.Status, util.FormatAge(&issued, now),
			util.OrDash(util.FormatParams(c.Params)), util.OrDash(c.ErrorMessage))
	}
}

func newCommandIssueCmd(opts *rootOptions) *cobra.Command {
	var (
		issuedBy string
		output   string
	)

	cmd := &cobra.Command{
		Use:   "issue SCREEN COMMAND [key=value...]",
		Short: "Send a command to a screen",
		Example: `  # Reload content on the bar TV
  fleetctl command issue bar-tv refresh_content

  # Reboot with a parameter
  fleetctl command issue lobby-r1c1 reboot delay=30`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkOutput(output); err != nil {
				return err
			}
			params, err := util.ParseKeyValues(args[2:])
			if err != nil {
				return err
			}
			if issuedBy == "" {
				issuedBy = os.Getenv("USER")
			}

			c, err := opts.client()
			if err != nil {
				return err
			}
			id, err := c.ResolveScreenID(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("error finding screen: %w", err)
			}
			entry, err := c.IssueCommand(cmd.Context(), &v1alpha1.CommandIssueRequest{
				ScreenID: id,
				Command:  args[1],
				Params:   params,
				IssuedBy: issuedBy,
			})
			if err != nil {
				return fmt.Errorf("error issuing command: %w", err)
			}

			if output == "json" {
				return util.PrintJSON(cmd.OutOrStdout(), entry)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Command %s issued to %q (%s)\n", entry.Command, args[0], entry.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&issuedBy, "issued-by", "", "Operator recorded in the command log (default is $USER)")
	addOutputFlag(cmd, &output)

	return cmd
}

func newCommandListCmd(opts *rootOptions) *cobra.Command {
	var (
		screen string
		filter client.CommandFilter
		output string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the command log",
		Example: `  # Failed commands of one screen
  fleetctl command list --screen=bar-tv --status=failed`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkOutput(output); err != nil {
				return err
			}
			c, err := opts.client()
			if err != nil {
				return err
			}
			if screen != "" {
				if filter.ScreenID, err = c.ResolveScreenID(cmd.Context(), screen); err != nil {
					return fmt.Errorf("error finding screen: %w", err)
				}
			}
			cmds, err := c.ListCommands(cmd.Context(), filter)
			if err != nil {
				return fmt.Errorf("error listing commands: %w", err)
			}

			if output == "json" {
				return util.PrintJSON(cmd.OutOrStdout(), cmds)
			}
			printCommands(cmd, cmds)
			return nil
		},
	}

	cmd.Flags().StringVar(&screen, "screen", "", "Filter by screen name or ID")
	cmd.Flags().StringVar(&filter.Status, "status", "", "Filter by status (pending, executed, failed, timeout)")
	cmd.Flags().IntVar(&filter.Limit, "limit", 50, "Maximum entries to show (0 for all)")
	addOutputFlag(cmd, &output)

	return cmd
}

func newCommandGetCmd(opts *rootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "get ID",
		Short: "Show one command log entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkOutput(output); err != nil {
				return err
			}
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid command ID %q", args[0])
			}
			c, err := opts.client()
			if err != nil {
				return err
			}
			entry, err := c.GetCommand(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("error getting command: %w", err)
			}

			if output == "json" {
				return util.PrintJSON(cmd.OutOrStdout(), entry)
			}
			printCommands(cmd, []v1alpha1.Command{*entry})
			return nil
		},
	}
	addOutputFlag(cmd, &output)

	return cmd
}

func newCommandSweepCmd(opts *rootOptions) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Time out stale pending commands",
		Long: `Mark pending commands older than --timeout as timed out and clear them
from their screens. Without --timeout the server default applies.`,
		Example: `  fleetctl command sweep --timeout=15m`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if timeout < 0 {
				return fmt.Errorf("timeout must not be negative")
			}
			c, err := opts.client()
			if err != nil {
				return err
			}
			res, err := c.SweepCommands(cmd.Context(), timeout)
			if err != nil {
				return fmt.Errorf("error sweeping commands: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%d commands timed out (issued before %s)\n",
				len(res.TimedOut), res.Cutoff.Format(time.RFC3339))
			if len(res.TimedOut) > 0 {
				printCommands(cmd, res.TimedOut)
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Age after which a pending command times out")

	return cmd
}
