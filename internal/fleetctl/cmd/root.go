// Package cmd implements the fleetctl commands
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/piragazh/feasto-signage/internal/fleetctl/client"
	"github.com/piragazh/feasto-signage/internal/fleetctl/config"
	"github.com/piragazh/feasto-signage/internal/fleetctl/util"
)

// rootOptions holds the persistent flags shared by every command
type rootOptions struct {
	configPath string
	server     string
	token      string
	debug      bool
}

func (o *rootOptions) client() (*client.Client, error) {
	return util.GetClient(o.configPath, o.server, o.token)
}

func (o *rootOptions) loadConfig() (*config.Config, error) {
	return config.Load(o.configPath)
}

// NewRootCmd builds the fleetctl command tree
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "fleetctl",
		Short: "Restaurant signage fleet control tool",
		Long: `fleetctl manages a fleet of restaurant signage screens: registration,
health, remote commands, content scheduling and video walls.

The API server is taken from --server, then FLEET_API_URL, then the
current context in ~/.fleetctl/config.yaml.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default is $HOME/.fleetctl/config.yaml)")
	cmd.PersistentFlags().StringVar(&opts.server, "server", "", "API server address")
	cmd.PersistentFlags().StringVar(&opts.token, "token", "", "Authentication token")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Print extra detail")

	cmd.AddCommand(
		newConfigCmd(opts),
		newScreenCmd(opts),
		newCommandCmd(opts),
		newContentCmd(opts),
		newPlaylistCmd(opts),
		newWallCmd(opts),
		newScheduleCmd(opts),
		newHealthCmd(opts),
		newVersionCmd(opts),
	)

	return cmd
}

// Execute runs the root command. This is called by main.main().
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// addOutputFlag registers the shared -o flag
func addOutputFlag(cmd *cobra.Command, output *string) {
	cmd.Flags().StringVarP(output, "output", "o", "table", "Output format (table, json)")
}

func checkOutput(output string) error {
	if output != "table" && output != "json" {
		return fmt.Errorf("unknown output format %q - use table or json", output)
	}
	return nil
}
