package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/piragazh/feasto-signage/internal/fleetctl/config"
	"github.com/piragazh/feasto-signage/internal/fleetctl/util"
)

// newConfigCmd creates the config command that manages CLI contexts
func newConfigCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration",
		Long: `The config command manages fleetctl's contexts. Each context names an
API server and the token used to reach it, so you can switch between
restaurants or environments with one command.`,
	}

	cmd.AddCommand(
		newConfigGetContextCmd(opts),
		newConfigSetContextCmd(opts),
		newConfigDeleteContextCmd(opts),
		newConfigUseContextCmd(opts),
		newConfigViewCmd(opts),
	)

	return cmd
}

func maskToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 6 {
		return "******"
	}
	return token[:6] + "..."
}

func newConfigGetContextCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get-context [name]",
		Short: "Display one or many contexts",
		Example: `  # List all contexts
  fleetctl config get-context

  # Show details for a specific context
  fleetctl config get-context production`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if len(args) == 0 {
				tw := util.NewTabWriter(out)
				defer tw.Flush()
				fmt.Fprintf(tw, "CURRENT\tNAME\tSERVER\n")
				for _, name := range cfg.Names() {
					current := ""
					if name == cfg.CurrentContext {
						current = "*"
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\n", current, name, cfg.Contexts[name].Server)
				}
				return nil
			}

			ctx, ok := cfg.Contexts[args[0]]
			if !ok {
				return fmt.Errorf("context %q not found", args[0])
			}
			fmt.Fprintf(out, "Name: %s\n", ctx.Name)
			fmt.Fprintf(out, "Server: %s\n", ctx.Server)
			fmt.Fprintf(out, "Insecure Skip Verify: %v\n", ctx.InsecureSkipVerify)
			if ctx.Token != "" {
				fmt.Fprintf(out, "Token: %s\n", maskToken(ctx.Token))
			}
			return nil
		},
	}
}

func newConfigSetContextCmd(opts *rootOptions) *cobra.Command {
	var (
		server          string
		token           string
		insecureSkipTLS bool
	)

	cmd := &cobra.Command{
		Use:   "set-context NAME",
		Short: "Create or update a context",
		Long: `Create a new context or update an existing one. The first context
created becomes the current one.`,
		Example: `  # Local development server
  fleetctl config set-context dev --server=http://localhost:8080

  # Production with a token
  fleetctl config set-context prod --server=https://fleet.example.com --token=mytoken`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if server == "" {
				return fmt.Errorf("server URL is required")
			}

			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			cfg.AddContext(name, &config.Context{
				Server:             server,
				Token:              token,
				InsecureSkipVerify: insecureSkipTLS,
			})
			if cfg.CurrentContext == "" {
				cfg.CurrentContext = name
			}
			if err := cfg.Save(); err != nil {
				return fmt.Errorf("error saving config: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Context %q updated\n", name)
			return nil
		},
	}

	cmd.Flags().StringVar(&server, "server", "", "Server URL (required)")
	cmd.Flags().StringVar(&token, "token", "", "Authentication token")
	cmd.Flags().BoolVar(&insecureSkipTLS, "insecure-skip-tls", false, "Skip TLS certificate verification")
	_ = cmd.MarkFlagRequired("server")

	return cmd
}

func newConfigDeleteContextCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-context NAME",
		Short: "Delete a context",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.RemoveContext(args[0]); err != nil {
				return fmt.Errorf("error removing context: %w", err)
			}
			if err := cfg.Save(); err != nil {
				return fmt.Errorf("error saving config: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Context %q deleted\n", args[0])
			return nil
		},
	}
}

func newConfigUseContextCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "use-context NAME",
		Short:   "Switch to a different context",
		Example: `  fleetctl config use-context production`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.SetCurrentContext(args[0]); err != nil {
				return fmt.Errorf("error setting current context: %w", err)
			}
			if err := cfg.Save(); err != nil {
				return fmt.Errorf("error saving config: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Switched to context %q\n", args[0])
			return nil
		},
	}
}

// viewContext is the redacted form of a context printed by config view
type viewContext struct {
	Server             string `yaml:"server" json:"server"`
	Token              string `yaml:"token,omitempty" json:"token,omitempty"`
	InsecureSkipVerify bool   `yaml:"insecure-skip-verify,omitempty" json:"insecureSkipVerify,omitempty"`
}

type viewConfig struct {
	CurrentContext string                 `yaml:"current-context" json:"currentContext"`
	Contexts       map[string]viewContext `yaml:"contexts" json:"contexts"`
}

func newConfigViewCmd(opts *rootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "view",
		Short: "Display the configuration",
		Long: `Display every context and which one is active. Tokens are masked.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}

			view := viewConfig{CurrentContext: cfg.CurrentContext, Contexts: map[string]viewContext{}}
			for name, ctx := range cfg.Contexts {
				view.Contexts[name] = viewContext{
					Server:             ctx.Server,
					Token:              maskToken(ctx.Token),
					InsecureSkipVerify: ctx.InsecureSkipVerify,
				}
			}

			out := cmd.OutOrStdout()
			switch output {
			case "yaml":
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				if err := enc.Encode(view); err != nil {
					return err
				}
				return enc.Close()
			case "json":
				return util.PrintJSON(out, view)
			default:
				fmt.Fprintf(out, "Config File: %s\n", cfg.Path())
				fmt.Fprintf(out, "Current Context: %s\n\n", cfg.CurrentContext)
				fmt.Fprintf(out, "Contexts:\n")
				for _, name := range cfg.Names() {
					ctx := view.Contexts[name]
					fmt.Fprintf(out, "- %s:\n", name)
					fmt.Fprintf(out, "    Server: %s\n", ctx.Server)
					fmt.Fprintf(out, "    InsecureSkipVerify: %v\n", ctx.InsecureSkipVerify)
					if ctx.Token != "" {
						fmt.Fprintf(out, "    Token: %s\n", ctx.Token)
					}
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "text", "Output format (text, yaml, json)")

	return cmd
}
