package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/odatakit/odatakit/internal/cli/ui"
)

// NewConfigCommand creates the config command
func NewConfigCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		Long: `Print the configuration after defaults, odatakit.yaml and ODATAKIT_*
environment variables have been applied.

Examples:
  odatakit config
  ODATAKIT_LOG_LEVEL=debug odatakit config --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.LoadConfig()
			if err != nil {
				if !opts.JSON() {
					fmt.Fprint(cmd.ErrOrStderr(), ui.ConfigError(err.Error(), opts.NoColor))
				}
				return err
			}

			w := cmd.OutOrStdout()
			if opts.JSON() {
				return writeJSON(w, cfg)
			}

			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("failed to encode config: %w", err)
			}
			if cfg.File != "" {
				fmt.Fprintf(w, "# %s\n", cfg.File)
			} else {
				fmt.Fprintln(w, "# defaults (no odatakit.yaml found)")
			}
			_, err = w.Write(data)
			return err
		},
	}
}
