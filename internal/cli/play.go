package cli

import (
	"os"

	"github.com/spf13/cobra"
	"math-physical/internal/transport/terminal"
)

// NewPlayCmd runs one client in the terminal.
func NewPlayCmd(configPath *string) *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Study a topic and take a timed quiz in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if !verbose {
				// keep the console for the quiz itself
				cfg.Log.Level = "error"
			}
			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}

			d, err := buildDeps(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer d.close()

			ui := terminal.New(d.newApp(nil), os.Stdin, cmd.OutOrStdout())
			return ui.Run(cmd.Context())
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log at the configured level while playing")
	return cmd
}
