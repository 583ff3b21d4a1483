package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"math-physical/internal/config"
)

// NewCatalogCmd prints the course catalog through the cache.
func NewCatalogCmd(configPath *string) *cobra.Command {
	var (
		refresh bool
		asJSON  bool
	)
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List courses and topics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(*configPath)
			if err != nil {
				return err
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

			window := config.TTLDuration(cfg.Cache.Freshness, time.Hour)
			if refresh {
				window = 0
			}
			m, err := d.catalog.CourseTopicMap(cmd.Context(), window)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(m)
			}
			for _, course := range m.Courses() {
				fmt.Fprintln(out, course)
				topics, _ := m.Topics(course)
				for _, topic := range topics {
					fmt.Fprintf(out, "  - %s\n", topic)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "ignore the cached copy and fetch again")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the catalog as JSON")
	return cmd
}
