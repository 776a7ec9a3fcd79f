package cli

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/facultyscope/internal/college"
	"github.com/ppiankov/facultyscope/internal/pipeline"
)

// collegesCmd represents the colleges command
var collegesCmd = &cobra.Command{
	Use:   "colleges",
	Short: "List and validate the configured colleges",
	Long: `List the configured college directories and check that each one builds:
the kind must be registered and every field reference must be well formed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(viper.GetViper())
		if err != nil {
			return err
		}

		registry := college.NewRegistry()
		fmt.Fprintf(os.Stderr, "Registered kinds: %s\n\n", strings.Join(registry.Kinds(), ", "))

		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "CODE\tKIND\tPAGES\tBASE URL\tNAME")
		for _, c := range cfg.Colleges {
			fmt.Fprintf(tw, "%s\t%s\t%t\t%s\t%s\n", c.Code, c.Kind, c.FetchPages, c.BaseURL, c.Name)
		}
		if err := tw.Flush(); err != nil {
			return err
		}

		cfg.Cache.Enabled = false
		p := pipeline.New(cfg, pipeline.WithRegistry(registry))
		if _, err := p.Sources(); err != nil {
			return fmt.Errorf("invalid college configuration: %w", err)
		}
		fmt.Fprintf(os.Stderr, "\n✓ %d colleges valid\n", len(cfg.Colleges))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(collegesCmd)
}
