package cli

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/facultyscope/internal/output"
	"github.com/ppiankov/facultyscope/internal/store"
)

var (
	runsLimit  int
	exportRun  string
	exportFile string
)

// runsCmd represents the runs command
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List the harvest runs recorded in the run store",
	Long: `List the most recent harvest runs of a run store, or export the faculty
and papers of one run back to JSONL.

Example:
  facultyscope runs --db runs.db
  facultyscope runs --db runs.db --export <run-id> --out faculty.jsonl`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(viper.GetViper())
		if err != nil {
			return err
		}
		if cfg.Store.Path == "" {
			return errors.New("no run store configured (use --db or store.path)")
		}

		st, err := store.Open(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()

		ctx := cmd.Context()
		if exportRun != "" {
			records, err := st.Faculty(ctx, exportRun)
			if err != nil {
				return err
			}
			if err := output.WriteAll(exportFile, records); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "✓ %d faculty of run %s written to %s\n", len(records), exportRun, exportFile)
			return nil
		}

		runs, err := st.Runs(ctx, runsLimit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Fprintf(os.Stderr, "No runs recorded in %s\n", st.Path())
			return nil
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tSTARTED\tSTATUS\tFACULTY\tPAPERS\tDURATION")
		for _, r := range runs {
			duration := "-"
			if !r.FinishedAt.IsZero() {
				duration = r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String()
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n",
				r.ID, r.StartedAt.Local().Format(time.DateTime), r.Status, r.Faculty, r.Papers, duration)
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(runsCmd)

	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "number of runs to list")
	runsCmd.Flags().StringVar(&exportRun, "export", "", "export the faculty records of this run")
	runsCmd.Flags().StringVar(&exportFile, "out", "faculty.jsonl", "export destination")
}
