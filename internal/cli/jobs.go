package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yumyai/cgcompare/pkg/db"
	"github.com/yumyai/cgcompare/pkg/job"
)

var (
	jobsKind  string
	jobsLimit int
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List jobs recorded in the SQLite job database",
	Long: `List jobs from the SQLite database at CGCOMPARE_SQLITE, newest first.
Stored results are always there; in-flight jobs only when CGCOMPARE_STORE=sqlite.`,
	Example: `  cgcompare jobs --kind cgmlst --limit 10`,
	RunE:    runJobs,
}

func init() {
	jobsCmd.Flags().StringVarP(&jobsKind, "kind", "k", "", "nearest_neighbors or cgmlst_tree")
	jobsCmd.Flags().IntVarP(&jobsLimit, "limit", "n", 50, "max results")
}

func runJobs(cmd *cobra.Command, args []string) error {
	var kind job.Kind
	if jobsKind != "" {
		k, err := job.ParseKind(jobsKind)
		if err != nil {
			return err
		}
		kind = k
	}

	ctx := context.Background()
	store, err := db.OpenSQLite(ctx, cfg.SQLitePath)
	if err != nil {
		return err
	}
	defer store.Close()

	jobs, err := store.List(ctx, kind, jobsLimit)
	if err != nil {
		return fmt.Errorf("list jobs: %w", err)
	}
	if len(jobs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No jobs found.")
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "JOB ID\tKIND\tSPECIES\tSTATUS\tCREATED")
	for _, j := range jobs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", j.ID, j.Kind, j.Species, j.Status, j.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return tw.Flush()
}
