package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yumyai/cgcompare/pkg/dataset"
	"github.com/yumyai/cgcompare/pkg/model"
)

var (
	querySpecies string
	queryCutoff  float64
	queryHashed  bool
)

var neighborsCmd = &cobra.Command{
	Use:     "neighbors --species NAME --cutoff N SEQUENCE...",
	Short:   "Print sequences within an allele distance of the given ones",
	Example: `  cgcompare neighbors --species "Salmonella enterica" --cutoff 10 SSI-1 SSI-2`,
	Args:    cobra.MinimumNArgs(1),
	RunE:    runNeighbors,
}

var profilesCmd = &cobra.Command{
	Use:   "profiles --species NAME ID...",
	Short: "Print allele profiles as tree builder input",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runProfiles,
}

var diffCmd = &cobra.Command{
	Use:   "diff --species NAME ID...",
	Short: "Print the loci where the given allele profiles differ",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDiff,
}

func init() {
	for _, c := range []*cobra.Command{neighborsCmd, profilesCmd, diffCmd} {
		c.Flags().StringVarP(&querySpecies, "species", "s", "", "species name")
		_ = c.MarkFlagRequired("species")
	}
	neighborsCmd.Flags().Float64VarP(&queryCutoff, "cutoff", "c", 0, "maximum allele distance")
	_ = neighborsCmd.MarkFlagRequired("cutoff")
	profilesCmd.Flags().BoolVar(&queryHashed, "hashed", false, "ids are allele profile hash ids")
}

func loadQueryDataset() (*dataset.Dataset, error) {
	sp, err := speciesConfig(querySpecies)
	if err != nil {
		return nil, err
	}
	return dataset.LoadSpecies(sp)
}

func runNeighbors(cmd *cobra.Command, args []string) error {
	ds, err := loadQueryDataset()
	if err != nil {
		return err
	}
	ids, err := model.FindNeighbors(ds.Matrix, args, queryCutoff)
	if err != nil {
		return err
	}
	printLines(cmd.OutOrStdout(), ids)
	return nil
}

func runProfiles(cmd *cobra.Command, args []string) error {
	ds, err := loadQueryDataset()
	if err != nil {
		return err
	}
	table := ds.Profiles
	if queryHashed {
		if ds.HashProfiles == nil {
			return fmt.Errorf("species '%s' has no %s", ds.Species, dataset.HashedProfileFile)
		}
		table = ds.HashProfiles
	}
	text, err := model.LookupProfiles(table, args)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), text)
	return nil
}

func runDiff(cmd *cobra.Command, args []string) error {
	ds, err := loadQueryDataset()
	if err != nil {
		return err
	}
	res, err := model.DiffTable(ds.Profiles, args)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "locus\t%s\n", strings.Join(args, "\t"))
	for _, locus := range res.Loci {
		calls := make([]string, len(args))
		for i, id := range args {
			calls[i] = res.Table[locus][id]
		}
		fmt.Fprintf(tw, "%s\t%s\n", locus, strings.Join(calls, "\t"))
	}
	return tw.Flush()
}
