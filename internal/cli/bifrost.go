package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/yumyai/cgcompare/pkg/hpc"
)

var bifrostAnalyses []string

var bifrostCmd = &cobra.Command{
	Use:   "bifrost",
	Short: "List, launch and check Bifrost analyses on the HPC cluster",
}

var bifrostListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the configured Bifrost analyses",
	RunE: func(cmd *cobra.Command, args []string) error {
		return printJSON(cmd, hpc.NewBifrost(nil, cfg).ListAnalyses())
	},
}

var bifrostInitCmd = &cobra.Command{
	Use:   "init --analyses A[,B] SEQUENCE...",
	Short: "Launch Bifrost analyses for sequences",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		j, err := newBifrost(cfg).Init(cmd.Context(), args, bifrostAnalyses)
		if err != nil {
			return err
		}
		return printJSON(cmd, j)
	},
}

var bifrostStatusCmd = &cobra.Command{
	Use:   "status JOB_ID",
	Short: "Ask the cluster scheduler about a Bifrost job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		j, err := newBifrost(cfg).Status(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd, j)
	},
}

func init() {
	bifrostInitCmd.Flags().StringSliceVarP(&bifrostAnalyses, "analyses", "a", nil, "analysis identifiers")
	_ = bifrostInitCmd.MarkFlagRequired("analyses")

	bifrostCmd.AddCommand(bifrostListCmd)
	bifrostCmd.AddCommand(bifrostInitCmd)
	bifrostCmd.AddCommand(bifrostStatusCmd)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
