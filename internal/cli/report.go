package cli

import (
	"fmt"
	"os"

	"content-eval/internal/service"

	"github.com/spf13/cobra"
)

var (
	reportExperiment uint
	reportOut        string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render the results report of an experiment as markdown",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		ctx := cmd.Context()
		exp, err := a.svc.Experiments.Get(ctx, reportExperiment)
		if err != nil {
			return err
		}
		report, err := a.svc.Aggregator.Report(ctx, reportExperiment)
		if err != nil {
			return err
		}
		progress, err := a.svc.Queue.Progress(ctx, reportExperiment)
		if err != nil {
			return err
		}

		md := service.RenderReportMarkdown(exp, report, progress)
		if reportOut == "" {
			_, err := fmt.Fprint(cmd.OutOrStdout(), md)
			return err
		}
		if err := os.WriteFile(reportOut, []byte(md), 0o644); err != nil {
			return fmt.Errorf("写入报告失败: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "report written to %s\n", reportOut)
		return nil
	},
}

func init() {
	reportCmd.Flags().UintVarP(&reportExperiment, "experiment", "e", 0, "experiment id")
	reportCmd.Flags().StringVarP(&reportOut, "out", "o", "", "write the report to this file instead of stdout")
	_ = reportCmd.MarkFlagRequired("experiment")
	rootCmd.AddCommand(reportCmd)
}
