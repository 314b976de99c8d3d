package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"content-eval/internal/service"

	"github.com/spf13/cobra"
)

var (
	experimentName        string
	experimentDescription string
	experimentSamples     []string
)

var experimentsCmd = &cobra.Command{
	Use:     "experiments",
	Aliases: []string{"exp"},
	Short:   "Create and list experiments",
}

var experimentsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an experiment in setup status",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		exp, err := a.svc.Experiments.Create(cmd.Context(), service.CreateExperimentRequest{
			Name:            experimentName,
			Description:     experimentDescription,
			BaselineSamples: experimentSamples,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created experiment %d (%s)\n", exp.ID, exp.Status)
		return nil
	},
}

var experimentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List experiments, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		exps, err := a.svc.Experiments.List(cmd.Context())
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSTATUS\tNAME\tCREATED")
		for _, e := range exps {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", e.ID, e.Status, e.Name, e.CreatedAt.Format(time.RFC3339))
		}
		return w.Flush()
	},
}

func init() {
	experimentsCreateCmd.Flags().StringVarP(&experimentName, "name", "n", "", "experiment name")
	experimentsCreateCmd.Flags().StringVarP(&experimentDescription, "description", "d", "", "experiment description")
	experimentsCreateCmd.Flags().StringArrayVarP(&experimentSamples, "sample", "s", nil, "baseline sample text (repeatable)")
	_ = experimentsCreateCmd.MarkFlagRequired("name")
	experimentsCmd.AddCommand(experimentsCreateCmd, experimentsListCmd)
	rootCmd.AddCommand(experimentsCmd)
}
