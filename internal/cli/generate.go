package cli

import (
	"fmt"

	"content-eval/internal/model"
	"content-eval/internal/service"

	"github.com/spf13/cobra"
)

var (
	generateExperiment uint
	generateAll        bool
	generateProvider   string
	generateModel      string
	generateStrategy   string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Run the generation plan for an experiment",
	Long: `Run the generation plan for an experiment.

With --all every configured provider/model is paired with both prompt
strategies and every task. Otherwise --provider, --model and --strategy
select a single combination that runs against every task.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		req := service.PlanRequest{ExperimentID: generateExperiment, RunAll: generateAll}
		if !generateAll && generateProvider != "" {
			provider, err := model.ParseProvider(generateProvider)
			if err != nil {
				return err
			}
			strategy, err := model.ParsePromptStrategy(generateStrategy)
			if err != nil {
				return err
			}
			req.Combination = &service.Combination{
				Provider: provider,
				Model:    generateModel,
				Strategy: strategy,
			}
		}

		a, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		progress, err := a.svc.Pipeline.Run(cmd.Context(), req)
		if progress != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "run %s: generated %d/%d (%d degraded), estimated cost $%.4f\n",
				progress.RunID, progress.Generated, progress.Total, progress.Degraded, progress.CostUSD)
		}
		return err
	},
}

func init() {
	generateCmd.Flags().UintVarP(&generateExperiment, "experiment", "e", 0, "experiment id")
	generateCmd.Flags().BoolVar(&generateAll, "all", false, "run every provider/model/strategy combination")
	generateCmd.Flags().StringVar(&generateProvider, "provider", "", "provider of a single combination (openai, anthropic, google)")
	generateCmd.Flags().StringVar(&generateModel, "model", "", "model name of a single combination")
	generateCmd.Flags().StringVar(&generateStrategy, "strategy", string(model.StrategyStructured), "prompt strategy of a single combination (structured, example_based)")
	_ = generateCmd.MarkFlagRequired("experiment")
	rootCmd.AddCommand(generateCmd)
}
