package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var tasksFile string

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "Manage the content task catalog",
}

var tasksLoadCmd = &cobra.Command{
	Use:   "load",
	Short: "Import tasks that are not yet in the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		path := tasksFile
		if path == "" {
			path = a.cfg.TasksPath
		}
		inserted, err := a.svc.Tasks.Load(cmd.Context(), path)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "loaded %d new task(s) from %s\n", inserted, path)
		return nil
	},
}

var tasksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the task catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		tasks, err := a.svc.Tasks.List(cmd.Context())
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTYPE\tTITLE")
		for _, t := range tasks {
			fmt.Fprintf(w, "%s\t%s\t%s\n", t.ID, t.ContentType, t.Title)
		}
		return w.Flush()
	},
}

func init() {
	tasksLoadCmd.Flags().StringVarP(&tasksFile, "file", "f", "", "tasks JSON file (defaults to tasks_path from the config)")
	tasksCmd.AddCommand(tasksLoadCmd, tasksListCmd)
	rootCmd.AddCommand(tasksCmd)
}
