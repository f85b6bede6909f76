package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newExecutionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "executions",
		Short: "Inspect tracked DEX cycle executions",
	}
	cmd.AddCommand(newExecutionsListCommand())
	cmd.AddCommand(newExecutionsGetCommand())
	return cmd
}

func newExecutionsListCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the most recent tracked executions",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, cleanup, err := bootRuntime(context.Background())
			if err != nil {
				return err
			}
			defer cleanup()

			records := rt.ListExecutions(limit)

			w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
			fmt.Fprintln(w, "EXECUTION ID\tMODE\tSTATUS\tSTAGE\tUPDATED AT")
			for _, r := range records {
				stage := "-"
				if r.Stage != nil {
					stage = *r.Stage
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.ExecutionID, r.Mode, r.Status, stage, r.UpdatedAt)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of executions to list")
	return cmd
}

func newExecutionsGetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get [execution-id]",
		Short: "Show one tracked execution's full record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, cleanup, err := bootRuntime(context.Background())
			if err != nil {
				return err
			}
			defer cleanup()

			rec, ok := rt.GetExecution(args[0])
			if !ok {
				return fmt.Errorf("execution %q not found", args[0])
			}

			fmt.Printf("execution_id: %s\n", rec.ExecutionID)
			fmt.Printf("mode:         %s\n", rec.Mode)
			fmt.Printf("reason:       %s\n", rec.Reason)
			fmt.Printf("status:       %s\n", rec.Status)
			if rec.Stage != nil {
				fmt.Printf("stage:        %s\n", *rec.Stage)
			}
			fmt.Printf("created_at:   %s\n", rec.CreatedAt)
			fmt.Printf("updated_at:   %s\n", rec.UpdatedAt)
			if rec.Error != nil {
				fmt.Printf("error:        %s\n", *rec.Error)
			}
			if rec.Result != nil {
				fmt.Printf("result:       %v\n", rec.Result)
			}
			return nil
		},
	}
	return cmd
}
