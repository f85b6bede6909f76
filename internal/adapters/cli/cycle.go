package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newCycleCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cycle",
		Short: "DEX trader cycle operations",
	}
	cmd.AddCommand(newCycleTriggerCommand())
	return cmd
}

func newCycleTriggerCommand() *cobra.Command {
	var mode, reason string

	cmd := &cobra.Command{
		Use:   "trigger",
		Short: "Launch an asynchronous DEX trader cycle execution",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, cleanup, err := bootRuntime(context.Background())
			if err != nil {
				return err
			}
			defer cleanup()

			out, err := rt.LaunchExecution(context.Background(), mode, reason)
			if err != nil {
				return fmt.Errorf("trigger cycle: %w", err)
			}
			fmt.Printf("status:       %v\n", out["status"])
			fmt.Printf("execution_id: %v\n", out["execution_id"])
			return nil
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "long_study", "review mode: long_study or fast_decision")
	cmd.Flags().StringVar(&reason, "reason", "manual", "trigger reason recorded on the execution")
	return cmd
}
