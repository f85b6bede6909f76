package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newFlowsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flows",
		Short: "Inspect and toggle per-task flow enablement",
	}
	cmd.AddCommand(newFlowsListCommand())
	cmd.AddCommand(newFlowsSetCommand())
	return cmd
}

func newFlowsListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list [dex|polymarket]",
		Short: "List every registered task flow for one manager",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, cleanup, err := bootRuntime(context.Background())
			if err != nil {
				return err
			}
			defer cleanup()

			var flows []flowRow
			var flags map[string]bool
			switch args[0] {
			case "dex":
				flags = rt.Dex.Flags()
				for _, f := range rt.Dex.Hub.ListFlows() {
					flows = append(flows, flowRow{f.ID, f.SystemName, f.Description})
				}
			case "polymarket":
				flags = rt.Polymarket.Flags()
				for _, f := range rt.Polymarket.Hub.ListFlows() {
					flows = append(flows, flowRow{f.ID, f.SystemName, f.Description})
				}
			default:
				return fmt.Errorf("unknown manager %q, expected dex or polymarket", args[0])
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
			fmt.Fprintln(w, "TASK ID\tSYSTEM\tENABLED\tDESCRIPTION")
			for _, f := range flows {
				enabled, overridden := flags[f.id]
				state := "true"
				if overridden && !enabled {
					state = "false"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", f.id, f.system, state, f.description)
			}
			return w.Flush()
		},
	}
	return cmd
}

type flowRow struct {
	id          string
	system      string
	description string
}

func newFlowsSetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set [dex|polymarket] [task-id] [true|false]",
		Short: "Override one task flow's enabled state",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			enabled, err := strconv.ParseBool(args[2])
			if err != nil {
				return fmt.Errorf("invalid enabled value %q: %w", args[2], err)
			}

			rt, cleanup, err := bootRuntime(context.Background())
			if err != nil {
				return err
			}
			defer cleanup()

			overrides := map[string]bool{args[1]: enabled}
			switch args[0] {
			case "dex":
				rt.Dex.UpdateTaskFlows(overrides)
			case "polymarket":
				rt.Polymarket.UpdateTaskFlows(overrides)
			default:
				return fmt.Errorf("unknown manager %q, expected dex or polymarket", args[0])
			}

			fmt.Printf("%s.%s enabled=%v\n", args[0], args[1], enabled)
			return nil
		},
	}
	return cmd
}
