package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newHealthCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Verify the key-value store and database are reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, cleanup, err := bootRuntime(context.Background())
			if err != nil {
				return fmt.Errorf("boot failed: %w", err)
			}
			defer cleanup()

			if _, _, err := rt.KV.Get(context.Background(), "dex:config"); err != nil {
				return fmt.Errorf("key-value store unreachable: %w", err)
			}

			fmt.Println("✓ runtime booted")
			fmt.Printf("  dex task flows:        %d\n", len(rt.Dex.Hub.ListFlows()))
			fmt.Printf("  polymarket task flows: %d\n", len(rt.Polymarket.Hub.ListFlows()))
			return nil
		},
	}
}
