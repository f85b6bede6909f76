package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and update trigger settings",
	}
	cmd.AddCommand(newConfigGetCommand())
	cmd.AddCommand(newConfigSetCommand())
	cmd.AddCommand(newConfigListCommand())
	return cmd
}

func newConfigListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every registered trigger settings key",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, cleanup, err := bootRuntime(context.Background())
			if err != nil {
				return err
			}
			defer cleanup()

			for _, key := range rt.ListTriggerSpecs() {
				fmt.Println(key)
			}
			return nil
		},
	}
	return cmd
}

func newConfigGetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get [pipeline] [trigger]",
		Short: "Print one trigger's current settings as JSON",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, cleanup, err := bootRuntime(context.Background())
			if err != nil {
				return err
			}
			defer cleanup()

			model, err := rt.GetTriggerSettings(args[0], args[1])
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(model, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		},
	}
	return cmd
}

func newConfigSetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set [pipeline] [trigger] [key=value]...",
		Short: "Validate and apply settings overrides to a trigger",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := parseKeyValueArgs(args[2:])
			if err != nil {
				return err
			}

			rt, cleanup, err := bootRuntime(context.Background())
			if err != nil {
				return err
			}
			defer cleanup()

			updated, err := rt.UpdateTriggerSettings(context.Background(), args[0], args[1], payload)
			if err != nil {
				return fmt.Errorf("update settings: %w", err)
			}
			data, err := json.MarshalIndent(updated, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		},
	}
	return cmd
}

// parseKeyValueArgs parses "key=value" pairs into a map, decoding JSON
// scalars (numbers, booleans) and falling back to a bare string.
func parseKeyValueArgs(args []string) (map[string]any, error) {
	out := map[string]any{}
	for _, arg := range args {
		key, raw, ok := splitOnce(arg, '=')
		if !ok {
			return nil, fmt.Errorf("invalid key=value pair %q", arg)
		}
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			v = raw
		}
		out[key] = v
	}
	return out, nil
}

func splitOnce(s string, sep byte) (string, string, bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == sep {
			return s[:i], s[i+1:], true
		}
	}
	return "", "", false
}
