package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/steveyegge/contentfactory/internal/contracts"
)

var describeKind string

var describeCmd = &cobra.Command{
	Use:   "describe <name>",
	Short: "Show a module's descriptor and config schema",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close(ctx)

		kind, err := contracts.ParseKind(describeKind)
		if err != nil {
			return err
		}
		if kind == contracts.KindParser {
			d, err := a.svc.DescribeParser(args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), d)
		}
		d, ok := a.manager.Describe(kind, args[0])
		if !ok {
			return fmt.Errorf("%s %q: %w", kind, args[0], contracts.ErrNotFound)
		}
		return writeJSON(cmd.OutOrStdout(), d)
	},
}

func init() {
	describeCmd.Flags().StringVar(&describeKind, "kind", "parser", "module kind")
	rootCmd.AddCommand(describeCmd)
}
