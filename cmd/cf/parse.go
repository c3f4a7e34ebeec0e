package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var parseJSON bool

var parseCmd = &cobra.Command{
	Use:   "parse <parser> <source>",
	Short: "Parse a source, using the cache when fresh",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close(ctx)

		res, err := a.svc.Parse(ctx, args[0], args[1])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if parseJSON {
			return writeJSON(out, res.Items)
		}

		gray := color.New(color.FgHiBlack).SprintFunc()
		origin := "fetched"
		if res.Cached {
			origin = "from cache"
		}
		fmt.Fprintf(out, "%d items %s\n\n", res.ItemsCount, gray(origin))
		if res.ItemsCount > 0 {
			writeItems(out, res.Items)
		}
		return nil
	},
}

func init() {
	parseCmd.Flags().BoolVar(&parseJSON, "json", false, "print the raw items as JSON")
	rootCmd.AddCommand(parseCmd)
}
