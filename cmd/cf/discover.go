package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/steveyegge/contentfactory/internal/contracts"
)

var discoverJSON bool

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Scan the module tree and report what was loaded",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close(ctx)

		out := cmd.OutOrStdout()
		if discoverJSON {
			byKind := make(map[string]any, len(a.report))
			for kind, rep := range a.report {
				byKind[kind.Plural()] = rep
			}
			return writeJSON(out, byKind)
		}

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		green := color.New(color.FgGreen).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()

		fmt.Fprintf(out, "\n%s %s\n", cyan("Module tree:"), cfg.ModulesPath)
		failed := 0
		for _, kind := range contracts.Kinds {
			rep := a.report[kind]
			fmt.Fprintf(out, "\n%s %s\n", cyan(kindTitle(kind)), gray(rep.Dir))
			if rep.Missing {
				fmt.Fprintf(out, "  %s directory not found\n", yellow("⚠"))
				continue
			}
			if len(rep.Registered) > 0 {
				fmt.Fprintf(out, "  %s %s\n", green("✓"), strings.Join(rep.Registered, ", "))
			}
			for _, name := range rep.Skipped {
				fmt.Fprintf(out, "  %s %s %s\n", gray("○"), name, gray("(skipped)"))
			}
			for _, e := range rep.Failed {
				failed++
				fmt.Fprintf(out, "  %s %s: %v\n", red("✗"), e.Module, e.Err)
			}
		}

		fmt.Fprintf(out, "\nRegistered %d implementations", a.report.Registered())
		if failed > 0 {
			fmt.Fprintf(out, ", %s", red(fmt.Sprintf("%d failed", failed)))
		}
		fmt.Fprintln(out)
		return nil
	},
}

func init() {
	discoverCmd.Flags().BoolVar(&discoverJSON, "json", false, "print the reports as JSON")
	rootCmd.AddCommand(discoverCmd)
}
