package main

import (
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/steveyegge/contentfactory/internal/contracts"
	"github.com/steveyegge/contentfactory/internal/pipeline"
)

var testJSON bool

var testCmd = &cobra.Command{
	Use:   "test <parser> <source>",
	Short: "Run a parser against a source and preview the result",
	Long: `Validate the source, test the parser's connection, then parse. Prints the
item count and the first few items, or the stage that failed.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close(ctx)

		res, err := a.svc.TestParser(ctx, args[0], args[1])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if testJSON {
			if err := writeJSON(out, res); err != nil {
				return err
			}
		} else {
			printTestResult(out, res)
		}
		if !res.OK() {
			return fmt.Errorf("parser %s failed at %s stage", res.Parser, res.Stage)
		}
		return nil
	},
}

func init() {
	testCmd.Flags().BoolVar(&testJSON, "json", false, "print the result as JSON")
	rootCmd.AddCommand(testCmd)
}

func printTestResult(w io.Writer, res *pipeline.TestResult) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	if !res.OK() {
		fmt.Fprintf(w, "%s %s failed at %s stage: %s %s\n",
			red("✗"), res.Parser, res.Stage, res.Message, gray(fmt.Sprintf("(%dms)", res.ElapsedMS)))
		return
	}
	fmt.Fprintf(w, "%s %s parsed %d items from %s %s\n",
		green("✓"), res.Parser, res.ItemsCount, res.Source, gray(fmt.Sprintf("(%dms)", res.ElapsedMS)))
	if len(res.Items) > 0 {
		fmt.Fprintln(w)
		writeItems(w, res.Items)
	}
}

func writeItems(w io.Writer, items []*contracts.ParsedItem) {
	rows := make([][]string, 0, len(items))
	for _, it := range items {
		rows = append(rows, []string{truncate(it.Text("title"), 50), truncate(it.Text("url"), 60), it.Type})
	}
	writeTable(w, []string{"TITLE", "URL", "TYPE"}, rows)
}
