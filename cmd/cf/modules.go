package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/steveyegge/contentfactory/internal/contracts"
	"github.com/steveyegge/contentfactory/internal/registry"
)

var modulesJSON bool

var modulesCmd = &cobra.Command{
	Use:   "modules [kind]",
	Short: "List registered modules",
	Long: `List every registered implementation, or only one kind:
parsers, llm-providers, agents, social-networks.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close(ctx)

		out := cmd.OutOrStdout()
		kinds := contracts.Kinds
		if len(args) == 1 {
			kind, err := contracts.ParseKind(args[0])
			if err != nil {
				return err
			}
			kinds = []contracts.Kind{kind}
		}

		if modulesJSON {
			if len(args) == 1 {
				list, _ := a.svc.ListKind(kinds[0])
				return writeJSON(out, map[string]any{kinds[0].Plural(): list})
			}
			return writeJSON(out, a.svc.ListAll())
		}

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()
		for _, kind := range kinds {
			list, err := a.svc.ListKind(kind)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "\n%s\n", cyan(kindTitle(kind)))
			if len(list) == 0 {
				fmt.Fprintf(out, "  %s\n", gray("none registered"))
				continue
			}
			writeDescriptors(out, list)
		}

		stats := a.manager.Stats()
		fmt.Fprintf(out, "\nTotal: %d (parsers %d, llm providers %d, agents %d, social networks %d)\n",
			stats.Total(), stats.Parsers, stats.LLMProviders, stats.Agents, stats.SocialNetworks)
		return nil
	},
}

func init() {
	modulesCmd.Flags().BoolVar(&modulesJSON, "json", false, "print descriptors as JSON")
	rootCmd.AddCommand(modulesCmd)
}

func kindTitle(kind contracts.Kind) string {
	switch kind {
	case contracts.KindParser:
		return "Parsers"
	case contracts.KindLLMProvider:
		return "LLM Providers"
	case contracts.KindAgent:
		return "Agents"
	case contracts.KindSocialNetwork:
		return "Social Networks"
	}
	return string(kind)
}

func writeDescriptors(w io.Writer, list []registry.Descriptor) {
	rows := make([][]string, 0, len(list))
	for _, d := range list {
		rows = append(rows, []string{d.Name, d.Version, descriptorDetail(d), truncate(d.Description, 60)})
	}
	writeTable(w, []string{"NAME", "VERSION", "DETAIL", "DESCRIPTION"}, rows)
}

// descriptorDetail is the kind-specific column: parser type, agent role or
// supported post types.
func descriptorDetail(d registry.Descriptor) string {
	switch {
	case d.Type != "":
		return string(d.Type)
	case d.Role != "":
		return string(d.Role)
	case len(d.SupportedTypes) > 0:
		types := make([]string, len(d.SupportedTypes))
		for i, t := range d.SupportedTypes {
			types[i] = string(t)
		}
		detail := strings.Join(types, ",")
		if d.MaxContentLength > 0 {
			detail += fmt.Sprintf(" (max %d)", d.MaxContentLength)
		}
		return detail
	}
	return "-"
}
