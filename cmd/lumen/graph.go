package main

import (
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"lumen/internal/modules"
)

var graphCmd = &cobra.Command{
	Use:   "graph [manifest]",
	Short: "Print each module's transitive visible-module closure",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		configureColor(cmd)
		result, bag, err := buildWorkspace(cmd, args)
		if err != nil {
			return err
		}

		nameColor := color.New(color.FgCyan, color.Bold)
		restrictColor := color.New(color.FgYellow)
		out := cmd.OutOrStdout()

		units := 0
		for _, m := range result.Modules {
			units += len(m.Files())
			fmt.Fprintf(out, "%s\n", nameColor.Sprint(m.NameString()))

			type edge struct {
				name     string
				restrict string
			}
			var edges []edge
			m.ForAllVisibleModules(nil, func(im modules.ImportedModule) bool {
				target := result.Context.Module(im.Module)
				if target == nil || target == m {
					return true
				}
				e := edge{name: target.NameString()}
				if front := im.Path.Front(); front != 0 {
					e.restrict = result.Context.Strings.MustLookup(front)
				}
				edges = append(edges, e)
				return true
			})
			sort.Slice(edges, func(i, j int) bool { return edges[i].name < edges[j].name })
			for _, e := range edges {
				if e.restrict != "" {
					fmt.Fprintf(out, "  -> %s (%s)\n", e.name, restrictColor.Sprint(e.restrict))
				} else {
					fmt.Fprintf(out, "  -> %s\n", e.name)
				}
			}
			if len(edges) == 0 {
				fmt.Fprintln(out, "  (no visible modules)")
			}
		}

		printDiagnostics(bag)
		fmt.Fprint(out, renderSummary(len(result.Modules), units, result.Context.Decls.Len(), bag.Len()))
		return nil
	},
}
