package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"lumen/internal/modules"
)

var importsFilter string

func init() {
	importsCmd.Flags().StringVar(&importsFilter, "filter", "public,private",
		"comma-separated edge kinds (public|private|implementation-only)")
}

var importsCmd = &cobra.Command{
	Use:   "imports [manifest]",
	Short: "Print each module's deduplicated import list",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		configureColor(cmd)
		filter, err := parseImportFilter(importsFilter)
		if err != nil {
			return err
		}
		result, bag, err := buildWorkspace(cmd, args)
		if err != nil {
			return err
		}

		nameColor := color.New(color.FgCyan, color.Bold)
		out := cmd.OutOrStdout()
		for _, m := range result.Modules {
			fmt.Fprintf(out, "%s\n", nameColor.Sprint(m.NameString()))
			imports := m.ImportedModules(filter)
			if len(imports) == 0 {
				fmt.Fprintln(out, "  (none)")
				continue
			}
			for _, im := range imports {
				target := result.Context.Module(im.Module)
				if target == nil {
					continue
				}
				if front := im.Path.Front(); front != 0 {
					fmt.Fprintf(out, "  import %s.%s\n",
						target.NameString(), result.Context.Strings.MustLookup(front))
				} else {
					fmt.Fprintf(out, "  import %s\n", target.NameString())
				}
			}
		}
		printDiagnostics(bag)
		return nil
	},
}

func parseImportFilter(spec string) (modules.ImportFilter, error) {
	var filter modules.ImportFilter
	for _, part := range strings.Split(spec, ",") {
		switch strings.TrimSpace(part) {
		case "":
		case "public":
			filter |= modules.FilterPublic
		case "private":
			filter |= modules.FilterPrivate
		case "implementation-only":
			filter |= modules.FilterImplementationOnly
		default:
			return 0, fmt.Errorf("unknown import filter %q (must be public, private, or implementation-only)", part)
		}
	}
	if filter == 0 {
		return 0, fmt.Errorf("empty import filter")
	}
	return filter, nil
}
