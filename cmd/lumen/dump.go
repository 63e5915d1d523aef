package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"lumen/internal/ast"
	"lumen/internal/modules"
)

var dumpCmd = &cobra.Command{
	Use:   "dump <file.lmod>",
	Short: "Decode a serialized unit and list its declaration tables",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		configureColor(cmd)
		payload, err := modules.ReadUnitPayload(args[0])
		if err != nil {
			return err
		}

		headColor := color.New(color.FgCyan, color.Bold)
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s %s\n", headColor.Sprint("module"), payload.Name)
		if payload.System {
			fmt.Fprintln(out, "system: true")
		}

		fmt.Fprintf(out, "%s (%d)\n", headColor.Sprint("decls"), len(payload.Decls))
		for i, d := range payload.Decls {
			var attrs []string
			if d.Private {
				attrs = append(attrs, "private")
			}
			if d.Testable {
				attrs = append(attrs, "testable")
			}
			if d.Bridge {
				attrs = append(attrs, "bridge selector="+d.Selector)
			}
			if d.Parent != 0 {
				attrs = append(attrs, fmt.Sprintf("member of %s", payload.Decls[d.Parent-1].Name))
			}
			if d.Mangled != "" {
				attrs = append(attrs, "mangled="+d.Mangled)
			}
			line := fmt.Sprintf("  %3d %-12s %s", i+1, ast.DeclKind(d.Kind), d.Name)
			if len(attrs) > 0 {
				line += "  [" + strings.Join(attrs, ", ") + "]"
			}
			fmt.Fprintln(out, line)
		}

		if len(payload.Libraries) > 0 {
			fmt.Fprintf(out, "%s (%d)\n", headColor.Sprint("link libraries"), len(payload.Libraries))
			for _, lib := range payload.Libraries {
				kind := "library"
				if lib.Framework {
					kind = "framework"
				}
				if lib.ForceLoad {
					kind += ", force-load"
				}
				fmt.Fprintf(out, "  %s (%s)\n", lib.Name, kind)
			}
		}
		if len(payload.GenericSignatures) > 0 {
			fmt.Fprintf(out, "%s (%d)\n", headColor.Sprint("generic signatures"), len(payload.GenericSignatures))
			for _, sig := range payload.GenericSignatures {
				fmt.Fprintf(out, "  %s\n", sig)
			}
		}
		return nil
	},
}
