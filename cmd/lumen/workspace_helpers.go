package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"lumen/internal/diag"
	"lumen/internal/workspace"
)

// resolveManifestPath returns the manifest named on the command line, or
// walks up from the working directory when none was given.
func resolveManifestPath(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	path, ok, err := workspace.FindManifest(".")
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("no %s found\nplease specify the manifest explicitly, e.g.:\n  lumen graph path/to/%s",
			workspace.ManifestName, workspace.ManifestName)
	}
	return path, nil
}

// buildWorkspace loads the manifest and constructs the module graph.
func buildWorkspace(cmd *cobra.Command, args []string) (*workspace.BuildResult, *diag.Bag, error) {
	path, err := resolveManifestPath(args)
	if err != nil {
		return nil, nil, err
	}
	manifest, err := workspace.LoadManifest(path)
	if err != nil {
		return nil, nil, err
	}
	maxDiagnostics, _ := cmd.Flags().GetInt("max-diagnostics")
	bag := diag.NewBag(maxDiagnostics)
	result, err := workspace.Build(cmd.Context(), manifest, diag.BagReporter{Bag: bag}, 0)
	if err != nil {
		return nil, nil, err
	}
	return result, bag, nil
}

// printDiagnostics renders collected diagnostics to stderr.
func printDiagnostics(bag *diag.Bag) {
	bag.Sort()
	bag.Dedup()
	errColor := color.New(color.FgRed, color.Bold)
	warnColor := color.New(color.FgYellow, color.Bold)
	for _, d := range bag.Items() {
		label := warnColor.Sprint(d.Severity.String())
		if d.Severity >= diag.SevError {
			label = errColor.Sprint(d.Severity.String())
		}
		fmt.Fprintf(os.Stderr, "%s[%s]: %s\n", label, d.Code, d.Message)
		for _, note := range d.Notes {
			fmt.Fprintf(os.Stderr, "  note: %s\n", note.Msg)
		}
	}
}
