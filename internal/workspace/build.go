package workspace

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"lumen/internal/ast"
	"lumen/internal/diag"
	"lumen/internal/modules"
	"lumen/internal/source"
)

// BuildResult is a constructed workspace: the shared context plus the
// modules in manifest order.
type BuildResult struct {
	Context *modules.Context
	FileSet *source.FileSet
	Modules []*modules.Module
}

// Build constructs the module graph a manifest describes. Serialized
// payloads are read and decoded concurrently; all arena and unit
// construction then happens on the calling goroutine, so no lookup runs
// against a half-built graph.
func Build(ctx context.Context, manifest *Manifest, reporter diag.Reporter, jobs int) (*BuildResult, error) {
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	// Phase 1: fan out over serialized modules. Decoding touches no shared
	// state; each goroutine writes only its own slot.
	payloads := make([]*modules.UnitPayload, len(manifest.Config.Modules))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i := range manifest.Config.Modules {
		ms := &manifest.Config.Modules[i]
		if ms.Serialized == "" {
			continue
		}
		i := i
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			path := filepath.Join(manifest.Root, filepath.FromSlash(ms.Serialized))
			p, err := modules.ReadUnitPayload(path)
			if err != nil {
				return fmt.Errorf("module %q: %w", ms.Name, err)
			}
			payloads[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Phase 2: serial construction.
	mctx := modules.NewContext(nil, reporter)
	fileSet := source.NewFileSet()
	result := &BuildResult{
		Context: mctx,
		FileSet: fileSet,
		Modules: make([]*modules.Module, len(manifest.Config.Modules)),
	}

	// Modules first, so import edges can point forward.
	for i := range manifest.Config.Modules {
		ms := &manifest.Config.Modules[i]
		m := mctx.NewModule(mctx.Strings.Intern(ms.Name))
		m.SetTestingEnabled(ms.Testing)
		m.SetPrivateImportsEnabled(ms.PrivateImports)
		m.SetImplicitDynamicEnabled(ms.ImplicitDynamic)
		if ms.Resilient {
			m.SetResilienceStrategy(modules.ResilienceResilient)
		}
		result.Modules[i] = m
	}

	for i := range manifest.Config.Modules {
		ms := &manifest.Config.Modules[i]
		m := result.Modules[i]
		if payloads[i] != nil {
			modules.NewSerializedUnit(mctx, m, payloads[i])
			continue
		}
		for fi := range ms.Files {
			if err := buildSourceFile(mctx, fileSet, result, m, &ms.Files[fi]); err != nil {
				return nil, fmt.Errorf("module %q: %w", ms.Name, err)
			}
		}
		m.SetHasResolvedImports()
	}
	return result, nil
}

func buildSourceFile(mctx *modules.Context, fileSet *source.FileSet, result *BuildResult, m *modules.Module, fs *FileSection) error {
	kind, err := parseFileKind(fs.Kind)
	if err != nil {
		return err
	}
	fileID := fileSet.AddVirtual(fs.Path, nil)
	sf := modules.NewSourceFile(mctx, m, kind, fs.Path, fileID)

	byName := make(map[string]ast.DeclID, len(fs.Decls))
	for di := range fs.Decls {
		ds := &fs.Decls[di]
		declKind, err := parseDeclKind(ds.Kind)
		if err != nil {
			return err
		}
		decl := ast.Decl{
			Kind:   declKind,
			Name:   mctx.Strings.Intern(ds.Name),
			Access: ast.AccessInternal,
		}
		if declKind.IsOperator() || declKind == ast.DeclPrecedenceGroup {
			// Operator decls go into the file tables, not value lookup.
		} else {
			decl.Flags |= ast.DeclFlagValue
		}
		if ds.Private {
			decl.Flags |= ast.DeclFlagPrivate
			decl.Access = ast.AccessPrivate
		}
		if ds.Testable {
			decl.Flags |= ast.DeclFlagTestable
		}
		if ds.Bridge {
			decl.Flags |= ast.DeclFlagBridgeExposed
		}
		if ds.Selector != "" {
			decl.Selector = mctx.Strings.Intern(ds.Selector)
		}
		if ds.Parent != "" {
			parent, ok := byName[ds.Parent]
			if !ok {
				return fmt.Errorf("file %q: decl %q has unknown parent %q", fs.Path, ds.Name, ds.Parent)
			}
			decl.Parent = parent
		}
		id := mctx.Decls.New(&decl)
		byName[ds.Name] = id
		sf.AddDecl(id)
		switch declKind {
		case ast.DeclInfixOperator:
			sf.SetInfixOperator(decl.Name, id, false)
		case ast.DeclPrefixOperator:
			sf.SetPrefixOperator(decl.Name, id, false)
		case ast.DeclPostfixOperator:
			sf.SetPostfixOperator(decl.Name, id, false)
		case ast.DeclPrecedenceGroup:
			sf.SetPrecedenceGroup(decl.Name, id, false)
		}
	}

	var descs []modules.ImportedModuleDesc
	for ii := range fs.Imports {
		is := &fs.Imports[ii]
		target := mctx.ModuleByName(mctx.Strings.Intern(is.Module))
		if target == nil {
			diag.ReportError(mctx.Reporter, diag.WorkUnknownModule, source.Span{File: fileID},
				"import of unknown module "+is.Module).Emit()
			continue
		}
		var path modules.AccessPath
		if is.Name != "" {
			path = modules.SinglePath(mctx.Strings.Intern(is.Name), source.Span{File: fileID})
		}
		var options modules.ImportOptions
		if is.Exported {
			options |= modules.ImportExported
		}
		if is.Testable {
			options |= modules.ImportTestable
		}
		if is.Private {
			options |= modules.ImportPrivate
		}
		if is.ImplementationOnly {
			options |= modules.ImportImplementationOnly
		}
		descs = append(descs, modules.NewImportedModuleDesc(
			modules.ImportedModule{Path: path, Module: target.ID()}, options, fs.Path))
	}
	sf.AddImports(descs)

	if fs.MainClass != "" {
		class, ok := byName[fs.MainClass]
		if !ok {
			return fmt.Errorf("file %q: main class %q is not declared in the file", fs.Path, fs.MainClass)
		}
		sf.RegisterMainClass(class, source.Span{File: fileID})
	}
	if sf.IsScriptMode() {
		m.RegisterEntryPointFile(sf, source.Span{File: fileID}, modules.EntryPointScript)
	}
	sf.AdvanceStage(modules.StageNameBound)
	return nil
}

func parseFileKind(kind string) (modules.SourceFileKind, error) {
	switch strings.TrimSpace(kind) {
	case "", "library":
		return modules.FileLibrary, nil
	case "main":
		return modules.FileMain, nil
	case "repl":
		return modules.FileREPL, nil
	case "interface":
		return modules.FileInterface, nil
	default:
		return 0, fmt.Errorf("unknown file kind %q", kind)
	}
}

func parseDeclKind(kind string) (ast.DeclKind, error) {
	switch strings.TrimSpace(kind) {
	case "", "func":
		return ast.DeclFunc, nil
	case "var":
		return ast.DeclVar, nil
	case "class":
		return ast.DeclClass, nil
	case "typealias":
		return ast.DeclTypeAlias, nil
	case "infix":
		return ast.DeclInfixOperator, nil
	case "prefix":
		return ast.DeclPrefixOperator, nil
	case "postfix":
		return ast.DeclPostfixOperator, nil
	case "precedence":
		return ast.DeclPrecedenceGroup, nil
	default:
		return 0, fmt.Errorf("unknown decl kind %q", kind)
	}
}
