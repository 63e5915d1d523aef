package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// ManifestName is the file a workspace is described by.
const ManifestName = "lumen.toml"

// Manifest is a loaded and validated workspace description.
type Manifest struct {
	Path   string
	Root   string
	Config Config
}

// Config mirrors the TOML layout of a workspace manifest.
type Config struct {
	Workspace WorkspaceSection `toml:"workspace"`
	Modules   []ModuleSection  `toml:"module"`
}

type WorkspaceSection struct {
	Name string `toml:"name"`
}

// ModuleSection describes one module. A module either lists source files or
// points at a serialized unit, never both.
type ModuleSection struct {
	Name            string `toml:"name"`
	Testing         bool   `toml:"testing"`
	PrivateImports  bool   `toml:"private_imports"`
	ImplicitDynamic bool   `toml:"implicit_dynamic"`
	Resilient       bool   `toml:"resilient"`

	// Serialized points at a .lmod payload relative to the manifest root.
	Serialized string `toml:"serialized"`

	Files []FileSection `toml:"file"`
}

type FileSection struct {
	Path      string `toml:"path"`
	Kind      string `toml:"kind"` // library (default), main, repl, interface
	MainClass string `toml:"main_class"`

	Decls   []DeclSection   `toml:"decl"`
	Imports []ImportSection `toml:"import"`
}

type DeclSection struct {
	Name     string `toml:"name"`
	Kind     string `toml:"kind"` // func (default), var, class, typealias
	Parent   string `toml:"parent"`
	Selector string `toml:"selector"`
	Private  bool   `toml:"private"`
	Testable bool   `toml:"testable"`
	Bridge   bool   `toml:"bridge"`
}

type ImportSection struct {
	Module             string `toml:"module"`
	Name               string `toml:"name"` // optional top-level restriction
	Exported           bool   `toml:"exported"`
	Testable           bool   `toml:"testable"`
	Private            bool   `toml:"private"`
	ImplementationOnly bool   `toml:"implementation_only"`
}

// FindManifest walks up from startDir looking for a lumen.toml.
func FindManifest(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, ManifestName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// LoadManifest reads and validates a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	var cfg Config
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if !meta.IsDefined("workspace", "name") || strings.TrimSpace(cfg.Workspace.Name) == "" {
		return nil, fmt.Errorf("%s: missing [workspace].name", path)
	}
	if len(cfg.Modules) == 0 {
		return nil, fmt.Errorf("%s: no [[module]] sections", path)
	}
	seen := make(map[string]bool, len(cfg.Modules))
	for i := range cfg.Modules {
		if err := validateModule(&cfg.Modules[i], seen); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	return &Manifest{
		Path:   path,
		Root:   filepath.Dir(path),
		Config: cfg,
	}, nil
}

func validateModule(m *ModuleSection, seen map[string]bool) error {
	name := strings.TrimSpace(m.Name)
	if name == "" {
		return errors.New("module without a name")
	}
	if seen[name] {
		return fmt.Errorf("module %q declared twice", name)
	}
	seen[name] = true

	if m.Serialized != "" && len(m.Files) > 0 {
		return fmt.Errorf("module %q mixes serialized and source files", name)
	}
	for fi := range m.Files {
		f := &m.Files[fi]
		if strings.TrimSpace(f.Path) == "" {
			return fmt.Errorf("module %q: file without a path", name)
		}
		if _, err := parseFileKind(f.Kind); err != nil {
			return fmt.Errorf("module %q, file %q: %w", name, f.Path, err)
		}
		for di := range f.Decls {
			d := &f.Decls[di]
			if strings.TrimSpace(d.Name) == "" {
				return fmt.Errorf("module %q, file %q: decl without a name", name, f.Path)
			}
			if _, err := parseDeclKind(d.Kind); err != nil {
				return fmt.Errorf("module %q, file %q: %w", name, f.Path, err)
			}
		}
		for ii := range f.Imports {
			imp := &f.Imports[ii]
			if strings.TrimSpace(imp.Module) == "" {
				return fmt.Errorf("module %q, file %q: import without a module", name, f.Path)
			}
			if imp.Exported && imp.ImplementationOnly {
				return fmt.Errorf("module %q, file %q: import of %q is both exported and implementation-only",
					name, f.Path, imp.Module)
			}
		}
	}
	return nil
}
