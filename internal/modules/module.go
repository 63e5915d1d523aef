package modules

import (
	"lumen/internal/ast"
	"lumen/internal/source"
)

// ResilienceStrategy discriminates how much of a module's layout importers
// may rely on.
type ResilienceStrategy uint8

const (
	// ResilienceDefault keeps public nominal types fragile.
	ResilienceDefault ResilienceStrategy = iota
	// ResilienceResilient hides layout behind the module boundary.
	ResilienceResilient
)

// ModuleFlags carry the module-wide toggles.
type ModuleFlags uint8

const (
	flagTestingEnabled ModuleFlags = 1 << iota
	flagImplicitDynamicEnabled
	flagPrivateImportsEnabled
	flagFailedToLoad
	flagHasResolvedImports
	flagIsSystemModule
	flagIsForeignModule
)

// Reserved module names.
const (
	stdlibModuleName  = "std"
	builtinModuleName = "builtin"
)

// Module is the minimum unit of compilation: an ordered set of file units
// that form one logical library or executable, plus the module-level lookup
// cache and the single module-wide entry-point record.
type Module struct {
	ctx  *Context
	id   ModuleID
	name source.StringID

	files []FileUnit

	cache *moduleLookupCache

	entryPoint entryPointInfo

	debugClient DebuggerClient

	flags      ModuleFlags
	resilience ResilienceStrategy
}

func (m *Module) ID() ModuleID          { return m.id }
func (m *Module) Name() source.StringID { return m.name }
func (m *Module) Context() *Context     { return m.ctx }

// NameString returns the module name as text.
func (m *Module) NameString() string {
	return m.ctx.Strings.MustLookup(m.name)
}

// Files returns the module's file units in insertion order.
func (m *Module) Files() []FileUnit { return m.files }

// AddFile appends a unit. The unit must have been constructed for this
// module; a unit never changes its owner.
func (m *Module) AddFile(unit FileUnit) {
	if unit.ParentModule() != m {
		panic("modules: AddFile of a unit owned by another module")
	}
	m.files = append(m.files, unit)
	m.ClearLookupCache()
}

// RemoveFile detaches a unit. Removal is rare and invalidates the lookup
// cache.
func (m *Module) RemoveFile(unit FileUnit) {
	for i, f := range m.files {
		if f == unit {
			m.files = append(m.files[:i], m.files[i+1:]...)
			m.ClearLookupCache()
			return
		}
	}
	panic("modules: RemoveFile of a unit not in this module")
}

// flag accessors

func (m *Module) IsTestingEnabled() bool { return m.flags&flagTestingEnabled != 0 }
func (m *Module) SetTestingEnabled(enabled bool) {
	m.setFlag(flagTestingEnabled, enabled)
}

func (m *Module) IsImplicitDynamicEnabled() bool { return m.flags&flagImplicitDynamicEnabled != 0 }
func (m *Module) SetImplicitDynamicEnabled(enabled bool) {
	m.setFlag(flagImplicitDynamicEnabled, enabled)
}

func (m *Module) ArePrivateImportsEnabled() bool { return m.flags&flagPrivateImportsEnabled != 0 }
func (m *Module) SetPrivateImportsEnabled(enabled bool) {
	m.setFlag(flagPrivateImportsEnabled, enabled)
}

// FailedToLoad reports whether there was an error loading this module.
func (m *Module) FailedToLoad() bool { return m.flags&flagFailedToLoad != 0 }
func (m *Module) SetFailedToLoad(failed bool) {
	m.setFlag(flagFailedToLoad, failed)
}

func (m *Module) HasResolvedImports() bool { return m.flags&flagHasResolvedImports != 0 }
func (m *Module) SetHasResolvedImports() {
	m.setFlag(flagHasResolvedImports, true)
}

// IsSystemModule reports whether this is a system module; the standard
// library counts as one.
func (m *Module) IsSystemModule() bool { return m.flags&flagIsSystemModule != 0 }
func (m *Module) SetIsSystemModule(flag bool) {
	m.setFlag(flagIsSystemModule, flag)
}

// IsForeignModule reports whether the module was imported through the
// foreign-language bridge rather than built from lumen sources.
func (m *Module) IsForeignModule() bool { return m.flags&flagIsForeignModule != 0 }
func (m *Module) SetIsForeignModule(flag bool) {
	m.setFlag(flagIsForeignModule, flag)
}

func (m *Module) setFlag(flag ModuleFlags, on bool) {
	if on {
		m.flags |= flag
	} else {
		m.flags &^= flag
	}
}

func (m *Module) ResilienceStrategy() ResilienceStrategy { return m.resilience }
func (m *Module) SetResilienceStrategy(strategy ResilienceStrategy) {
	m.resilience = strategy
}

func (m *Module) IsResilient() bool { return m.resilience != ResilienceDefault }

// IsStdlibModule reports whether this is the standard library module.
func (m *Module) IsStdlibModule() bool { return m.NameString() == stdlibModuleName }

// IsBuiltinModule reports whether this is the compiler's builtin module.
func (m *Module) IsBuiltinModule() bool { return m.NameString() == builtinModuleName }

// ModuleFilename returns the path of the file this module was loaded from,
// or "" when the module was built from sources.
func (m *Module) ModuleFilename() string {
	for _, unit := range m.files {
		if lu, ok := unit.(*LoadedUnit); ok {
			return lu.Filename()
		}
	}
	return ""
}

// LookupValue finds top-level value declarations with the given name across
// this module's own files. It never recurses through imports; callers that
// need transitive resolution combine it with ForAllVisibleModules.
func (m *Module) LookupValue(path AccessPath, name source.StringID, kind LookupKind) []ast.DeclID {
	if !path.Matches(name) {
		return nil
	}
	results := m.lookupCache().topLevel[name]
	if len(results) == 0 && m.debugClient != nil {
		results = m.debugClient.LookupAdditions(m, name, kind)
	}
	return results
}

// LookupVisibleDecls streams every value declaration of this module's own
// files. Local only.
func (m *Module) LookupVisibleDecls(path AccessPath, consumer VisibleDeclConsumer, kind LookupKind) {
	for _, unit := range m.files {
		unit.LookupVisibleDecls(path, consumer, kind)
	}
}

// LookupClassMembers streams members of every class in this module's own
// files. Local only.
func (m *Module) LookupClassMembers(path AccessPath, consumer VisibleDeclConsumer) {
	for _, unit := range m.files {
		unit.LookupClassMembers(path, consumer)
	}
}

// LookupClassMember finds class members with the given name across this
// module's own files. Local only.
func (m *Module) LookupClassMember(path AccessPath, name source.StringID) []ast.DeclID {
	return m.lookupCache().classMembers[name]
}

// LookupBridgeMethods finds bridge-exposed functions by selector across
// this module's own files. Local only.
func (m *Module) LookupBridgeMethods(selector source.StringID) []ast.DeclID {
	return m.lookupCache().bridgeMethods[selector]
}

// LookupLocalType finds a local type declaration by mangled name across
// this module's own files. Local only.
func (m *Module) LookupLocalType(mangledName string) ast.DeclID {
	for _, unit := range m.files {
		if decl := unit.LookupLocalType(mangledName); decl.IsValid() {
			return decl
		}
	}
	return ast.NoDeclID
}

// LookupOpaqueResultType finds an opaque return type by the mangled name of
// its defining declaration. Local only.
func (m *Module) LookupOpaqueResultType(mangledName string) ast.DeclID {
	for _, unit := range m.files {
		if decl := unit.LookupOpaqueResultType(mangledName); decl.IsValid() {
			return decl
		}
	}
	return ast.NoDeclID
}

// LookupMember finds module members by name, honoring file-private
// scoping. An empty discriminator returns only non-private matches; a
// present one returns only matches from the file it identifies.
func (m *Module) LookupMember(name source.StringID, privateDiscriminator source.StringID) []ast.DeclID {
	if privateDiscriminator == source.NoStringID {
		return m.lookupCache().topLevel[name]
	}
	var results []ast.DeclID
	for _, unit := range m.files {
		sf, ok := unit.(*SourceFile)
		if !ok {
			continue
		}
		results = append(results, sf.LookupPrivateValue(name, privateDiscriminator)...)
	}
	return results
}

// TopLevelDecls returns all top-level declarations of this module's own
// files. The order is not guaranteed to be meaningful.
func (m *Module) TopLevelDecls() []ast.DeclID {
	var out []ast.DeclID
	for _, unit := range m.files {
		out = append(out, unit.TopLevelDecls()...)
	}
	return out
}

// LocalTypeDecls returns all local type declarations of this module's own
// files. The order is not guaranteed to be meaningful.
func (m *Module) LocalTypeDecls() []ast.DeclID {
	var out []ast.DeclID
	for _, unit := range m.files {
		out = append(out, unit.LocalTypeDecls()...)
	}
	return out
}

// PrecedenceGroupDecls returns all precedence groups of this module's own
// files. The order is not guaranteed to be meaningful.
func (m *Module) PrecedenceGroupDecls() []ast.DeclID {
	var out []ast.DeclID
	for _, unit := range m.files {
		out = append(out, unit.PrecedenceGroupDecls()...)
	}
	return out
}

// DisplayDecls returns everything a client of this module should see.
func (m *Module) DisplayDecls() []ast.DeclID {
	var out []ast.DeclID
	for _, unit := range m.files {
		out = append(out, unit.DisplayDecls()...)
	}
	return out
}

// ImportedModules unions each file's imports matching the filter, deduped
// by the path-equality rule.
func (m *Module) ImportedModules(filter ImportFilter) []ImportedModule {
	var out []ImportedModule
	for _, unit := range m.files {
		out = append(out, unit.ImportedModules(filter)...)
	}
	return RemoveDuplicateImports(out)
}

// ImportedModulesForLookup returns the lookup-relevant subset of imports.
func (m *Module) ImportedModulesForLookup() []ImportedModule {
	var out []ImportedModule
	for _, unit := range m.files {
		out = append(out, unit.ImportedModulesForLookup()...)
	}
	return RemoveDuplicateImports(out)
}

// CollectLinkLibraries unions the link-library requirements contributed by
// each file, in unspecified order.
func (m *Module) CollectLinkLibraries(fn LinkLibraryCallback) {
	for _, unit := range m.files {
		unit.CollectLinkLibraries(fn)
	}
}

// MainSourceFile returns the first file, which must be a source file of the
// expected kind. Convenience for drivers that know what they built.
func (m *Module) MainSourceFile(expected SourceFileKind) *SourceFile {
	if len(m.files) == 0 {
		panic("modules: no files added yet")
	}
	sf, ok := m.files[0].(*SourceFile)
	if !ok || sf.FileKind != expected {
		panic("modules: main file has unexpected kind")
	}
	return sf
}

// ClearLookupCache drops the module-level cache; the next read rebuilds it
// in full.
func (m *Module) ClearLookupCache() {
	m.cache = nil
}

// moduleLookupCache aggregates the per-file indexes so same-module queries
// stay O(files) on build and O(1) afterwards. Built lazily, invalidated
// only in full.
type moduleLookupCache struct {
	topLevel      map[source.StringID][]ast.DeclID
	classMembers  map[source.StringID][]ast.DeclID
	bridgeMethods map[source.StringID][]ast.DeclID
}

func (m *Module) lookupCache() *moduleLookupCache {
	if m.cache != nil {
		return m.cache
	}
	c := &moduleLookupCache{
		topLevel:      make(map[source.StringID][]ast.DeclID),
		classMembers:  make(map[source.StringID][]ast.DeclID),
		bridgeMethods: make(map[source.StringID][]ast.DeclID),
	}
	collect := func(dst map[source.StringID][]ast.DeclID, name source.StringID, decls []ast.DeclID) {
		if len(decls) > 0 {
			dst[name] = append(dst[name], decls...)
		}
	}
	for _, unit := range m.files {
		for _, id := range unit.TopLevelDecls() {
			d := m.ctx.Decls.Get(id)
			if d == nil || d.Name == source.NoStringID {
				continue
			}
			if d.Parent.IsValid() {
				collect(c.classMembers, d.Name, []ast.DeclID{id})
			} else if d.IsValueDecl() && d.Flags&ast.DeclFlagPrivate == 0 {
				collect(c.topLevel, d.Name, []ast.DeclID{id})
			}
			if d.Flags&ast.DeclFlagBridgeExposed != 0 && d.Selector != source.NoStringID {
				collect(c.bridgeMethods, d.Selector, []ast.DeclID{id})
			}
		}
	}
	m.cache = c
	return c
}
