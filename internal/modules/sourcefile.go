package modules

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"lumen/internal/ast"
	"lumen/internal/diag"
	"lumen/internal/source"
)

// SourceFileKind describes what kind of source file a unit backs, which can
// affect entry-point and top-level-code behavior.
type SourceFileKind uint8

const (
	// FileLibrary is a normal library source file.
	FileLibrary SourceFileKind = iota
	// FileMain is a source file that can have top-level code.
	FileMain
	// FileREPL is a virtual file holding interactive input.
	FileREPL
	// FileInterface is a textual interface representing another module.
	FileInterface
)

func (k SourceFileKind) String() string {
	switch k {
	case FileLibrary:
		return "library"
	case FileMain:
		return "main"
	case FileREPL:
		return "repl"
	case FileInterface:
		return "interface"
	default:
		return "unknown"
	}
}

// ASTStage marks how far a source file has progressed through the front
// end. Stages only move forward.
type ASTStage uint8

const (
	// StageParsing means parsing is underway.
	StageParsing ASTStage = iota
	// StageParsed means parsing has completed.
	StageParsed
	// StageNameBound means name binding has completed.
	StageNameBound
	// StageTypeChecked means type checking has completed.
	StageTypeChecked
)

func (s ASTStage) String() string {
	switch s {
	case StageParsing:
		return "parsing"
	case StageParsed:
		return "parsed"
	case StageNameBound:
		return "namebound"
	case StageTypeChecked:
		return "typechecked"
	default:
		return "unknown"
	}
}

// SourceFile is the concrete, mutable unit backing one parsed source file.
// The parser fills Decls, name binding fills the import list and operator
// tables, and later phases query it through the FileUnit surface.
type SourceFile struct {
	baseUnit

	// FileKind affects entry-point behavior; see IsScriptMode.
	FileKind SourceFileKind

	filename string
	fileID   source.FileID

	decls   []ast.DeclID
	imports []ImportedModuleDesc

	hasImplementationOnlyImports bool

	infixOperators   map[source.StringID]OperatorEntry
	prefixOperators  map[source.StringID]OperatorEntry
	postfixOperators map[source.StringID]OperatorEntry
	precedenceGroups map[source.StringID]OperatorEntry

	privateDiscriminator source.StringID

	stage ASTStage

	mainClass        ast.DeclID
	mainClassDiagLoc source.Span

	// Synthesized declarations appended after type checking for deferred
	// re-checking, with a watermark of how many have been re-checked.
	synthesizedDecls       []ast.DeclID
	lastCheckedSynthesized int

	localTypeDecls    []ast.DeclID
	opaqueReturnTypes []ast.DeclID
	validatedOpaque   map[string]ast.DeclID
	unvalidatedOpaque map[ast.DeclID]struct{}

	cache              *fileLookupCache
	cachedVisibleDecls []ast.DeclID

	interfaceHash       []byte
	interfaceHashActive bool
}

// NewSourceFile creates a source file and adds it to the module.
func NewSourceFile(ctx *Context, m *Module, kind SourceFileKind, filename string, fileID source.FileID) *SourceFile {
	sf := &SourceFile{
		baseUnit:          newBaseUnit(ctx, UnitSource, m),
		FileKind:          kind,
		filename:          filename,
		fileID:            fileID,
		validatedOpaque:   make(map[string]ast.DeclID),
		unvalidatedOpaque: make(map[ast.DeclID]struct{}),
	}
	sf.id = ctx.registerUnit(sf)
	m.AddFile(sf)
	return sf
}

func (sf *SourceFile) Filename() string      { return sf.filename }
func (sf *SourceFile) FileID() source.FileID { return sf.fileID }

// IsScriptMode reports whether this file admits top-level code.
func (sf *SourceFile) IsScriptMode() bool {
	return sf.FileKind == FileMain || sf.FileKind == FileREPL
}

// Stage returns the current front-end stage of the file.
func (sf *SourceFile) Stage() ASTStage { return sf.stage }

// AdvanceStage moves the file forward to the given stage. Moving backward
// is a caller bug and panics.
func (sf *SourceFile) AdvanceStage(to ASTStage) {
	if to < sf.stage {
		panic(fmt.Sprintf("modules: AST stage may not regress (%s -> %s)", sf.stage, to))
	}
	sf.stage = to
}

// Decls returns the file's top-level declarations in declaration order.
func (sf *SourceFile) Decls() []ast.DeclID { return sf.decls }

// AddDecl appends a top-level declaration. After type checking only
// synthesized declarations may still be appended; those are also tracked
// for deferred re-checking.
func (sf *SourceFile) AddDecl(decl ast.DeclID) {
	d := sf.ctx.Decls.Get(decl)
	if d == nil {
		panic("modules: AddDecl of invalid declaration")
	}
	if sf.stage >= StageTypeChecked {
		if d.Flags&ast.DeclFlagSynthesized == 0 {
			panic("modules: cannot append non-synthesized decls after type checking")
		}
		sf.synthesizedDecls = append(sf.synthesizedDecls, decl)
	}
	sf.decls = append(sf.decls, decl)
	sf.ClearLookupCache()
}

// SynthesizedDecls returns the synthesized declarations still awaiting a
// re-check, advancing the watermark.
func (sf *SourceFile) SynthesizedDecls() []ast.DeclID {
	pending := sf.synthesizedDecls[sf.lastCheckedSynthesized:]
	sf.lastCheckedSynthesized = len(sf.synthesizedDecls)
	return pending
}

// AddImports appends resolved import edges. Filled in by name binding.
func (sf *SourceFile) AddImports(descs []ImportedModuleDesc) {
	for _, desc := range descs {
		if desc.Options.Contains(ImportExported) && desc.Options.Contains(ImportImplementationOnly) {
			panic("modules: import cannot be both exported and implementation-only")
		}
		if desc.Options.Contains(ImportImplementationOnly) {
			sf.hasImplementationOnlyImports = true
		}
		sf.imports = append(sf.imports, desc)
	}
}

// Imports returns the file's import edges in declaration order.
func (sf *SourceFile) Imports() []ImportedModuleDesc { return sf.imports }

// HasImplementationOnlyImports reports the fast-path bit used to skip
// implementation-only checks on files without such imports.
func (sf *SourceFile) HasImplementationOnlyImports() bool {
	return sf.hasImplementationOnlyImports
}

// IsImportedImplementationOnly reports whether every edge from this file to
// the given module is implementation-only.
func (sf *SourceFile) IsImportedImplementationOnly(m *Module) bool {
	if !sf.hasImplementationOnlyImports {
		return false
	}
	found := false
	for _, desc := range sf.imports {
		if desc.Module.Module != m.ID() {
			continue
		}
		if !desc.Options.Contains(ImportImplementationOnly) {
			return false
		}
		found = true
	}
	return found
}

// ImportQueryKind selects which special imports a query considers.
type ImportQueryKind uint8

const (
	// TestableAndPrivate considers both testable and private imports.
	TestableAndPrivate ImportQueryKind = iota
	// TestableOnly considers only testable imports.
	TestableOnly
	// PrivateOnly considers only private imports.
	PrivateOnly
)

// HasTestableOrPrivateImport reports whether this file imports the module
// owning decl with enough force to see it at the given access level.
// Testable imports expose testable-marked internal declarations; private
// imports expose everything when the owning module was built with private
// imports enabled.
func (sf *SourceFile) HasTestableOrPrivateImport(level ast.AccessLevel, decl ast.DeclID, query ImportQueryKind) bool {
	d := sf.ctx.Decls.Get(decl)
	if d == nil {
		return false
	}
	owner := sf.declOwnerModule(decl)
	if owner == nil {
		return false
	}
	var wanted ImportOptions
	switch level {
	case ast.AccessInternal:
		// Testable imports expose internal decls marked testable.
		if query == PrivateOnly {
			return false
		}
		if !owner.IsTestingEnabled() {
			return false
		}
		wanted = ImportTestable
	case ast.AccessPrivate, ast.AccessFilePrivate:
		if query == TestableOnly {
			return false
		}
		if !owner.ArePrivateImportsEnabled() {
			return false
		}
		wanted = ImportPrivate
	default:
		return false
	}
	for _, desc := range sf.imports {
		if desc.Module.Module == owner.ID() && desc.Options.Contains(wanted) {
			return true
		}
	}
	return false
}

// declOwnerModule finds the module whose units contain decl.
func (sf *SourceFile) declOwnerModule(decl ast.DeclID) *Module {
	for _, m := range sf.ctx.Modules() {
		for _, unit := range m.Files() {
			if unitContains(unit, decl) {
				return m
			}
		}
	}
	return nil
}

// ClearLookupCache drops the per-file caches; the next read rebuilds them in
// full. There is no partial invalidation.
func (sf *SourceFile) ClearLookupCache() {
	sf.cache = nil
	sf.cachedVisibleDecls = nil
	sf.module.ClearLookupCache()
}

// CacheVisibleDecls stores a precomputed visible-decl list for reuse by
// completion-style queries.
func (sf *SourceFile) CacheVisibleDecls(globals []ast.DeclID) {
	sf.cachedVisibleDecls = globals
}

// CachedVisibleDecls returns the list stored by CacheVisibleDecls.
func (sf *SourceFile) CachedVisibleDecls() []ast.DeclID {
	return sf.cachedVisibleDecls
}

// LookupValue finds non-private top-level value declarations by name.
func (sf *SourceFile) LookupValue(path AccessPath, name source.StringID, _ LookupKind) []ast.DeclID {
	if !path.Matches(name) {
		return nil
	}
	return sf.lookupCache().topLevel[name]
}

// LookupPrivateValue finds file-private declarations by name, scoped by the
// supplied discriminator. Only declarations of this file match.
func (sf *SourceFile) LookupPrivateValue(name source.StringID, discriminator source.StringID) []ast.DeclID {
	if discriminator == source.NoStringID || discriminator != sf.PrivateDiscriminator() {
		return nil
	}
	return sf.lookupCache().privateTopLevel[name]
}

// LookupVisibleDecls streams every non-private top-level value declaration.
func (sf *SourceFile) LookupVisibleDecls(path AccessPath, consumer VisibleDeclConsumer, _ LookupKind) {
	for _, decl := range sf.decls {
		d := sf.ctx.Decls.Get(decl)
		if d == nil || !d.IsValueDecl() || d.Flags&ast.DeclFlagPrivate != 0 {
			continue
		}
		if !path.Matches(d.Name) {
			continue
		}
		consumer.Consume(decl)
	}
}

// LookupClassMembers streams members of every class declared in this file.
func (sf *SourceFile) LookupClassMembers(path AccessPath, consumer VisibleDeclConsumer) {
	for _, decl := range sf.lookupCache().allClassMembers {
		consumer.Consume(decl)
	}
	_ = path // member lookups ignore top-level access restrictions
}

// LookupClassMember finds members of this file's classes by name.
func (sf *SourceFile) LookupClassMember(_ AccessPath, name source.StringID) []ast.DeclID {
	return sf.lookupCache().classMembers[name]
}

// LookupBridgeMethods finds bridge-exposed functions by selector.
func (sf *SourceFile) LookupBridgeMethods(selector source.StringID) []ast.DeclID {
	return sf.lookupCache().bridgeMethods[selector]
}

// LookupLocalType finds a local type declaration by mangled name.
func (sf *SourceFile) LookupLocalType(mangledName string) ast.DeclID {
	return sf.lookupCache().localTypes[mangledName]
}

// LookupNestedType finds a non-private type declared inside parent.
func (sf *SourceFile) LookupNestedType(name source.StringID, parent ast.DeclID) ast.DeclID {
	return sf.lookupCache().nestedTypes[nestedTypeKey{name: name, parent: parent}]
}

// AddLocalTypeDecl records a local type declaration.
func (sf *SourceFile) AddLocalTypeDecl(decl ast.DeclID) {
	sf.localTypeDecls = append(sf.localTypeDecls, decl)
	sf.ClearLookupCache()
}

// LocalTypeDecls returns the file's local type declarations.
func (sf *SourceFile) LocalTypeDecls() []ast.DeclID { return sf.localTypeDecls }

// AddUnvalidatedDeclWithOpaqueResultType defers an opaque-return-type
// declaration until validation names it.
func (sf *SourceFile) AddUnvalidatedDeclWithOpaqueResultType(decl ast.DeclID) {
	sf.unvalidatedOpaque[decl] = struct{}{}
}

// MarkDeclWithOpaqueResultTypeAsValidated promotes a deferred declaration
// into the mangled-name index.
func (sf *SourceFile) MarkDeclWithOpaqueResultTypeAsValidated(decl ast.DeclID) {
	d := sf.ctx.Decls.Get(decl)
	if d == nil {
		return
	}
	delete(sf.unvalidatedOpaque, decl)
	if d.MangledName != source.NoStringID {
		mangled := sf.ctx.Strings.MustLookup(d.MangledName)
		sf.validatedOpaque[mangled] = decl
		sf.opaqueReturnTypes = append(sf.opaqueReturnTypes, decl)
	}
}

// LookupOpaqueResultType finds a validated opaque return type by mangled
// name. Declarations still awaiting validation are not found.
func (sf *SourceFile) LookupOpaqueResultType(mangledName string) ast.DeclID {
	return sf.validatedOpaque[mangledName]
}

// OpaqueReturnTypeDecls returns the validated opaque return types.
func (sf *SourceFile) OpaqueReturnTypeDecls() []ast.DeclID { return sf.opaqueReturnTypes }

// TopLevelDecls returns the file's declarations in declaration order.
func (sf *SourceFile) TopLevelDecls() []ast.DeclID { return sf.decls }

// DisplayDecls matches TopLevelDecls for source files.
func (sf *SourceFile) DisplayDecls() []ast.DeclID { return sf.decls }

// PrecedenceGroupDecls returns the file's precedence group declarations.
func (sf *SourceFile) PrecedenceGroupDecls() []ast.DeclID {
	var out []ast.DeclID
	for _, decl := range sf.decls {
		if d := sf.ctx.Decls.Get(decl); d != nil && d.Kind == ast.DeclPrecedenceGroup {
			out = append(out, decl)
		}
	}
	return out
}

// ImportedModules lists edges matching the filter, in declaration order.
func (sf *SourceFile) ImportedModules(filter ImportFilter) []ImportedModule {
	var out []ImportedModule
	for _, desc := range sf.imports {
		if filter.Contains(desc.Options.filterKind()) {
			out = append(out, desc.Module)
		}
	}
	return out
}

// ImportedModulesForLookup lists every edge that contributes to lookup from
// this file. Implementation-only edges are included here: they are visible
// to their own importer, and the traversal layer keeps them from
// propagating further.
func (sf *SourceFile) ImportedModulesForLookup() []ImportedModule {
	return sf.ImportedModules(FilterPublic | FilterPrivate | FilterImplementationOnly)
}

// CollectLinkLibraries reports libraries required by this file's imports.
// Implementation-only imports stay an implementation detail and contribute
// nothing to importers of this module.
func (sf *SourceFile) CollectLinkLibraries(fn LinkLibraryCallback) {
	for _, desc := range sf.imports {
		if desc.Options.Contains(ImportImplementationOnly) {
			continue
		}
		imported := sf.ctx.Module(desc.Module.Module)
		if imported == nil {
			continue
		}
		for _, unit := range imported.Files() {
			unit.CollectLinkLibraries(fn)
		}
	}
}

// PrivateDiscriminator returns the identifier scoping this file's private
// declarations, computing it on first use. It is stable for the file's
// lifetime and unique per file within a module.
func (sf *SourceFile) PrivateDiscriminator() source.StringID {
	if sf.privateDiscriminator != source.NoStringID {
		return sf.privateDiscriminator
	}
	var seed string
	if sf.filename != "" {
		seed = sf.filename
	} else {
		seed = fmt.Sprintf("unit%d", sf.id)
	}
	sum := sha256.Sum256([]byte(seed))
	// Leading underscore keeps the result a bare-identifier-safe string
	// even though hex may start with a digit.
	name := "_" + hex.EncodeToString(sum[:8])
	sf.privateDiscriminator = sf.ctx.Strings.Intern(name)
	return sf.privateDiscriminator
}

// DiscriminatorForPrivateValue returns the file's private discriminator.
// The declaration must belong to this file.
func (sf *SourceFile) DiscriminatorForPrivateValue(decl ast.DeclID) source.StringID {
	if !unitContains(sf, decl) {
		panic("modules: discriminator requested for a decl from another file")
	}
	return sf.PrivateDiscriminator()
}

// RegisterMainClass designates decl as the module's main class, reporting a
// conflict through the module's entry-point latch. Returns true if there
// was a problem.
func (sf *SourceFile) RegisterMainClass(decl ast.DeclID, diagLoc source.Span) bool {
	if decl == sf.mainClass {
		return false
	}
	if sf.mainClass.IsValid() {
		diag.ReportError(sf.ctx.Reporter, diag.ModDuplicateMainClassInFile, diagLoc,
			"file already has a main class").
			WithNote(sf.mainClassDiagLoc, "previous main class here").
			Emit()
		return true
	}
	if !sf.module.RegisterEntryPointFile(sf, diagLoc, EntryPointMainClass) {
		return true
	}
	sf.mainClass = decl
	sf.mainClassDiagLoc = diagLoc
	return false
}

// MainClass returns the class designated as the entry point, if any.
func (sf *SourceFile) MainClass() ast.DeclID { return sf.mainClass }

// MainClassDiagLoc returns the location the main class was registered at.
func (sf *SourceFile) MainClassDiagLoc() source.Span { return sf.mainClassDiagLoc }

// HasEntryPoint reports whether this file provides the program entry point:
// it is in script mode or carries a main class.
func (sf *SourceFile) HasEntryPoint() bool {
	return sf.IsScriptMode() || sf.mainClass.IsValid()
}

// EnableInterfaceHash starts collecting the interface hash. Enabling twice
// is a caller bug.
func (sf *SourceFile) EnableInterfaceHash() {
	if sf.interfaceHashActive {
		panic("modules: interface hash already enabled")
	}
	sf.interfaceHashActive = true
	sf.interfaceHash = nil
}

// HasInterfaceHash reports whether interface-hash collection is active.
func (sf *SourceFile) HasInterfaceHash() bool { return sf.interfaceHashActive }

// RecordInterfaceToken feeds one interface-contributing token into the
// hash. Tokens are separated by a NUL byte so concatenations differ.
func (sf *SourceFile) RecordInterfaceToken(token string) {
	if token == "" {
		panic("modules: empty interface token")
	}
	sf.interfaceHash = append(sf.interfaceHash, token...)
	sf.interfaceHash = append(sf.interfaceHash, 0)
}

// InterfaceHash returns the hex digest of the recorded tokens.
func (sf *SourceFile) InterfaceHash() string {
	sum := sha256.Sum256(sf.interfaceHash)
	return hex.EncodeToString(sum[:])
}
