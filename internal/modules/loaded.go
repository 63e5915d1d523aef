package modules

import (
	"fmt"

	"lumen/internal/ast"
	"lumen/internal/source"
)

// LoadedUnit is a file unit whose declarations came from outside this
// compilation: a serialized module, the foreign-language bridge, or debug
// info. The loader populates its tables once; afterwards the unit is an
// opaque provider of the standard query surface.
type LoadedUnit struct {
	baseUnit

	filename     string
	systemUnit   bool
	overlay      ModuleID
	exportedName source.StringID

	decls        []ast.DeclID
	displayDecls []ast.DeclID

	topLevel      map[source.StringID][]ast.DeclID
	classMembers  map[source.StringID][]ast.DeclID
	allMembers    []ast.DeclID
	bridgeMethods map[source.StringID][]ast.DeclID
	localTypes    map[string]ast.DeclID
	operators     map[operatorKey]ast.DeclID
	precedence    map[source.StringID]ast.DeclID
	members       map[ast.DeclID]struct{}

	// Origin files of private declarations, for units that preserve
	// file-scoped privacy across serialization.
	filenameForPrivateDecls map[ast.DeclID]source.StringID

	libraries         []LinkLibrary
	genericSignatures []string
}

type operatorKey struct {
	name   source.StringID
	fixity ast.DeclKind
}

func newLoadedUnit(ctx *Context, m *Module, kind UnitKind, filename string) *LoadedUnit {
	switch kind {
	case UnitSerialized, UnitBridge, UnitDebugInfo:
	default:
		panic(fmt.Sprintf("modules: %s is not a loaded unit kind", kind))
	}
	lu := &LoadedUnit{
		baseUnit:                newBaseUnit(ctx, kind, m),
		filename:                filename,
		topLevel:                make(map[source.StringID][]ast.DeclID),
		classMembers:            make(map[source.StringID][]ast.DeclID),
		bridgeMethods:           make(map[source.StringID][]ast.DeclID),
		localTypes:              make(map[string]ast.DeclID),
		operators:               make(map[operatorKey]ast.DeclID),
		precedence:              make(map[source.StringID]ast.DeclID),
		members:                 make(map[ast.DeclID]struct{}),
		filenameForPrivateDecls: make(map[ast.DeclID]source.StringID),
	}
	lu.id = ctx.registerUnit(lu)
	m.AddFile(lu)
	return lu
}

func (lu *LoadedUnit) Filename() string { return lu.filename }

// ExportedModuleName returns the substituted export name when the payload
// carries one, otherwise the parent module's name.
func (lu *LoadedUnit) ExportedModuleName() string {
	if lu.exportedName != source.NoStringID {
		return lu.ctx.Strings.MustLookup(lu.exportedName)
	}
	return lu.baseUnit.ExportedModuleName()
}

// IsSystemUnit reports whether the unit came from a system module.
func (lu *LoadedUnit) IsSystemUnit() bool { return lu.systemUnit }

// OverlayModule returns the module overlaying this bridge unit, if any.
func (lu *LoadedUnit) OverlayModule() *Module {
	return lu.ctx.Module(lu.overlay)
}

// SetOverlayModule attaches the overlaying module for a bridge unit.
func (lu *LoadedUnit) SetOverlayModule(m *Module) {
	if m != nil {
		lu.overlay = m.ID()
	}
}

// AllGenericSignatures returns the generic signatures stored in this unit
// and whether the unit supports retrieving them at all.
func (lu *LoadedUnit) AllGenericSignatures() ([]string, bool) {
	if lu.genericSignatures == nil {
		return nil, false
	}
	return lu.genericSignatures, true
}

// addDecl indexes one loaded declaration.
func (lu *LoadedUnit) addDecl(id ast.DeclID) {
	d := lu.ctx.Decls.Get(id)
	if d == nil {
		panic("modules: loaded unit given an invalid decl")
	}
	lu.decls = append(lu.decls, id)
	lu.members[id] = struct{}{}

	switch {
	case d.Kind.IsOperator():
		lu.operators[operatorKey{name: d.Name, fixity: d.Kind}] = id
	case d.Kind == ast.DeclPrecedenceGroup:
		lu.precedence[d.Name] = id
	case d.Parent.IsValid():
		lu.allMembers = append(lu.allMembers, id)
		if d.Name != source.NoStringID {
			lu.classMembers[d.Name] = append(lu.classMembers[d.Name], id)
		}
	case d.IsValueDecl() && d.Name != source.NoStringID && d.Flags&ast.DeclFlagPrivate == 0:
		lu.topLevel[d.Name] = append(lu.topLevel[d.Name], id)
	}
	if d.Flags&ast.DeclFlagBridgeExposed != 0 && d.Selector != source.NoStringID {
		lu.bridgeMethods[d.Selector] = append(lu.bridgeMethods[d.Selector], id)
	}
	if d.Kind == ast.DeclLocalType && d.MangledName != source.NoStringID {
		lu.localTypes[lu.ctx.Strings.MustLookup(d.MangledName)] = id
	}
}

func (lu *LoadedUnit) contains(decl ast.DeclID) bool {
	_, ok := lu.members[decl]
	return ok
}

// AddFilenameForPrivateDecl records which origin file a private declaration
// was defined in. Re-recording with a different file is a loader bug.
func (lu *LoadedUnit) AddFilenameForPrivateDecl(decl ast.DeclID, file source.StringID) {
	if prev, ok := lu.filenameForPrivateDecls[decl]; ok && prev != file {
		panic("modules: private decl re-registered with a different origin file")
	}
	lu.filenameForPrivateDecls[decl] = file
}

// FilenameForPrivateDecl returns the origin file of a private declaration,
// or NoStringID when unknown.
func (lu *LoadedUnit) FilenameForPrivateDecl(decl ast.DeclID) source.StringID {
	return lu.filenameForPrivateDecls[decl]
}

// DiscriminatorForPrivateValue derives the discriminator from the recorded
// origin file. Unknown declarations are a caller bug.
func (lu *LoadedUnit) DiscriminatorForPrivateValue(decl ast.DeclID) source.StringID {
	file, ok := lu.filenameForPrivateDecls[decl]
	if !ok {
		panic("modules: no origin file recorded for private decl")
	}
	return file
}

// LookupValue finds non-private top-level value declarations by name.
func (lu *LoadedUnit) LookupValue(path AccessPath, name source.StringID, _ LookupKind) []ast.DeclID {
	if !path.Matches(name) {
		return nil
	}
	return lu.topLevel[name]
}

// LookupVisibleDecls streams every loaded top-level value declaration.
func (lu *LoadedUnit) LookupVisibleDecls(path AccessPath, consumer VisibleDeclConsumer, _ LookupKind) {
	for _, id := range lu.decls {
		d := lu.ctx.Decls.Get(id)
		if d == nil || !d.IsValueDecl() || d.Parent.IsValid() {
			continue
		}
		if d.Flags&ast.DeclFlagPrivate != 0 || !path.Matches(d.Name) {
			continue
		}
		consumer.Consume(id)
	}
}

// LookupClassMembers streams members of every loaded class.
func (lu *LoadedUnit) LookupClassMembers(_ AccessPath, consumer VisibleDeclConsumer) {
	for _, id := range lu.allMembers {
		consumer.Consume(id)
	}
}

// LookupClassMember finds loaded class members by name.
func (lu *LoadedUnit) LookupClassMember(_ AccessPath, name source.StringID) []ast.DeclID {
	return lu.classMembers[name]
}

// LookupBridgeMethods finds bridge-exposed functions by selector.
func (lu *LoadedUnit) LookupBridgeMethods(selector source.StringID) []ast.DeclID {
	return lu.bridgeMethods[selector]
}

// LookupLocalType finds a loaded local type by mangled name.
func (lu *LoadedUnit) LookupLocalType(mangledName string) ast.DeclID {
	return lu.localTypes[mangledName]
}

// LookupOperator finds a loaded operator declaration by name and fixity.
func (lu *LoadedUnit) LookupOperator(name source.StringID, fixity ast.DeclKind) ast.DeclID {
	if !fixity.IsOperator() {
		return ast.NoDeclID
	}
	return lu.operators[operatorKey{name: name, fixity: fixity}]
}

// LookupLoadedPrecedenceGroup finds a loaded precedence group by name.
func (lu *LoadedUnit) LookupLoadedPrecedenceGroup(name source.StringID) ast.DeclID {
	return lu.precedence[name]
}

// TopLevelDecls returns every loaded declaration.
func (lu *LoadedUnit) TopLevelDecls() []ast.DeclID { return lu.decls }

// DisplayDecls returns the loaded declarations plus any shadow-origin
// declarations registered by the loader.
func (lu *LoadedUnit) DisplayDecls() []ast.DeclID {
	if lu.displayDecls == nil {
		return lu.decls
	}
	return lu.displayDecls
}

// AddDisplayDecls registers shadow-origin declarations shown to clients in
// addition to the loaded ones.
func (lu *LoadedUnit) AddDisplayDecls(decls []ast.DeclID) {
	if lu.displayDecls == nil {
		lu.displayDecls = append(lu.displayDecls, lu.decls...)
	}
	lu.displayDecls = append(lu.displayDecls, decls...)
}

// LocalTypeDecls returns the loaded local type declarations.
func (lu *LoadedUnit) LocalTypeDecls() []ast.DeclID {
	var out []ast.DeclID
	for _, id := range lu.localTypes {
		out = append(out, id)
	}
	return out
}

// PrecedenceGroupDecls returns the loaded precedence groups.
func (lu *LoadedUnit) PrecedenceGroupDecls() []ast.DeclID {
	var out []ast.DeclID
	for _, id := range lu.precedence {
		out = append(out, id)
	}
	return out
}

// CollectLinkLibraries reports the libraries recorded in the unit.
func (lu *LoadedUnit) CollectLinkLibraries(fn LinkLibraryCallback) {
	for _, lib := range lu.libraries {
		fn(lib)
	}
}
