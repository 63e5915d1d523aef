package modules

import (
	"fmt"

	"lumen/internal/ast"
	"lumen/internal/source"
)

// UnitKind discriminates the file-unit variants.
type UnitKind uint8

const (
	UnitInvalid UnitKind = iota
	// UnitSource is a parsed lumen source file.
	UnitSource
	// UnitBuiltin is the compiler's intrinsic unit.
	UnitBuiltin
	// UnitSerialized holds declarations decoded from a compiled module file.
	UnitSerialized
	// UnitBridge holds declarations imported through the foreign-language
	// bridge.
	UnitBridge
	// UnitDebugInfo holds bridge declarations recovered from debug info.
	UnitDebugInfo
)

func (k UnitKind) String() string {
	switch k {
	case UnitSource:
		return "source"
	case UnitBuiltin:
		return "builtin"
	case UnitSerialized:
		return "serialized"
	case UnitBridge:
		return "bridge"
	case UnitDebugInfo:
		return "debuginfo"
	default:
		return "invalid"
	}
}

// LookupKind distinguishes qualified from unqualified name resolution. Both
// kinds are served from the same per-file index; the distinction is carried
// for the calling phase's shadowing policy, not interpreted here.
type LookupKind uint8

const (
	LookupUnqualified LookupKind = iota
	LookupQualified
)

// VisibleDeclConsumer receives every declaration a streaming lookup finds.
type VisibleDeclConsumer interface {
	Consume(decl ast.DeclID)
}

// VisibleDeclFunc adapts a function to VisibleDeclConsumer.
type VisibleDeclFunc func(decl ast.DeclID)

func (f VisibleDeclFunc) Consume(decl ast.DeclID) { f(decl) }

// LibraryKind classifies a link-time dependency.
type LibraryKind uint8

const (
	LibraryPlain LibraryKind = iota
	LibraryFramework
)

// LinkLibrary names a library an importing binary must link against.
type LinkLibrary struct {
	Name      string
	Kind      LibraryKind
	ForceLoad bool
}

// LinkLibraryCallback receives link-library requirements during collection.
type LinkLibraryCallback func(LinkLibrary)

// FileUnit is the minimal lookup-capable container: a module is made up of
// several file units which are all part of the same logical module.
//
// All Lookup* methods are local only; they never recurse into imports.
// Variants answer queries they have no concept of with an empty result. The
// only hard failure is requesting a private-value discriminator from a
// variant that structurally cannot hold private declarations.
type FileUnit interface {
	Kind() UnitKind
	ID() UnitID
	ParentModule() *Module

	// Filename returns the storage backing this unit, usually a filesystem
	// path, or "" when there is none.
	Filename() string

	// ExportedModuleName returns the name to use when referencing entities
	// in this unit. Usually the parent module's name.
	ExportedModuleName() string

	// LookupValue finds top-level value declarations with the given name,
	// restricted by the access path.
	LookupValue(path AccessPath, name source.StringID, kind LookupKind) []ast.DeclID

	// LookupLocalType finds a local type declaration by mangled name.
	LookupLocalType(mangledName string) ast.DeclID

	// LookupOpaqueResultType finds an opaque return type by the mangled
	// name of the declaration that defines it.
	LookupOpaqueResultType(mangledName string) ast.DeclID

	// LookupNestedType finds a type declared directly inside parent.
	// Private and file-private types are never returned.
	LookupNestedType(name source.StringID, parent ast.DeclID) ast.DeclID

	// LookupVisibleDecls streams every locally-visible value declaration.
	LookupVisibleDecls(path AccessPath, consumer VisibleDeclConsumer, kind LookupKind)

	// LookupClassMembers streams members of all class declarations in this
	// unit.
	LookupClassMembers(path AccessPath, consumer VisibleDeclConsumer)

	// LookupClassMember finds class members with the given name.
	LookupClassMember(path AccessPath, name source.StringID) []ast.DeclID

	// LookupBridgeMethods finds bridge-exposed functions by selector.
	LookupBridgeMethods(selector source.StringID) []ast.DeclID

	// TopLevelDecls returns the unit's top-level declarations. Order is
	// meaningful only for source files.
	TopLevelDecls() []ast.DeclID

	// LocalTypeDecls returns local type declarations, in no guaranteed
	// order.
	LocalTypeDecls() []ast.DeclID

	// OpaqueReturnTypeDecls returns validated opaque return types, in no
	// guaranteed order.
	OpaqueReturnTypeDecls() []ast.DeclID

	// PrecedenceGroupDecls returns precedence group declarations, in no
	// guaranteed order.
	PrecedenceGroupDecls() []ast.DeclID

	// DisplayDecls returns the declarations a client of the module should
	// see. Defaults to TopLevelDecls; loaded units may add shadow-origin
	// declarations.
	DisplayDecls() []ast.DeclID

	// ImportedModules lists this unit's imports matching the filter.
	ImportedModules(filter ImportFilter) []ImportedModule

	// ImportedModulesForLookup lists the lookup-relevant subset of imports.
	ImportedModulesForLookup() []ImportedModule

	// CollectLinkLibraries reports the libraries needed to link this unit.
	CollectLinkLibraries(fn LinkLibraryCallback)

	// DiscriminatorForPrivateValue returns the identifier that scopes the
	// given private declaration to this unit. It panics when called on a
	// variant incapable of holding private declarations.
	DiscriminatorForPrivateValue(decl ast.DeclID) source.StringID

	// HasEntryPoint reports whether this unit provides the program entry
	// point. Only source files may answer true.
	HasEntryPoint() bool

	// MainClass returns the designated main class, if any.
	MainClass() ast.DeclID
}

// baseUnit carries the state common to every variant and provides the
// default ("not applicable") answers of the polymorphic contract.
type baseUnit struct {
	ctx    *Context
	id     UnitID
	kind   UnitKind
	module *Module
}

func newBaseUnit(ctx *Context, kind UnitKind, m *Module) baseUnit {
	if m == nil {
		panic("modules: file unit requires an owning module")
	}
	return baseUnit{ctx: ctx, kind: kind, module: m}
}

func (u *baseUnit) Kind() UnitKind        { return u.kind }
func (u *baseUnit) ID() UnitID            { return u.id }
func (u *baseUnit) ParentModule() *Module { return u.module }
func (u *baseUnit) Filename() string      { return "" }

func (u *baseUnit) ExportedModuleName() string {
	return u.ctx.Strings.MustLookup(u.module.Name())
}

func (u *baseUnit) LookupLocalType(string) ast.DeclID        { return ast.NoDeclID }
func (u *baseUnit) LookupOpaqueResultType(string) ast.DeclID { return ast.NoDeclID }

func (u *baseUnit) LookupNestedType(source.StringID, ast.DeclID) ast.DeclID {
	return ast.NoDeclID
}

func (u *baseUnit) LookupVisibleDecls(AccessPath, VisibleDeclConsumer, LookupKind) {}
func (u *baseUnit) LookupClassMembers(AccessPath, VisibleDeclConsumer)            {}

func (u *baseUnit) LookupClassMember(AccessPath, source.StringID) []ast.DeclID {
	return nil
}

func (u *baseUnit) LookupBridgeMethods(source.StringID) []ast.DeclID { return nil }

func (u *baseUnit) TopLevelDecls() []ast.DeclID         { return nil }
func (u *baseUnit) LocalTypeDecls() []ast.DeclID        { return nil }
func (u *baseUnit) OpaqueReturnTypeDecls() []ast.DeclID { return nil }
func (u *baseUnit) PrecedenceGroupDecls() []ast.DeclID  { return nil }

func (u *baseUnit) ImportedModules(ImportFilter) []ImportedModule { return nil }
func (u *baseUnit) ImportedModulesForLookup() []ImportedModule    { return nil }
func (u *baseUnit) DisplayDecls() []ast.DeclID                    { return nil }

func (u *baseUnit) CollectLinkLibraries(LinkLibraryCallback) {}

func (u *baseUnit) DiscriminatorForPrivateValue(ast.DeclID) source.StringID {
	panic(fmt.Sprintf("modules: no private values in a %s unit", u.kind))
}

func (u *baseUnit) HasEntryPoint() bool   { return false }
func (u *baseUnit) MainClass() ast.DeclID { return ast.NoDeclID }
