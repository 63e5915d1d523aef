package modules

import (
	"fmt"
	"os"

	"github.com/vmihailenco/msgpack/v5"

	"lumen/internal/ast"
)

// Current schema version - increment when UnitPayload format changes.
const unitPayloadSchemaVersion uint16 = 1

// UnitPayload is the on-disk shape of a compiled module unit (.lmod).
// The module loader decodes it and hands the result to NewSerializedUnit;
// this core never defines the writer side of a compilation pipeline, but
// Encode exists so tools and tests can produce fixtures.
type UnitPayload struct {
	Schema uint16

	Name     string // exported module name; empty means the parent's name
	Filename string
	System   bool

	Decls             []DeclPayload
	Libraries         []LibraryPayload
	GenericSignatures []string
}

// DeclPayload is one serialized declaration.
type DeclPayload struct {
	Kind     uint8
	Name     string
	Mangled  string
	Selector string
	// Parent is a 1-based index into Decls, or 0 for a top-level decl.
	Parent   uint32
	Private  bool
	Testable bool
	Bridge   bool
	Value    bool
	// OriginFile names the source file a private decl came from.
	OriginFile string
}

// LibraryPayload is one serialized link-library requirement.
type LibraryPayload struct {
	Name      string
	Framework bool
	ForceLoad bool
}

// EncodeUnitPayload serializes a payload, stamping the schema version.
func EncodeUnitPayload(p *UnitPayload) ([]byte, error) {
	p.Schema = unitPayloadSchemaVersion
	return msgpack.Marshal(p)
}

// DecodeUnitPayload deserializes a payload, rejecting unknown schemas.
func DecodeUnitPayload(data []byte) (*UnitPayload, error) {
	var p UnitPayload
	if err := msgpack.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode unit payload: %w", err)
	}
	if p.Schema != unitPayloadSchemaVersion {
		return nil, fmt.Errorf("unit payload schema %d, want %d", p.Schema, unitPayloadSchemaVersion)
	}
	for i := range p.Decls {
		if parent := p.Decls[i].Parent; parent != 0 && int(parent) > i {
			return nil, fmt.Errorf("unit payload decl %d: parent %d does not precede it", i, parent)
		}
	}
	return &p, nil
}

// ReadUnitPayload loads and decodes a payload from disk.
func ReadUnitPayload(path string) (*UnitPayload, error) {
	// #nosec G304 -- path is provided by the caller
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return DecodeUnitPayload(data)
}

// WriteUnitPayload encodes and writes a payload to disk.
func WriteUnitPayload(path string, p *UnitPayload) error {
	data, err := EncodeUnitPayload(p)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// NewSerializedUnit materializes a payload as a serialized unit of m.
func NewSerializedUnit(ctx *Context, m *Module, payload *UnitPayload) *LoadedUnit {
	return applyPayload(newLoadedUnit(ctx, m, UnitSerialized, payload.Filename), payload)
}

// NewBridgeUnit materializes a payload delivered by the foreign bridge.
func NewBridgeUnit(ctx *Context, m *Module, payload *UnitPayload) *LoadedUnit {
	return applyPayload(newLoadedUnit(ctx, m, UnitBridge, payload.Filename), payload)
}

// NewDebugInfoUnit materializes a payload recovered from debug info.
func NewDebugInfoUnit(ctx *Context, m *Module, payload *UnitPayload) *LoadedUnit {
	return applyPayload(newLoadedUnit(ctx, m, UnitDebugInfo, payload.Filename), payload)
}

func applyPayload(lu *LoadedUnit, payload *UnitPayload) *LoadedUnit {
	ctx := lu.ctx
	lu.systemUnit = payload.System
	if payload.System {
		lu.module.SetIsSystemModule(true)
	}
	if payload.Name != "" {
		lu.exportedName = ctx.Strings.Intern(payload.Name)
	}

	ids := make([]ast.DeclID, len(payload.Decls))
	for i, dp := range payload.Decls {
		decl := ast.Decl{
			Kind: ast.DeclKind(dp.Kind),
			Name: ctx.Strings.Intern(dp.Name),
		}
		if dp.Mangled != "" {
			decl.MangledName = ctx.Strings.Intern(dp.Mangled)
		}
		if dp.Selector != "" {
			decl.Selector = ctx.Strings.Intern(dp.Selector)
		}
		if dp.Private {
			decl.Flags |= ast.DeclFlagPrivate
			decl.Access = ast.AccessPrivate
		} else {
			decl.Access = ast.AccessPublic
		}
		if dp.Testable {
			decl.Flags |= ast.DeclFlagTestable
		}
		if dp.Bridge {
			decl.Flags |= ast.DeclFlagBridgeExposed
		}
		if dp.Value {
			decl.Flags |= ast.DeclFlagValue
		}
		if dp.Parent != 0 {
			if int(dp.Parent) > i {
				panic("modules: decl payload parent must precede its members")
			}
			decl.Parent = ids[dp.Parent-1]
		}
		ids[i] = ctx.Decls.New(&decl)
		lu.addDecl(ids[i])
		if dp.Private && dp.OriginFile != "" {
			lu.AddFilenameForPrivateDecl(ids[i], ctx.Strings.Intern(dp.OriginFile))
		}
	}

	for _, lib := range payload.Libraries {
		kind := LibraryPlain
		if lib.Framework {
			kind = LibraryFramework
		}
		lu.libraries = append(lu.libraries, LinkLibrary{
			Name:      lib.Name,
			Kind:      kind,
			ForceLoad: lib.ForceLoad,
		})
	}
	lu.genericSignatures = payload.GenericSignatures
	lu.module.ClearLookupCache()
	return lu
}
