package modules

import (
	"lumen/internal/ast"
	"lumen/internal/source"
)

// BuiltinUnit is the trivial, always-resolvable unit for compiler-intrinsic
// names. It cannot hold private declarations.
type BuiltinUnit struct {
	baseUnit

	intrinsics []ast.DeclID
	cache      map[source.StringID][]ast.DeclID
}

// NewBuiltinUnit creates the builtin unit and adds it to the module.
func NewBuiltinUnit(ctx *Context, m *Module) *BuiltinUnit {
	bu := &BuiltinUnit{baseUnit: newBaseUnit(ctx, UnitBuiltin, m)}
	bu.id = ctx.registerUnit(bu)
	m.AddFile(bu)
	return bu
}

// RegisterIntrinsic adds a compiler-provided declaration.
func (bu *BuiltinUnit) RegisterIntrinsic(decl ast.DeclID) {
	bu.intrinsics = append(bu.intrinsics, decl)
	bu.cache = nil
	bu.module.ClearLookupCache()
}

func (bu *BuiltinUnit) lookupCache() map[source.StringID][]ast.DeclID {
	if bu.cache != nil {
		return bu.cache
	}
	c := make(map[source.StringID][]ast.DeclID, len(bu.intrinsics))
	for _, id := range bu.intrinsics {
		if d := bu.ctx.Decls.Get(id); d != nil && d.IsValueDecl() && d.Name != source.NoStringID {
			c[d.Name] = append(c[d.Name], id)
		}
	}
	bu.cache = c
	return c
}

// LookupValue finds intrinsic declarations by name.
func (bu *BuiltinUnit) LookupValue(path AccessPath, name source.StringID, _ LookupKind) []ast.DeclID {
	if !path.Matches(name) {
		return nil
	}
	return bu.lookupCache()[name]
}

// LookupVisibleDecls streams every intrinsic declaration.
func (bu *BuiltinUnit) LookupVisibleDecls(path AccessPath, consumer VisibleDeclConsumer, _ LookupKind) {
	for _, id := range bu.intrinsics {
		d := bu.ctx.Decls.Get(id)
		if d == nil || !path.Matches(d.Name) {
			continue
		}
		consumer.Consume(id)
	}
}

// TopLevelDecls returns the registered intrinsics.
func (bu *BuiltinUnit) TopLevelDecls() []ast.DeclID { return bu.intrinsics }

// DisplayDecls matches TopLevelDecls for the builtin unit.
func (bu *BuiltinUnit) DisplayDecls() []ast.DeclID { return bu.intrinsics }

func (bu *BuiltinUnit) contains(decl ast.DeclID) bool {
	for _, id := range bu.intrinsics {
		if id == decl {
			return true
		}
	}
	return false
}
