package modules

import (
	"lumen/internal/ast"
	"lumen/internal/source"
)

type nestedTypeKey struct {
	name   source.StringID
	parent ast.DeclID
}

// fileLookupCache is the memoized per-file name index. It is built in full
// on first read and only ever invalidated wholesale by ClearLookupCache;
// there is no partial invalidation.
type fileLookupCache struct {
	topLevel        map[source.StringID][]ast.DeclID
	privateTopLevel map[source.StringID][]ast.DeclID
	classMembers    map[source.StringID][]ast.DeclID
	allClassMembers []ast.DeclID
	bridgeMethods   map[source.StringID][]ast.DeclID
	localTypes      map[string]ast.DeclID
	nestedTypes     map[nestedTypeKey]ast.DeclID
	members         map[ast.DeclID]struct{}
}

// lookupCache returns the file's index, building it on first use.
func (sf *SourceFile) lookupCache() *fileLookupCache {
	if sf.cache != nil {
		return sf.cache
	}
	c := &fileLookupCache{
		topLevel:        make(map[source.StringID][]ast.DeclID),
		privateTopLevel: make(map[source.StringID][]ast.DeclID),
		classMembers:    make(map[source.StringID][]ast.DeclID),
		bridgeMethods:   make(map[source.StringID][]ast.DeclID),
		localTypes:      make(map[string]ast.DeclID),
		nestedTypes:     make(map[nestedTypeKey]ast.DeclID),
		members:         make(map[ast.DeclID]struct{}),
	}
	decls := sf.ctx.Decls
	for _, id := range sf.decls {
		d := decls.Get(id)
		if d == nil {
			continue
		}
		c.members[id] = struct{}{}
		c.addDecl(sf.ctx, id, d)
	}
	for _, id := range sf.localTypeDecls {
		d := decls.Get(id)
		if d == nil {
			continue
		}
		c.members[id] = struct{}{}
		if d.MangledName != source.NoStringID {
			c.localTypes[sf.ctx.Strings.MustLookup(d.MangledName)] = id
		}
	}
	sf.cache = c
	return c
}

func (c *fileLookupCache) addDecl(ctx *Context, id ast.DeclID, d *ast.Decl) {
	if d.Parent.IsValid() {
		// Member of a class-like type declared in this file.
		c.allClassMembers = append(c.allClassMembers, id)
		if d.Name != source.NoStringID {
			c.classMembers[d.Name] = append(c.classMembers[d.Name], id)
		}
		if parent := ctx.Decls.Get(d.Parent); parent != nil &&
			isTypeKind(d.Kind) && d.Flags&ast.DeclFlagPrivate == 0 {
			c.nestedTypes[nestedTypeKey{name: d.Name, parent: d.Parent}] = id
		}
	} else if d.IsValueDecl() && d.Name != source.NoStringID {
		if d.Flags&ast.DeclFlagPrivate != 0 {
			c.privateTopLevel[d.Name] = append(c.privateTopLevel[d.Name], id)
		} else {
			c.topLevel[d.Name] = append(c.topLevel[d.Name], id)
		}
	}
	if d.Flags&ast.DeclFlagBridgeExposed != 0 && d.Selector != source.NoStringID {
		c.bridgeMethods[d.Selector] = append(c.bridgeMethods[d.Selector], id)
	}
}

func isTypeKind(k ast.DeclKind) bool {
	switch k {
	case ast.DeclClass, ast.DeclTypeAlias, ast.DeclLocalType, ast.DeclOpaqueType:
		return true
	default:
		return false
	}
}

// unitContains reports whether decl belongs to the given unit.
func unitContains(unit FileUnit, decl ast.DeclID) bool {
	switch u := unit.(type) {
	case *SourceFile:
		c := u.lookupCache()
		_, ok := c.members[decl]
		return ok
	case *LoadedUnit:
		return u.contains(decl)
	case *BuiltinUnit:
		return u.contains(decl)
	default:
		return false
	}
}
