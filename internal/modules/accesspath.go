package modules

import (
	"sort"

	"lumen/internal/source"
)

// PathElement is one identifier of an import access path, with the span it
// was written at. Spans never participate in comparison.
type PathElement struct {
	Name source.StringID
	Loc  source.Span
}

// AccessPath restricts an import to a single top-level name. An empty path
// is unrestricted; a one-element path makes only that name visible through
// the import. Paths never hold more than one element.
type AccessPath []PathElement

// SinglePath builds a one-element access path.
func SinglePath(name source.StringID, loc source.Span) AccessPath {
	return AccessPath{{Name: name, Loc: loc}}
}

// Matches reports whether a top-level name is visible through this path.
func (p AccessPath) Matches(name source.StringID) bool {
	if len(p) > 1 {
		panic("modules: access path can only refer to top-level decls")
	}
	return len(p) == 0 || p[0].Name == name
}

// Front returns the restricting name, or NoStringID for an empty path.
func (p AccessPath) Front() source.StringID {
	if len(p) == 0 {
		return source.NoStringID
	}
	return p[0].Name
}

// SameAccessPath reports whether two paths contain the same chain of
// identifiers. Source locations are ignored.
func SameAccessPath(lhs, rhs AccessPath) bool {
	if len(lhs) != len(rhs) {
		return false
	}
	for i := range lhs {
		if lhs[i].Name != rhs[i].Name {
			return false
		}
	}
	return true
}

// ImportedModule is the atomic unit of "module M, optionally restricted to a
// single top-level name". Two records are the same import iff their modules
// are identical and their paths are path-equal.
type ImportedModule struct {
	Path   AccessPath
	Module ModuleID
}

// Same applies the deduplication equality rule.
func (im ImportedModule) Same(other ImportedModule) bool {
	return im.Module == other.Module && SameAccessPath(im.Path, other.Path)
}

// key collapses an ImportedModule to its dedup identity.
type importKey struct {
	module ModuleID
	front  source.StringID
	length int
}

func (im ImportedModule) key() importKey {
	return importKey{module: im.Module, front: im.Path.Front(), length: len(im.Path)}
}

// OrderImports arbitrarily but totally orders ImportedModule records, for
// deterministic set membership. The order carries no semantic meaning.
func OrderImports(lhs, rhs ImportedModule) bool {
	if lhs.Module != rhs.Module {
		return lhs.Module < rhs.Module
	}
	if lhs.Path.Front() != rhs.Path.Front() {
		return lhs.Path.Front() < rhs.Path.Front()
	}
	return len(lhs.Path) < len(rhs.Path)
}

// RemoveDuplicateImports uniques the records, ignoring the source locations
// of the access paths. The input order is not preserved; the result is in
// OrderImports order so repeated calls agree.
func RemoveDuplicateImports(imports []ImportedModule) []ImportedModule {
	if len(imports) <= 1 {
		return imports
	}
	seen := make(map[importKey]struct{}, len(imports))
	out := imports[:0]
	for _, im := range imports {
		k := im.key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, im)
	}
	sort.Slice(out, func(i, j int) bool { return OrderImports(out[i], out[j]) })
	return out
}
