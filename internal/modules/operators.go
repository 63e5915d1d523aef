package modules

import (
	"lumen/internal/ast"
	"lumen/internal/diag"
	"lumen/internal/source"
)

// OperatorEntry is one resolved operator or precedence-group table entry.
// Cascades is advisory metadata for incremental reuse: a cascading result
// may be invalidated by edits in files processed later. It is not part of
// the resolution result itself.
type OperatorEntry struct {
	Decl     ast.DeclID
	Cascades bool
}

// SetInfixOperator records an infix operator in this file's table.
// Populated by name binding; each table holds at most one entry per name.
func (sf *SourceFile) SetInfixOperator(name source.StringID, decl ast.DeclID, cascades bool) {
	if sf.infixOperators == nil {
		sf.infixOperators = make(map[source.StringID]OperatorEntry)
	}
	sf.infixOperators[name] = OperatorEntry{Decl: decl, Cascades: cascades}
}

// SetPrefixOperator records a prefix operator in this file's table.
func (sf *SourceFile) SetPrefixOperator(name source.StringID, decl ast.DeclID, cascades bool) {
	if sf.prefixOperators == nil {
		sf.prefixOperators = make(map[source.StringID]OperatorEntry)
	}
	sf.prefixOperators[name] = OperatorEntry{Decl: decl, Cascades: cascades}
}

// SetPostfixOperator records a postfix operator in this file's table.
func (sf *SourceFile) SetPostfixOperator(name source.StringID, decl ast.DeclID, cascades bool) {
	if sf.postfixOperators == nil {
		sf.postfixOperators = make(map[source.StringID]OperatorEntry)
	}
	sf.postfixOperators[name] = OperatorEntry{Decl: decl, Cascades: cascades}
}

// SetPrecedenceGroup records a precedence group in this file's table.
func (sf *SourceFile) SetPrecedenceGroup(name source.StringID, decl ast.DeclID, cascades bool) {
	if sf.precedenceGroups == nil {
		sf.precedenceGroups = make(map[source.StringID]OperatorEntry)
	}
	sf.precedenceGroups[name] = OperatorEntry{Decl: decl, Cascades: cascades}
}

// LookupInfixOperator resolves an infix operator in this file only.
// An absent name is unresolved, not an error; the caller diagnoses.
func (sf *SourceFile) LookupInfixOperator(name source.StringID) (OperatorEntry, bool) {
	e, ok := sf.infixOperators[name]
	return e, ok
}

// LookupPrefixOperator resolves a prefix operator in this file only.
func (sf *SourceFile) LookupPrefixOperator(name source.StringID) (OperatorEntry, bool) {
	e, ok := sf.prefixOperators[name]
	return e, ok
}

// LookupPostfixOperator resolves a postfix operator in this file only.
func (sf *SourceFile) LookupPostfixOperator(name source.StringID) (OperatorEntry, bool) {
	e, ok := sf.postfixOperators[name]
	return e, ok
}

// LookupPrecedenceGroup resolves a precedence group in this file only.
func (sf *SourceFile) LookupPrecedenceGroup(name source.StringID) (OperatorEntry, bool) {
	e, ok := sf.precedenceGroups[name]
	return e, ok
}

// operatorTable selects one of the four per-unit tables.
type operatorTable uint8

const (
	tableInfix operatorTable = iota
	tablePrefix
	tablePostfix
	tablePrecedenceGroup
)

func (t operatorTable) label() string {
	switch t {
	case tableInfix:
		return "infix operator"
	case tablePrefix:
		return "prefix operator"
	case tablePostfix:
		return "postfix operator"
	default:
		return "precedence group"
	}
}

func (t operatorTable) diagCode() diag.Code {
	if t == tablePrecedenceGroup {
		return diag.ModAmbiguousPrecedence
	}
	return diag.ModAmbiguousOperator
}

func lookupUnitOperator(unit FileUnit, table operatorTable, name source.StringID) (ast.DeclID, bool) {
	switch u := unit.(type) {
	case *SourceFile:
		var e OperatorEntry
		var ok bool
		switch table {
		case tableInfix:
			e, ok = u.LookupInfixOperator(name)
		case tablePrefix:
			e, ok = u.LookupPrefixOperator(name)
		case tablePostfix:
			e, ok = u.LookupPostfixOperator(name)
		default:
			e, ok = u.LookupPrecedenceGroup(name)
		}
		return e.Decl, ok
	case *LoadedUnit:
		var decl ast.DeclID
		switch table {
		case tableInfix:
			decl = u.LookupOperator(name, ast.DeclInfixOperator)
		case tablePrefix:
			decl = u.LookupOperator(name, ast.DeclPrefixOperator)
		case tablePostfix:
			decl = u.LookupOperator(name, ast.DeclPostfixOperator)
		default:
			decl = u.LookupLoadedPrecedenceGroup(name)
		}
		return decl, decl.IsValid()
	default:
		return ast.NoDeclID, false
	}
}

// LookupInfixOperator resolves an infix operator across every module
// visible from this one. Ambiguity yields no result, never an arbitrary
// winner.
func (m *Module) LookupInfixOperator(name source.StringID, diagLoc source.Span) ast.DeclID {
	return m.lookupOperator(tableInfix, name, diagLoc)
}

// LookupPrefixOperator resolves a prefix operator across every module
// visible from this one.
func (m *Module) LookupPrefixOperator(name source.StringID, diagLoc source.Span) ast.DeclID {
	return m.lookupOperator(tablePrefix, name, diagLoc)
}

// LookupPostfixOperator resolves a postfix operator across every module
// visible from this one.
func (m *Module) LookupPostfixOperator(name source.StringID, diagLoc source.Span) ast.DeclID {
	return m.lookupOperator(tablePostfix, name, diagLoc)
}

// LookupPrecedenceGroup resolves a precedence group across every module
// visible from this one.
func (m *Module) LookupPrecedenceGroup(name source.StringID, diagLoc source.Span) ast.DeclID {
	return m.lookupOperator(tablePrecedenceGroup, name, diagLoc)
}

func (m *Module) lookupOperator(table operatorTable, name source.StringID, diagLoc source.Span) ast.DeclID {
	found := ast.NoDeclID
	ambiguous := false
	m.ForAllVisibleModules(nil, func(im ImportedModule) bool {
		visited := m.ctx.Module(im.Module)
		if visited == nil {
			return true
		}
		for _, unit := range visited.Files() {
			decl, ok := lookupUnitOperator(unit, table, name)
			if !ok {
				continue
			}
			if found.IsValid() && found != decl {
				ambiguous = true
				return false
			}
			found = decl
		}
		return true
	})
	if ambiguous {
		diag.ReportError(m.ctx.Reporter, table.diagCode(), diagLoc,
			"ambiguous "+table.label()+" "+m.ctx.Strings.MustLookup(name)).Emit()
		return ast.NoDeclID
	}
	return found
}
