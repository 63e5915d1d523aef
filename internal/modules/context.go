package modules

import (
	"fmt"

	"fortio.org/safecast"

	"lumen/internal/ast"
	"lumen/internal/diag"
	"lumen/internal/source"
)

// Context owns the module and unit arenas plus the resources they share.
// Modules and units are identified by handles; identity is handle identity,
// never structural comparison.
//
// Construction and mutation are single-writer; see the package documentation
// for the read-side rules.
type Context struct {
	Strings  *source.Interner
	Decls    *ast.Decls
	Reporter diag.Reporter

	modules []*Module  // index 0 reserved for NoModuleID
	units   []FileUnit // index 0 reserved for NoUnitID
}

// NewContext creates a context. A nil interner or reporter is replaced with
// a fresh interner and a discarding reporter.
func NewContext(strings *source.Interner, reporter diag.Reporter) *Context {
	if strings == nil {
		strings = source.NewInterner()
	}
	if reporter == nil {
		reporter = diag.NopReporter{}
	}
	return &Context{
		Strings:  strings,
		Decls:    ast.NewDecls(0),
		Reporter: reporter,
		modules:  make([]*Module, 1, 8),
		units:    make([]FileUnit, 1, 16),
	}
}

// NewModule allocates an empty module with the given name.
func (c *Context) NewModule(name source.StringID) *Module {
	value, err := safecast.Conv[uint32](len(c.modules))
	if err != nil {
		panic(fmt.Errorf("module arena overflow: %w", err))
	}
	m := &Module{
		ctx:  c,
		id:   ModuleID(value),
		name: name,
	}
	c.modules = append(c.modules, m)
	return m
}

// Module returns the module for the given ID, or nil for an invalid ID.
func (c *Context) Module(id ModuleID) *Module {
	if !id.IsValid() || int(id) >= len(c.modules) {
		return nil
	}
	return c.modules[id]
}

// ModuleByName returns the first module with the given name, if any.
func (c *Context) ModuleByName(name source.StringID) *Module {
	for _, m := range c.modules[1:] {
		if m.name == name {
			return m
		}
	}
	return nil
}

// Modules returns all allocated modules without the sentinel.
func (c *Context) Modules() []*Module {
	return c.modules[1:]
}

// Unit returns the unit for the given ID, or nil for an invalid ID.
func (c *Context) Unit(id UnitID) FileUnit {
	if !id.IsValid() || int(id) >= len(c.units) {
		return nil
	}
	return c.units[id]
}

// registerUnit allocates a handle for a freshly constructed unit.
func (c *Context) registerUnit(u FileUnit) UnitID {
	value, err := safecast.Conv[uint32](len(c.units))
	if err != nil {
		panic(fmt.Errorf("unit arena overflow: %w", err))
	}
	id := UnitID(value)
	c.units = append(c.units, u)
	return id
}
