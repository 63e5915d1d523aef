package modules

// ModuleID identifies a module in the context arena.
type ModuleID uint32

const (
	// NoModuleID marks the absence of a module reference.
	NoModuleID ModuleID = 0
)

// IsValid reports whether the module ID refers to an allocated module.
func (id ModuleID) IsValid() bool { return id != NoModuleID }

// UnitID identifies a file unit in the context arena.
type UnitID uint32

const (
	// NoUnitID marks the absence of a unit reference.
	NoUnitID UnitID = 0
)

// IsValid reports whether the unit ID refers to an allocated unit.
func (id UnitID) IsValid() bool { return id != NoUnitID }
