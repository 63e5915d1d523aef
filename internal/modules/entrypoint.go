package modules

import (
	"lumen/internal/diag"
	"lumen/internal/source"
)

// EntryPointKind distinguishes how a file claims to start the program.
type EntryPointKind uint8

const (
	// EntryPointScript marks a script-mode main file: top-level code runs.
	EntryPointScript EntryPointKind = iota
	// EntryPointMainClass marks a designated main class.
	EntryPointMainClass
)

// entryPointInfo latches the first entry-point file registered for the
// module and remembers, per conflict shape, whether it already complained.
type entryPointInfo struct {
	file FileUnit
	kind EntryPointKind

	diagnosedMultipleMainClasses bool
	diagnosedMainClassWithScript bool
}

// RegisterEntryPointFile records a file that provides the module's entry
// point. The first registration wins; each later conflicting registration
// is diagnosed at most once per conflict shape. Returns true when the file
// became (or already was) the module's entry point.
func (m *Module) RegisterEntryPointFile(file FileUnit, diagLoc source.Span, kind EntryPointKind) bool {
	if file == nil {
		panic("modules: RegisterEntryPointFile with nil file")
	}
	info := &m.entryPoint
	if info.file == nil {
		info.file = file
		info.kind = kind
		return true
	}
	if info.file == file {
		return info.kind == kind
	}

	// A conflict. Pick the diagnostic by the shape of the clash: two main
	// classes in different files, or a main class alongside script-mode
	// top-level code.
	sameKinds := info.kind == kind
	if sameKinds && kind == EntryPointScript {
		// Multiple script files never register; drivers enforce a single
		// main file before this point.
		return false
	}

	if sameKinds {
		if !info.diagnosedMultipleMainClasses {
			info.diagnosedMultipleMainClasses = true
			diag.ReportError(m.ctx.Reporter, diag.ModMultipleMainClasses, diagLoc,
				"main class declared in multiple files").
				WithNote(entryPointLoc(info.file), "previous main class is here").
				Emit()
		}
	} else {
		if !info.diagnosedMainClassWithScript {
			info.diagnosedMainClassWithScript = true
			diag.ReportError(m.ctx.Reporter, diag.ModMainClassWithScript, diagLoc,
				"main class cannot be declared in a module with top-level code").
				WithNote(entryPointLoc(info.file), "top-level code is here").
				Emit()
		}
	}
	return false
}

// EntryPointFile returns the latched entry-point file, or nil.
func (m *Module) EntryPointFile() FileUnit { return m.entryPoint.file }

// EntryPointKindOf returns the latched kind; meaningful only when
// EntryPointFile is non-nil.
func (m *Module) EntryPointKindOf() EntryPointKind { return m.entryPoint.kind }

// HasEntryPoint reports whether some file of this module starts the
// program.
func (m *Module) HasEntryPoint() bool {
	return m.entryPoint.file != nil && m.entryPoint.file.HasEntryPoint()
}

func entryPointLoc(file FileUnit) source.Span {
	if sf, ok := file.(*SourceFile); ok {
		if sf.mainClass.IsValid() {
			return sf.mainClassDiagLoc
		}
	}
	return source.Span{}
}
