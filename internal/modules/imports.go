package modules

// ImportOptions are the per-edge attributes of an import declaration.
type ImportOptions uint8

const (
	// ImportExported re-exports the imported module to importers of the
	// importing file's module.
	ImportExported ImportOptions = 1 << iota
	// ImportTestable grants access to testable-only declarations of the
	// imported module.
	ImportTestable
	// ImportPrivate grants access to private declarations of the imported
	// module.
	ImportPrivate
	// ImportImplementationOnly hides the edge from importers of this
	// module. Mutually exclusive with ImportExported.
	ImportImplementationOnly
)

// Contains reports whether all bits of opt are set.
func (o ImportOptions) Contains(opt ImportOptions) bool {
	return o&opt == opt
}

// ImportFilter selects which import edges a query includes.
type ImportFilter uint8

const (
	// FilterPublic includes edges declared as exported.
	FilterPublic ImportFilter = 1 << iota
	// FilterPrivate includes regular edges with no special annotation.
	FilterPrivate
	// FilterImplementationOnly includes implementation-only edges.
	FilterImplementationOnly
)

// Contains reports whether all bits of f are set.
func (f ImportFilter) Contains(other ImportFilter) bool {
	return f&other == other
}

// filterKind buckets an edge into exactly one filter category.
func (o ImportOptions) filterKind() ImportFilter {
	switch {
	case o.Contains(ImportImplementationOnly):
		return FilterImplementationOnly
	case o.Contains(ImportExported):
		return FilterPublic
	default:
		return FilterPrivate
	}
}

// ImportedModuleDesc is one concrete import edge of a source file.
type ImportedModuleDesc struct {
	Module   ImportedModule
	Options  ImportOptions
	Filename string
}

// NewImportedModuleDesc builds an edge, rejecting the impossible flag
// combination up front.
func NewImportedModuleDesc(module ImportedModule, options ImportOptions, filename string) ImportedModuleDesc {
	if options.Contains(ImportExported) && options.Contains(ImportImplementationOnly) {
		panic("modules: import cannot be both exported and implementation-only")
	}
	return ImportedModuleDesc{Module: module, Options: options, Filename: filename}
}
