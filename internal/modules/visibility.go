package modules

// Transitive import visibility.
//
// A traversal seeds from a starting point's direct imports and then walks
// only re-exported (FilterPublic) edges outward. Implementation-only
// imports are visible solely when the starting point is the file that
// declared them; they never appear when a whole module, or any transitive
// step, is the vantage point. Cycles terminate through the visited set,
// which keys on the dedup identity of (module, access path).

// VisibleModuleFunc receives each visible (path, module) pair. Returning
// false stops the walk early.
type VisibleModuleFunc func(ImportedModule) bool

// ForAllVisibleModules walks every module visible from this module: the
// module itself under topLevelPath, its direct public and private imports,
// and everything reachable through re-export chains. Returns false when fn
// stopped the walk early.
func (m *Module) ForAllVisibleModules(topLevelPath AccessPath, fn VisibleModuleFunc) bool {
	seeds := m.ImportedModules(FilterPublic | FilterPrivate)
	seeds = append(seeds, ImportedModule{Path: topLevelPath, Module: m.id})
	return m.ctx.forAllVisibleModules(seeds, fn)
}

// ForAllVisibleModules walks every module visible from this file. Unlike
// the module-level walk it also sees the file's own
// implementation-only imports, but still propagates only re-exports.
func (sf *SourceFile) ForAllVisibleModules(fn VisibleModuleFunc) bool {
	seeds := sf.ImportedModulesForLookup()
	seeds = append(seeds, ImportedModule{Module: sf.module.id})
	return sf.ctx.forAllVisibleModules(seeds, fn)
}

// forAllVisibleModules runs the worklist walk. Each step enqueues only the
// target's re-exported imports, so visibility never leaks past a
// non-exported edge.
func (ctx *Context) forAllVisibleModules(seeds []ImportedModule, fn VisibleModuleFunc) bool {
	visited := make(map[importKey]struct{}, len(seeds)*2)
	stack := make([]ImportedModule, 0, len(seeds))

	push := func(im ImportedModule) {
		k := im.key()
		if _, seen := visited[k]; seen {
			return
		}
		visited[k] = struct{}{}
		stack = append(stack, im)
	}
	for _, im := range seeds {
		push(im)
	}

	for len(stack) > 0 {
		next := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(next) {
			return false
		}
		target := ctx.Module(next.Module)
		if target == nil {
			continue
		}
		for _, re := range target.ImportedModules(FilterPublic) {
			push(re)
		}
	}
	return true
}
