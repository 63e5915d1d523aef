package modules

import (
	"testing"

	"lumen/internal/ast"
	"lumen/internal/diag"
	"lumen/internal/source"
)

type testEnv struct {
	ctx *Context
	bag *diag.Bag
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	bag := diag.NewBag(64)
	return &testEnv{
		ctx: NewContext(nil, diag.BagReporter{Bag: bag}),
		bag: bag,
	}
}

func (e *testEnv) str(s string) source.StringID {
	return e.ctx.Strings.Intern(s)
}

func (e *testEnv) module(name string) *Module {
	return e.ctx.NewModule(e.str(name))
}

func (e *testEnv) file(m *Module, filename string) *SourceFile {
	return NewSourceFile(e.ctx, m, FileLibrary, filename, 0)
}

func (e *testEnv) funcDecl(name string, flags ast.DeclFlags) ast.DeclID {
	return e.ctx.Decls.New(&ast.Decl{
		Kind:   ast.DeclFunc,
		Name:   e.str(name),
		Flags:  flags | ast.DeclFlagValue,
		Access: ast.AccessInternal,
	})
}

func (e *testEnv) importEdge(target *Module, options ImportOptions) ImportedModuleDesc {
	return NewImportedModuleDesc(ImportedModule{Module: target.ID()}, options, "")
}

func (e *testEnv) codes() []diag.Code {
	out := make([]diag.Code, 0, e.bag.Len())
	for _, d := range e.bag.Items() {
		out = append(out, d.Code)
	}
	return out
}

func mustPanic(t *testing.T, name string, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Fatalf("%s: expected panic", name)
		}
	}()
	fn()
}

func TestRemoveDuplicateImportsIgnoresSourceLocations(t *testing.T) {
	env := newTestEnv(t)
	a := env.module("A")
	b := env.module("B")
	name := env.str("Widget")

	imports := []ImportedModule{
		{Module: a.ID(), Path: SinglePath(name, source.Span{Start: 10, End: 16})},
		{Module: a.ID(), Path: SinglePath(name, source.Span{Start: 90, End: 96})},
		{Module: a.ID()},
		{Module: a.ID()},
		{Module: b.ID()},
	}
	got := RemoveDuplicateImports(imports)
	if len(got) != 3 {
		t.Fatalf("RemoveDuplicateImports: got %d records, want 3", len(got))
	}

	// Idempotence: a second pass changes nothing.
	again := RemoveDuplicateImports(append([]ImportedModule(nil), got...))
	if len(again) != len(got) {
		t.Fatalf("second dedup changed the set: %d -> %d", len(got), len(again))
	}
	for i := range got {
		if !got[i].Same(again[i]) {
			t.Errorf("record %d changed across dedup passes", i)
		}
	}
}

func TestAccessPathMatches(t *testing.T) {
	env := newTestEnv(t)
	widget := env.str("Widget")
	gadget := env.str("Gadget")

	var empty AccessPath
	if !empty.Matches(widget) {
		t.Error("empty path must match every name")
	}
	restricted := SinglePath(widget, source.Span{})
	if !restricted.Matches(widget) {
		t.Error("one-element path must match its own name")
	}
	if restricted.Matches(gadget) {
		t.Error("one-element path must reject other names")
	}

	long := AccessPath{{Name: widget}, {Name: gadget}}
	mustPanic(t, "Matches on over-long path", func() { long.Matches(widget) })
}

func TestImportFilterBuckets(t *testing.T) {
	cases := []struct {
		name    string
		options ImportOptions
		want    ImportFilter
	}{
		{"regular", 0, FilterPrivate},
		{"exported", ImportExported, FilterPublic},
		{"testable", ImportTestable, FilterPrivate},
		{"private", ImportPrivate, FilterPrivate},
		{"implementation-only", ImportImplementationOnly, FilterImplementationOnly},
		{"testable implementation-only", ImportTestable | ImportImplementationOnly, FilterImplementationOnly},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.options.filterKind(); got != tc.want {
				t.Fatalf("filterKind(%v) = %v, want %v", tc.options, got, tc.want)
			}
		})
	}
}

func TestExportedImplementationOnlyRejected(t *testing.T) {
	env := newTestEnv(t)
	a := env.module("A")
	b := env.module("B")
	sf := env.file(a, "a.lm")

	mustPanic(t, "NewImportedModuleDesc", func() {
		NewImportedModuleDesc(ImportedModule{Module: b.ID()}, ImportExported|ImportImplementationOnly, "")
	})
	mustPanic(t, "AddImports", func() {
		sf.AddImports([]ImportedModuleDesc{{
			Module:  ImportedModule{Module: b.ID()},
			Options: ImportExported | ImportImplementationOnly,
		}})
	})
}

func TestModuleLookupIsLocalOnly(t *testing.T) {
	env := newTestEnv(t)
	app := env.module("App")
	lib := env.module("Lib")

	libFile := env.file(lib, "lib.lm")
	helper := env.funcDecl("helper", 0)
	libFile.AddDecl(helper)

	appFile := env.file(app, "app.lm")
	appFile.AddImports([]ImportedModuleDesc{env.importEdge(lib, 0)})
	local := env.funcDecl("local", 0)
	appFile.AddDecl(local)

	if got := app.LookupValue(nil, env.str("helper"), LookupUnqualified); len(got) != 0 {
		t.Fatalf("module lookup must not recurse into imports, got %v", got)
	}
	if got := app.LookupValue(nil, env.str("local"), LookupUnqualified); len(got) != 1 || got[0] != local {
		t.Fatalf("module lookup missed its own decl: %v", got)
	}
	if got := lib.LookupValue(nil, env.str("helper"), LookupUnqualified); len(got) != 1 || got[0] != helper {
		t.Fatalf("lib lookup missed helper: %v", got)
	}
}

func TestLookupValueHonorsAccessPath(t *testing.T) {
	env := newTestEnv(t)
	lib := env.module("Lib")
	sf := env.file(lib, "lib.lm")
	widget := env.funcDecl("Widget", 0)
	gadget := env.funcDecl("Gadget", 0)
	sf.AddDecl(widget)
	sf.AddDecl(gadget)

	path := SinglePath(env.str("Widget"), source.Span{})
	if got := sf.LookupValue(path, env.str("Widget"), LookupQualified); len(got) != 1 || got[0] != widget {
		t.Fatalf("restricted path must still find Widget: %v", got)
	}
	if got := sf.LookupValue(path, env.str("Gadget"), LookupQualified); len(got) != 0 {
		t.Fatalf("restricted path must hide Gadget: %v", got)
	}
}

func TestPrivateDeclsHiddenFromPlainLookup(t *testing.T) {
	env := newTestEnv(t)
	lib := env.module("Lib")
	sf := env.file(lib, "lib.lm")
	secret := env.funcDecl("secret", ast.DeclFlagPrivate)
	sf.AddDecl(secret)

	if got := sf.LookupValue(nil, env.str("secret"), LookupUnqualified); len(got) != 0 {
		t.Fatalf("private decl leaked through plain lookup: %v", got)
	}
	if got := lib.LookupMember(env.str("secret"), source.NoStringID); len(got) != 0 {
		t.Fatalf("private decl leaked through member lookup: %v", got)
	}
	disc := sf.PrivateDiscriminator()
	if got := lib.LookupMember(env.str("secret"), disc); len(got) != 1 || got[0] != secret {
		t.Fatalf("discriminated member lookup missed the decl: %v", got)
	}
}

func TestPrivateDiscriminatorStableAndDistinct(t *testing.T) {
	env := newTestEnv(t)
	lib := env.module("Lib")
	a := env.file(lib, "a.lm")
	b := env.file(lib, "b.lm")

	if a.PrivateDiscriminator() != a.PrivateDiscriminator() {
		t.Error("discriminator must be stable across calls")
	}
	if a.PrivateDiscriminator() == b.PrivateDiscriminator() {
		t.Error("distinct files must get distinct discriminators")
	}

	name := env.ctx.Strings.MustLookup(a.PrivateDiscriminator())
	if name == "" || name[0] != '_' {
		t.Errorf("discriminator %q must start with an underscore", name)
	}

	secret := env.funcDecl("secret", ast.DeclFlagPrivate)
	a.AddDecl(secret)
	if got := a.DiscriminatorForPrivateValue(secret); got != a.PrivateDiscriminator() {
		t.Error("DiscriminatorForPrivateValue must return the file discriminator")
	}
	mustPanic(t, "discriminator for foreign decl", func() {
		b.DiscriminatorForPrivateValue(secret)
	})

	// Cross-file scoping: b's lookup rejects a's discriminator.
	if got := b.LookupPrivateValue(env.str("secret"), a.PrivateDiscriminator()); len(got) != 0 {
		t.Fatalf("foreign discriminator matched: %v", got)
	}
}

func TestClassMemberAndBridgeLookup(t *testing.T) {
	env := newTestEnv(t)
	lib := env.module("Lib")
	sf := env.file(lib, "lib.lm")

	class := env.ctx.Decls.New(&ast.Decl{
		Kind:   ast.DeclClass,
		Name:   env.str("Controller"),
		Flags:  ast.DeclFlagValue,
		Access: ast.AccessPublic,
	})
	sf.AddDecl(class)

	method := env.ctx.Decls.New(&ast.Decl{
		Kind:     ast.DeclFunc,
		Name:     env.str("view"),
		Flags:    ast.DeclFlagValue | ast.DeclFlagBridgeExposed,
		Selector: env.str("viewDidLoad"),
		Parent:   class,
	})
	sf.AddDecl(method)

	if got := sf.LookupClassMember(nil, env.str("view")); len(got) != 1 || got[0] != method {
		t.Fatalf("class member lookup: %v", got)
	}
	if got := lib.LookupBridgeMethods(env.str("viewDidLoad")); len(got) != 1 || got[0] != method {
		t.Fatalf("bridge method lookup: %v", got)
	}
	if got := sf.LookupValue(nil, env.str("view"), LookupUnqualified); len(got) != 0 {
		t.Fatalf("member leaked into top-level lookup: %v", got)
	}

	var streamed []ast.DeclID
	lib.LookupClassMembers(nil, VisibleDeclFunc(func(d ast.DeclID) {
		streamed = append(streamed, d)
	}))
	if len(streamed) != 1 || streamed[0] != method {
		t.Fatalf("LookupClassMembers streamed %v", streamed)
	}
}

func TestNestedTypeLookupSkipsPrivate(t *testing.T) {
	env := newTestEnv(t)
	lib := env.module("Lib")
	sf := env.file(lib, "lib.lm")

	outer := env.ctx.Decls.New(&ast.Decl{
		Kind:  ast.DeclClass,
		Name:  env.str("Outer"),
		Flags: ast.DeclFlagValue,
	})
	sf.AddDecl(outer)

	inner := env.ctx.Decls.New(&ast.Decl{
		Kind:   ast.DeclClass,
		Name:   env.str("Inner"),
		Parent: outer,
	})
	sf.AddDecl(inner)

	hidden := env.ctx.Decls.New(&ast.Decl{
		Kind:   ast.DeclClass,
		Name:   env.str("Hidden"),
		Flags:  ast.DeclFlagPrivate,
		Parent: outer,
	})
	sf.AddDecl(hidden)

	if got := sf.LookupNestedType(env.str("Inner"), outer); got != inner {
		t.Fatalf("LookupNestedType(Inner) = %v, want %v", got, inner)
	}
	if got := sf.LookupNestedType(env.str("Hidden"), outer); got.IsValid() {
		t.Fatalf("private nested type leaked: %v", got)
	}
}

func TestLookupCacheInvalidation(t *testing.T) {
	env := newTestEnv(t)
	lib := env.module("Lib")
	sf := env.file(lib, "lib.lm")

	first := env.funcDecl("first", 0)
	sf.AddDecl(first)
	if got := sf.LookupValue(nil, env.str("first"), LookupUnqualified); len(got) != 1 {
		t.Fatalf("first lookup: %v", got)
	}

	// The cache is built now; a new decl must invalidate it in full.
	second := env.funcDecl("second", 0)
	sf.AddDecl(second)
	if got := sf.LookupValue(nil, env.str("second"), LookupUnqualified); len(got) != 1 || got[0] != second {
		t.Fatalf("lookup after invalidation: %v", got)
	}
	if got := lib.LookupValue(nil, env.str("second"), LookupUnqualified); len(got) != 1 {
		t.Fatalf("module cache not invalidated: %v", got)
	}
}

func TestIsImportedImplementationOnly(t *testing.T) {
	env := newTestEnv(t)
	app := env.module("App")
	secretDep := env.module("SecretDep")
	mixedDep := env.module("MixedDep")

	sf := env.file(app, "app.lm")
	sf.AddImports([]ImportedModuleDesc{
		env.importEdge(secretDep, ImportImplementationOnly),
		env.importEdge(mixedDep, ImportImplementationOnly),
		env.importEdge(mixedDep, 0),
	})

	if !sf.IsImportedImplementationOnly(secretDep) {
		t.Error("all edges to SecretDep are implementation-only")
	}
	if sf.IsImportedImplementationOnly(mixedDep) {
		t.Error("a regular edge to MixedDep lifts the restriction")
	}

	clean := env.file(app, "clean.lm")
	clean.AddImports([]ImportedModuleDesc{env.importEdge(secretDep, 0)})
	if clean.HasImplementationOnlyImports() {
		t.Error("fast-path bit set without implementation-only imports")
	}
	if clean.IsImportedImplementationOnly(secretDep) {
		t.Error("file without implementation-only imports must answer false")
	}
}

func TestHasTestableOrPrivateImport(t *testing.T) {
	env := newTestEnv(t)
	app := env.module("App")
	lib := env.module("Lib")
	lib.SetTestingEnabled(true)
	lib.SetPrivateImportsEnabled(true)

	libFile := env.file(lib, "lib.lm")
	internalFn := env.funcDecl("internalFn", ast.DeclFlagTestable)
	privateFn := env.funcDecl("privateFn", ast.DeclFlagPrivate)
	libFile.AddDecl(internalFn)
	libFile.AddDecl(privateFn)

	testableFile := env.file(app, "uses_testable.lm")
	testableFile.AddImports([]ImportedModuleDesc{env.importEdge(lib, ImportTestable)})

	private := env.file(app, "uses_private.lm")
	private.AddImports([]ImportedModuleDesc{env.importEdge(lib, ImportPrivate)})

	plain := env.file(app, "plain.lm")
	plain.AddImports([]ImportedModuleDesc{env.importEdge(lib, 0)})

	if !testableFile.HasTestableOrPrivateImport(ast.AccessInternal, internalFn, TestableAndPrivate) {
		t.Error("testable import must expose internal decls")
	}
	if testableFile.HasTestableOrPrivateImport(ast.AccessInternal, internalFn, PrivateOnly) {
		t.Error("PrivateOnly query must ignore testable imports")
	}
	if !private.HasTestableOrPrivateImport(ast.AccessPrivate, privateFn, TestableAndPrivate) {
		t.Error("private import must expose private decls")
	}
	if private.HasTestableOrPrivateImport(ast.AccessPrivate, privateFn, TestableOnly) {
		t.Error("TestableOnly query must ignore private imports")
	}
	if plain.HasTestableOrPrivateImport(ast.AccessInternal, internalFn, TestableAndPrivate) {
		t.Error("a plain import grants nothing")
	}

	// Flags on the owning module gate everything.
	lib.SetTestingEnabled(false)
	if testableFile.HasTestableOrPrivateImport(ast.AccessInternal, internalFn, TestableAndPrivate) {
		t.Error("owner without testing enabled must not expose internals")
	}
}

func TestImportedModulesFilters(t *testing.T) {
	env := newTestEnv(t)
	app := env.module("App")
	pub := env.module("Pub")
	priv := env.module("Priv")
	impl := env.module("Impl")

	sf := env.file(app, "app.lm")
	sf.AddImports([]ImportedModuleDesc{
		env.importEdge(pub, ImportExported),
		env.importEdge(priv, 0),
		env.importEdge(impl, ImportImplementationOnly),
	})

	wantOne := func(filter ImportFilter, want *Module) {
		t.Helper()
		got := sf.ImportedModules(filter)
		if len(got) != 1 || got[0].Module != want.ID() {
			t.Fatalf("ImportedModules(%v) = %v, want [%v]", filter, got, want.ID())
		}
	}
	wantOne(FilterPublic, pub)
	wantOne(FilterPrivate, priv)
	wantOne(FilterImplementationOnly, impl)

	if got := sf.ImportedModulesForLookup(); len(got) != 3 {
		t.Fatalf("ImportedModulesForLookup = %v, want all three edges", got)
	}
	if got := app.ImportedModules(FilterPublic | FilterPrivate); len(got) != 2 {
		t.Fatalf("module-level ImportedModules = %v, want pub and priv", got)
	}
}

func TestCollectLinkLibrariesSkipsImplementationOnly(t *testing.T) {
	env := newTestEnv(t)
	app := env.module("App")
	linked := env.module("Linked")
	hidden := env.module("Hidden")

	linkedUnit := NewSerializedUnit(env.ctx, linked, &UnitPayload{
		Schema:   unitPayloadSchemaVersion,
		Name:     "Linked",
		Filename: "linked.lmod",
		Libraries: []LibraryPayload{
			{Name: "z"},
			{Name: "CoreKit", Framework: true, ForceLoad: true},
		},
	})
	_ = linkedUnit
	NewSerializedUnit(env.ctx, hidden, &UnitPayload{
		Schema:    unitPayloadSchemaVersion,
		Name:      "Hidden",
		Filename:  "hidden.lmod",
		Libraries: []LibraryPayload{{Name: "secret"}},
	})

	sf := env.file(app, "app.lm")
	sf.AddImports([]ImportedModuleDesc{
		env.importEdge(linked, 0),
		env.importEdge(hidden, ImportImplementationOnly),
	})

	var names []string
	app.CollectLinkLibraries(func(lib LinkLibrary) {
		names = append(names, lib.Name)
	})
	if len(names) != 2 {
		t.Fatalf("collected %v, want the two Linked libraries", names)
	}
	for _, n := range names {
		if n == "secret" {
			t.Fatal("implementation-only dependency leaked a link library")
		}
	}
}

func TestStageMonotonicity(t *testing.T) {
	env := newTestEnv(t)
	lib := env.module("Lib")
	sf := env.file(lib, "lib.lm")

	sf.AdvanceStage(StageParsed)
	sf.AdvanceStage(StageParsed) // same stage is fine
	sf.AdvanceStage(StageTypeChecked)
	mustPanic(t, "stage regression", func() { sf.AdvanceStage(StageNameBound) })
}

func TestSynthesizedDeclsAfterTypeChecking(t *testing.T) {
	env := newTestEnv(t)
	lib := env.module("Lib")
	sf := env.file(lib, "lib.lm")
	sf.AdvanceStage(StageTypeChecked)

	plain := env.funcDecl("late", 0)
	mustPanic(t, "non-synthesized past type checking", func() { sf.AddDecl(plain) })

	synth := env.funcDecl("derived", ast.DeclFlagSynthesized)
	sf.AddDecl(synth)
	if got := sf.SynthesizedDecls(); len(got) != 1 || got[0] != synth {
		t.Fatalf("SynthesizedDecls = %v", got)
	}
	// Watermark advanced: nothing pending until the next append.
	if got := sf.SynthesizedDecls(); len(got) != 0 {
		t.Fatalf("watermark did not advance: %v", got)
	}
	another := env.funcDecl("derived2", ast.DeclFlagSynthesized)
	sf.AddDecl(another)
	if got := sf.SynthesizedDecls(); len(got) != 1 || got[0] != another {
		t.Fatalf("second batch = %v", got)
	}
}

func TestInterfaceHashSeparatesTokens(t *testing.T) {
	env := newTestEnv(t)
	lib := env.module("Lib")
	a := env.file(lib, "a.lm")
	b := env.file(lib, "b.lm")

	a.EnableInterfaceHash()
	b.EnableInterfaceHash()
	a.RecordInterfaceToken("ab")
	a.RecordInterfaceToken("c")
	b.RecordInterfaceToken("a")
	b.RecordInterfaceToken("bc")
	if a.InterfaceHash() == b.InterfaceHash() {
		t.Error("token boundaries must affect the hash")
	}

	mustPanic(t, "double enable", a.EnableInterfaceHash)
}

func TestDebugClientFallback(t *testing.T) {
	env := newTestEnv(t)
	lib := env.module("Lib")
	sf := env.file(lib, "lib.lm")
	real := env.funcDecl("real", 0)
	sf.AddDecl(real)

	injected := env.funcDecl("injected", 0)
	client := stubDebugClient{name: env.str("injected"), decls: []ast.DeclID{injected}}
	lib.SetDebugClient(client)

	if got := lib.LookupValue(nil, env.str("injected"), LookupUnqualified); len(got) != 1 || got[0] != injected {
		t.Fatalf("debug client fallback: %v", got)
	}
	// Real matches win; the client is not consulted.
	if got := lib.LookupValue(nil, env.str("real"), LookupUnqualified); len(got) != 1 || got[0] != real {
		t.Fatalf("real decl lookup: %v", got)
	}
	mustPanic(t, "second SetDebugClient", func() { lib.SetDebugClient(client) })
}

type stubDebugClient struct {
	name  source.StringID
	decls []ast.DeclID
}

func (c stubDebugClient) LookupAdditions(_ *Module, name source.StringID, _ LookupKind) []ast.DeclID {
	if name == c.name {
		return c.decls
	}
	return nil
}
