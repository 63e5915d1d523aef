package modules

import (
	"path/filepath"
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"lumen/internal/ast"
	"lumen/internal/source"
)

func samplePayload() *UnitPayload {
	return &UnitPayload{
		Name:     "Net",
		Filename: "net.lmod",
		System:   true,
		Decls: []DeclPayload{
			{Kind: uint8(ast.DeclClass), Name: "Socket", Value: true},
			{Kind: uint8(ast.DeclFunc), Name: "close", Parent: 1, Bridge: true, Selector: "closeSocket"},
			{Kind: uint8(ast.DeclFunc), Name: "connect", Value: true},
			{Kind: uint8(ast.DeclFunc), Name: "poll", Value: true, Private: true, OriginFile: "poll.lm"},
			{Kind: uint8(ast.DeclInfixOperator), Name: "<->"},
			{Kind: uint8(ast.DeclPrecedenceGroup), Name: "Channel"},
			{Kind: uint8(ast.DeclLocalType), Name: "buf", Mangled: "4Net3buf"},
		},
		Libraries:         []LibraryPayload{{Name: "resolv"}, {Name: "Network", Framework: true}},
		GenericSignatures: []string{"<T>", "<T, U>"},
	}
}

func TestUnitPayloadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "net.lmod")
	if err := WriteUnitPayload(path, samplePayload()); err != nil {
		t.Fatalf("WriteUnitPayload: %v", err)
	}
	got, err := ReadUnitPayload(path)
	if err != nil {
		t.Fatalf("ReadUnitPayload: %v", err)
	}
	if got.Name != "Net" || !got.System || len(got.Decls) != 7 {
		t.Fatalf("round trip lost data: %+v", got)
	}
	if got.Decls[1].Parent != 1 || got.Decls[1].Selector != "closeSocket" {
		t.Fatalf("member decl mangled in transit: %+v", got.Decls[1])
	}
}

func TestDecodeRejectsUnknownSchema(t *testing.T) {
	p := samplePayload()
	data, err := EncodeUnitPayload(p)
	if err != nil {
		t.Fatalf("EncodeUnitPayload: %v", err)
	}
	if _, err := DecodeUnitPayload(data); err != nil {
		t.Fatalf("decode of current schema: %v", err)
	}

	// Marshal directly so the bumped schema survives.
	p.Schema = unitPayloadSchemaVersion + 1
	raw, err := msgpack.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if bad, err := DecodeUnitPayload(raw); err == nil {
		t.Fatalf("unknown schema accepted: %+v", bad)
	}
}

func TestDecodeRejectsDanglingParent(t *testing.T) {
	cases := []struct {
		name   string
		parent uint32
	}{
		{"self", 1},
		{"forward", 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := &UnitPayload{
				Filename: "bad.lmod",
				Decls: []DeclPayload{
					{Kind: uint8(ast.DeclFunc), Name: "orphan", Value: true, Parent: tc.parent},
				},
			}
			data, err := EncodeUnitPayload(p)
			if err != nil {
				t.Fatalf("EncodeUnitPayload: %v", err)
			}
			if bad, err := DecodeUnitPayload(data); err == nil {
				t.Fatalf("dangling parent accepted: %+v", bad)
			}
		})
	}
}

func TestSerializedUnitLookupSurface(t *testing.T) {
	env := newTestEnv(t)
	net := env.module("Net")
	lu := NewSerializedUnit(env.ctx, net, samplePayload())

	if !lu.IsSystemUnit() || !net.IsSystemModule() {
		t.Error("system bit not applied")
	}
	if lu.ExportedModuleName() != "Net" {
		t.Errorf("ExportedModuleName = %q", lu.ExportedModuleName())
	}

	connect := env.str("connect")
	if got := lu.LookupValue(nil, connect, LookupQualified); len(got) != 1 {
		t.Fatalf("LookupValue(connect) = %v", got)
	}
	if got := lu.LookupValue(nil, env.str("poll"), LookupQualified); len(got) != 0 {
		t.Fatalf("private loaded decl leaked: %v", got)
	}
	if got := lu.LookupClassMember(nil, env.str("close")); len(got) != 1 {
		t.Fatalf("LookupClassMember(close) = %v", got)
	}
	if got := lu.LookupBridgeMethods(env.str("closeSocket")); len(got) != 1 {
		t.Fatalf("LookupBridgeMethods = %v", got)
	}
	if got := lu.LookupLocalType("4Net3buf"); !got.IsValid() {
		t.Fatal("loaded local type not indexed")
	}
	if got := lu.LookupOperator(env.str("<->"), ast.DeclInfixOperator); !got.IsValid() {
		t.Fatal("loaded operator not indexed")
	}
	if got := lu.LookupOperator(env.str("<->"), ast.DeclPrefixOperator); got.IsValid() {
		t.Fatal("operator found under the wrong fixity")
	}
	if got := lu.LookupLoadedPrecedenceGroup(env.str("Channel")); !got.IsValid() {
		t.Fatal("loaded precedence group not indexed")
	}

	sigs, ok := lu.AllGenericSignatures()
	if !ok || len(sigs) != 2 {
		t.Fatalf("AllGenericSignatures = %v %v", sigs, ok)
	}

	// Private decl discriminators come from the recorded origin file.
	poll := lu.TopLevelDecls()[3]
	if got := lu.DiscriminatorForPrivateValue(poll); got != env.str("poll.lm") {
		t.Errorf("DiscriminatorForPrivateValue = %v", got)
	}
	mustPanic(t, "unknown private decl", func() {
		lu.DiscriminatorForPrivateValue(lu.TopLevelDecls()[0])
	})
}

func TestSerializedUnitServesModuleLookups(t *testing.T) {
	env := newTestEnv(t)
	net := env.module("Net")
	NewSerializedUnit(env.ctx, net, samplePayload())

	if got := net.LookupValue(nil, env.str("connect"), LookupUnqualified); len(got) != 1 {
		t.Fatalf("module lookup through serialized unit: %v", got)
	}
	if got := net.ModuleFilename(); got != "net.lmod" {
		t.Errorf("ModuleFilename = %q", got)
	}

	// Operators resolve through the visibility walk like source files.
	app := env.module("App")
	env.file(app, "app.lm").AddImports([]ImportedModuleDesc{env.importEdge(net, 0)})
	if got := app.LookupInfixOperator(env.str("<->"), source.Span{}); !got.IsValid() {
		t.Fatal("loaded operator not visible through import")
	}
}

func TestDisplayDeclsWithShadowOrigins(t *testing.T) {
	env := newTestEnv(t)
	net := env.module("Net")
	lu := NewSerializedUnit(env.ctx, net, samplePayload())

	base := len(lu.DisplayDecls())
	shadow := env.funcDecl("shadow", 0)
	lu.AddDisplayDecls([]ast.DeclID{shadow})
	if got := len(lu.DisplayDecls()); got != base+1 {
		t.Fatalf("DisplayDecls len = %d, want %d", got, base+1)
	}
	// TopLevelDecls is unaffected by display-only additions.
	if got := len(lu.TopLevelDecls()); got != base {
		t.Fatalf("TopLevelDecls len = %d, want %d", got, base)
	}
}
