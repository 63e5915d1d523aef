package modules

import (
	"testing"

	"lumen/internal/ast"
	"lumen/internal/diag"
	"lumen/internal/source"
)

func classDecl(env *testEnv, name string) ast.DeclID {
	return env.ctx.Decls.New(&ast.Decl{
		Kind:   ast.DeclClass,
		Name:   env.str(name),
		Flags:  ast.DeclFlagValue,
		Access: ast.AccessPublic,
	})
}

func TestEntryPointFirstRegistrationWins(t *testing.T) {
	env := newTestEnv(t)
	app := env.module("App")
	first := env.file(app, "first.lm")
	second := env.file(app, "second.lm")
	third := env.file(app, "third.lm")

	if problem := first.RegisterMainClass(classDecl(env, "Alpha"), source.Span{Start: 1, End: 2}); problem {
		t.Fatal("first registration must succeed")
	}
	if problem := second.RegisterMainClass(classDecl(env, "Beta"), source.Span{Start: 3, End: 4}); !problem {
		t.Fatal("second file's main class must be rejected")
	}
	if problem := third.RegisterMainClass(classDecl(env, "Gamma"), source.Span{Start: 5, End: 6}); !problem {
		t.Fatal("third file's main class must be rejected")
	}

	if app.EntryPointFile() != first {
		t.Error("latched entry point changed after a conflict")
	}
	if !first.MainClass().IsValid() {
		t.Error("winning file lost its main class")
	}
	if second.MainClass().IsValid() || third.MainClass().IsValid() {
		t.Error("losing files must not record a main class")
	}

	// Three registrations, one conflict shape: exactly one diagnostic.
	count := 0
	for _, c := range env.codes() {
		if c == diag.ModMultipleMainClasses {
			count++
		}
	}
	if count != 1 {
		t.Errorf("ModMultipleMainClasses emitted %d times, want 1", count)
	}
}

func TestEntryPointMainClassWithScript(t *testing.T) {
	env := newTestEnv(t)
	app := env.module("App")

	script := NewSourceFile(env.ctx, app, FileMain, "main.lm", 0)
	if !app.RegisterEntryPointFile(script, source.Span{}, EntryPointScript) {
		t.Fatal("script registration must succeed")
	}

	library := env.file(app, "lib.lm")
	if problem := library.RegisterMainClass(classDecl(env, "Alpha"), source.Span{Start: 7, End: 8}); !problem {
		t.Fatal("main class must conflict with top-level code")
	}
	library.RegisterMainClass(classDecl(env, "Beta"), source.Span{Start: 9, End: 10})

	count := 0
	for _, c := range env.codes() {
		if c == diag.ModMainClassWithScript {
			count++
		}
	}
	if count != 1 {
		t.Errorf("ModMainClassWithScript emitted %d times, want 1", count)
	}

	if !app.HasEntryPoint() {
		t.Error("script file provides the entry point")
	}
	if !script.HasEntryPoint() {
		t.Error("script-mode file must report an entry point without a main class")
	}
}

func TestDuplicateMainClassInOneFile(t *testing.T) {
	env := newTestEnv(t)
	app := env.module("App")
	sf := env.file(app, "app.lm")

	alpha := classDecl(env, "Alpha")
	if problem := sf.RegisterMainClass(alpha, source.Span{Start: 1, End: 2}); problem {
		t.Fatal("first main class must register")
	}
	// Re-registering the same class is a no-op, not a conflict.
	if problem := sf.RegisterMainClass(alpha, source.Span{Start: 1, End: 2}); problem {
		t.Fatal("same class must be accepted idempotently")
	}
	if problem := sf.RegisterMainClass(classDecl(env, "Beta"), source.Span{Start: 3, End: 4}); !problem {
		t.Fatal("second distinct main class in one file must fail")
	}

	found := false
	for _, c := range env.codes() {
		if c == diag.ModDuplicateMainClassInFile {
			found = true
		}
	}
	if !found {
		t.Error("expected ModDuplicateMainClassInFile")
	}
}
