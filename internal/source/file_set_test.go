package source

import (
	"testing"
)

func TestFileSetAddAndResolve(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("a.lm", []byte("one\ntwo\nthree\n"))

	f := fs.Get(id)
	if f.Path != "a.lm" {
		t.Fatalf("unexpected path %q", f.Path)
	}
	if f.Flags&FileVirtual == 0 {
		t.Fatalf("expected virtual flag")
	}

	// "two" occupies bytes 4..7.
	start, end := fs.Resolve(Span{File: id, Start: 4, End: 7})
	if start.Line != 2 || start.Col != 1 {
		t.Fatalf("start = %+v, want line 2 col 1", start)
	}
	if end.Line != 2 || end.Col != 4 {
		t.Fatalf("end = %+v, want line 2 col 4", end)
	}
}

func TestFileSetLatestWins(t *testing.T) {
	fs := NewFileSet()
	first := fs.AddVirtual("a.lm", []byte("v1"))
	second := fs.AddVirtual("a.lm", []byte("v2"))
	if first == second {
		t.Fatalf("expected distinct IDs for re-added file")
	}
	latest, ok := fs.GetLatest("a.lm")
	if !ok || latest != second {
		t.Fatalf("GetLatest = %v, %v; want %v, true", latest, ok, second)
	}
}

func TestInternerRoundTrip(t *testing.T) {
	in := NewInterner()
	a := in.Intern("alpha")
	b := in.Intern("beta")
	if a == b {
		t.Fatalf("distinct strings interned to the same ID")
	}
	if in.Intern("alpha") != a {
		t.Fatalf("re-interning changed the ID")
	}
	if got := in.MustLookup(a); got != "alpha" {
		t.Fatalf("MustLookup = %q", got)
	}
	if s, ok := in.Lookup(NoStringID); !ok || s != "" {
		t.Fatalf("NoStringID should resolve to the empty string")
	}
}
