package modules

import (
	"lumen/internal/ast"
	"lumen/internal/source"
)

// DebuggerClient lets an attached debugger inject declarations that exist
// only in its expression context. Consulted as a fallback when a module's
// own lookup comes up empty.
type DebuggerClient interface {
	// LookupAdditions returns debugger-synthesized declarations matching
	// name, or nil.
	LookupAdditions(m *Module, name source.StringID, kind LookupKind) []ast.DeclID
}

// SetDebugClient attaches a debugger client. A module accepts exactly one
// client for its lifetime.
func (m *Module) SetDebugClient(client DebuggerClient) {
	if client == nil {
		panic("modules: SetDebugClient with nil client")
	}
	if m.debugClient != nil {
		panic("modules: debug client already set")
	}
	m.debugClient = client
}

// DebugClient returns the attached client, or nil.
func (m *Module) DebugClient() DebuggerClient { return m.debugClient }
