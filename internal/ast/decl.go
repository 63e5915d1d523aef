package ast

import (
	"lumen/internal/source"
)

// DeclKind classifies a top-level or member declaration.
type DeclKind uint8

const (
	DeclInvalid DeclKind = iota
	DeclFunc
	DeclVar
	DeclClass
	DeclTypeAlias
	DeclLocalType
	DeclOpaqueType
	DeclInfixOperator
	DeclPrefixOperator
	DeclPostfixOperator
	DeclPrecedenceGroup
)

func (k DeclKind) String() string {
	switch k {
	case DeclFunc:
		return "func"
	case DeclVar:
		return "var"
	case DeclClass:
		return "class"
	case DeclTypeAlias:
		return "typealias"
	case DeclLocalType:
		return "localtype"
	case DeclOpaqueType:
		return "opaquetype"
	case DeclInfixOperator:
		return "infix"
	case DeclPrefixOperator:
		return "prefix"
	case DeclPostfixOperator:
		return "postfix"
	case DeclPrecedenceGroup:
		return "precedencegroup"
	default:
		return "invalid"
	}
}

// IsOperator reports whether the kind is one of the three operator fixities.
func (k DeclKind) IsOperator() bool {
	switch k {
	case DeclInfixOperator, DeclPrefixOperator, DeclPostfixOperator:
		return true
	default:
		return false
	}
}

// DeclFlags encode misc attributes for quick checks.
type DeclFlags uint16

const (
	// DeclFlagPrivate scopes the declaration to its file; it is only
	// reachable through the file's private discriminator.
	DeclFlagPrivate DeclFlags = 1 << iota
	// DeclFlagTestable marks declarations visible only through imports
	// carrying the testable option.
	DeclFlagTestable
	// DeclFlagSynthesized marks declarations appended after type checking
	// for deferred re-checking.
	DeclFlagSynthesized
	// DeclFlagBridgeExposed marks functions reachable through a foreign
	// bridge selector.
	DeclFlagBridgeExposed
	// DeclFlagValue marks declarations that bind a value name (functions,
	// variables, classes, type aliases).
	DeclFlagValue
)

func (f DeclFlags) Strings() []string {
	if f == 0 {
		return nil
	}
	labels := make([]string, 0, 4)
	if f&DeclFlagPrivate != 0 {
		labels = append(labels, "private")
	}
	if f&DeclFlagTestable != 0 {
		labels = append(labels, "testable")
	}
	if f&DeclFlagSynthesized != 0 {
		labels = append(labels, "synthesized")
	}
	if f&DeclFlagBridgeExposed != 0 {
		labels = append(labels, "bridge")
	}
	if f&DeclFlagValue != 0 {
		labels = append(labels, "value")
	}
	return labels
}

// AccessLevel orders declaration visibility from most to least restricted.
type AccessLevel uint8

const (
	AccessPrivate AccessLevel = iota
	AccessFilePrivate
	AccessInternal
	AccessPublic
)

func (a AccessLevel) String() string {
	switch a {
	case AccessPrivate:
		return "private"
	case AccessFilePrivate:
		return "fileprivate"
	case AccessInternal:
		return "internal"
	case AccessPublic:
		return "public"
	default:
		return "unknown"
	}
}

// Decl describes a single declaration. Kind-specific fields are zero for
// kinds that do not use them.
type Decl struct {
	Kind   DeclKind
	Name   source.StringID
	Span   source.Span
	Flags  DeclFlags
	Access AccessLevel

	// MangledName keys local-type and opaque-result-type lookups.
	MangledName source.StringID
	// Selector names the foreign bridge entry point for bridge-exposed
	// functions, independent of the declaration name.
	Selector source.StringID
	// Parent is the enclosing class for members and nested types.
	Parent DeclID
}

// IsValueDecl reports whether the declaration binds a value-level name.
func (d *Decl) IsValueDecl() bool {
	return d.Flags&DeclFlagValue != 0
}
