package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// Name binding / import layer.
	NameInfo            Code = 3000
	NameDuplicateImport Code = 3001
	NameSelfImport      Code = 3002

	// Module layer.
	ModInfo                     Code = 4000
	ModMultipleMainClasses      Code = 4001
	ModMainClassWithScript      Code = 4002
	ModAmbiguousOperator        Code = 4003
	ModAmbiguousPrecedence      Code = 4004
	ModDuplicateMainClassInFile Code = 4005

	// Workspace / manifest layer.
	WorkInfo          Code = 5000
	WorkUnknownModule Code = 5001
	WorkBadManifest   Code = 5002
	WorkBadSerialized Code = 5003
)

func (c Code) String() string {
	switch {
	case c >= 5000:
		return fmt.Sprintf("WRK%04d", uint16(c))
	case c >= 4000:
		return fmt.Sprintf("MOD%04d", uint16(c))
	case c >= 3000:
		return fmt.Sprintf("NAM%04d", uint16(c))
	default:
		return fmt.Sprintf("UNK%04d", uint16(c))
	}
}
