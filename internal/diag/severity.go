package diag

// Severity orders diagnostics from informational to fatal. The numeric
// order matters: Bag.HasErrors and the CLI compare with >=.
type Severity uint8

const (
	SevInfo Severity = iota
	SevWarning
	SevError
)

// String returns the lowercase label used when rendering diagnostics, as
// in "error[MOD4001]".
func (s Severity) String() string {
	switch s {
	case SevInfo:
		return "info"
	case SevWarning:
		return "warning"
	case SevError:
		return "error"
	}
	return "unknown"
}
