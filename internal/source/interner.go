package source

// StringID identifies an interned string. ID 0 is reserved for the empty
// string so the zero value means "no name".
type StringID uint32

const NoStringID StringID = 0

// Interner deduplicates identifier spellings so names can be compared and
// hashed as small integers.
type Interner struct {
	byID  []string
	index map[string]StringID
}

func NewInterner() *Interner {
	return &Interner{
		byID:  []string{""},
		index: map[string]StringID{"": 0},
	}
}

// Intern returns the ID for s, allocating one on first use.
func (i *Interner) Intern(s string) StringID {
	if id, ok := i.index[s]; ok {
		return id
	}

	// Copy so the interner does not pin the caller's backing buffer.
	cpy := string([]byte(s))
	id := StringID(len(i.byID))
	i.byID = append(i.byID, cpy)
	i.index[cpy] = id
	return id
}

// Lookup returns the string for id, reporting whether the ID is known.
func (i *Interner) Lookup(id StringID) (string, bool) {
	if int(id) >= len(i.byID) {
		return "", false
	}
	return i.byID[id], true
}

// MustLookup returns the string for id and panics on an unknown ID.
// Unknown IDs indicate a caller bug, never user input.
func (i *Interner) MustLookup(id StringID) string {
	s, ok := i.Lookup(id)
	if !ok {
		panic("source: lookup of unknown StringID")
	}
	return s
}

// Len reports the number of interned strings, including the empty string.
func (i *Interner) Len() int { return len(i.byID) }
