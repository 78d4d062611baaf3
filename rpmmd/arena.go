package rpmmd

// Arena is the per-record string interning buffer described in spec.md §3.
// Go strings already carry their own backing storage and are garbage
// collected independently, so an arena is not required for correctness here
// the way it is in the C original (see DESIGN.md); Arena is kept anyway so
// that the Package model matches spec.md §3's "every string is null or
// arena-interned" invariant in a checkable way, and so repeated values
// (directory prefixes, common flags, license strings) that recur across a
// large package set share one backing string instead of allocating a fresh
// copy per Package.
type Arena struct {
	strings map[string]string
}

// NewArena creates an empty interning arena.
func NewArena() *Arena {
	return &Arena{strings: make(map[string]string)}
}

// Intern returns a canonical copy of s; repeated calls with an equal s
// return the exact same backing string.
func (a *Arena) Intern(s string) string {
	if s == "" {
		return ""
	}
	if existing, ok := a.strings[s]; ok {
		return existing
	}
	a.strings[s] = s
	return s
}

// Release drops the arena's backing map. References obtained via Intern
// remain valid (Go strings are independently garbage collected) but new
// Intern calls after Release start a fresh dedup table.
func (a *Arena) Release() {
	a.strings = make(map[string]string)
}

// Len reports the number of distinct strings interned, useful for tests
// asserting that repeated values are actually being shared.
func (a *Arena) Len() int {
	return len(a.strings)
}
