package models

import "github.com/bnema/cosmetic-filters/internal/cosmetic"

// CompiledList holds the cosmetic filters compiled from one filter list
type CompiledList struct {
	Name    string
	Source  string
	Filters []*cosmetic.Filter
}

// Counts returns how many filters are generic, hostname specific,
// exceptions and scriptlet injections
func (l CompiledList) Counts() (generic, specific, exceptions, scriptlets int) {
	for _, f := range l.Filters {
		switch {
		case f.IsUnhide():
			exceptions++
		case f.IsScriptInject():
			scriptlets++
		case f.IsGeneric():
			generic++
		default:
			specific++
		}
	}
	return
}
