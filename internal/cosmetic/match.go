package cosmetic

import "github.com/bnema/cosmetic-filters/internal/hostname"

// Matches reports whether the filter applies to a request whose hostname
// and entity label hashes are given (see hostname.HostnameHashes and
// hostname.EntityHashes). Negated locations always win.
func (f *Filter) Matches(requestEntities, requestHostnames []hostname.Hash) bool {
	if !f.HasHostnameConstraint() {
		return true
	}
	if len(requestEntities) == 0 && len(requestHostnames) == 0 {
		return false
	}

	if f.NotHostnames != nil && anyIn(f.NotHostnames, requestHostnames) {
		return false
	}
	if f.NotEntities != nil && anyIn(f.NotEntities, requestEntities) {
		return false
	}

	if f.Hostnames != nil || f.Entities != nil {
		if f.Hostnames != nil && anyIn(f.Hostnames, requestHostnames) {
			return true
		}
		if f.Entities != nil && anyIn(f.Entities, requestEntities) {
			return true
		}
		return false
	}

	return true
}

// MatchesHostname is Matches for a hostname and its registrable domain,
// e.g. ("sub.example.co.uk", "example.co.uk")
func (f *Filter) MatchesHostname(host, domain string) bool {
	return f.Matches(hostname.EntityHashes(host, domain), hostname.HostnameHashes(host, domain))
}

func anyIn(sorted, hashes []hostname.Hash) bool {
	for _, h := range hashes {
		if hostname.BinLookup(sorted, h) {
			return true
		}
	}
	return false
}

// HiddenGenericRule returns the generic rule implied by a filter that only
// has negated locations, such as `~example.com##.ad`. Lists written for
// uBlock expect such a rule to also hide `.ad` everywhere it is not
// excluded, see https://github.com/chrisaljoudi/uBlock/issues/145.
//
// It returns nil when the filter has positive locations, no locations at
// all, an action, or is a script injection.
func (f *Filter) HiddenGenericRule() *Filter {
	if f.Hostnames != nil || f.Entities != nil {
		return nil
	}
	if f.NotHostnames == nil && f.NotEntities == nil {
		return nil
	}
	if f.Action != nil || f.IsScriptInject() {
		return nil
	}

	generic := f.clone()
	generic.NotHostnames = nil
	generic.NotEntities = nil
	return generic
}
