package hostname

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"
)

// ErrEmptyHostname is returned when normalization produces no hostname
var ErrEmptyHostname = errors.New("empty hostname")

// IsASCII reports whether s contains only ASCII bytes
func IsASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

// lookup maps and validates like idna.Lookup but without the STD3 rules,
// so underscores and leading or trailing hyphens in labels are kept
var lookup = idna.New(
	idna.MapForLookup(),
	idna.BidiRule(),
	idna.StrictDomainName(false),
	idna.CheckHyphens(false),
)

// ToASCII converts a Unicode hostname to its punycode form
func ToASCII(s string) (string, error) {
	out, err := lookup.ToASCII(s)
	if err != nil {
		return "", fmt.Errorf("to ascii %q: %w", s, err)
	}
	if out == "" {
		return "", ErrEmptyHostname
	}
	return out, nil
}

// Normalize lowercases host, drops a trailing root dot and converts it to
// punycode when needed.
func Normalize(host string) (string, error) {
	host = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(host)), ".")
	if host == "" {
		return "", ErrEmptyHostname
	}
	if IsASCII(host) {
		return host, nil
	}
	return ToASCII(host)
}

// RegistrableDomain returns the public suffix plus one label of host, e.g.
// "example.co.uk" for "www.example.co.uk". Hosts that are themselves a
// public suffix are returned unchanged. host must already be normalized.
func RegistrableDomain(host string) (string, error) {
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		if suffix, _ := publicsuffix.PublicSuffix(host); suffix == host {
			return host, nil
		}
		return "", fmt.Errorf("registrable domain of %q: %w", host, err)
	}
	return domain, nil
}
