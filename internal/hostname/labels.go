package hostname

import "strings"

// withoutPublicSuffix strips the public suffix of domain from hostname.
// It returns the remaining prefix of hostname together with the public
// suffix itself, e.g. ("foo.bar", "com") for ("foo.bar.com", "bar.com").
// ok is false when domain has no dot.
func withoutPublicSuffix(hostname, domain string) (prefix, suffix string, ok bool) {
	dot := strings.IndexByte(domain, '.')
	if dot == -1 || len(domain) > len(hostname) {
		return "", "", false
	}
	suffix = domain[dot+1:]
	return hostname[:len(hostname)-len(suffix)-1], hostname[len(hostname)-len(domain)+dot+1:], true
}

// labelHashes hashes hostname[:end] and each of its suffixes obtained by
// dropping one leading label at a time, down to the label that starts at
// startOfDomain. Hashes are ordered from least to most specific.
func labelHashes(hostname string, end, startOfDomain int) []Hash {
	if end == 0 {
		return nil
	}

	var hashes []Hash
	dot := startOfDomain
	for {
		i := strings.LastIndexByte(hostname[:dot], '.')
		if i == -1 {
			break
		}
		dot = i
		hashes = append(hashes, FastHash(hostname[dot+1:end]))
	}

	return append(hashes, FastHash(hostname[:end]))
}

// HostnameHashes returns the hashes of hostname and of every parent
// hostname down to and including domain.
//
// A domain longer than hostname is treated as absent.
func HostnameHashes(hostname, domain string) []Hash {
	start := len(hostname) - len(domain)
	if start < 0 {
		start = len(hostname)
	}
	return labelHashes(hostname, len(hostname), start)
}

// EntityHashes returns the hashes a request on hostname can match against
// entity locations (`example.*`): every label suffix of hostname with the
// public suffix removed, followed by the public suffix itself.
//
// The result is empty when domain has no public suffix separator.
func EntityHashes(hostname, domain string) []Hash {
	prefix, suffix, ok := withoutPublicSuffix(hostname, domain)
	if !ok {
		return nil
	}
	hashes := labelHashes(prefix, len(prefix), len(prefix))
	return append(hashes, FastHash(suffix))
}
