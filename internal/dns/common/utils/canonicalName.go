// Package utils holds small, dependency-free helpers shared across the
// domain, wire, cache, and resolver packages.
package utils

import "strings"

// CanonicalDNSName returns a DNS name in the display form this repo stores
// names in: lowercased, trimmed of surrounding whitespace, and without a
// trailing dot (the wire codec re-adds the terminating root label on encode).
func CanonicalDNSName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ToLower(name)
	name = strings.TrimSuffix(name, ".")
	return name
}

// SameName reports whether a and b name the same node, comparing
// case-insensitively per RFC 1035 section 2.3.3.
func SameName(a, b string) bool {
	return strings.EqualFold(CanonicalDNSName(a), CanonicalDNSName(b))
}
