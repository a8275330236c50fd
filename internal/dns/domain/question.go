package domain

import (
	"fmt"
	"strings"

	"github.com/valarpirai/rr-dns/internal/dns/common/utils"
)

// Question is a single DNS question section entry: ⟨qname, qtype, qclass⟩.
type Question struct {
	Name  string
	Type  RRType
	Class RRClass
}

// NewQuestion constructs a Question, canonicalizing the name to display form.
func NewQuestion(name string, rrtype RRType, class RRClass) (Question, error) {
	q := Question{
		Name:  utils.CanonicalDNSName(name),
		Type:  rrtype,
		Class: class,
	}
	if err := q.Validate(); err != nil {
		return Question{}, err
	}
	return q, nil
}

// Validate checks structural invariants that hold regardless of wire
// encoding (a non-empty name; class/type are carried transparently and are
// not restricted here).
func (q Question) Validate() error {
	if q.Name == "" {
		return fmt.Errorf("question name must not be empty")
	}
	return nil
}

// CacheKey returns the ⟨lowercased name, type⟩ key the cache indexes on.
// Class is not part of the key: only IN is meaningful in practice and the
// cache is not expected to serve mixed-class records for the same name.
func (q Question) CacheKey() string {
	return CacheKey(q.Name, q.Type)
}

// CacheKey builds the cache key for a ⟨name, type⟩ pair.
func CacheKey(name string, t RRType) string {
	return fmt.Sprintf("%s/%s", utils.CanonicalDNSName(name), t)
}

// SameQuestion reports whether a and b name the same ⟨qname, qtype, qclass⟩,
// comparing names case-insensitively. Used on the query receive path to
// match a response back to the question that was asked.
func SameQuestion(a, b Question) bool {
	return a.Type == b.Type && a.Class == b.Class && strings.EqualFold(utils.CanonicalDNSName(a.Name), utils.CanonicalDNSName(b.Name))
}
