package domain

import (
	"fmt"

	"github.com/valarpirai/rr-dns/internal/dns/common/utils"
)

// Record is a DNS resource record: ⟨name, type, class, ttl, rdata⟩.
// RData is the opaque wire-format data for the record (RFC 1035 section
// 3.2.1); RRType.HasCompressedName reports which types additionally carry a
// decompressed Text form because their RData embeds a domain name.
type Record struct {
	Name  string
	Type  RRType
	Class RRClass
	TTL   uint32
	RData []byte

	// Text holds the presentation form of RData, populated at decode time:
	// the address for A/AAAA, the joined strings for TXT, and for
	// NS/CNAME/PTR/SOA/MX the decompressed domain name(s), so that callers
	// (alias chasing, glue matching) never need the original message buffer
	// again. It is empty for other types.
	Text string
}

// NewRecord constructs a Record, canonicalizing the owner name.
func NewRecord(name string, rrtype RRType, class RRClass, ttl uint32, rdata []byte) (Record, error) {
	rr := Record{
		Name:  utils.CanonicalDNSName(name),
		Type:  rrtype,
		Class: class,
		TTL:   ttl,
		RData: rdata,
	}
	if err := rr.Validate(); err != nil {
		return Record{}, err
	}
	return rr, nil
}

// Validate checks structural invariants.
func (rr Record) Validate() error {
	if rr.Name == "" {
		return fmt.Errorf("record name must not be empty")
	}
	return nil
}

// CacheKey returns the ⟨lowercased name, type⟩ key this record would be
// stored under if cached as part of an answer set.
func (rr Record) CacheKey() string {
	return CacheKey(rr.Name, rr.Type)
}
