package domain

import "fmt"

// RCode represents a DNS response code indicating the result of a query.
type RCode uint8

// Response codes. The resolver emits only NOERROR, FORMERR, SERVFAIL and
// NXDOMAIN to clients; NOTIMP and REFUSED (and any other value) are only
// ever decoded from upstream responses.
const (
	RCodeNoError  RCode = 0 // NOERROR
	RCodeFormErr  RCode = 1 // FormatError
	RCodeServFail RCode = 2 // SERVFAIL
	RCodeNXDomain RCode = 3 // NXDOMAIN
	RCodeNotImp   RCode = 4 // NotImplemented
	RCodeRefused  RCode = 5 // Refused
)

// String returns the textual representation of the RCode.
func (r RCode) String() string {
	switch r {
	case RCodeNoError:
		return "NOERROR"
	case RCodeFormErr:
		return "FORMERR"
	case RCodeServFail:
		return "SERVFAIL"
	case RCodeNXDomain:
		return "NXDOMAIN"
	case RCodeNotImp:
		return "NOTIMP"
	case RCodeRefused:
		return "REFUSED"
	default:
		return fmt.Sprintf("RCODE%d", uint8(r))
	}
}

// IsUnusable reports whether an upstream response with this RCode should be
// treated as an upstream failure: the nameserver declined to answer rather
// than giving an authoritative result.
func (r RCode) IsUnusable() bool {
	switch r {
	case RCodeFormErr, RCodeNotImp, RCodeRefused:
		return true
	default:
		return false
	}
}
