package wire

import (
	"encoding/binary"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/valarpirai/rr-dns/internal/dns/domain"
)

// decodeRDataText produces a human-readable Text form for a record's rdata,
// used by the resolver for CNAME target extraction, NS/glue matching, and
// logging. For the record types whose rdata embeds a domain name (NS,
// CNAME, PTR, and the name fields of SOA and MX), that name may itself use
// label compression, so decoding needs the whole message buffer rather than
// just the isolated rdata slice (RFC 1035 section 4.1.3).
//
// rdataOffset is the offset of rdata within msg; unsupported types return
// an empty string rather than an error, since Text is advisory and the raw
// RData is always preserved regardless.
func decodeRDataText(msg []byte, rrtype domain.RRType, rdataOffset int, rdata []byte) string {
	switch rrtype {
	case domain.RRTypeA:
		if len(rdata) != 4 {
			return ""
		}
		return net.IP(rdata).String()
	case domain.RRTypeAAAA:
		if len(rdata) != 16 {
			return ""
		}
		return net.IP(rdata).String()
	case domain.RRTypeNS, domain.RRTypeCNAME, domain.RRTypePTR:
		name, _, err := decodeName(msg, rdataOffset)
		if err != nil {
			return ""
		}
		return name
	case domain.RRTypeMX:
		if len(rdata) < 3 {
			return ""
		}
		pref := binary.BigEndian.Uint16(rdata[0:2])
		name, _, err := decodeName(msg, rdataOffset+2)
		if err != nil {
			return ""
		}
		return fmt.Sprintf("%d %s", pref, name)
	case domain.RRTypeSOA:
		mname, next, err := decodeName(msg, rdataOffset)
		if err != nil {
			return ""
		}
		rname, next, err := decodeName(msg, next)
		if err != nil {
			return ""
		}
		if next+20 > len(msg) {
			return ""
		}
		serial := binary.BigEndian.Uint32(msg[next : next+4])
		refresh := binary.BigEndian.Uint32(msg[next+4 : next+8])
		retry := binary.BigEndian.Uint32(msg[next+8 : next+12])
		expire := binary.BigEndian.Uint32(msg[next+12 : next+16])
		minimum := binary.BigEndian.Uint32(msg[next+16 : next+20])
		return fmt.Sprintf("%s %s %d %d %d %d %d", mname, rname, serial, refresh, retry, expire, minimum)
	case domain.RRTypeTXT:
		return decodeTXTStrings(rdata)
	default:
		return ""
	}
}

// decodeTXTStrings joins the character-strings that make up a TXT record's
// rdata (each is a length octet followed by that many octets).
func decodeTXTStrings(rdata []byte) string {
	var parts []string
	for i := 0; i < len(rdata); {
		l := int(rdata[i])
		i++
		if i+l > len(rdata) {
			break
		}
		parts = append(parts, string(rdata[i:i+l]))
		i += l
	}
	return strings.Join(parts, "")
}

// encodeA encodes an A record's rdata from a dotted-decimal address.
func encodeA(addr string) ([]byte, error) {
	ip := net.ParseIP(addr)
	if ip == nil || ip.To4() == nil {
		return nil, fmt.Errorf("%w: invalid A address %q", ErrEncode, addr)
	}
	return ip.To4(), nil
}

// encodeAAAA encodes an AAAA record's rdata from an IPv6 address.
func encodeAAAA(addr string) ([]byte, error) {
	ip := net.ParseIP(addr)
	if ip == nil || ip.To4() != nil {
		return nil, fmt.Errorf("%w: invalid AAAA address %q", ErrEncode, addr)
	}
	return ip.To16(), nil
}

// encodeNameRData encodes a bare domain-name rdata (NS, CNAME, PTR).
func encodeNameRData(name string) ([]byte, error) {
	return encodeName(name)
}

// encodeMX encodes an MX record's rdata from "<preference> <exchange>".
func encodeMX(text string) ([]byte, error) {
	parts := strings.Fields(text)
	if len(parts) != 2 {
		return nil, fmt.Errorf("%w: invalid MX rdata %q", ErrEncode, text)
	}
	pref, err := strconv.ParseUint(parts[0], 10, 16)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid MX preference %q", ErrEncode, parts[0])
	}
	name, err := encodeName(parts[1])
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 2, 2+len(name))
	binary.BigEndian.PutUint16(buf, uint16(pref))
	return append(buf, name...), nil
}

// encodeTXT encodes a TXT record's rdata as a single character-string,
// splitting into 255-octet chunks if needed.
func encodeTXT(text string) ([]byte, error) {
	var buf []byte
	b := []byte(text)
	for len(b) > 0 {
		n := len(b)
		if n > 255 {
			n = 255
		}
		buf = append(buf, byte(n))
		buf = append(buf, b[:n]...)
		b = b[n:]
	}
	if buf == nil {
		buf = []byte{0}
	}
	return buf, nil
}
