package wire

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/valarpirai/rr-dns/internal/dns/common/utils"
)

// maxNameWireLength bounds a name's total wire-format octets, length
// prefixes included, per RFC 1035 section 3.1.
const maxNameWireLength = 255

// maxLabelLength bounds a single label.
const maxLabelLength = 63

// pointerTag marks the two high bits of a length octet that begins a
// compression pointer (RFC 1035 section 4.1.4).
const pointerTag = 0xC0

// decodeName decodes a domain name starting at offset, following
// compression pointers as needed. It returns the decoded name in lowercased
// display form (no trailing dot) and the offset immediately following the
// name as it appears at the position the caller asked about -- i.e. after
// the first pointer taken, or after the terminating zero octet if no
// pointer was followed.
//
// Two invariants are enforced, both turning a violation into ErrFormat:
//  1. the total decoded label octets (plus the length-prefix/separator
//     overhead) never exceeds maxNameWireLength.
//  2. a compression pointer must target an offset strictly less than the
//     offset at which the pointer itself was read, so cyclic or
//     self-referential pointers are rejected rather than looped forever.
func decodeName(msg []byte, offset int) (string, int, error) {
	var labels []string
	wireLen := 0
	returnOffset := -1 // offset to resume at once the caller's name ends; set on first pointer

	// visited records pointer targets already followed. Combined with the
	// "pointer must target strictly backwards" rule below, a pointer chain
	// can only ever decrease, but the set catches any implementation bug
	// that would otherwise let two different pointers bounce between the
	// same two offsets forever.
	visited := make(map[int]struct{})

	for {
		if offset < 0 || offset >= len(msg) {
			return "", 0, fmt.Errorf("%w: name offset %d out of bounds", ErrFormat, offset)
		}
		length := int(msg[offset])

		switch {
		case length == 0:
			offset++
			if returnOffset == -1 {
				returnOffset = offset
			}
			return strings.Join(labels, "."), returnOffset, nil

		case length&pointerTag == pointerTag:
			if offset+2 > len(msg) {
				return "", 0, fmt.Errorf("%w: truncated compression pointer", ErrFormat)
			}
			ptr := int(binary.BigEndian.Uint16(msg[offset:offset+2]) & 0x3FFF)
			if returnOffset == -1 {
				returnOffset = offset + 2
			}
			if ptr >= offset {
				return "", 0, fmt.Errorf("%w: forward or self-referential compression pointer", ErrFormat)
			}
			if _, seen := visited[ptr]; seen {
				return "", 0, fmt.Errorf("%w: compression pointer cycle", ErrFormat)
			}
			visited[ptr] = struct{}{}
			offset = ptr

		case length&pointerTag != 0:
			// 0b01xxxxxx or 0b10xxxxxx: reserved, not a valid label length.
			return "", 0, fmt.Errorf("%w: reserved label length bits at offset %d", ErrFormat, offset)

		default: // literal label, 1..63 octets
			offset++
			if offset+length > len(msg) {
				return "", 0, fmt.Errorf("%w: truncated label", ErrFormat)
			}
			wireLen += length + 1
			if wireLen+1 > maxNameWireLength { // +1 for the eventual terminator
				return "", 0, fmt.Errorf("%w: name exceeds %d wire octets", ErrFormat, maxNameWireLength)
			}
			labels = append(labels, strings.ToLower(string(msg[offset:offset+length])))
			offset += length
		}
	}
}

// encodeName serializes name (display form, no trailing dot required) as
// length-prefixed labels terminated by a zero octet. No compression is
// attempted; a correct non-compressing encoder is fully interoperable.
func encodeName(name string) ([]byte, error) {
	name = utils.CanonicalDNSName(name)
	if name == "" {
		return []byte{0}, nil
	}

	labels := strings.Split(name, ".")
	total := 1
	for _, l := range labels {
		if len(l) == 0 {
			return nil, fmt.Errorf("%w: empty label in %q", ErrEncode, name)
		}
		if len(l) > maxLabelLength {
			return nil, fmt.Errorf("%w: label %q exceeds %d octets", ErrEncode, l, maxLabelLength)
		}
		total += len(l) + 1
	}
	if total > maxNameWireLength {
		return nil, fmt.Errorf("%w: name %q exceeds %d wire octets", ErrEncode, name, maxNameWireLength)
	}

	buf := make([]byte, 0, total)
	for _, l := range labels {
		buf = append(buf, byte(len(l)))
		buf = append(buf, l...)
	}
	buf = append(buf, 0)
	return buf, nil
}
