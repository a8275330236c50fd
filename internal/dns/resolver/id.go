package resolver

import (
	"crypto/rand"
	"encoding/binary"
)

// randomID generates a 16-bit DNS message ID. Using crypto/rand rather
// than math/rand makes query IDs hard to predict, which is the cheapest
// defense a stub resolver has against off-path response spoofing.
func randomID() uint16 {
	var b [2]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand failing is effectively unrecoverable on any real
		// platform; fall back to a fixed id rather than panicking, since a
		// colliding ID is merely rejected by the mismatch check upstream.
		return 0
	}
	return binary.BigEndian.Uint16(b[:])
}
