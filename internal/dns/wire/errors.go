// Package wire implements the RFC 1035 DNS wire format: parsing raw UDP
// payloads into domain.Message values and serializing them back.
package wire

import "errors"

// ErrFormat is returned when a message's wire bytes do not decode: a short
// buffer, a bad label, a bad compression pointer, or a section-count
// mismatch. FormatError is never retried by the caller; the resolver moves
// on to the next nameserver, or the transport drops the datagram.
var ErrFormat = errors.New("dns: malformed message")

// ErrEncode is returned when a value cannot be serialized: an oversize
// label or an oversize name.
var ErrEncode = errors.New("dns: cannot encode message")
