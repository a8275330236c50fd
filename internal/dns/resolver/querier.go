package resolver

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/valarpirai/rr-dns/internal/dns/domain"
	"github.com/valarpirai/rr-dns/internal/dns/wire"
)

// DialFunc establishes the network connection a Querier uses to reach a
// single nameserver. Overridable in tests so no real socket is opened.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// Querier sends one question to one nameserver and returns its answer. It
// has no notion of referrals, retries, or caching -- all of that lives in
// Engine, one layer up. This mirrors how an upstream forwarder issues a
// single query, just aimed at whichever server the iterative walk is
// currently visiting instead of a fixed forwarder list.
type Querier interface {
	Query(ctx context.Context, q domain.Question, nsAddr string) (domain.Message, error)
}

// udpQuerier is the sole production Querier: one UDP round-trip per call,
// its own ephemeral socket, and a fresh message ID for each question.
type udpQuerier struct {
	dial    DialFunc
	codec   wire.Codec
	timeout time.Duration
	nextID  func() uint16
}

// NewQuerier builds a Querier with the given per-query timeout. dial
// defaults to net.Dialer.DialContext if nil.
func NewQuerier(timeout time.Duration, dial DialFunc) Querier {
	if dial == nil {
		dial = (&net.Dialer{}).DialContext
	}
	return &udpQuerier{
		dial:    dial,
		codec:   wire.NewCodec(),
		timeout: timeout,
		nextID:  randomID,
	}
}

// Query sends q to nsAddr (host:port) and returns its decoded response.
// Errors are always transient/local to this one nameserver: the caller
// (Engine) is expected to move on to the next candidate rather than
// surface them to the client.
func (r *udpQuerier) Query(ctx context.Context, q domain.Question, nsAddr string) (domain.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	conn, err := r.dial(ctx, "udp", nsAddr)
	if err != nil {
		return domain.Message{}, fmt.Errorf("dial %s: %w", nsAddr, err)
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	id := r.nextID()
	query := domain.Message{
		Header: domain.Header{
			ID:      id,
			RD:      false, // this resolver does its own iteration; it never asks for recursion
			Opcode:  0,
			QDCount: 1,
		},
		Questions: []domain.Question{q},
	}
	raw, err := r.codec.Encode(query)
	if err != nil {
		return domain.Message{}, fmt.Errorf("encode query: %w", err)
	}

	type result struct {
		msg domain.Message
		err error
	}
	resultCh := make(chan result, 1)
	go func() {
		if _, err := conn.Write(raw); err != nil {
			resultCh <- result{err: fmt.Errorf("write to %s: %w", nsAddr, err)}
			return
		}
		buf := make([]byte, 4096)
		for {
			n, err := conn.Read(buf)
			if err != nil {
				resultCh <- result{err: fmt.Errorf("read from %s: %w", nsAddr, err)}
				return
			}
			msg, err := r.codec.Decode(buf[:n])
			if err != nil {
				resultCh <- result{err: fmt.Errorf("decode response from %s: %w", nsAddr, err)}
				return
			}
			// A datagram whose id or echoed question does not match the
			// outbound query is a stray or spoof; drop it and keep reading
			// until the real answer arrives or the deadline fires.
			if msg.Header.ID != id {
				continue
			}
			if qq, ok := msg.Question0(); !ok || !domain.SameQuestion(qq, q) {
				continue
			}
			resultCh <- result{msg: msg}
			return
		}
	}()

	select {
	case res := <-resultCh:
		return res.msg, res.err
	case <-ctx.Done():
		return domain.Message{}, fmt.Errorf("query %s: %w", nsAddr, ctx.Err())
	}
}
