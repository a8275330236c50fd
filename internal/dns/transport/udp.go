// Package transport implements the DNS-over-UDP listener: it owns the
// socket, decodes/encodes wire messages, and dispatches each query to a
// Responder, carrying no resolution logic itself.
package transport

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/valarpirai/rr-dns/internal/dns/common/log"
	"github.com/valarpirai/rr-dns/internal/dns/domain"
	"github.com/valarpirai/rr-dns/internal/dns/resolver"
	"github.com/valarpirai/rr-dns/internal/dns/wire"
)

// Responder answers one decoded query. *resolver.Engine satisfies this.
type Responder interface {
	Resolve(ctx context.Context, query domain.Message) (domain.Message, resolver.Outcome)
}

// UDPTransport listens for DNS queries on a UDP socket and answers each one
// via a Responder, one goroutine per inbound packet.
type UDPTransport struct {
	addr   string
	codec  wire.Codec
	logger log.Logger

	mu      sync.RWMutex
	conn    *net.UDPConn
	running bool
	stopCh  chan struct{}
}

// NewUDPTransport builds a transport bound to addr (host:port, or ":53").
func NewUDPTransport(addr string, logger log.Logger) *UDPTransport {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &UDPTransport{
		addr:   addr,
		codec:  wire.NewCodec(),
		logger: logger,
		stopCh: make(chan struct{}),
	}
}

// Start binds the UDP socket and begins serving queries to handler in the
// background. It returns once the socket is bound, before the first packet
// is necessarily processed.
func (t *UDPTransport) Start(ctx context.Context, handler Responder) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return fmt.Errorf("udp transport already running")
	}

	udpAddr, err := net.ResolveUDPAddr("udp", t.addr)
	if err != nil {
		return fmt.Errorf("resolve udp address %s: %w", t.addr, err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return fmt.Errorf("bind udp socket on %s: %w", t.addr, err)
	}

	t.conn = conn
	t.running = true
	t.logger.Info(map[string]any{"address": t.addr}, "udp transport started")

	go t.listenLoop(ctx, handler)
	return nil
}

// Stop signals the listen loop to exit and closes the socket. It returns
// without waiting for the loop or any in-flight packet handlers to finish.
func (t *UDPTransport) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return nil
	}
	close(t.stopCh)

	var closeErr error
	if t.conn != nil {
		closeErr = t.conn.Close()
	}
	t.running = false
	t.logger.Info(map[string]any{"address": t.addr}, "udp transport stopped")
	return closeErr
}

// Address reports the address the transport was configured with; for a
// ":0" port this is not the port the socket was actually bound to.
func (t *UDPTransport) Address() string {
	return t.addr
}

func (t *UDPTransport) listenLoop(ctx context.Context, handler Responder) {
	buf := make([]byte, 4096)
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.stopCh:
			return
		default:
		}

		n, clientAddr, err := t.conn.ReadFromUDP(buf)
		if err != nil {
			t.mu.RLock()
			running := t.running
			t.mu.RUnlock()
			if !running {
				return
			}
			t.logger.Warn(map[string]any{"error": err.Error()}, "failed to read udp packet")
			continue
		}

		packet := make([]byte, n)
		copy(packet, buf[:n])
		go t.handlePacket(ctx, packet, clientAddr, handler)
	}
}

func (t *UDPTransport) handlePacket(ctx context.Context, data []byte, clientAddr *net.UDPAddr, handler Responder) {
	query, err := t.codec.Decode(data)
	if err != nil {
		t.logger.Debug(map[string]any{"client": clientAddr.String(), "error": err.Error()}, "failed to decode dns query")
		return
	}

	response, outcome := handler.Resolve(ctx, query)
	t.logger.Debug(map[string]any{
		"client":       clientAddr.String(),
		"query_id":     query.Header.ID,
		"rcode":        response.Header.RCode,
		"cache_hit":    outcome.CacheHit,
		"queries_made": outcome.QueriesMade,
		"max_depth":    outcome.MaxDepthReached,
	}, "resolved dns query")

	responseData, err := t.codec.Encode(response)
	if err != nil {
		t.logger.Error(map[string]any{"client": clientAddr.String(), "error": err.Error()}, "failed to encode dns response")
		return
	}

	if _, err := t.conn.WriteToUDP(responseData, clientAddr); err != nil {
		t.logger.Error(map[string]any{"client": clientAddr.String(), "error": err.Error()}, "failed to send dns response")
	}
}
