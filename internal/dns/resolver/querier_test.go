package resolver

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valarpirai/rr-dns/internal/dns/domain"
	"github.com/valarpirai/rr-dns/internal/dns/wire"
)

// pipeDialer hands the querier one end of an in-memory pipe and gives the
// test the other end to play nameserver with.
func pipeDialer(t *testing.T) (DialFunc, net.Conn) {
	t.Helper()
	client, server := net.Pipe()
	t.Cleanup(func() {
		_ = client.Close()
		_ = server.Close()
	})
	dial := func(_ context.Context, _, _ string) (net.Conn, error) {
		return client, nil
	}
	return dial, server
}

// readQuery decodes the query the querier just sent over the pipe.
func readQuery(t *testing.T, server net.Conn) domain.Message {
	t.Helper()
	buf := make([]byte, 4096)
	require.NoError(t, server.SetReadDeadline(time.Now().Add(time.Second)))
	n, err := server.Read(buf)
	require.NoError(t, err)
	msg, err := wire.NewCodec().Decode(buf[:n])
	require.NoError(t, err)
	return msg
}

func respond(t *testing.T, server net.Conn, resp domain.Message) {
	t.Helper()
	raw, err := wire.NewCodec().Encode(resp)
	require.NoError(t, err)
	_, err = server.Write(raw)
	require.NoError(t, err)
}

func TestQuerierReturnsMatchingResponse(t *testing.T) {
	dial, server := pipeDialer(t)
	q := NewQuerier(time.Second, dial)
	question := domain.Question{Name: "example.com", Type: domain.RRTypeA, Class: domain.RRClassIN}

	go func() {
		query := readQuery(t, server)
		respond(t, server, domain.Message{
			Header:    domain.Header{ID: query.Header.ID, QR: true, QDCount: 1},
			Questions: query.Questions,
			Answers: []domain.Record{
				{Name: "example.com", Type: domain.RRTypeA, Class: domain.RRClassIN, TTL: 300, Text: "93.184.216.34"},
			},
		})
	}()

	resp, err := q.Query(context.Background(), question, "192.0.2.1:53")
	require.NoError(t, err)
	require.Len(t, resp.Answers, 1)
	assert.Equal(t, "93.184.216.34", resp.Answers[0].Text)
}

func TestQuerierDiscardsMismatchedIDAndKeepsReading(t *testing.T) {
	dial, server := pipeDialer(t)
	q := NewQuerier(time.Second, dial)
	question := domain.Question{Name: "example.com", Type: domain.RRTypeA, Class: domain.RRClassIN}

	go func() {
		query := readQuery(t, server)
		// First a spoofed datagram with the wrong id, then the real answer.
		respond(t, server, domain.Message{
			Header:    domain.Header{ID: query.Header.ID + 1, QR: true, QDCount: 1},
			Questions: query.Questions,
			Answers: []domain.Record{
				{Name: "example.com", Type: domain.RRTypeA, Class: domain.RRClassIN, TTL: 300, Text: "203.0.113.66"},
			},
		})
		respond(t, server, domain.Message{
			Header:    domain.Header{ID: query.Header.ID, QR: true, QDCount: 1},
			Questions: query.Questions,
			Answers: []domain.Record{
				{Name: "example.com", Type: domain.RRTypeA, Class: domain.RRClassIN, TTL: 300, Text: "93.184.216.34"},
			},
		})
	}()

	resp, err := q.Query(context.Background(), question, "192.0.2.1:53")
	require.NoError(t, err)
	require.Len(t, resp.Answers, 1)
	assert.Equal(t, "93.184.216.34", resp.Answers[0].Text, "the spoofed answer must not win")
}

func TestQuerierDiscardsMismatchedQuestion(t *testing.T) {
	dial, server := pipeDialer(t)
	q := NewQuerier(time.Second, dial)
	question := domain.Question{Name: "example.com", Type: domain.RRTypeA, Class: domain.RRClassIN}

	go func() {
		query := readQuery(t, server)
		respond(t, server, domain.Message{
			Header:    domain.Header{ID: query.Header.ID, QR: true, QDCount: 1},
			Questions: []domain.Question{{Name: "evil.example.net", Type: domain.RRTypeA, Class: domain.RRClassIN}},
		})
		respond(t, server, domain.Message{
			Header:    domain.Header{ID: query.Header.ID, QR: true, QDCount: 1},
			Questions: query.Questions,
			Answers: []domain.Record{
				{Name: "example.com", Type: domain.RRTypeA, Class: domain.RRClassIN, TTL: 300, Text: "93.184.216.34"},
			},
		})
	}()

	resp, err := q.Query(context.Background(), question, "192.0.2.1:53")
	require.NoError(t, err)
	require.Len(t, resp.Answers, 1)
}

func TestQuerierUndecodableResponseIsError(t *testing.T) {
	dial, server := pipeDialer(t)
	q := NewQuerier(time.Second, dial)
	question := domain.Question{Name: "example.com", Type: domain.RRTypeA, Class: domain.RRClassIN}

	go func() {
		_ = readQuery(t, server)
		_, _ = server.Write([]byte{0x01, 0x02, 0x03})
	}()

	_, err := q.Query(context.Background(), question, "192.0.2.1:53")
	assert.Error(t, err)
}

func TestQuerierTimesOutWhenNameserverSilent(t *testing.T) {
	dial, server := pipeDialer(t)
	q := NewQuerier(50*time.Millisecond, dial)
	question := domain.Question{Name: "example.com", Type: domain.RRTypeA, Class: domain.RRClassIN}

	go func() {
		_ = readQuery(t, server) // swallow the query, never answer
	}()

	start := time.Now()
	_, err := q.Query(context.Background(), question, "192.0.2.1:53")
	assert.Error(t, err)
	assert.Less(t, time.Since(start), time.Second, "timeout must be bounded by the per-hop budget")
}

func TestQuerierSendsIterativeQuery(t *testing.T) {
	dial, server := pipeDialer(t)
	q := NewQuerier(time.Second, dial)
	question := domain.Question{Name: "example.com", Type: domain.RRTypeA, Class: domain.RRClassIN}

	queryCh := make(chan domain.Message, 1)
	go func() {
		query := readQuery(t, server)
		queryCh <- query
		respond(t, server, domain.Message{
			Header:    domain.Header{ID: query.Header.ID, QR: true, QDCount: 1},
			Questions: query.Questions,
		})
	}()

	_, err := q.Query(context.Background(), question, "192.0.2.1:53")
	require.NoError(t, err)

	sent := <-queryCh
	assert.False(t, sent.Header.RD, "iterative queries must not request recursion")
	assert.False(t, sent.Header.QR)
	require.Len(t, sent.Questions, 1)
	assert.Equal(t, "example.com", sent.Questions[0].Name)
}
