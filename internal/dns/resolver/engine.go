// Package resolver implements the iterative resolution engine: the walk
// from root nameservers down through referrals to an authoritative answer,
// following CNAME chains and glue-assisted delegations along the way.
package resolver

import (
	"context"
	"fmt"
	"net"

	"github.com/valarpirai/rr-dns/internal/dns/cache"
	"github.com/valarpirai/rr-dns/internal/dns/common/log"
	"github.com/valarpirai/rr-dns/internal/dns/domain"
)

// defaultMaxDepth bounds recursion (referral hops plus CNAME/NS-name
// sub-resolutions) when configuration does not override it.
const defaultMaxDepth = 16

// Outcome reports what a single Resolve call actually did, for metrics and
// logging -- never consulted by the engine itself.
type Outcome struct {
	CacheHit        bool
	QueriesMade     int
	MaxDepthReached int
}

// noteDepth records the deepest point a resolution reached.
func (o *Outcome) noteDepth(depth int) {
	if depth > o.MaxDepthReached {
		o.MaxDepthReached = depth
	}
}

// EngineOptions configures a new Engine.
type EngineOptions struct {
	Querier   Querier
	Cache     *cache.Cache
	Logger    log.Logger
	RootHints []RootHint
	MaxDepth  int
}

// Engine answers DNS questions by iterative resolution, checking the cache
// first and populating it on success.
type Engine struct {
	querier   Querier
	cache     *cache.Cache
	logger    log.Logger
	rootHints []RootHint
	maxDepth  int
}

// NewEngine constructs an Engine. A zero MaxDepth/nil RootHints fall back
// to defaultMaxDepth and DefaultRootHints respectively.
func NewEngine(opts EngineOptions) *Engine {
	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = defaultMaxDepth
	}
	hints := opts.RootHints
	if len(hints) == 0 {
		hints = DefaultRootHints
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Engine{
		querier:   opts.Querier,
		cache:     opts.Cache,
		logger:    logger,
		rootHints: hints,
		maxDepth:  maxDepth,
	}
}

// Resolve answers the first question in req. Any additional questions are
// ignored, but qdcount and the question section are echoed as received.
func (e *Engine) Resolve(ctx context.Context, req domain.Message) (domain.Message, Outcome) {
	var outcome Outcome

	q0, ok := req.Question0()
	if !ok {
		return e.buildResponse(req, nil, domain.RCodeFormErr), outcome
	}
	if err := q0.Validate(); err != nil {
		return e.buildResponse(req, nil, domain.RCodeFormErr), outcome
	}

	visited := make(map[string]struct{})
	records, rcode := e.resolveQuestion(ctx, q0, 0, &outcome, visited)
	return e.buildResponse(req, records, rcode), outcome
}

// buildResponse assembles the response header (qr=1, ra=1, id/rd echoed)
// around the answers an internal resolution produced.
func (e *Engine) buildResponse(req domain.Message, answers []domain.Record, rcode domain.RCode) domain.Message {
	hdr := domain.Header{
		ID:      req.Header.ID,
		QR:      true,
		Opcode:  req.Header.Opcode,
		RD:      req.Header.RD,
		RA:      true,
		RCode:   rcode,
		QDCount: req.Header.QDCount,
	}
	return domain.Message{
		Header:    hdr,
		Questions: req.Questions,
		Answers:   answers,
	}
}

// resolveQuestion answers one question, consulting the cache first (the
// top-level call's hit/miss is the only one reflected in outcome.CacheHit,
// since that is what a client actually experiences) and caching a
// successful, non-empty result under its own ⟨name, type⟩ on the way out.
func (e *Engine) resolveQuestion(ctx context.Context, q domain.Question, depth int, outcome *Outcome, visited map[string]struct{}) ([]domain.Record, domain.RCode) {
	if e.cache != nil {
		if records, ok := e.cache.Get(q.Name, q.Type); ok {
			if depth == 0 {
				outcome.CacheHit = true
			}
			return records, domain.RCodeNoError
		}
	}

	records, rcode := e.iterativeResolve(ctx, q, depth, outcome, visited)
	if rcode == domain.RCodeNoError && len(records) > 0 && e.cache != nil {
		e.cache.Put(q.Name, q.Type, records)
	}
	return records, rcode
}

// iterativeResolve walks the nameserver hierarchy for q, starting from the
// root hints, following referrals until an answer, a CNAME to chase, an
// authoritative negative, or exhaustion/depth overrun.
func (e *Engine) iterativeResolve(ctx context.Context, q domain.Question, depth int, outcome *Outcome, visited map[string]struct{}) ([]domain.Record, domain.RCode) {
	outcome.noteDepth(depth)
	if depth > e.maxDepth {
		return nil, domain.RCodeServFail
	}

	nsAddrs := rootHintAddrs(e.rootHints)

	for {
		resp, ok := e.queryOne(ctx, q, nsAddrs, outcome, visited)
		if !ok {
			return nil, domain.RCodeServFail
		}

		switch {
		case len(resp.Answers) > 0:
			return e.classifyAnswer(ctx, q, resp, depth, outcome, visited)

		case resp.IsDelegation():
			nextAddrs, rcode := e.nextHopAddrs(ctx, resp, depth, outcome, visited)
			if rcode != domain.RCodeNoError {
				return nil, rcode
			}
			depth++
			outcome.noteDepth(depth)
			if depth > e.maxDepth {
				return nil, domain.RCodeServFail
			}
			nsAddrs = nextAddrs

		case resp.Header.RCode == domain.RCodeNXDomain:
			return nil, domain.RCodeNXDomain

		case resp.Header.RCode >= domain.RCodeServFail:
			// queryOne already walks past SERVFAIL servers; any other
			// failure rcode that slips through is still not an answer.
			return nil, domain.RCodeServFail

		default:
			// authoritative (or merely empty) negative answer: no records,
			// no referral, no explicit NXDOMAIN -- treat as NOERROR/NODATA.
			return nil, domain.RCodeNoError
		}
	}
}

// classifyAnswer handles a response with ancount > 0: either it already
// answers q, or its head is a CNAME that must be chased.
func (e *Engine) classifyAnswer(ctx context.Context, q domain.Question, resp domain.Message, depth int, outcome *Outcome, visited map[string]struct{}) ([]domain.Record, domain.RCode) {
	head := resp.Answers[0]
	if head.Type == q.Type || q.Type == domain.RRTypeANY {
		return resp.Answers, domain.RCodeNoError
	}
	if head.Type == domain.RRTypeCNAME && q.Type != domain.RRTypeCNAME {
		// The server may already have sent the chain's terminal records
		// alongside the CNAME; the answer is then complete as it stands.
		for _, rr := range resp.Answers[1:] {
			if rr.Type == q.Type {
				return resp.Answers, domain.RCodeNoError
			}
		}
		target, err := domain.NewQuestion(head.Text, q.Type, q.Class)
		if err != nil {
			// CNAME target unusable; still hand back what we have.
			return resp.Answers, domain.RCodeNoError
		}
		rest, rcode := e.resolveQuestion(ctx, target, depth+1, outcome, visited)
		combined := make([]domain.Record, 0, len(resp.Answers)+len(rest))
		combined = append(combined, resp.Answers...)
		combined = append(combined, rest...)
		return combined, rcode
	}
	// Answer present but neither the requested type nor a CNAME to chase;
	// hand it back as-is rather than discarding data the caller may want.
	return resp.Answers, domain.RCodeNoError
}

// nextHopAddrs computes the nameserver addresses to query for the next
// referral hop: glue addresses when the authority section's additional
// section supplies them, otherwise a fresh sub-resolution of an NS name to
// an A record.
func (e *Engine) nextHopAddrs(ctx context.Context, resp domain.Message, depth int, outcome *Outcome, visited map[string]struct{}) ([]string, domain.RCode) {
	nsNames := resp.NSNames()
	if len(nsNames) == 0 {
		return nil, domain.RCodeServFail
	}
	glue := resp.GlueAddresses(nsNames)

	var addrs []string
	for _, name := range nsNames {
		for _, ip := range glue[name] {
			addrs = append(addrs, net.JoinHostPort(ip, "53"))
		}
	}
	if len(addrs) > 0 {
		return addrs, domain.RCodeNoError
	}

	for _, name := range nsNames {
		nsQ, err := domain.NewQuestion(name, domain.RRTypeA, domain.RRClassIN)
		if err != nil {
			continue
		}
		aRecords, rcode := e.resolveQuestion(ctx, nsQ, depth+1, outcome, visited)
		if rcode != domain.RCodeNoError {
			continue
		}
		for _, rr := range aRecords {
			if rr.Type == domain.RRTypeA {
				addrs = append(addrs, net.JoinHostPort(rr.Text, "53"))
			}
		}
		if len(addrs) > 0 {
			break
		}
	}
	if len(addrs) == 0 {
		return nil, domain.RCodeServFail
	}
	return addrs, domain.RCodeNoError
}

// queryOne tries each nameserver address in order, skipping any ⟨qname,
// qtype, ns addr⟩ triple already attempted in this resolution and any
// response carrying an unusable rcode, until one produces a usable
// response or the candidates are exhausted.
func (e *Engine) queryOne(ctx context.Context, q domain.Question, nsAddrs []string, outcome *Outcome, visited map[string]struct{}) (domain.Message, bool) {
	for _, addr := range nsAddrs {
		triple := fmt.Sprintf("%s|%s", q.CacheKey(), addr)
		if _, seen := visited[triple]; seen {
			continue
		}
		visited[triple] = struct{}{}

		outcome.QueriesMade++
		resp, err := e.querier.Query(ctx, q, addr)
		if err != nil {
			e.logger.Debug(map[string]any{"nameserver": addr, "question": q, "error": err}, "nameserver query failed")
			continue
		}
		if resp.Header.RCode.IsUnusable() || resp.Header.RCode == domain.RCodeServFail {
			e.logger.Debug(map[string]any{"nameserver": addr, "question": q, "rcode": resp.Header.RCode}, "nameserver declined")
			continue
		}
		return resp, true
	}
	return domain.Message{}, false
}
