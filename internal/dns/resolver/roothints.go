package resolver

// RootHint is a single well-known root nameserver.
type RootHint struct {
	Name string
	Addr string // host:port, already resolved -- no bootstrap lookup needed
}

// DefaultRootHints is the standard 13-server root hint list (IANA "named.root"),
// used unless configuration overrides it. Queried on port 53.
var DefaultRootHints = []RootHint{
	{Name: "a.root-servers.net", Addr: "198.41.0.4:53"},
	{Name: "b.root-servers.net", Addr: "199.9.14.201:53"},
	{Name: "c.root-servers.net", Addr: "192.33.4.12:53"},
	{Name: "d.root-servers.net", Addr: "199.7.91.13:53"},
	{Name: "e.root-servers.net", Addr: "192.203.230.10:53"},
	{Name: "f.root-servers.net", Addr: "192.5.5.241:53"},
	{Name: "g.root-servers.net", Addr: "192.112.36.4:53"},
	{Name: "h.root-servers.net", Addr: "198.97.190.53:53"},
	{Name: "i.root-servers.net", Addr: "192.36.148.17:53"},
	{Name: "j.root-servers.net", Addr: "192.58.128.30:53"},
	{Name: "k.root-servers.net", Addr: "193.0.14.129:53"},
	{Name: "l.root-servers.net", Addr: "199.7.83.42:53"},
	{Name: "m.root-servers.net", Addr: "202.12.27.33:53"},
}

// rootHintAddrs extracts just the addresses, in order, for seeding the
// first hop of a resolution.
func rootHintAddrs(hints []RootHint) []string {
	addrs := make([]string, len(hints))
	for i, h := range hints {
		addrs[i] = h.Addr
	}
	return addrs
}
