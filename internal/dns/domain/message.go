package domain

import "github.com/valarpirai/rr-dns/internal/dns/common/utils"

// Message is a complete DNS message: a Header plus the four sections
// (RFC 1035 section 4.1). The wire codec is responsible for keeping the
// header's section counts synchronized with these slices on encode, and for
// guaranteeing they already match on successful decode.
type Message struct {
	Header     Header
	Questions  []Question
	Answers    []Record
	Authority  []Record
	Additional []Record
}

// Question0 returns the first question, which is the only one this resolver
// ever answers, and whether one was present.
func (m Message) Question0() (Question, bool) {
	if len(m.Questions) == 0 {
		return Question{}, false
	}
	return m.Questions[0], true
}

// IsDelegation reports whether m looks like a referral: no answers, a
// non-empty authority section (of any record type), and not flagged
// authoritative.
func (m Message) IsDelegation() bool {
	return len(m.Answers) == 0 && len(m.Authority) > 0 && !m.Header.AA
}

// NSNames returns the target names of every NS record in the authority
// section, in order, for referral following.
func (m Message) NSNames() []string {
	var names []string
	for _, rr := range m.Authority {
		if rr.Type == RRTypeNS {
			names = append(names, rr.Text)
		}
	}
	return names
}

// GlueAddresses returns the A-record addresses in the additional section
// whose owner name matches one of nsNames, keyed by nameserver name.
func (m Message) GlueAddresses(nsNames []string) map[string][]string {
	wanted := make(map[string]struct{}, len(nsNames))
	for _, n := range nsNames {
		wanted[utils.CanonicalDNSName(n)] = struct{}{}
	}
	glue := make(map[string][]string)
	for _, rr := range m.Additional {
		if rr.Type != RRTypeA {
			continue
		}
		name := utils.CanonicalDNSName(rr.Name)
		if _, ok := wanted[name]; !ok {
			continue
		}
		glue[name] = append(glue[name], rr.Text)
	}
	return glue
}
