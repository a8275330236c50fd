package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessageIsDelegation(t *testing.T) {
	m := Message{
		Authority: []Record{{Name: "example.com", Type: RRTypeNS, Text: "ns1.example.com"}},
	}
	assert.True(t, m.IsDelegation())

	m.Header.AA = true
	assert.False(t, m.IsDelegation())

	m2 := Message{Answers: []Record{{Name: "example.com", Type: RRTypeA}}}
	assert.False(t, m2.IsDelegation())
}

func TestMessageNSNamesAndGlue(t *testing.T) {
	m := Message{
		Authority: []Record{
			{Name: "example.com", Type: RRTypeNS, Text: "ns1.example.com"},
			{Name: "example.com", Type: RRTypeNS, Text: "ns2.example.com"},
		},
		Additional: []Record{
			{Name: "ns1.example.com", Type: RRTypeA, Text: "10.0.0.1"},
			{Name: "ns2.example.com", Type: RRTypeAAAA, Text: "::1"},
			{Name: "unrelated.example.com", Type: RRTypeA, Text: "10.0.0.9"},
		},
	}
	names := m.NSNames()
	assert.Equal(t, []string{"ns1.example.com", "ns2.example.com"}, names)

	glue := m.GlueAddresses(names)
	assert.Equal(t, []string{"10.0.0.1"}, glue["ns1.example.com"])
	_, hasNS2 := glue["ns2.example.com"]
	assert.False(t, hasNS2, "AAAA glue is not an A record and should not match")
}

func TestQuestion0(t *testing.T) {
	m := Message{}
	_, ok := m.Question0()
	assert.False(t, ok)

	m.Questions = []Question{{Name: "example.com", Type: RRTypeA, Class: RRClassIN}}
	q, ok := m.Question0()
	assert.True(t, ok)
	assert.Equal(t, "example.com", q.Name)
}
