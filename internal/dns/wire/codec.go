package wire

import (
	"encoding/binary"
	"fmt"

	"github.com/valarpirai/rr-dns/internal/dns/domain"
)

// headerSize is the fixed 12-octet DNS message header.
const headerSize = 12

// maxUDPMessageSize is the conventional (non-EDNS) UDP payload limit this
// resolver truncates responses to (RFC 1035 section 4.2.1).
const maxUDPMessageSize = 512

// Codec converts between domain.Message values and RFC 1035 wire bytes.
type Codec interface {
	Decode(data []byte) (domain.Message, error)
	Encode(m domain.Message) ([]byte, error)
}

// udpCodec is the sole Codec implementation: a non-compressing encoder and
// a compression-aware decoder, both bounds-checked against adversarial
// input (short buffers, bad pointers, truncated records never panic or
// loop; they return ErrFormat).
type udpCodec struct{}

// NewCodec returns the standard DNS-over-UDP wire codec.
func NewCodec() Codec {
	return udpCodec{}
}

// Decode parses data into a Message. It requires at least a 12-octet
// header and exactly as many questions/records in each section as the
// header's counts declare; any other shape is ErrFormat.
func (udpCodec) Decode(data []byte) (domain.Message, error) {
	if len(data) < headerSize {
		return domain.Message{}, fmt.Errorf("%w: message shorter than header", ErrFormat)
	}

	hdr, err := decodeHeader(data)
	if err != nil {
		return domain.Message{}, err
	}

	offset := headerSize
	questions := make([]domain.Question, 0, hdr.QDCount)
	for i := 0; i < int(hdr.QDCount); i++ {
		q, next, err := decodeQuestion(data, offset)
		if err != nil {
			return domain.Message{}, fmt.Errorf("question %d: %w", i, err)
		}
		questions = append(questions, q)
		offset = next
	}

	answers, offset, err := decodeRecords(data, offset, int(hdr.ANCount))
	if err != nil {
		return domain.Message{}, fmt.Errorf("answer section: %w", err)
	}
	authority, offset, err := decodeRecords(data, offset, int(hdr.NSCount))
	if err != nil {
		return domain.Message{}, fmt.Errorf("authority section: %w", err)
	}
	additional, _, err := decodeRecords(data, offset, int(hdr.ARCount))
	if err != nil {
		return domain.Message{}, fmt.Errorf("additional section: %w", err)
	}

	return domain.Message{
		Header:     hdr,
		Questions:  questions,
		Answers:    answers,
		Authority:  authority,
		Additional: additional,
	}, nil
}

// decodeHeader parses the fixed 12-octet header.
func decodeHeader(data []byte) (domain.Header, error) {
	flags := binary.BigEndian.Uint16(data[2:4])
	return domain.Header{
		ID:      binary.BigEndian.Uint16(data[0:2]),
		QR:      flags&0x8000 != 0,
		Opcode:  uint8(flags>>11) & 0x0F,
		AA:      flags&0x0400 != 0,
		TC:      flags&0x0200 != 0,
		RD:      flags&0x0100 != 0,
		RA:      flags&0x0080 != 0,
		RCode:   domain.RCode(flags & 0x000F),
		QDCount: binary.BigEndian.Uint16(data[4:6]),
		ANCount: binary.BigEndian.Uint16(data[6:8]),
		NSCount: binary.BigEndian.Uint16(data[8:10]),
		ARCount: binary.BigEndian.Uint16(data[10:12]),
	}, nil
}

// decodeQuestion parses one question section entry starting at offset.
func decodeQuestion(data []byte, offset int) (domain.Question, int, error) {
	name, offset, err := decodeName(data, offset)
	if err != nil {
		return domain.Question{}, 0, err
	}
	if offset+4 > len(data) {
		return domain.Question{}, 0, fmt.Errorf("%w: truncated question", ErrFormat)
	}
	qtype := binary.BigEndian.Uint16(data[offset : offset+2])
	qclass := binary.BigEndian.Uint16(data[offset+2 : offset+4])
	return domain.Question{
		Name:  name,
		Type:  domain.RRType(qtype),
		Class: domain.RRClass(qclass),
	}, offset + 4, nil
}

// decodeRecords parses count resource records starting at offset.
func decodeRecords(data []byte, offset, count int) ([]domain.Record, int, error) {
	if count == 0 {
		return nil, offset, nil
	}
	records := make([]domain.Record, 0, count)
	for i := 0; i < count; i++ {
		rr, next, err := decodeRecord(data, offset)
		if err != nil {
			return nil, 0, fmt.Errorf("record %d: %w", i, err)
		}
		records = append(records, rr)
		offset = next
	}
	return records, offset, nil
}

// decodeRecord parses a single resource record starting at offset.
func decodeRecord(data []byte, offset int) (domain.Record, int, error) {
	name, offset, err := decodeName(data, offset)
	if err != nil {
		return domain.Record{}, 0, err
	}
	if offset+10 > len(data) {
		return domain.Record{}, 0, fmt.Errorf("%w: truncated record fixed fields", ErrFormat)
	}
	rrtype := domain.RRType(binary.BigEndian.Uint16(data[offset : offset+2]))
	rrclass := domain.RRClass(binary.BigEndian.Uint16(data[offset+2 : offset+4]))
	ttl := binary.BigEndian.Uint32(data[offset+4 : offset+8])
	rdlen := int(binary.BigEndian.Uint16(data[offset+8 : offset+10]))
	offset += 10

	if offset+rdlen > len(data) {
		return domain.Record{}, 0, fmt.Errorf("%w: truncated rdata", ErrFormat)
	}
	rdata := make([]byte, rdlen)
	copy(rdata, data[offset:offset+rdlen])

	text := decodeRDataText(data, rrtype, offset, rdata)
	offset += rdlen

	return domain.Record{
		Name:  name,
		Type:  rrtype,
		Class: rrclass,
		TTL:   ttl,
		RData: rdata,
		Text:  text,
	}, offset, nil
}

// Encode serializes m. Resource records are encoded in order (answer,
// authority, additional); no name compression is emitted. If the result
// would exceed maxUDPMessageSize, Encode stops at the last resource record
// that fully fits, sets the TC bit, and adjusts the section counts in the
// header to match what was actually written. The TC bit tells the client
// the answer is incomplete; this repository has no TCP transport to retry on.
func (udpCodec) Encode(m domain.Message) ([]byte, error) {
	var questionBuf []byte
	for _, q := range m.Questions {
		qb, err := encodeQuestion(q)
		if err != nil {
			return nil, err
		}
		questionBuf = append(questionBuf, qb...)
	}

	type section struct {
		records []domain.Record
		count   *uint16
	}

	hdr := m.Header
	hdr.QDCount = uint16(len(m.Questions))
	hdr.ANCount = uint16(len(m.Answers))
	hdr.NSCount = uint16(len(m.Authority))
	hdr.ARCount = uint16(len(m.Additional))

	sections := []section{
		{m.Answers, &hdr.ANCount},
		{m.Authority, &hdr.NSCount},
		{m.Additional, &hdr.ARCount},
	}

	var rrBuf []byte
	budget := maxUDPMessageSize - headerSize - len(questionBuf)
	truncated := false

outer:
	for i, sec := range sections {
		written := uint16(0)
		for _, rr := range sec.records {
			rb, err := encodeRecord(rr)
			if err != nil {
				return nil, err
			}
			if len(rrBuf)+len(rb) > budget {
				truncated = true
				*sec.count = written
				// Any section after this one contributes nothing; its
				// count must say so or the header lies about the body.
				for _, rest := range sections[i+1:] {
					*rest.count = 0
				}
				break outer
			}
			rrBuf = append(rrBuf, rb...)
			written++
		}
		*sec.count = written
	}

	if truncated {
		hdr.TC = true
	}

	out := make([]byte, 0, headerSize+len(questionBuf)+len(rrBuf))
	out = append(out, encodeHeader(hdr)...)
	out = append(out, questionBuf...)
	out = append(out, rrBuf...)
	return out, nil
}

// encodeHeader serializes the fixed 12-octet header.
func encodeHeader(h domain.Header) []byte {
	buf := make([]byte, headerSize)
	binary.BigEndian.PutUint16(buf[0:2], h.ID)

	var flags uint16
	if h.QR {
		flags |= 0x8000
	}
	flags |= uint16(h.Opcode&0x0F) << 11
	if h.AA {
		flags |= 0x0400
	}
	if h.TC {
		flags |= 0x0200
	}
	if h.RD {
		flags |= 0x0100
	}
	if h.RA {
		flags |= 0x0080
	}
	flags |= uint16(h.RCode) & 0x000F
	binary.BigEndian.PutUint16(buf[2:4], flags)

	binary.BigEndian.PutUint16(buf[4:6], h.QDCount)
	binary.BigEndian.PutUint16(buf[6:8], h.ANCount)
	binary.BigEndian.PutUint16(buf[8:10], h.NSCount)
	binary.BigEndian.PutUint16(buf[10:12], h.ARCount)
	return buf
}

// encodeQuestion serializes one question section entry.
func encodeQuestion(q domain.Question) ([]byte, error) {
	name, err := encodeName(q.Name)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 0, len(name)+4)
	buf = append(buf, name...)
	tail := make([]byte, 4)
	binary.BigEndian.PutUint16(tail[0:2], uint16(q.Type))
	binary.BigEndian.PutUint16(tail[2:4], uint16(q.Class))
	return append(buf, tail...), nil
}

// encodeRecord serializes one resource record, computing rdlength from the
// encoded rdata.
func encodeRecord(rr domain.Record) ([]byte, error) {
	name, err := encodeName(rr.Name)
	if err != nil {
		return nil, err
	}
	rdata, err := encodeRData(rr)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, 0, len(name)+10+len(rdata))
	buf = append(buf, name...)
	fixed := make([]byte, 10)
	binary.BigEndian.PutUint16(fixed[0:2], uint16(rr.Type))
	binary.BigEndian.PutUint16(fixed[2:4], uint16(rr.Class))
	binary.BigEndian.PutUint32(fixed[4:8], rr.TTL)
	binary.BigEndian.PutUint16(fixed[8:10], uint16(len(rdata)))
	buf = append(buf, fixed...)
	buf = append(buf, rdata...)
	return buf, nil
}

// encodeRData picks the rdata encoder for rr.Type. Record.RData is used
// verbatim for types this resolver does not construct itself (it is only
// ever copied through from an upstream response); Text is the source of
// truth for the types the resolver or cache synthesizes records for.
func encodeRData(rr domain.Record) ([]byte, error) {
	switch rr.Type {
	case domain.RRTypeA:
		return encodeA(rr.Text)
	case domain.RRTypeAAAA:
		return encodeAAAA(rr.Text)
	case domain.RRTypeNS, domain.RRTypeCNAME, domain.RRTypePTR:
		return encodeNameRData(rr.Text)
	case domain.RRTypeMX:
		return encodeMX(rr.Text)
	case domain.RRTypeTXT:
		return encodeTXT(rr.Text)
	default:
		return rr.RData, nil
	}
}
