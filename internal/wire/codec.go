package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"go-quorum/internal/ballot"
)

// Discriminant bytes for the Datagram union.
const (
	tagDatagramRequest  byte = 0
	tagDatagramResponse byte = 1
)

// Discriminant bytes for the Request union.
const (
	tagRequestPropose byte = 0
	tagRequestPrepare byte = 1
	tagRequestAccept  byte = 2
	tagRequestLearn   byte = 3
	tagRequestQuery   byte = 4
)

// Discriminant bytes for the Response union.
const (
	tagResponsePrepare  byte = 0
	tagResponseAccepted byte = 1
	tagResponseQuery    byte = 2
)

const (
	present byte = 1
	absent  byte = 0
)

// frameHeaderLen is the size, in bytes, of the two big-endian uint64 fields
// ahead of every frame's payload: the source replica id and the payload
// length.
const frameHeaderLen = 16

// EncodeWithSrc serializes d into a self-delimited frame whose header
// names src as the sending replica. This is the only encoding function the
// transport layer calls; everything else in this package exists to support
// it (and its inverse, DecodeFrame).
func EncodeWithSrc(d Datagram, src uint64) ([]byte, error) {
	payload, err := encodePayload(d)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, frameHeaderLen+len(payload))
	binary.BigEndian.PutUint64(buf[0:8], src)
	binary.BigEndian.PutUint64(buf[8:16], uint64(len(payload)))
	copy(buf[16:], payload)
	return buf, nil
}

// DecodeFrame reads exactly one frame from r: the 16-byte header followed
// by its payload. It returns io.EOF only when zero bytes of a new frame
// were read; a frame truncated partway through is a transport error, not a
// clean end-of-stream (the connection is assumed to have died mid-write).
func DecodeFrame(r io.Reader) (src uint64, d Datagram, err error) {
	var header [frameHeaderLen]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return 0, Datagram{}, err
	}
	src = binary.BigEndian.Uint64(header[0:8])
	length := binary.BigEndian.Uint64(header[8:16])

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return 0, Datagram{}, fmt.Errorf("wire: truncated frame: %w", err)
	}

	d, err = decodePayload(payload)
	if err != nil {
		return 0, Datagram{}, err
	}
	return src, d, nil
}

func encodePayload(d Datagram) ([]byte, error) {
	buf := new(bytes.Buffer)
	switch {
	case d.Request != nil:
		buf.WriteByte(tagDatagramRequest)
		if err := encodeRequest(buf, d.Request); err != nil {
			return nil, err
		}
	case d.Response != nil:
		buf.WriteByte(tagDatagramResponse)
		if err := encodeResponse(buf, d.Response); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("wire: empty datagram (neither request nor response)")
	}
	return buf.Bytes(), nil
}

func decodePayload(payload []byte) (Datagram, error) {
	r := bytes.NewReader(payload)
	tag, err := r.ReadByte()
	if err != nil {
		return Datagram{}, fmt.Errorf("wire: empty payload: %w", err)
	}
	switch tag {
	case tagDatagramRequest:
		req, err := decodeRequest(r)
		if err != nil {
			return Datagram{}, err
		}
		return AsRequest(req), nil
	case tagDatagramResponse:
		resp, err := decodeResponse(r)
		if err != nil {
			return Datagram{}, err
		}
		return AsResponse(resp), nil
	default:
		return Datagram{}, fmt.Errorf("wire: unknown datagram tag %d", tag)
	}
}

func encodeRequest(buf *bytes.Buffer, req Request) error {
	switch r := req.(type) {
	case Propose:
		buf.WriteByte(tagRequestPropose)
		return binary.Write(buf, binary.LittleEndian, r.Value)
	case Prepare:
		buf.WriteByte(tagRequestPrepare)
		return encodeSeq(buf, r.Seq)
	case Accept:
		buf.WriteByte(tagRequestAccept)
		if err := encodeSeq(buf, r.Seq); err != nil {
			return err
		}
		return binary.Write(buf, binary.LittleEndian, r.Value)
	case Learn:
		buf.WriteByte(tagRequestLearn)
		return binary.Write(buf, binary.LittleEndian, r.Value)
	case Query:
		buf.WriteByte(tagRequestQuery)
		return nil
	default:
		return fmt.Errorf("wire: unknown request variant %T", req)
	}
}

func decodeRequest(r *bytes.Reader) (Request, error) {
	tag, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	switch tag {
	case tagRequestPropose:
		v, err := readValue(r)
		return Propose{Value: v}, err
	case tagRequestPrepare:
		seq, err := decodeSeq(r)
		return Prepare{Seq: seq}, err
	case tagRequestAccept:
		seq, err := decodeSeq(r)
		if err != nil {
			return nil, err
		}
		v, err := readValue(r)
		return Accept{Seq: seq, Value: v}, err
	case tagRequestLearn:
		v, err := readValue(r)
		return Learn{Value: v}, err
	case tagRequestQuery:
		return Query{}, nil
	default:
		return nil, fmt.Errorf("wire: unknown request tag %d", tag)
	}
}

func encodeResponse(buf *bytes.Buffer, resp Response) error {
	switch r := resp.(type) {
	case PrepareResponse:
		buf.WriteByte(tagResponsePrepare)
		return encodeOptAcceptedProposal(buf, r.Accepted)
	case AcceptedResponse:
		buf.WriteByte(tagResponseAccepted)
		return encodeSeq(buf, r.Seq)
	case QueryResponse:
		buf.WriteByte(tagResponseQuery)
		return encodeOptValue(buf, r.Val)
	default:
		return fmt.Errorf("wire: unknown response variant %T", resp)
	}
}

func decodeResponse(r *bytes.Reader) (Response, error) {
	tag, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	switch tag {
	case tagResponsePrepare:
		ap, err := decodeOptAcceptedProposal(r)
		return PrepareResponse{Accepted: ap}, err
	case tagResponseAccepted:
		seq, err := decodeSeq(r)
		return AcceptedResponse{Seq: seq}, err
	case tagResponseQuery:
		v, err := decodeOptValue(r)
		return QueryResponse{Val: v}, err
	default:
		return nil, fmt.Errorf("wire: unknown response tag %d", tag)
	}
}

func encodeSeq(buf *bytes.Buffer, seq ballot.SequenceNumber) error {
	if err := binary.Write(buf, binary.LittleEndian, seq.TimeStamp); err != nil {
		return err
	}
	return binary.Write(buf, binary.LittleEndian, seq.ServerID)
}

func decodeSeq(r *bytes.Reader) (ballot.SequenceNumber, error) {
	var ts, id uint64
	if err := binary.Read(r, binary.LittleEndian, &ts); err != nil {
		return ballot.SequenceNumber{}, err
	}
	if err := binary.Read(r, binary.LittleEndian, &id); err != nil {
		return ballot.SequenceNumber{}, err
	}
	return ballot.SequenceNumber{TimeStamp: ts, ServerID: id}, nil
}

func encodeOptAcceptedProposal(buf *bytes.Buffer, ap *AcceptedProposal) error {
	if ap == nil {
		buf.WriteByte(absent)
		return nil
	}
	buf.WriteByte(present)
	if err := encodeSeq(buf, ap.Seq); err != nil {
		return err
	}
	return binary.Write(buf, binary.LittleEndian, ap.Val)
}

func decodeOptAcceptedProposal(r *bytes.Reader) (*AcceptedProposal, error) {
	flag, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	if flag == absent {
		return nil, nil
	}
	seq, err := decodeSeq(r)
	if err != nil {
		return nil, err
	}
	val, err := readValue(r)
	if err != nil {
		return nil, err
	}
	return &AcceptedProposal{Seq: seq, Val: val}, nil
}

func encodeOptValue(buf *bytes.Buffer, v *Value) error {
	if v == nil {
		buf.WriteByte(absent)
		return nil
	}
	buf.WriteByte(present)
	return binary.Write(buf, binary.LittleEndian, *v)
}

func decodeOptValue(r *bytes.Reader) (*Value, error) {
	flag, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	if flag == absent {
		return nil, nil
	}
	v, err := readValue(r)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func readValue(r *bytes.Reader) (Value, error) {
	var v Value
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}
