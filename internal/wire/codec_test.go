package wire

import (
	"bytes"
	"testing"

	"go-quorum/internal/ballot"
)

// roundTrip checks the frame round-trip invariant: for every Datagram d
// and every src, decode(encode_with_src(d, src)) == (src, d).
func roundTrip(t *testing.T, src uint64, d Datagram) {
	t.Helper()
	frame, err := EncodeWithSrc(d, src)
	if err != nil {
		t.Fatalf("EncodeWithSrc: %v", err)
	}

	gotSrc, gotD, err := DecodeFrame(bytes.NewReader(frame))
	if err != nil {
		t.Fatalf("DecodeFrame: %v", err)
	}
	if gotSrc != src {
		t.Fatalf("src: got %d, want %d", gotSrc, src)
	}
	if !sameDatagram(gotD, d) {
		t.Fatalf("datagram mismatch: got %#v, want %#v", gotD, d)
	}
}

func sameDatagram(a, b Datagram) bool {
	switch {
	case a.Request != nil && b.Request != nil:
		return a.Request == b.Request
	case a.Response != nil && b.Response != nil:
		return sameResponse(a.Response, b.Response)
	default:
		return false
	}
}

func sameResponse(a, b Response) bool {
	ap, aok := a.(PrepareResponse)
	bp, bok := b.(PrepareResponse)
	if aok && bok {
		if (ap.Accepted == nil) != (bp.Accepted == nil) {
			return false
		}
		if ap.Accepted == nil {
			return true
		}
		return *ap.Accepted == *bp.Accepted
	}
	aq, aok := a.(QueryResponse)
	bq, bok := b.(QueryResponse)
	if aok && bok {
		if (aq.Val == nil) != (bq.Val == nil) {
			return false
		}
		if aq.Val == nil {
			return true
		}
		return *aq.Val == *bq.Val
	}
	return a == b
}

func TestFrameRoundTrip(t *testing.T) {
	seq := ballot.SequenceNumber{TimeStamp: 1234567, ServerID: 3}
	val := Value(42)

	cases := []Datagram{
		AsRequest(Propose{Value: 7}),
		AsRequest(Prepare{Seq: seq}),
		AsRequest(Accept{Seq: seq, Value: 9}),
		AsRequest(Learn{Value: 9}),
		AsRequest(Query{}),
		AsResponse(PrepareResponse{Accepted: nil}),
		AsResponse(PrepareResponse{Accepted: &AcceptedProposal{Seq: seq, Val: 11}}),
		AsResponse(AcceptedResponse{Seq: seq}),
		AsResponse(QueryResponse{Val: nil}),
		AsResponse(QueryResponse{Val: &val}),
	}

	for i, d := range cases {
		roundTrip(t, uint64(i), d)
	}
}

func TestDecodeFrameTruncated(t *testing.T) {
	frame, err := EncodeWithSrc(AsRequest(Propose{Value: 1}), 0)
	if err != nil {
		t.Fatalf("EncodeWithSrc: %v", err)
	}
	// Cut the frame short mid-payload: must be reported as an error, not a
	// silently-accepted partial datagram.
	truncated := frame[:len(frame)-1]
	if _, _, err := DecodeFrame(bytes.NewReader(truncated)); err == nil {
		t.Fatal("expected an error decoding a truncated frame")
	}
}
