package paxos

import (
	"go-quorum/internal/ballot"
	"go-quorum/internal/wire"
)

// proposal is the proposer-side working state for one active ballot. A
// replica has at most one of these at a time; a new Propose replaces it
// outright.
type proposal struct {
	seq       ballot.SequenceNumber
	wantValue wire.Value

	// value is the value this proposer will actually drive through
	// Accept. It starts unset (nil) and is set only once a Promise
	// carries a prior AcceptedProposal - adopting the value
	// belonging to the highest-numbered such proposal seen so far. If no
	// promise ever carries one, it defaults to wantValue when the Accept
	// phase begins.
	value *wire.Value

	// highestAcceptedSeq tracks the highest AcceptedProposal.Seq observed
	// among Promise responses so far, so later Promises carrying a lower
	// one don't clobber an already-adopted value.
	highestAcceptedSeq *ballot.SequenceNumber

	prepared map[uint64]struct{}
	accepted map[uint64]struct{}

	// acceptSent / learnSent latch the majority-reached transitions so
	// each only fires once per proposal, even though |prepared| and
	// |accepted| keep growing afterward.
	acceptSent bool
	learnSent  bool
}

func newProposal(seq ballot.SequenceNumber, wantValue wire.Value) *proposal {
	return &proposal{
		seq:       seq,
		wantValue: wantValue,
		prepared:  make(map[uint64]struct{}),
		accepted:  make(map[uint64]struct{}),
	}
}

// resolvedValue returns the value to drive through Accept: the adopted
// value if a promise carried one, else wantValue.
func (p *proposal) resolvedValue() wire.Value {
	if p.value != nil {
		return *p.value
	}
	return p.wantValue
}

// adopt applies the "adopt the value carried by the highest-numbered
// accepted proposal seen among promises" rule.
func (p *proposal) adopt(ap wire.AcceptedProposal) {
	if p.highestAcceptedSeq != nil && !ap.Seq.GreaterOrEqual(*p.highestAcceptedSeq) {
		return
	}
	seq := ap.Seq
	val := ap.Val
	p.highestAcceptedSeq = &seq
	p.value = &val
}
