package paxos

import (
	"fmt"
	"log"
	"sync/atomic"

	"go-quorum/internal/ballot"
	"go-quorum/internal/wire"
)

// Replica realizes all three Paxos roles - proposer, acceptor, learner -
// for one process. It consumes Incoming events from a single channel and
// produces Outgoing events on another; every mutation of its state happens
// on the goroutine running Run, so there is no locking inside the replica
// (single-writer discipline).
type Replica struct {
	selfID  uint64
	peersID map[uint64]struct{}
	clock   *ballot.Clock

	// lastPromised, lastAcceptedProposal and chosen are mutated only from
	// Run's goroutine, same as every other field on Replica - but unlike
	// the rest, they are also read from other goroutines (tests, status
	// reporting) via the accessors below, so they're atomic.Pointer rather
	// than plain fields. proposal stays a plain field: nothing outside
	// Run ever touches it.
	lastPromised         atomic.Pointer[ballot.SequenceNumber]
	lastAcceptedProposal atomic.Pointer[wire.AcceptedProposal]
	chosen               atomic.Pointer[wire.Value]
	proposal             *proposal

	incoming <-chan Incoming
	outgoing chan<- Outgoing

	debug bool
}

// NewReplica constructs a Replica for selfID whose peer set (the
// broadcast/learn destination set) is peersID. peersID must include
// selfID for the replica to ever learn its own chosen value. debug
// controls whether stale/ignored protocol messages are logged.
func NewReplica(selfID uint64, peersID map[uint64]struct{}, incoming <-chan Incoming, outgoing chan<- Outgoing, debug bool) *Replica {
	return &Replica{
		selfID:   selfID,
		peersID:  peersID,
		clock:    ballot.NewClock(selfID),
		incoming: incoming,
		outgoing: outgoing,
		debug:    debug,
	}
}

// Run drains the incoming mailbox until it is closed, handling one event
// to completion before dequeuing the next. It never suspends mid-handler;
// the only blocking points are the channel receive here and the send in
// r.send, both of which are safe suspension points.
func (r *Replica) Run() {
	for in := range r.incoming {
		r.handleIncoming(in)
	}
}

func (r *Replica) logf(format string, args ...interface{}) {
	log.Printf("[REPLICA %d] -> "+format, append([]interface{}{r.selfID}, args...)...)
}

// debugf logs a stale/ignored protocol message - one the replica silently
// discards as a matter of course, not a change in visible state - gated
// behind the debug flag so an "info"-level run stays quiet about them.
func (r *Replica) debugf(format string, args ...interface{}) {
	if !r.debug {
		return
	}
	r.logf(format, args...)
}

// fatal aborts the process on a structural protocol invariant violation:
// these indicate a bug, not adversarial input, and this design makes no
// attempt to recover from them.
func (r *Replica) fatal(format string, args ...interface{}) {
	log.Fatalf("[REPLICA %d] FATAL -> "+format, append([]interface{}{r.selfID}, args...)...)
}

func (r *Replica) quorum() int {
	return len(r.peersID)/2 + 1
}

func (r *Replica) send(out Outgoing) {
	r.outgoing <- out
}

func (r *Replica) handleIncoming(in Incoming) {
	if in.Datagram.IsRequest() {
		r.handleRequest(in.Src, in.Datagram.Request)
	} else {
		r.handleResponse(in.Src, in.Datagram.Response)
	}
}

// handleRequest implements the acceptor, learner and proposer-intake
// behaviours.
func (r *Replica) handleRequest(src uint64, req wire.Request) {
	switch m := req.(type) {
	case wire.Prepare:
		r.handlePrepare(src, m)
	case wire.Accept:
		r.handleAccept(src, m)
	case wire.Learn:
		r.handleLearn(m)
	case wire.Propose:
		r.handlePropose(m)
	case wire.Query:
		r.handleQuery(src)
	default:
		r.fatal("unhandled request variant %T", req)
	}
}

func (r *Replica) handlePrepare(src uint64, m wire.Prepare) {
	promised := r.lastPromised.Load()
	if promised == nil || promised.LessOrEqual(m.Seq) {
		seq := m.Seq
		r.lastPromised.Store(&seq)
		r.send(unicast(src, wire.AsResponse(wire.PrepareResponse{Accepted: r.lastAcceptedProposal.Load()})))
		return
	}
	r.debugf("ignoring Prepare%v from #%d below last_promised %v", m.Seq, src, *promised)
}

func (r *Replica) handleAccept(src uint64, m wire.Accept) {
	promised := r.lastPromised.Load()
	if promised == nil || promised.LessOrEqual(m.Seq) {
		r.lastAcceptedProposal.Store(&wire.AcceptedProposal{Seq: m.Seq, Val: m.Value})
		r.send(unicast(src, wire.AsResponse(wire.AcceptedResponse{Seq: m.Seq})))
		return
	}
	r.debugf("ignoring Accept%v from #%d below last_promised %v", m.Seq, src, *promised)
}

func (r *Replica) handleLearn(m wire.Learn) {
	if chosen := r.chosen.Load(); chosen != nil {
		if *chosen != m.Value {
			r.fatal("Learn carries %d but %d was already chosen", m.Value, *chosen)
		}
		return
	}
	v := m.Value
	r.chosen.Store(&v)
	r.logf("learned %d", v)
}

func (r *Replica) handlePropose(m wire.Propose) {
	if chosen := r.chosen.Load(); chosen != nil {
		if *chosen == m.Value {
			r.logf("propose(%d): already chosen, matches", m.Value)
		} else {
			r.logf("propose(%d): already chosen %d, dropping", m.Value, *chosen)
		}
		return
	}

	seq := r.clock.Next()
	r.proposal = newProposal(seq, m.Value)
	r.logf("propose(%d): starting ballot %v", m.Value, seq)
	r.send(broadcast(r.peersID, wire.AsRequest(wire.Prepare{Seq: seq})))
}

func (r *Replica) handleQuery(src uint64) {
	r.send(unicast(src, wire.AsResponse(wire.QueryResponse{Val: r.chosen.Load()})))
}

// handleResponse implements the proposer-side reaction to Promise/Accepted
// replies.
func (r *Replica) handleResponse(src uint64, resp wire.Response) {
	switch m := resp.(type) {
	case wire.PrepareResponse:
		r.handlePrepareResponse(src, m)
	case wire.AcceptedResponse:
		r.handleAcceptedResponse(src, m)
	case wire.QueryResponse:
		r.handleQueryResponse(src, m)
	default:
		r.fatal("unhandled response variant %T", resp)
	}
}

func (r *Replica) handlePrepareResponse(src uint64, m wire.PrepareResponse) {
	p := r.proposal
	if p == nil {
		r.fatal("received a Promise from #%d with no active proposal", src)
	}

	p.prepared[src] = struct{}{}
	if m.Accepted != nil {
		p.adopt(*m.Accepted)
	}

	if !p.acceptSent && len(p.prepared) >= r.quorum() {
		p.acceptSent = true
		value := p.resolvedValue()
		p.value = &value
		r.logf("prepare quorum reached for %v, accepting value %d", p.seq, value)
		r.send(broadcast(r.peersID, wire.AsRequest(wire.Accept{Seq: p.seq, Value: value})))
	}
}

func (r *Replica) handleAcceptedResponse(src uint64, m wire.AcceptedResponse) {
	p := r.proposal
	if p == nil || p.seq != m.Seq {
		r.debugf("dropping stale Accepted%v from #%d", m.Seq, src)
		return
	}

	p.accepted[src] = struct{}{}
	if !p.learnSent && len(p.accepted) >= r.quorum() {
		p.learnSent = true
		value := p.resolvedValue()
		r.logf("accept quorum reached for %v, learning value %d", p.seq, value)
		r.send(broadcast(r.peersID, wire.AsRequest(wire.Learn{Value: value})))
	}
}

func (r *Replica) handleQueryResponse(src uint64, m wire.QueryResponse) {
	if m.Val != nil {
		r.logf("query answer from #%d: %d", src, *m.Val)
	} else {
		r.logf("query answer from #%d: no value learned yet", src)
	}
}

// String implements fmt.Stringer for debug logging of replica snapshots.
func (r *Replica) String() string {
	return fmt.Sprintf("replica#%d{promised=%v accepted=%v chosen=%v}",
		r.selfID, r.lastPromised.Load(), r.lastAcceptedProposal.Load(), r.chosen.Load())
}

// Chosen reports the value this replica has learned, if any. Safe to call
// concurrently with Run, unlike the rest of Replica's state.
func (r *Replica) Chosen() *wire.Value {
	return r.chosen.Load()
}

// LastPromised exposes the acceptor's highest promise, for tests and status
// reporting. Safe to call concurrently with Run.
func (r *Replica) LastPromised() *ballot.SequenceNumber {
	return r.lastPromised.Load()
}

// LastAcceptedProposal exposes the acceptor's last accepted proposal, for
// tests and status reporting. Safe to call concurrently with Run.
func (r *Replica) LastAcceptedProposal() *wire.AcceptedProposal {
	return r.lastAcceptedProposal.Load()
}
