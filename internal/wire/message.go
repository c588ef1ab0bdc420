// Package wire defines the Paxos datagram types exchanged between replicas
// and their bit-exact binary encoding. This package is the only place the
// wire format is allowed to leak into; everything above it
// (internal/paxos, internal/transport) works in terms of Go structs.
package wire

import "go-quorum/internal/ballot"

// Value is the scalar type Paxos agrees on. The protocol itself is
// value-agnostic; fixing the width here is what makes framing bit-exact.
type Value = uint32

// AcceptedProposal records the highest-numbered proposal a replica has
// accepted so far.
type AcceptedProposal struct {
	Seq ballot.SequenceNumber
	Val Value
}

// Request is the sum type of all proposer/client-facing requests. The
// concrete types below are its only variants; a type switch over Request
// must be exhaustive (enforced by the unexported marker method).
type Request interface {
	request()
}

// Propose asks the receiving replica to drive value through Paxos.
type Propose struct {
	Value Value
}

// Prepare is phase-1 of Paxos: "promise not to accept below Seq".
type Prepare struct {
	Seq ballot.SequenceNumber
}

// Accept is phase-2 of Paxos: "accept Value under Seq".
type Accept struct {
	Seq   ballot.SequenceNumber
	Value Value
}

// Learn announces that Value has been chosen.
type Learn struct {
	Value Value
}

// Query asks the receiving replica what (if anything) it has learned.
type Query struct{}

func (Propose) request() {}
func (Prepare) request() {}
func (Accept) request()  {}
func (Learn) request()   {}
func (Query) request()   {}

// Response is the sum type of all acceptor/learner-facing replies.
type Response interface {
	response()
}

// PrepareResponse is a Promise: Accepted is nil if the replica has never
// accepted a proposal for this round, otherwise it carries the
// highest-numbered one the replica remembers.
type PrepareResponse struct {
	Accepted *AcceptedProposal
}

// AcceptedResponse confirms an Accept request was honored for Seq.
type AcceptedResponse struct {
	Seq ballot.SequenceNumber
}

// QueryResponse answers a Query; Val is nil if nothing has been chosen yet.
type QueryResponse struct {
	Val *Value
}

func (PrepareResponse) response()  {}
func (AcceptedResponse) response() {}
func (QueryResponse) response()    {}

// Datagram is the top-level tagged union carried inside every frame: it is
// either a Request or a Response, never both.
type Datagram struct {
	Request  Request
	Response Response
}

// AsRequest wraps req as a Datagram.
func AsRequest(req Request) Datagram { return Datagram{Request: req} }

// AsResponse wraps resp as a Datagram.
func AsResponse(resp Response) Datagram { return Datagram{Response: resp} }

// IsRequest reports whether the Datagram carries a Request.
func (d Datagram) IsRequest() bool { return d.Request != nil }
