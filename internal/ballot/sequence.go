// Package ballot implements the totally ordered ballot identifier used to
// order competing Paxos rounds.
package ballot

import (
	"fmt"
	"sync/atomic"
	"time"
)

// SequenceNumber is the Paxos ballot number: a (time_stamp, server_id) pair,
// compared time_stamp-first with server_id breaking ties.
//
// A time_stamp this wide could in principle go up to 128 bits; this
// implementation uses a 64-bit millisecond clock reading paired with a
// per-replica monotonic counter (see Clock below) to guarantee strict
// local advancement without needing a wider integer - any two ballots
// emitted by the same replica are distinguishable even if read within the
// same millisecond.
type SequenceNumber struct {
	TimeStamp uint64
	ServerID  uint64
}

// Less reports whether seq precedes other in the ballot's total order.
func (seq SequenceNumber) Less(other SequenceNumber) bool {
	if seq.TimeStamp != other.TimeStamp {
		return seq.TimeStamp < other.TimeStamp
	}
	return seq.ServerID < other.ServerID
}

// LessOrEqual reports seq <= other under the total order.
func (seq SequenceNumber) LessOrEqual(other SequenceNumber) bool {
	return seq == other || seq.Less(other)
}

// GreaterOrEqual reports seq >= other under the total order.
func (seq SequenceNumber) GreaterOrEqual(other SequenceNumber) bool {
	return seq == other || other.Less(seq)
}

func (seq SequenceNumber) String() string {
	return fmt.Sprintf("(%d@%d)", seq.TimeStamp, seq.ServerID)
}

// Clock hands out strictly increasing SequenceNumbers for one replica.
// Reading time.Now() twice in the same millisecond would otherwise produce
// two ballots with an identical time_stamp from the same server_id, which
// would break ballot uniqueness; Clock guards against that by bumping the
// previous reading by one when the wall clock hasn't moved.
type Clock struct {
	serverID uint64
	last     uint64 // atomic: last time_stamp handed out
}

// NewClock returns a Clock that stamps ballots with serverID.
func NewClock(serverID uint64) *Clock {
	return &Clock{serverID: serverID}
}

// Next returns a fresh SequenceNumber, strictly greater than every
// SequenceNumber previously returned by this Clock.
func (c *Clock) Next() SequenceNumber {
	now := uint64(time.Now().UnixMilli())
	for {
		prev := atomic.LoadUint64(&c.last)
		next := now
		if next <= prev {
			next = prev + 1
		}
		if atomic.CompareAndSwapUint64(&c.last, prev, next) {
			return SequenceNumber{TimeStamp: next, ServerID: c.serverID}
		}
	}
}
