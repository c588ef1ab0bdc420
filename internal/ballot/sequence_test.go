package ballot

import "testing"

func TestSequenceNumberOrdersByTimeStampFirst(t *testing.T) {
	a := SequenceNumber{TimeStamp: 1, ServerID: 9}
	b := SequenceNumber{TimeStamp: 2, ServerID: 1}

	if !a.Less(b) {
		t.Fatalf("%v should be less than %v despite the higher server id", a, b)
	}
	if b.Less(a) {
		t.Fatalf("%v should not be less than %v", b, a)
	}
}

func TestSequenceNumberBreaksTiesByServerID(t *testing.T) {
	a := SequenceNumber{TimeStamp: 5, ServerID: 1}
	b := SequenceNumber{TimeStamp: 5, ServerID: 2}

	if !a.Less(b) {
		t.Fatalf("%v should be less than %v on the server id tiebreak", a, b)
	}
	if !a.LessOrEqual(a) {
		t.Fatalf("%v should be <= itself", a)
	}
	if !a.GreaterOrEqual(a) {
		t.Fatalf("%v should be >= itself", a)
	}
}

func TestClockNextIsStrictlyIncreasing(t *testing.T) {
	c := NewClock(7)

	var prev SequenceNumber
	for i := 0; i < 1000; i++ {
		next := c.Next()
		if i > 0 && !prev.Less(next) {
			t.Fatalf("iteration %d: %v did not strictly increase over %v", i, next, prev)
		}
		if next.ServerID != 7 {
			t.Fatalf("ServerID: got %d, want 7", next.ServerID)
		}
		prev = next
	}
}

func TestClockDistinctInstancesCanInterleave(t *testing.T) {
	a := NewClock(1)
	b := NewClock(2)

	seqA := a.Next()
	seqB := b.Next()
	if seqA == seqB {
		t.Fatalf("two clocks with different server ids produced identical ballots: %v", seqA)
	}
}
