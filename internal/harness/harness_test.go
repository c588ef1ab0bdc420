package harness

import (
	"testing"
	"time"
)

func waitUntil(t *testing.T, timeout time.Duration, ok func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if ok() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	if !ok() {
		t.Fatalf("condition not met within %v", timeout)
	}
}

func TestClusterProposeIsLearnedBySelf(t *testing.T) {
	c, err := Start(3, 19527, time.Second, time.Second, true)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer c.Stop()

	// Let every listener finish binding before dialing any of them.
	time.Sleep(50 * time.Millisecond)

	if err := c.Propose(1, 42); err != nil {
		t.Fatalf("Propose: %v", err)
	}

	waitUntil(t, 2*time.Second, func() bool {
		r, ok := c.Replica(1)
		if !ok {
			return false
		}
		v := r.Chosen()
		return v != nil && *v == 42
	})
}

func TestClusterSpawnsClientReplica(t *testing.T) {
	c, err := Start(3, 19627, time.Second, time.Second, true)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer c.Stop()

	if _, ok := c.Replica(clientID); !ok {
		t.Fatal("expected a replica for the client pseudo-id, found none")
	}
}

func TestClusterRejectsUnknownReplica(t *testing.T) {
	c, err := Start(2, 19727, time.Second, time.Second, true)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer c.Stop()

	if err := c.Propose(99, 1); err == nil {
		t.Fatal("expected an error proposing to a replica id outside the cluster")
	}
}

func TestStartRejectsNonPositiveCount(t *testing.T) {
	if _, err := Start(0, 19927, time.Second, time.Second, true); err == nil {
		t.Fatal("expected an error starting a cluster with zero replicas")
	}
}
