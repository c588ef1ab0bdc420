// Package harness assembles a runnable cluster: it builds the address
// table, spawns a Replica and Proxy per id, and exposes the client-side
// operations (propose, query) a single operator shell drives.
package harness

import (
	"context"
	"fmt"
	"net"
	"time"

	"go-quorum/internal/paxos"
	"go-quorum/internal/transport"
	"go-quorum/internal/wire"
)

// clientID is the pseudo-replica id reserved for the operator shell's own
// requests, never assigned to a real replica.
const clientID = 0

// Cluster owns a set of in-process replicas and their proxies, plus a
// lightweight client connection used to issue Propose/Query requests.
type Cluster struct {
	addrs    transport.AddrTable
	cancel   context.CancelFunc
	replicas map[uint64]*paxos.Replica

	connectTimeout time.Duration
	writeTimeout   time.Duration
}

// Start builds a Cluster of n real replicas (ids 1..n), each listening on
// 127.0.0.1:basePort+id, plus one more replica+proxy pair for clientID so
// that query answers unicast back to src 0 have somewhere to land and get
// logged. It wires every
// replica's channels through its own Proxy and launches every replica's
// Run loop and every proxy's Run loop. debug is forwarded to every Replica
// and Proxy, gating their stale-message/transport-drop log lines.
func Start(n int, basePort int, connectTimeout, writeTimeout time.Duration, debug bool) (*Cluster, error) {
	if n <= 0 {
		return nil, fmt.Errorf("harness: replica count must be positive, got %d", n)
	}

	addrs := make(transport.AddrTable, n+1)
	addrs[clientID] = fmt.Sprintf("127.0.0.1:%d", basePort)
	for id := 1; id <= n; id++ {
		addrs[uint64(id)] = fmt.Sprintf("127.0.0.1:%d", basePort+id)
	}

	peers := make(map[uint64]struct{}, n)
	for id := 1; id <= n; id++ {
		peers[uint64(id)] = struct{}{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Cluster{
		addrs:          addrs,
		cancel:         cancel,
		replicas:       make(map[uint64]*paxos.Replica, n+1),
		connectTimeout: connectTimeout,
		writeTimeout:   writeTimeout,
	}

	// clientID gets a replica+proxy too, with the same peer set as every
	// real replica: it never originates a Propose of its own, but its
	// proxy is what receives the Responses other replicas unicast back
	// to src 0, and its replica is what logs them via handleQueryResponse.
	for id := uint64(clientID); id <= uint64(n); id++ {
		id := id
		in := make(chan paxos.Incoming, 256)
		out := make(chan paxos.Outgoing, 256)

		replica := paxos.NewReplica(id, peers, in, out, debug)
		c.replicas[id] = replica

		proxy := transport.NewProxy(id, addrs, connectTimeout, writeTimeout, in, out, debug)
		go func() {
			if err := proxy.Run(ctx); err != nil {
				// The proxy goroutine has no error channel to the
				// shell; a listener failure here is unrecoverable for
				// that replica and gets reported the only way an
				// unattended goroutine can.
				panic(fmt.Sprintf("harness: proxy #%d: %v", id, err))
			}
		}()
		go replica.Run()
	}

	return c, nil
}

// Replica returns the in-process Replica for id, so callers such as tests
// can read its state directly instead of going over the wire.
func (c *Cluster) Replica(id uint64) (*paxos.Replica, bool) {
	r, ok := c.replicas[id]
	return r, ok
}

// Propose dials replica id's proxy directly, as the client pseudo-replica,
// and sends a single Propose frame.
func (c *Cluster) Propose(id uint64, value wire.Value) error {
	return c.sendClientRequest(id, wire.AsRequest(wire.Propose{Value: value}))
}

// Query dials replica id's proxy and sends a single Query frame. This
// connection never reads a Response back; the real query answer arrives
// via clientID's own proxy listener on a later connection (every replica
// unicasts its QueryResponse back to src, which is clientID for a
// client-originated request), and gets logged there by clientID's
// replica, rather than turning the shell into a third party to the wire
// protocol.
func (c *Cluster) Query(id uint64) error {
	return c.sendClientRequest(id, wire.AsRequest(wire.Query{}))
}

func (c *Cluster) sendClientRequest(id uint64, d wire.Datagram) error {
	addr, ok := c.addrs[id]
	if !ok {
		return fmt.Errorf("harness: no replica #%d in this cluster", id)
	}

	frame, err := wire.EncodeWithSrc(d, clientID)
	if err != nil {
		return fmt.Errorf("harness: encoding request for #%d: %w", id, err)
	}

	conn, err := net.DialTimeout("tcp", addr, c.connectTimeout)
	if err != nil {
		return fmt.Errorf("harness: dialing #%d at %s: %w", id, addr, err)
	}
	defer conn.Close()

	if err := conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return fmt.Errorf("harness: setting write deadline: %w", err)
	}
	if _, err := conn.Write(frame); err != nil {
		return fmt.Errorf("harness: writing to #%d: %w", id, err)
	}
	return nil
}

// Stop tears down every replica's proxy listener and outflow pump. The
// replicas themselves sit blocked on their mailbox channel forever; this
// design never explicitly stops Replica.Run - a cluster shuts down by
// process exit, not graceful drain.
func (c *Cluster) Stop() {
	c.cancel()
}
