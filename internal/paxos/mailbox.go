// Package paxos implements the replica state machine: one process playing
// all three Paxos roles (proposer, acceptor, learner) for a single replica,
// communicating with its network proxy only through two channels.
package paxos

import "go-quorum/internal/wire"

// Incoming is a decoded frame handed from the network proxy to the
// replica's mailbox.
type Incoming struct {
	Src     uint64
	Datagram wire.Datagram
}

// Outgoing is a datagram the replica wants delivered to every replica id in
// Dst. The proxy is responsible for turning each destination into its own
// outbound connection.
type Outgoing struct {
	Dst      map[uint64]struct{}
	Datagram wire.Datagram
}

// unicast builds an Outgoing addressed to a single destination.
func unicast(dst uint64, d wire.Datagram) Outgoing {
	return Outgoing{Dst: map[uint64]struct{}{dst: {}}, Datagram: d}
}

// broadcast builds an Outgoing addressed to every id in peers.
func broadcast(peers map[uint64]struct{}, d wire.Datagram) Outgoing {
	dst := make(map[uint64]struct{}, len(peers))
	for id := range peers {
		dst[id] = struct{}{}
	}
	return Outgoing{Dst: dst, Datagram: d}
}
