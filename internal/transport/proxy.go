// Package transport implements the NetworkProxy: the per-replica TCP
// listener and dialer that turns a Replica's Incoming/Outgoing channels
// into frames on the wire, and back.
package transport

import (
	"context"
	"fmt"
	"log"
	"net"
	"time"

	"github.com/google/uuid"

	"go-quorum/internal/paxos"
	"go-quorum/internal/wire"
)

// AddrTable maps a replica id to the TCP address its Proxy listens on.
type AddrTable map[uint64]string

// Proxy owns one replica's network surface: a listener accepting inbound
// frames, and a sender goroutine draining the replica's Outgoing channel
// and opening one fresh connection per destination per datagram - no
// connection pooling or reuse.
type Proxy struct {
	selfID  uint64
	addrs   AddrTable
	connTO  time.Duration
	writeTO time.Duration

	incoming chan<- paxos.Incoming
	outgoing <-chan paxos.Outgoing

	debug bool
}

// NewProxy constructs a Proxy for selfID. incoming is the channel the
// proxy delivers decoded frames to (the replica's own mailbox); outgoing
// is the channel the proxy drains to find frames to send. debug controls
// whether routine transport failures (dial/write/decode drops) are logged.
func NewProxy(selfID uint64, addrs AddrTable, connTO, writeTO time.Duration, incoming chan<- paxos.Incoming, outgoing <-chan paxos.Outgoing, debug bool) *Proxy {
	return &Proxy{
		selfID:   selfID,
		addrs:    addrs,
		connTO:   connTO,
		writeTO:  writeTO,
		incoming: incoming,
		outgoing: outgoing,
		debug:    debug,
	}
}

// Run starts the listener and the outflow pump, and blocks until ctx is
// done or the listener fails. Both halves log under the same bracketed
// tag so a cluster's interleaved logs stay readable.
func (p *Proxy) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", p.addrs[p.selfID])
	if err != nil {
		return fmt.Errorf("proxy #%d: listen on %s: %w", p.selfID, p.addrs[p.selfID], err)
	}
	p.logf("listening on %s", p.addrs[p.selfID])

	go p.serveOutflow(ctx)

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return fmt.Errorf("proxy #%d: accept: %w", p.selfID, err)
			}
		}
		go p.serveInflow(conn)
	}
}

func (p *Proxy) logf(format string, args ...interface{}) {
	log.Printf("[PROXY %d] -> "+format, append([]interface{}{p.selfID}, args...)...)
}

// debugf logs a routine transport failure - a dropped connection, a failed
// dial, a decode error off a misbehaving peer - gated behind the debug
// flag the same way Replica.debugf gates stale protocol messages.
func (p *Proxy) debugf(format string, args ...interface{}) {
	if !p.debug {
		return
	}
	p.logf(format, args...)
}

// serveInflow decodes a stream of frames off one inbound connection,
// delivering each to the replica's mailbox until the peer closes the
// connection or a frame fails to decode. A decode failure is a transport
// error: local, dropped, never propagated to the replica.
func (p *Proxy) serveInflow(conn net.Conn) {
	defer conn.Close()
	id := uuid.New()
	for {
		src, dgram, err := wire.DecodeFrame(conn)
		if err != nil {
			p.debugf("conn %s: closing after decode error: %v", id, err)
			return
		}
		p.incoming <- paxos.Incoming{Src: src, Datagram: dgram}
	}
}

// serveOutflow drains the replica's Outgoing channel; for every
// destination in an Outgoing event it opens a brand-new connection,
// writes exactly one frame, and closes it.
func (p *Proxy) serveOutflow(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case out, ok := <-p.outgoing:
			if !ok {
				return
			}
			frame, err := wire.EncodeWithSrc(out.Datagram, p.selfID)
			if err != nil {
				p.logf("encode failed, dropping outgoing datagram: %v", err)
				continue
			}
			for dst := range out.Dst {
				go p.sendTo(dst, frame)
			}
		}
	}
}

func (p *Proxy) sendTo(dst uint64, frame []byte) {
	id := uuid.New()
	addr, ok := p.addrs[dst]
	if !ok {
		p.debugf("conn %s: no address known for #%d, dropping", id, dst)
		return
	}

	conn, err := net.DialTimeout("tcp", addr, p.connTO)
	if err != nil {
		p.debugf("conn %s: dial #%d at %s failed, dropping: %v", id, dst, addr, err)
		return
	}
	defer conn.Close()

	conn.SetWriteDeadline(time.Now().Add(p.writeTO))
	if _, err := conn.Write(frame); err != nil {
		p.debugf("conn %s: write to #%d failed, dropping: %v", id, dst, err)
	}
}
