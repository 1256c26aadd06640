// Copyright 2024 Anapaya Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package transport provides the QUIC peer transport of the rendezvous
// server. It accepts peer connections, allocates a stable opaque identity
// per connection, and surfaces connection lifecycle and received message
// frames as an ordered event stream.
package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/quic-go/quic-go"

	"github.com/starmapnet/starmap/pkg/log"
	"github.com/starmapnet/starmap/pkg/private/serrors"
	"github.com/starmapnet/starmap/pkg/rendezvous/protocol"
)

// PeerID identifies a connected peer. IDs are allocated monotonically and
// never reused for the lifetime of the server, so a disconnect event cannot
// be attributed to a later connection.
type PeerID uint64

// EventKind discriminates transport events.
type EventKind int

const (
	// EventConnect indicates a peer completed the handshake and opened its
	// message stream.
	EventConnect EventKind = iota
	// EventReceive indicates a message frame arrived from a peer.
	EventReceive
	// EventDisconnect indicates a peer connection was torn down. It is the
	// last event emitted for a peer.
	EventDisconnect
)

func (k EventKind) String() string {
	switch k {
	case EventConnect:
		return "connect"
	case EventReceive:
		return "receive"
	case EventDisconnect:
		return "disconnect"
	default:
		return "unknown"
	}
}

// Event is a single transport occurrence. Events of one peer are delivered
// in the order they happened; events of different peers are interleaved
// arbitrarily.
type Event struct {
	Kind EventKind
	// Peer identifies the connection the event belongs to.
	Peer PeerID
	// Address is the remote network address of the peer in host:port form.
	Address string
	// Payload is the received message. It is only set for receive events.
	Payload []byte
}

const (
	// eventBacklog bounds the number of undelivered events before connection
	// readers block.
	eventBacklog = 64
	// defaultIdleTimeout is how long a silent connection is retained before
	// the peer counts as gone. Heartbeating peers refresh it continuously.
	defaultIdleTimeout = 5 * time.Minute
	// errCodeShutdown is signaled to peers when the server tears down their
	// connection during shutdown.
	errCodeShutdown = quic.ApplicationErrorCode(0x10)
)

// Server accepts QUIC connections from rendezvous peers. Each peer speaks
// the framed rendezvous protocol over a single bidirectional stream. The
// server does not interpret payloads; it forwards them as events.
type Server struct {
	listener *quic.Listener

	// ctx is canceled on Close and releases every connection goroutine,
	// including ones still waiting for their peer to open a stream.
	ctx    context.Context
	cancel context.CancelFunc

	mtx    sync.Mutex
	peers  map[PeerID]*peer
	nextID PeerID
	closed bool

	events chan Event
	wg     sync.WaitGroup
}

type peer struct {
	id      PeerID
	address string
	conn    quic.Connection
	stream  quic.Stream
}

// Listen opens the rendezvous endpoint on the given UDP address. The
// returned server does not accept connections until Serve is called.
func Listen(laddr *net.UDPAddr, tlsConfig *tls.Config, quicConfig *quic.Config) (*Server, error) {
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, serrors.Wrap("opening UDP socket", err, "addr", laddr)
	}
	if quicConfig == nil {
		quicConfig = &quic.Config{MaxIdleTimeout: defaultIdleTimeout}
	}
	listener, err := quic.Listen(conn, tlsConfig, quicConfig)
	if err != nil {
		conn.Close()
		return nil, serrors.Wrap("listening QUIC", err, "addr", laddr)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		listener: listener,
		ctx:      ctx,
		cancel:   cancel,
		peers:    make(map[PeerID]*peer),
		events:   make(chan Event, eventBacklog),
	}, nil
}

// LocalAddr returns the address the server listens on.
func (s *Server) LocalAddr() net.Addr {
	return s.listener.Addr()
}

// Events returns the channel on which transport events are delivered. The
// channel is never closed; consumers stop reading when they shut the server
// down.
func (s *Server) Events() <-chan Event {
	return s.events
}

// Serve accepts peer connections until the server is closed. It blocks and
// only returns on a fatal listener error, or nil after Close.
func (s *Server) Serve() error {
	for {
		conn, err := s.listener.Accept(s.ctx)
		if err != nil {
			if errors.Is(err, quic.ErrServerClosed) || s.isClosed() {
				return nil
			}
			return serrors.Wrap("accepting connection", err)
		}
		s.wg.Add(1)
		go func() {
			defer log.HandlePanic()
			defer s.wg.Done()
			s.serveConn(conn)
		}()
	}
}

// serveConn drives a single peer connection: it waits for the peer to open
// its message stream, registers the peer, and then pumps received frames
// into the event channel until the connection dies.
func (s *Server) serveConn(conn quic.Connection) {
	stream, err := conn.AcceptStream(s.ctx)
	if err != nil {
		log.Debug("Peer vanished before opening a stream",
			"remote", conn.RemoteAddr(), "err", err)
		return
	}
	p, ok := s.addPeer(conn, stream)
	if !ok {
		conn.CloseWithError(errCodeShutdown, "server shutting down")
		return
	}
	s.emit(Event{Kind: EventConnect, Peer: p.id, Address: p.address})
	for {
		payload, err := protocol.ReadFrame(stream)
		if err != nil {
			log.Debug("Peer stream closed", "peer", p.id, "err", err)
			break
		}
		if !s.emit(Event{
			Kind:    EventReceive,
			Peer:    p.id,
			Address: p.address,
			Payload: payload,
		}) {
			break
		}
	}
	s.removePeer(p.id)
	conn.CloseWithError(errCodeShutdown, "")
	s.emit(Event{Kind: EventDisconnect, Peer: p.id, Address: p.address})
}

// Send delivers a message frame to the identified peer. Delivery is best
// effort: an error means the peer is gone or the stream is broken, and the
// caller is expected to log and move on.
func (s *Server) Send(id PeerID, payload []byte) error {
	s.mtx.Lock()
	p, ok := s.peers[id]
	s.mtx.Unlock()
	if !ok {
		return serrors.New("peer not connected", "peer", id)
	}
	if err := protocol.WriteFrame(p.stream, payload); err != nil {
		return serrors.Wrap("writing frame", err, "peer", id)
	}
	return nil
}

// Close tears down the listener and all peer connections. It is safe to
// call multiple times.
func (s *Server) Close() error {
	s.mtx.Lock()
	if s.closed {
		s.mtx.Unlock()
		return nil
	}
	s.closed = true
	peers := make([]*peer, 0, len(s.peers))
	for _, p := range s.peers {
		peers = append(peers, p)
	}
	s.mtx.Unlock()

	s.cancel()
	for _, p := range peers {
		p.conn.CloseWithError(errCodeShutdown, "server shutting down")
	}
	err := s.listener.Close()
	s.wg.Wait()
	return err
}

// emit delivers an event unless the server is shutting down. It reports
// whether the event was delivered.
func (s *Server) emit(ev Event) bool {
	select {
	case s.events <- ev:
		return true
	case <-s.ctx.Done():
		return false
	}
}

func (s *Server) addPeer(conn quic.Connection, stream quic.Stream) (*peer, bool) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if s.closed {
		return nil, false
	}
	s.nextID++
	p := &peer{
		id:      s.nextID,
		address: conn.RemoteAddr().String(),
		conn:    conn,
		stream:  stream,
	}
	s.peers[p.id] = p
	return p, true
}

func (s *Server) removePeer(id PeerID) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	delete(s.peers, id)
}

func (s *Server) isClosed() bool {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.closed
}
