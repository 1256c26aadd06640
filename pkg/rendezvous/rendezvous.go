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

// Package rendezvous provides the client of the rendezvous directory server.
//
// A game host advertises the system it runs under a name and keeps the
// record alive with heartbeats; the server drops the record when the host
// deadvertises, disconnects, or falls silent for too long. Players resolve
// names to addresses with Find. All operations of a Conn share one stream to
// the server and are serialized.
package rendezvous

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/netip"
	"sync"
	"time"

	"github.com/quic-go/quic-go"

	"github.com/starmapnet/starmap/pkg/private/serrors"
	"github.com/starmapnet/starmap/pkg/rendezvous/protocol"
)

const (
	// DefaultPort is the port the rendezvous server listens on when no other
	// port is configured.
	DefaultPort = 60939
	// DefaultServerAddress is the address clients dial when no server
	// address is configured.
	DefaultServerAddress = "127.0.0.1:60939"
	// DefaultHeartbeatInterval is the interval between the heartbeats of a
	// hosting session. It leaves a hosting client several attempts before
	// the server considers the record expired.
	DefaultHeartbeatInterval = 30 * time.Second

	// defaultAckWait bounds the wait for acknowledgements that the server
	// answers with silence if the sender does not own the record.
	defaultAckWait = 3 * time.Second
	// keepAlivePeriod keeps idle hosting connections from running into the
	// idle timeout of the server between heartbeats.
	keepAlivePeriod = 15 * time.Second

	errCodeDone = quic.ApplicationErrorCode(0)
)

// Conn is a connection to a rendezvous server. It is safe for concurrent
// use.
type Conn struct {
	conn   quic.Connection
	pconn  net.PacketConn
	stream quic.Stream
	mtx    sync.Mutex
}

// Dial connects to the rendezvous server at address. The connection stays
// open until Close is called; the server drops all records advertised on it
// when it goes away.
func Dial(ctx context.Context, address string) (*Conn, error) {
	return DialFrom(ctx, netip.Addr{}, address)
}

// DialFrom is like Dial but binds the sending endpoint to the given local
// IP. The server stores the address it observes, so a multihomed host uses
// this to choose the interface its records name. A zero IP leaves the
// choice to the operating system.
func DialFrom(ctx context.Context, local netip.Addr, address string) (*Conn, error) {
	raddr, err := net.ResolveUDPAddr("udp", address)
	if err != nil {
		return nil, serrors.Wrap("resolving server address", err, "address", address)
	}
	var laddr *net.UDPAddr
	if local.IsValid() {
		laddr = net.UDPAddrFromAddrPort(netip.AddrPortFrom(local, 0))
	}
	pconn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, serrors.Wrap("opening UDP socket", err, "local", local)
	}
	conn, err := quic.Dial(
		ctx,
		pconn,
		raddr,
		&tls.Config{
			InsecureSkipVerify: true,
			NextProtos:         []string{protocol.NextProto},
		},
		&quic.Config{KeepAlivePeriod: keepAlivePeriod},
	)
	if err != nil {
		pconn.Close()
		return nil, serrors.Wrap("dialing rendezvous server", err, "address", address)
	}
	stream, err := conn.OpenStreamSync(ctx)
	if err != nil {
		conn.CloseWithError(errCodeDone, "")
		pconn.Close()
		return nil, serrors.Wrap("opening stream", err)
	}
	return &Conn{conn: conn, pconn: pconn, stream: stream}, nil
}

// Advertise registers name as hosted by the caller, taking the record over
// if another host currently holds the name.
func (c *Conn) Advertise(ctx context.Context, name string) error {
	reply, err := c.roundTrip(ctx, protocol.Advertise(name))
	if err != nil {
		return err
	}
	if reply.Kind != protocol.ReplyAdvertiseAck || reply.Name != name {
		return replyError(reply)
	}
	return nil
}

// Find resolves name to the address of its host. The second return value is
// false if the name is unknown or its record has expired.
func (c *Conn) Find(ctx context.Context, name string) (string, bool, error) {
	reply, err := c.roundTrip(ctx, protocol.Find(name))
	if err != nil {
		return "", false, err
	}
	switch reply.Kind {
	case protocol.ReplyFound:
		return reply.Address, true, nil
	case protocol.ReplyNotFound:
		return "", false, nil
	default:
		return "", false, replyError(reply)
	}
}

// Heartbeat refreshes the liveness of name. Acked is false if the server
// stayed silent, which it does if the record is no longer owned by this
// connection.
func (c *Conn) Heartbeat(ctx context.Context, name string) (bool, error) {
	reply, err := c.ackRoundTrip(ctx, protocol.Heartbeat(name))
	if err != nil || reply == nil {
		return false, err
	}
	if reply.Kind != protocol.ReplyHeartbeatAck {
		return false, replyError(*reply)
	}
	return true, nil
}

// Deadvertise removes the record of name. Acked is false if the server
// stayed silent, which it does if the record is no longer owned by this
// connection.
func (c *Conn) Deadvertise(ctx context.Context, name string) (bool, error) {
	reply, err := c.ackRoundTrip(ctx, protocol.Deadvertise(name))
	if err != nil || reply == nil {
		return false, err
	}
	if reply.Kind != protocol.ReplyDeadvertiseAck {
		return false, replyError(*reply)
	}
	return true, nil
}

// List returns all records of the directory, including records past the
// liveness timeout.
func (c *Conn) List(ctx context.Context) ([]protocol.SystemEntry, error) {
	reply, err := c.roundTrip(ctx, protocol.List())
	if err != nil {
		return nil, err
	}
	if reply.Kind != protocol.ReplyActiveSystems {
		return nil, replyError(reply)
	}
	return reply.Systems, nil
}

// Host advertises name and keeps the record alive with periodic heartbeats
// until the context is cancelled, then removes it. Host returns early with
// an error if the name is taken over by another host in the meantime. A
// non-positive interval selects DefaultHeartbeatInterval.
func (c *Conn) Host(ctx context.Context, name string, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultHeartbeatInterval
	}
	if err := c.Advertise(ctx, name); err != nil {
		return err
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			// Best effort removal. If it fails, the server reaps the record
			// once the heartbeats stop.
			dctx, cancel := context.WithTimeout(context.Background(), defaultAckWait)
			defer cancel()
			if _, err := c.Deadvertise(dctx, name); err != nil {
				return err
			}
			return nil
		case <-ticker.C:
			acked, err := c.Heartbeat(ctx, name)
			if err != nil {
				return serrors.Wrap("sending heartbeat", err, "system", name)
			}
			if !acked {
				return serrors.New("ownership lost", "system", name)
			}
		}
	}
}

// Close terminates the connection to the server.
func (c *Conn) Close() error {
	err := c.conn.CloseWithError(errCodeDone, "")
	if cerr := c.pconn.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// roundTrip sends a request the server always replies to.
func (c *Conn) roundTrip(
	ctx context.Context,
	request []byte,
) (protocol.Reply, error) {

	c.mtx.Lock()
	defer c.mtx.Unlock()
	deadline, _ := ctx.Deadline()
	payload, err := c.exchange(deadline, request)
	if err != nil {
		return protocol.Reply{}, err
	}
	reply, err := protocol.ParseReply(payload)
	if err != nil {
		return protocol.Reply{}, serrors.Wrap("parsing reply", err)
	}
	return reply, nil
}

// ackRoundTrip sends a request whose acknowledgement may legitimately never
// arrive. A nil reply with a nil error reports that the server stayed silent
// within the bounded wait.
func (c *Conn) ackRoundTrip(
	ctx context.Context,
	request []byte,
) (*protocol.Reply, error) {

	c.mtx.Lock()
	defer c.mtx.Unlock()
	deadline := time.Now().Add(defaultAckWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	payload, err := c.exchange(deadline, request)
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	reply, err := protocol.ParseReply(payload)
	if err != nil {
		return nil, serrors.Wrap("parsing reply", err)
	}
	return &reply, nil
}

// exchange must be called with the mutex held. A zero deadline means no
// deadline.
func (c *Conn) exchange(deadline time.Time, request []byte) ([]byte, error) {
	if err := c.stream.SetDeadline(deadline); err != nil {
		return nil, serrors.Wrap("setting stream deadline", err)
	}
	if err := protocol.WriteFrame(c.stream, request); err != nil {
		return nil, serrors.Wrap("writing request", err)
	}
	payload, err := protocol.ReadFrame(c.stream)
	if err != nil {
		return nil, serrors.Wrap("reading reply", err)
	}
	return payload, nil
}

func replyError(reply protocol.Reply) error {
	if reply.Kind == protocol.ReplyError {
		return serrors.New("request rejected", "message", reply.Message)
	}
	return serrors.New("unexpected reply", "reply", reply.Kind)
}
