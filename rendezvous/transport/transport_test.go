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

package transport_test

import (
	"context"
	"crypto/tls"
	"net"
	"testing"
	"time"

	"github.com/quic-go/quic-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starmapnet/starmap/pkg/rendezvous/protocol"
	"github.com/starmapnet/starmap/rendezvous/transport"
)

func TestServerEventFlow(t *testing.T) {
	srv, serveErr := startServer(t)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, stream := dial(t, ctx, srv.LocalAddr())
	require.NoError(t, protocol.WriteFrame(stream, []byte("list\n")))

	ev := waitEvent(t, srv)
	require.Equal(t, transport.EventConnect, ev.Kind)
	peer := ev.Peer
	assert.NotEmpty(t, ev.Address)

	ev = waitEvent(t, srv)
	require.Equal(t, transport.EventReceive, ev.Kind)
	assert.Equal(t, peer, ev.Peer)
	assert.Equal(t, []byte("list\n"), ev.Payload)

	require.NoError(t, srv.Send(peer, []byte("active_systems\n0\n")))
	reply, err := protocol.ReadFrame(stream)
	require.NoError(t, err)
	assert.Equal(t, []byte("active_systems\n0\n"), reply)

	require.NoError(t, conn.CloseWithError(0, "bye"))
	ev = waitEvent(t, srv)
	require.Equal(t, transport.EventDisconnect, ev.Kind)
	assert.Equal(t, peer, ev.Peer)

	require.NoError(t, srv.Close())
	select {
	case err := <-serveErr:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after close")
	}
}

func TestServerPeerIdentities(t *testing.T) {
	srv, _ := startServer(t)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	connA, streamA := dial(t, ctx, srv.LocalAddr())
	defer connA.CloseWithError(0, "")
	require.NoError(t, protocol.WriteFrame(streamA, []byte("a")))

	connB, streamB := dial(t, ctx, srv.LocalAddr())
	defer connB.CloseWithError(0, "")
	require.NoError(t, protocol.WriteFrame(streamB, []byte("b")))

	peers := make(map[transport.PeerID]string)
	for i := 0; i < 4; i++ {
		ev := waitEvent(t, srv)
		if ev.Kind != transport.EventReceive {
			continue
		}
		peers[ev.Peer] = string(ev.Payload)
	}
	assert.Len(t, peers, 2, "each connection must get its own identity")
}

func TestServerSendUnknownPeer(t *testing.T) {
	srv, _ := startServer(t)
	defer srv.Close()

	assert.Error(t, srv.Send(transport.PeerID(42), []byte("hello")))
}

func TestListenAddrInUse(t *testing.T) {
	tlsConfig, err := transport.GenerateTLSConfig()
	require.NoError(t, err)

	srv, err := transport.Listen(localhost(), tlsConfig, nil)
	require.NoError(t, err)
	defer srv.Close()

	taken, ok := srv.LocalAddr().(*net.UDPAddr)
	require.True(t, ok)
	_, err = transport.Listen(taken, tlsConfig, nil)
	assert.Error(t, err)
}

func startServer(t *testing.T) (*transport.Server, chan error) {
	t.Helper()
	tlsConfig, err := transport.GenerateTLSConfig()
	require.NoError(t, err)
	srv, err := transport.Listen(localhost(), tlsConfig, nil)
	require.NoError(t, err)
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve()
	}()
	return srv, serveErr
}

func dial(
	t *testing.T,
	ctx context.Context,
	addr net.Addr,
) (quic.Connection, quic.Stream) {

	t.Helper()
	conn, err := quic.DialAddr(ctx, addr.String(),
		&tls.Config{
			InsecureSkipVerify: true,
			NextProtos:         []string{protocol.NextProto},
		},
		nil,
	)
	require.NoError(t, err)
	stream, err := conn.OpenStreamSync(ctx)
	require.NoError(t, err)
	return conn, stream
}

func waitEvent(t *testing.T, srv *transport.Server) transport.Event {
	t.Helper()
	select {
	case ev := <-srv.Events():
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for transport event")
		return transport.Event{}
	}
}

func localhost() *net.UDPAddr {
	return &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0}
}
