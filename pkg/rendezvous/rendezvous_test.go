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

package rendezvous_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starmapnet/starmap/pkg/log"
	"github.com/starmapnet/starmap/pkg/log/testlog"
	"github.com/starmapnet/starmap/pkg/rendezvous"
	server "github.com/starmapnet/starmap/rendezvous"
	"github.com/starmapnet/starmap/rendezvous/registry"
	"github.com/starmapnet/starmap/rendezvous/transport"
)

func TestAdvertiseAndFind(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	srv, _ := startServer(t, ctx)

	host := dialClient(t, ctx, srv)
	require.NoError(t, host.Advertise(ctx, "sol"))

	player := dialClient(t, ctx, srv)
	address, found, err := player.Find(ctx, "sol")
	require.NoError(t, err)
	require.True(t, found)
	ip, _, err := net.SplitHostPort(address)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", ip)

	_, found, err = player.Find(ctx, "alpha centauri")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestForeignHeartbeatSilent(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	srv, _ := startServer(t, ctx)

	host := dialClient(t, ctx, srv)
	require.NoError(t, host.Advertise(ctx, "sol"))

	player := dialClient(t, ctx, srv)
	acked, err := player.Heartbeat(ctx, "sol")
	require.NoError(t, err)
	assert.False(t, acked)
	acked, err = player.Deadvertise(ctx, "sol")
	require.NoError(t, err)
	assert.False(t, acked)

	acked, err = host.Heartbeat(ctx, "sol")
	require.NoError(t, err)
	assert.True(t, acked)
}

func TestDeadvertise(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	srv, _ := startServer(t, ctx)

	host := dialClient(t, ctx, srv)
	require.NoError(t, host.Advertise(ctx, "sol"))

	acked, err := host.Deadvertise(ctx, "sol")
	require.NoError(t, err)
	assert.True(t, acked)

	_, found, err := host.Find(ctx, "sol")
	require.NoError(t, err)
	assert.False(t, found)

	// The record is gone, a second removal is answered with silence.
	acked, err = host.Deadvertise(ctx, "sol")
	require.NoError(t, err)
	assert.False(t, acked)
}

func TestList(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	srv, _ := startServer(t, ctx)

	host := dialClient(t, ctx, srv)
	require.NoError(t, host.Advertise(ctx, "sol"))
	require.NoError(t, host.Advertise(ctx, "vega"))

	player := dialClient(t, ctx, srv)
	systems, err := player.List(ctx)
	require.NoError(t, err)
	require.Len(t, systems, 2)
	assert.Equal(t, "sol", systems[0].Name)
	assert.Equal(t, "vega", systems[1].Name)
}

func TestHost(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	srv, dir := startServer(t, ctx)

	host := dialClient(t, ctx, srv)
	hostCtx, stopHosting := context.WithCancel(ctx)
	defer stopHosting()
	errCh := make(chan error, 1)
	go func() {
		errCh <- host.Host(hostCtx, "sol", 50*time.Millisecond)
	}()

	player := dialClient(t, ctx, srv)
	require.Eventually(t, func() bool {
		_, found, err := player.Find(ctx, "sol")
		return err == nil && found
	}, 5*time.Second, 20*time.Millisecond)

	stopHosting()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("hosting session did not stop")
	}
	assert.Equal(t, 0, dir.Len(), "record must be deadvertised on stop")
}

func TestHostOwnershipLost(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	srv, _ := startServer(t, ctx)

	host := dialClient(t, ctx, srv)
	errCh := make(chan error, 1)
	go func() {
		errCh <- host.Host(ctx, "sol", 50*time.Millisecond)
	}()
	player := dialClient(t, ctx, srv)
	require.Eventually(t, func() bool {
		_, found, err := player.Find(ctx, "sol")
		return err == nil && found
	}, 5*time.Second, 20*time.Millisecond)

	// A second host takes the name over, the heartbeats of the first host
	// fall silent.
	usurper := dialClient(t, ctx, srv)
	require.NoError(t, usurper.Advertise(ctx, "sol"))
	select {
	case err := <-errCh:
		assert.ErrorContains(t, err, "ownership lost")
	case <-time.After(5 * time.Second):
		t.Fatal("hosting session did not notice the takeover")
	}
}

func startServer(
	t *testing.T,
	ctx context.Context,
) (*server.Server, *registry.Directory) {

	t.Helper()
	ctx = log.CtxWith(ctx, testlog.NewLogger(t))
	tlsConfig, err := transport.GenerateTLSConfig()
	require.NoError(t, err)
	tr, err := transport.Listen(
		&net.UDPAddr{IP: net.ParseIP("127.0.0.1")}, tlsConfig, nil)
	require.NoError(t, err)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- tr.Serve()
	}()
	t.Cleanup(func() {
		require.NoError(t, tr.Close())
		assert.NoError(t, <-serveErr)
	})

	dir := registry.New()
	srv := &server.Server{
		Transport: tr,
		Handler:   &server.Handler{Directory: dir, Timeout: 90 * time.Second},
		Directory: dir,
	}
	go func() {
		_ = srv.Run(ctx)
	}()
	return srv, dir
}

func dialClient(t *testing.T, ctx context.Context, srv *server.Server) *rendezvous.Conn {
	t.Helper()
	conn, err := rendezvous.Dial(ctx, srv.Transport.LocalAddr().String())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}
