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

package protocol_test

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starmapnet/starmap/pkg/rendezvous/protocol"
)

func TestWriteFrame(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, protocol.WriteFrame(&buf, []byte("list\n")))
	assert.Equal(t, []byte{0x53, 0x00, 0x00, 0x05, 'l', 'i', 's', 't', '\n'}, buf.Bytes())
}

func TestWriteFrameTooBig(t *testing.T) {
	var buf bytes.Buffer
	err := protocol.WriteFrame(&buf, make([]byte, protocol.MaxPayloadSize+1))
	assert.ErrorIs(t, err, protocol.ErrPayloadTooBig)
	assert.Zero(t, buf.Len())
}

func TestReadFrame(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, protocol.WriteFrame(&buf, []byte("advertise\nsol\n")))
	require.NoError(t, protocol.WriteFrame(&buf, nil))
	require.NoError(t, protocol.WriteFrame(&buf, []byte("list\n")))

	payload, err := protocol.ReadFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, []byte("advertise\nsol\n"), payload)

	payload, err = protocol.ReadFrame(&buf)
	require.NoError(t, err)
	assert.Empty(t, payload)

	payload, err = protocol.ReadFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, []byte("list\n"), payload)

	_, err = protocol.ReadFrame(&buf)
	assert.ErrorIs(t, err, io.EOF)
}

func TestReadFrameBadCookie(t *testing.T) {
	_, err := protocol.ReadFrame(strings.NewReader("\x00\x00\x00\x01x"))
	assert.ErrorIs(t, err, protocol.ErrCookie)
}

func TestReadFrameTruncated(t *testing.T) {
	// Header announces more payload than the stream carries.
	_, err := protocol.ReadFrame(strings.NewReader("\x53\x00\x00\x10abc"))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	// Stream ends in the middle of the header.
	_, err = protocol.ReadFrame(strings.NewReader("\x53\x00"))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}
