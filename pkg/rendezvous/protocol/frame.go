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

package protocol

import (
	"encoding/binary"
	"io"

	"github.com/starmapnet/starmap/pkg/private/serrors"
)

// NextProto is the ALPN protocol identifier for framed rendezvous streams.
const NextProto = "starmap-rdv/1"

// Messages travel over a byte stream as framed datagrams. Each frame starts
// with a fixed header:
//
//	 0        1        2                 4
//	+--------+--------+--------+--------+
//	| cookie |  rsvd  |  payload length |
//	+--------+--------+--------+--------+
//
// The length is encoded in big-endian byte order and counts the payload
// only. The reserved byte is zero on write and ignored on read.
const (
	frameCookie = 0x53
	headerLen   = 4

	// MaxPayloadSize is the largest payload a single frame can carry.
	MaxPayloadSize = (1 << 16) - 1
)

var (
	// ErrCookie indicates a frame header with an unexpected cookie byte.
	// The stream is desynchronized and must be torn down.
	ErrCookie = serrors.New("frame cookie mismatch")
	// ErrPayloadTooBig indicates a payload that does not fit a single frame.
	ErrPayloadTooBig = serrors.New("payload exceeds frame capacity")
)

// WriteFrame writes payload as a single frame to w.
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > MaxPayloadSize {
		return serrors.JoinNoStack(ErrPayloadTooBig, nil,
			"size", len(payload), "max", MaxPayloadSize)
	}
	frame := make([]byte, headerLen+len(payload))
	frame[0] = frameCookie
	binary.BigEndian.PutUint16(frame[2:4], uint16(len(payload)))
	copy(frame[headerLen:], payload)
	_, err := w.Write(frame)
	return err
}

// ReadFrame reads a single frame from r and returns its payload. The payload
// may be empty. Errors from the underlying reader are passed through, so a
// cleanly closed stream surfaces as io.EOF.
func ReadFrame(r io.Reader) ([]byte, error) {
	var header [headerLen]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}
	if header[0] != frameCookie {
		return nil, serrors.JoinNoStack(ErrCookie, nil, "cookie", header[0])
	}
	payload := make([]byte, binary.BigEndian.Uint16(header[2:4]))
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return payload, nil
}
