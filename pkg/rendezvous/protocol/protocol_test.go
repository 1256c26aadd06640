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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starmapnet/starmap/pkg/rendezvous/protocol"
)

func TestParseRequest(t *testing.T) {
	testCases := map[string]struct {
		Input     string
		Expected  protocol.Request
		AssertErr assert.ErrorAssertionFunc
	}{
		"advertise": {
			Input:     "advertise\nsol\n",
			Expected:  protocol.Request{Kind: protocol.KindAdvertise, Name: "sol"},
			AssertErr: assert.NoError,
		},
		"advertise without trailing newline": {
			Input:     "advertise\nsol",
			Expected:  protocol.Request{Kind: protocol.KindAdvertise, Name: "sol"},
			AssertErr: assert.NoError,
		},
		"empty lines are skipped": {
			Input:     "\nadvertise\n\nsol\n",
			Expected:  protocol.Request{Kind: protocol.KindAdvertise, Name: "sol"},
			AssertErr: assert.NoError,
		},
		"find": {
			Input:     "find\nsol\n",
			Expected:  protocol.Request{Kind: protocol.KindFind, Name: "sol"},
			AssertErr: assert.NoError,
		},
		"heartbeat": {
			Input:     "heartbeat\nsol\n",
			Expected:  protocol.Request{Kind: protocol.KindHeartbeat, Name: "sol"},
			AssertErr: assert.NoError,
		},
		"deadvertise": {
			Input:     "deadvertise\nsol\n",
			Expected:  protocol.Request{Kind: protocol.KindDeadvertise, Name: "sol"},
			AssertErr: assert.NoError,
		},
		"list": {
			Input:     "list\n",
			Expected:  protocol.Request{Kind: protocol.KindList},
			AssertErr: assert.NoError,
		},
		"list ignores stray argument": {
			Input:     "list\nsol\n",
			Expected:  protocol.Request{Kind: protocol.KindList},
			AssertErr: assert.NoError,
		},
		"advertise without argument": {
			Input:     "advertise\n",
			Expected:  protocol.Request{},
			AssertErr: assert.NoError,
		},
		"unknown command": {
			Input:     "foo\nbar\n",
			Expected:  protocol.Request{},
			AssertErr: assert.NoError,
		},
		"empty payload": {
			Input:     "",
			Expected:  protocol.Request{},
			AssertErr: assert.Error,
		},
		"only newlines": {
			Input:     "\n\n\n",
			Expected:  protocol.Request{},
			AssertErr: assert.Error,
		},
	}
	for name, tc := range testCases {
		name, tc := name, tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			req, err := protocol.ParseRequest([]byte(tc.Input))
			tc.AssertErr(t, err)
			assert.Equal(t, tc.Expected, req)
		})
	}
}

func TestRequestBytes(t *testing.T) {
	testCases := map[string]struct {
		Request  []byte
		Expected string
	}{
		"advertise": {
			Request:  protocol.Advertise("sol"),
			Expected: "advertise\nsol\n",
		},
		"find": {
			Request:  protocol.Find("sol"),
			Expected: "find\nsol\n",
		},
		"heartbeat": {
			Request:  protocol.Heartbeat("sol"),
			Expected: "heartbeat\nsol\n",
		},
		"deadvertise": {
			Request:  protocol.Deadvertise("sol"),
			Expected: "deadvertise\nsol\n",
		},
		"list": {
			Request:  protocol.List(),
			Expected: "list\n",
		},
	}
	for name, tc := range testCases {
		name, tc := name, tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.Expected, string(tc.Request))

			req, err := protocol.ParseRequest(tc.Request)
			assert.NoError(t, err)
			assert.NotEqual(t, protocol.KindUnknown, req.Kind)
		})
	}
}

func TestReplyBytes(t *testing.T) {
	testCases := map[string]struct {
		Reply    []byte
		Expected string
	}{
		"advertise_ack": {
			Reply:    protocol.AdvertiseAck("sol"),
			Expected: "advertise_ack\nsol\n",
		},
		"found": {
			Reply:    protocol.Found("10.0.0.1:4433"),
			Expected: "found\n10.0.0.1:4433\n",
		},
		"not_found": {
			Reply:    protocol.NotFound(),
			Expected: "not_found\n",
		},
		"heartbeat_ack": {
			Reply:    protocol.HeartbeatAck(),
			Expected: "heartbeat_ack\n",
		},
		"deadvertise_ack": {
			Reply:    protocol.DeadvertiseAck(),
			Expected: "deadvertise_ack\n",
		},
		"unknown command": {
			Reply:    protocol.UnknownCommand(),
			Expected: "error\nUnknown command\n",
		},
		"active_systems empty": {
			Reply:    protocol.ActiveSystems(nil),
			Expected: "active_systems\n0\n",
		},
		"active_systems": {
			Reply: protocol.ActiveSystems([]protocol.SystemEntry{
				{Name: "sol", Address: "10.0.0.1:4433", Age: 12},
				{Name: "jupiter", Address: "[::1]:9000", Age: 0},
			}),
			Expected: "active_systems\n2\nsol,10.0.0.1:4433,12\njupiter,[::1]:9000,0\n",
		},
	}
	for name, tc := range testCases {
		name, tc := name, tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.Expected, string(tc.Reply))
		})
	}
}

func TestParseReply(t *testing.T) {
	testCases := map[string]struct {
		Input     string
		Expected  protocol.Reply
		AssertErr assert.ErrorAssertionFunc
	}{
		"advertise_ack": {
			Input:     "advertise_ack\nsol\n",
			Expected:  protocol.Reply{Kind: protocol.ReplyAdvertiseAck, Name: "sol"},
			AssertErr: assert.NoError,
		},
		"advertise_ack without name": {
			Input:     "advertise_ack\n",
			AssertErr: assert.Error,
		},
		"found": {
			Input:     "found\n10.0.0.1:4433\n",
			Expected:  protocol.Reply{Kind: protocol.ReplyFound, Address: "10.0.0.1:4433"},
			AssertErr: assert.NoError,
		},
		"not_found": {
			Input:     "not_found\n",
			Expected:  protocol.Reply{Kind: protocol.ReplyNotFound},
			AssertErr: assert.NoError,
		},
		"heartbeat_ack": {
			Input:     "heartbeat_ack\n",
			Expected:  protocol.Reply{Kind: protocol.ReplyHeartbeatAck},
			AssertErr: assert.NoError,
		},
		"deadvertise_ack": {
			Input:     "deadvertise_ack\n",
			Expected:  protocol.Reply{Kind: protocol.ReplyDeadvertiseAck},
			AssertErr: assert.NoError,
		},
		"error": {
			Input:     "error\nUnknown command\n",
			Expected:  protocol.Reply{Kind: protocol.ReplyError, Message: "Unknown command"},
			AssertErr: assert.NoError,
		},
		"active_systems": {
			Input: "active_systems\n2\nsol,10.0.0.1:4433,12\nred,alert,[::1]:9000,3\n",
			Expected: protocol.Reply{
				Kind: protocol.ReplyActiveSystems,
				Systems: []protocol.SystemEntry{
					{Name: "sol", Address: "10.0.0.1:4433", Age: 12},
					{Name: "red,alert", Address: "[::1]:9000", Age: 3},
				},
			},
			AssertErr: assert.NoError,
		},
		"active_systems count mismatch": {
			Input:     "active_systems\n2\nsol,10.0.0.1:4433,12\n",
			AssertErr: assert.Error,
		},
		"active_systems bad age": {
			Input:     "active_systems\n1\nsol,10.0.0.1:4433,old\n",
			AssertErr: assert.Error,
		},
		"unrecognized": {
			Input:     "shrug\n",
			AssertErr: assert.Error,
		},
		"empty": {
			Input:     "",
			AssertErr: assert.Error,
		},
	}
	for name, tc := range testCases {
		name, tc := name, tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			reply, err := protocol.ParseReply([]byte(tc.Input))
			tc.AssertErr(t, err)
			if err == nil {
				assert.Equal(t, tc.Expected, reply)
			}
		})
	}
}

func TestParseReplyRoundTrip(t *testing.T) {
	systems := []protocol.SystemEntry{
		{Name: "sol", Address: "10.0.0.1:4433", Age: 90},
	}
	reply, err := protocol.ParseReply(protocol.ActiveSystems(systems))
	require.NoError(t, err)
	assert.Equal(t, systems, reply.Systems)
}
