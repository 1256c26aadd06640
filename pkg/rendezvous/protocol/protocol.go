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

// Package protocol implements the newline-delimited rendezvous wire protocol
// shared by the server and the client library.
//
// A message is UTF-8 text split into lines. The first non-empty line carries
// the command, the second one the optional argument. Replies mirror the same
// layout.
package protocol

import (
	"strconv"
	"strings"

	"github.com/starmapnet/starmap/pkg/private/serrors"
)

// Kind enumerates the recognized commands. The zero value classifies
// unrecognized input, including commands that lack a required argument.
type Kind int

const (
	KindUnknown Kind = iota
	KindAdvertise
	KindFind
	KindHeartbeat
	KindDeadvertise
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindAdvertise:
		return cmdAdvertise
	case KindFind:
		return cmdFind
	case KindHeartbeat:
		return cmdHeartbeat
	case KindDeadvertise:
		return cmdDeadvertise
	case KindList:
		return cmdList
	default:
		return "unknown"
	}
}

// Command words on the wire.
const (
	cmdAdvertise   = "advertise"
	cmdFind        = "find"
	cmdHeartbeat   = "heartbeat"
	cmdDeadvertise = "deadvertise"
	cmdList        = "list"
)

// Reply words on the wire.
const (
	replyAdvertiseAck   = "advertise_ack"
	replyFound          = "found"
	replyNotFound       = "not_found"
	replyHeartbeatAck   = "heartbeat_ack"
	replyDeadvertiseAck = "deadvertise_ack"
	replyActiveSystems  = "active_systems"
	replyError          = "error"
)

// unknownCommandText is the message carried by error replies.
const unknownCommandText = "Unknown command"

// ErrMalformed indicates a payload without any non-empty line. Such payloads
// are dropped without a reply.
var ErrMalformed = serrors.New("malformed message")

// Request is a single parsed client message.
type Request struct {
	// Kind is the command kind. KindUnknown requests are answered with an
	// error reply.
	Kind Kind
	// Name is the system name argument, if the command carries one.
	Name string
}

// ParseRequest parses a raw payload into a Request. Empty lines are skipped.
// A payload without any non-empty line is malformed and yields ErrMalformed.
// An unrecognized command, or a recognized one that is missing its required
// argument, parses into a KindUnknown request.
func ParseRequest(payload []byte) (Request, error) {
	lines := splitLines(payload)
	if len(lines) == 0 {
		return Request{}, ErrMalformed
	}
	var arg string
	if len(lines) > 1 {
		arg = lines[1]
	}
	var kind Kind
	switch lines[0] {
	case cmdAdvertise:
		kind = KindAdvertise
	case cmdFind:
		kind = KindFind
	case cmdHeartbeat:
		kind = KindHeartbeat
	case cmdDeadvertise:
		kind = KindDeadvertise
	case cmdList:
		return Request{Kind: KindList}, nil
	default:
		return Request{}, nil
	}
	if arg == "" {
		return Request{}, nil
	}
	return Request{Kind: kind, Name: arg}, nil
}

func splitLines(payload []byte) []string {
	var lines []string
	for _, line := range strings.Split(string(payload), "\n") {
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// Advertise builds an advertise request for the given system name.
func Advertise(name string) []byte {
	return []byte(cmdAdvertise + "\n" + name + "\n")
}

// Find builds a find request for the given system name.
func Find(name string) []byte {
	return []byte(cmdFind + "\n" + name + "\n")
}

// Heartbeat builds a heartbeat request for the given system name.
func Heartbeat(name string) []byte {
	return []byte(cmdHeartbeat + "\n" + name + "\n")
}

// Deadvertise builds a deadvertise request for the given system name.
func Deadvertise(name string) []byte {
	return []byte(cmdDeadvertise + "\n" + name + "\n")
}

// List builds a list request.
func List() []byte {
	return []byte(cmdList + "\n")
}

// SystemEntry is one row of an active_systems reply.
type SystemEntry struct {
	// Name is the system name.
	Name string
	// Address is the host:port of the advertised host.
	Address string
	// Age is the time since the last accepted advertise or heartbeat,
	// in whole seconds.
	Age int
}

// AdvertiseAck builds the reply to a successful advertise.
func AdvertiseAck(name string) []byte {
	return []byte(replyAdvertiseAck + "\n" + name + "\n")
}

// Found builds the reply to a find that resolved to a live host.
func Found(address string) []byte {
	return []byte(replyFound + "\n" + address + "\n")
}

// NotFound builds the reply to a find without a live host.
func NotFound() []byte {
	return []byte(replyNotFound + "\n")
}

// HeartbeatAck builds the reply to an accepted heartbeat.
func HeartbeatAck() []byte {
	return []byte(replyHeartbeatAck + "\n")
}

// DeadvertiseAck builds the reply to an accepted deadvertise.
func DeadvertiseAck() []byte {
	return []byte(replyDeadvertiseAck + "\n")
}

// ActiveSystems builds the reply to a list command.
func ActiveSystems(systems []SystemEntry) []byte {
	var b strings.Builder
	b.WriteString(replyActiveSystems)
	b.WriteByte('\n')
	b.WriteString(strconv.Itoa(len(systems)))
	b.WriteByte('\n')
	for _, s := range systems {
		b.WriteString(s.Name)
		b.WriteByte(',')
		b.WriteString(s.Address)
		b.WriteByte(',')
		b.WriteString(strconv.Itoa(s.Age))
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

// UnknownCommand builds the error reply for unrecognized input.
func UnknownCommand() []byte {
	return []byte(replyError + "\n" + unknownCommandText + "\n")
}

// ReplyKind enumerates the server reply types.
type ReplyKind int

const (
	ReplyUnknown ReplyKind = iota
	ReplyAdvertiseAck
	ReplyFound
	ReplyNotFound
	ReplyHeartbeatAck
	ReplyDeadvertiseAck
	ReplyActiveSystems
	ReplyError
)

func (k ReplyKind) String() string {
	switch k {
	case ReplyAdvertiseAck:
		return replyAdvertiseAck
	case ReplyFound:
		return replyFound
	case ReplyNotFound:
		return replyNotFound
	case ReplyHeartbeatAck:
		return replyHeartbeatAck
	case ReplyDeadvertiseAck:
		return replyDeadvertiseAck
	case ReplyActiveSystems:
		return replyActiveSystems
	case ReplyError:
		return replyError
	default:
		return "unknown"
	}
}

// Reply is a parsed server reply.
type Reply struct {
	Kind ReplyKind
	// Name is set for advertise_ack replies.
	Name string
	// Address is set for found replies.
	Address string
	// Systems is set for active_systems replies.
	Systems []SystemEntry
	// Message is set for error replies.
	Message string
}

// ParseReply parses a raw server reply.
func ParseReply(payload []byte) (Reply, error) {
	lines := splitLines(payload)
	if len(lines) == 0 {
		return Reply{}, ErrMalformed
	}
	switch lines[0] {
	case replyAdvertiseAck:
		if len(lines) < 2 {
			return Reply{}, serrors.New("advertise_ack without name")
		}
		return Reply{Kind: ReplyAdvertiseAck, Name: lines[1]}, nil
	case replyFound:
		if len(lines) < 2 {
			return Reply{}, serrors.New("found without address")
		}
		return Reply{Kind: ReplyFound, Address: lines[1]}, nil
	case replyNotFound:
		return Reply{Kind: ReplyNotFound}, nil
	case replyHeartbeatAck:
		return Reply{Kind: ReplyHeartbeatAck}, nil
	case replyDeadvertiseAck:
		return Reply{Kind: ReplyDeadvertiseAck}, nil
	case replyActiveSystems:
		return parseActiveSystems(lines)
	case replyError:
		var msg string
		if len(lines) > 1 {
			msg = lines[1]
		}
		return Reply{Kind: ReplyError, Message: msg}, nil
	default:
		return Reply{}, serrors.New("unrecognized reply", "first_line", lines[0])
	}
}

func parseActiveSystems(lines []string) (Reply, error) {
	if len(lines) < 2 {
		return Reply{}, serrors.New("active_systems without count")
	}
	count, err := strconv.Atoi(lines[1])
	if err != nil {
		return Reply{}, serrors.Wrap("parsing system count", err, "count", lines[1])
	}
	if got := len(lines) - 2; got != count {
		return Reply{}, serrors.New("system count mismatch", "expected", count, "actual", got)
	}
	systems := make([]SystemEntry, 0, count)
	for _, line := range lines[2:] {
		entry, err := parseSystemEntry(line)
		if err != nil {
			return Reply{}, err
		}
		systems = append(systems, entry)
	}
	return Reply{Kind: ReplyActiveSystems, Systems: systems}, nil
}

// parseSystemEntry splits a "name,address,age" line. The name may itself
// contain commas, the address and age cannot, so the line is split from the
// right.
func parseSystemEntry(line string) (SystemEntry, error) {
	ageSep := strings.LastIndexByte(line, ',')
	if ageSep < 0 {
		return SystemEntry{}, serrors.New("invalid system entry", "line", line)
	}
	age, err := strconv.Atoi(line[ageSep+1:])
	if err != nil {
		return SystemEntry{}, serrors.Wrap("parsing system age", err, "line", line)
	}
	rest := line[:ageSep]
	addrSep := strings.LastIndexByte(rest, ',')
	if addrSep < 0 {
		return SystemEntry{}, serrors.New("invalid system entry", "line", line)
	}
	return SystemEntry{
		Name:    rest[:addrSep],
		Address: rest[addrSep+1:],
		Age:     age,
	}, nil
}
