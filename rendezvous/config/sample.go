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

package config

const idSample = "rdv-1"

const rendezvousSample = `
# The UDP address the server listens on for QUIC connections from hosts and
# players. If the port is omitted, the default port 60939 is used. The
# STARMAP_RENDEZVOUS_PORT environment variable overrides the default port.
# (default ":60939")
address = ":60939"

# The time after which a system whose host neither re-advertised nor sent a
# heartbeat is no longer handed out to players and is evicted from the
# directory. (default 90s)
heartbeat_timeout = "90s"

# The interval between directory sweeps that evict expired records.
# (default 30s)
cleanup_interval = "30s"
`
