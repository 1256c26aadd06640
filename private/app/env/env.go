// Copyright 2021 Anapaya Systems
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

// Package env defines the starmap environment file. The environment file
// carries host-wide defaults, such as the rendezvous server applications on
// this host should talk to, so that individual tools do not need to be
// configured one by one.
package env

import (
	"net"
	"strconv"

	"github.com/starmapnet/starmap/pkg/private/serrors"
)

// DefaultFile is the path at which tools look for the environment file if no
// explicit location is set.
const DefaultFile = "/etc/starmap/environment.json"

// Starmap is the top-level structure of the environment file.
type Starmap struct {
	General General `json:"general,omitempty"`
}

// Validate validates the environment.
func (s Starmap) Validate() error {
	return s.General.Validate()
}

// General is the general environment configuration.
type General struct {
	// ServerAddress is the address of the rendezvous server in host:port
	// representation.
	ServerAddress string `json:"server_address,omitempty"`
}

// Validate validates the general environment configuration.
func (g General) Validate() error {
	if g.ServerAddress == "" {
		return nil
	}
	return validateServerAddress(g.ServerAddress)
}

func validateServerAddress(address string) error {
	host, port, err := net.SplitHostPort(address)
	if err != nil {
		return serrors.Wrap("invalid address", err, "address", address)
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsUnspecified() {
		return serrors.New("wildcard IP not allowed", "host", host)
	}
	p, err := strconv.Atoi(port)
	if err != nil {
		return serrors.Wrap("parsing port", err, "port", port)
	}
	if p < 1 || p > 65535 {
		return serrors.New("port out of range", "port", p)
	}
	return nil
}
