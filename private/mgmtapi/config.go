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

// Package mgmtapi contains the configuration for the service management API.
package mgmtapi

import (
	"io"

	"github.com/starmapnet/starmap/private/config"
)

var _ config.Config = (*Config)(nil)

// Config is the configuration for the service management API.
type Config struct {
	config.NoDefaulter
	config.NoValidator
	// Addr is the address the API server listens on. If not set, the API is
	// not exposed.
	Addr string `toml:"addr,omitempty"`
}

func (cfg *Config) Sample(dst io.Writer, path config.Path, _ config.CtxMap) {
	config.WriteString(dst, mgmtAPISample)
}

func (cfg *Config) ConfigName() string {
	return "api"
}
