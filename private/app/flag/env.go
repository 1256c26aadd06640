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

package flag

import (
	"encoding/json"
	"errors"
	"io/fs"
	"net/netip"
	"os"
	"sync"

	"github.com/spf13/pflag"

	"github.com/starmapnet/starmap/pkg/private/serrors"
	"github.com/starmapnet/starmap/pkg/rendezvous"
	"github.com/starmapnet/starmap/private/app/env"
)

const defaultServer = rendezvous.DefaultServerAddress

type stringVal string

func (v *stringVal) Set(val string) error {
	*v = stringVal(val)
	return nil
}

func (v *stringVal) Type() string   { return "string" }
func (v *stringVal) String() string { return string(*v) }

type ipVal netip.Addr

func (v *ipVal) Set(val string) error {
	ip, err := netip.ParseAddr(val)
	if err != nil {
		return err
	}
	*v = ipVal(ip)
	return nil
}

func (v *ipVal) Type() string   { return "ip" }
func (v *ipVal) String() string { return netip.Addr(*v).String() }

// Environment can be used to access the common starmap configuration values,
// like the rendezvous server address and the local IP to advertise.
type Environment struct {
	serverFlag *pflag.Flag
	serverEnv  *string
	local      netip.Addr
	localEnv   *netip.Addr
	localFlag  *pflag.Flag
	file       env.Starmap
	filepath   string

	mtx sync.Mutex
}

// Register registers the command line flags. This should be called when command
// line flags are set up, before any command that accesses the values is called.
// It is safe to not call this at all, which means command line flag values are
// not considered.
func (e *Environment) Register(flagSet *pflag.FlagSet) {
	e.mtx.Lock()
	defer e.mtx.Unlock()

	e.localFlag = flagSet.VarPF((*ipVal)(&e.local), "local", "l",
		"Local IP address to advertise.")
	server := ""
	e.serverFlag = flagSet.VarPF(
		(*stringVal)(&server), "server", "",
		`Address of the rendezvous server to connect to
(host:port or "default" for `+defaultServer+`).`,
	)
}

// SetFilePath sets the path of the environment file. If this is not called,
// the file is loaded from the default location.
func (e *Environment) SetFilePath(path string) {
	e.mtx.Lock()
	defer e.mtx.Unlock()

	e.filepath = path
}

// LoadExternalVars loads variables from the starmap environment file and from
// the OS environment variables. Parsing errors will be reported with an error.
// A missing file or environment variable is not reported.
func (e *Environment) LoadExternalVars() error {
	e.mtx.Lock()
	defer e.mtx.Unlock()

	if err := e.loadFile(); err != nil {
		return serrors.Wrap("loading environment file", err)
	}
	if err := e.loadEnv(); err != nil {
		return serrors.Wrap("loading environment variables", err)
	}
	return nil
}

// loadFile loads the environment file. If the file can't be read or parsed an
// error is returned. If the file doesn't exist no error is returned and values
// from the environment file are not considered.
func (e *Environment) loadFile() error {
	if e.filepath == "" {
		e.filepath = env.DefaultFile
	}

	raw, err := os.ReadFile(e.filepath)
	if errors.Is(err, fs.ErrNotExist) {
		// environment file doesn't have to exist.
		return nil
	}
	if err != nil {
		return serrors.Wrap("loading file", err)
	}
	if err := json.Unmarshal(raw, &e.file); err != nil {
		return serrors.Wrap("parsing file", err)
	}
	return nil
}

// loadEnv loads the environment variables. It returns an error if the values
// can't be parsed. Missing variables are not an error. This needs to be called
// before accessing the values, otherwise the environment variables are not
// respected.
func (e *Environment) loadEnv() error {
	if s, ok := os.LookupEnv("STARMAP_SERVER"); ok {
		e.serverEnv = &s
	}
	if l, ok := os.LookupEnv("STARMAP_LOCAL_ADDR"); ok {
		a, err := netip.ParseAddr(l)
		if err != nil {
			return serrors.Wrap("parsing STARMAP_LOCAL_ADDR", err)
		}
		e.localEnv = &a
	}
	return nil
}

// Server returns the rendezvous server address. The value is loaded from one
// of the following sources with the precedence as listed:
//  1. Command line flag (--server)
//  2. Environment variable (STARMAP_SERVER)
//  3. Environment configuration file
//  4. Default value.
func (e *Environment) Server() string {
	e.mtx.Lock()
	defer e.mtx.Unlock()

	if e.serverFlag != nil && e.serverFlag.Changed {
		value := e.serverFlag.Value.String()
		if value == "default" {
			return defaultServer
		}
		return value
	}
	if e.serverEnv != nil {
		return *e.serverEnv
	}
	if a := e.file.General.ServerAddress; a != "" {
		return a
	}
	return defaultServer
}

// Local returns the local IP to advertise. The value is loaded from one of the
// following sources with the precedence as listed:
//  1. Command line flag (--local)
//  2. Environment variable (STARMAP_LOCAL_ADDR)
//
// If none are set, the zero value is returned and the address observed by the
// rendezvous server is used.
func (e *Environment) Local() netip.Addr {
	e.mtx.Lock()
	defer e.mtx.Unlock()

	if e.localFlag != nil && e.localFlag.Changed {
		return e.local
	}
	if e.localEnv != nil {
		return *e.localEnv
	}
	return netip.Addr{}
}
