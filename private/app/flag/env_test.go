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

package flag_test

import (
	"encoding/json"
	"net/netip"
	"os"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starmapnet/starmap/pkg/rendezvous"
	"github.com/starmapnet/starmap/private/app/env"
	"github.com/starmapnet/starmap/private/app/flag"
)

func TestEnvironment(t *testing.T) {
	setupFile := func(t *testing.T, envFlags *flag.Environment) {
		f, err := os.CreateTemp(t.TempDir(), "env.json")
		require.NoError(t, err)
		fName := f.Name()
		t.Cleanup(func() { os.Remove(fName) })
		e := env.Starmap{
			General: env.General{
				ServerAddress: "starmap_file:1234",
			},
		}
		require.NoError(t, json.NewEncoder(f).Encode(e))
		require.NoError(t, f.Close())
		envFlags.SetFilePath(fName)
	}
	noFile := func(_ *testing.T, envFlags *flag.Environment) {
		envFlags.SetFilePath("/non-existing")
	}
	setupEnv := func(t *testing.T) {
		tempEnv(t, "STARMAP_SERVER", "starmap_env:1234")
		tempEnv(t, "STARMAP_LOCAL_ADDR", "10.0.42.0")
	}
	noEnv := func(t *testing.T) {}
	setupFlags := func(t *testing.T, fs *pflag.FlagSet) {
		err := fs.Parse([]string{
			"--server", "starmap:1234",
			"--local", "10.0.0.42",
		})
		require.NoError(t, err)
	}
	defaultFlags := func(t *testing.T, fs *pflag.FlagSet) {
		require.NoError(t, fs.Parse([]string{"--server", "default"}))
	}
	noFlags := func(t *testing.T, fs *pflag.FlagSet) {
		require.NoError(t, fs.Parse([]string{}))
	}
	testCases := map[string]struct {
		flags  func(t *testing.T, fs *pflag.FlagSet)
		file   func(t *testing.T, envFlags *flag.Environment)
		env    func(t *testing.T)
		server string
		local  netip.Addr
	}{
		"no flag, no file, no env, defaults only": {
			flags:  noFlags,
			env:    noEnv,
			file:   noFile,
			server: rendezvous.DefaultServerAddress,
			local:  netip.Addr{},
		},
		"flag values set": {
			flags:  setupFlags,
			env:    noEnv,
			file:   noFile,
			server: "starmap:1234",
			local:  netip.MustParseAddr("10.0.0.42"),
		},
		"flag set to default keyword": {
			flags:  defaultFlags,
			env:    noEnv,
			file:   noFile,
			server: rendezvous.DefaultServerAddress,
			local:  netip.Addr{},
		},
		"env values set": {
			flags:  noFlags,
			env:    setupEnv,
			file:   noFile,
			server: "starmap_env:1234",
			local:  netip.MustParseAddr("10.0.42.0"),
		},
		"file values set": {
			flags:  noFlags,
			env:    noEnv,
			file:   setupFile,
			server: "starmap_file:1234",
			local:  netip.Addr{},
		},
		"all set, flag precedence": {
			flags:  setupFlags,
			env:    setupEnv,
			file:   setupFile,
			server: "starmap:1234",
			local:  netip.MustParseAddr("10.0.0.42"),
		},
		"env set, file set, env precedence": {
			flags:  noFlags,
			env:    setupEnv,
			file:   setupFile,
			server: "starmap_env:1234",
			local:  netip.MustParseAddr("10.0.42.0"),
		},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			var env flag.Environment
			fs := pflag.NewFlagSet("testSet", pflag.ContinueOnError)
			env.Register(fs)
			tc.flags(t, fs)
			tc.env(t)
			tc.file(t, &env)
			require.NoError(t, env.LoadExternalVars())
			assert.Equal(t, tc.server, env.Server())
			assert.Equal(t, tc.local, env.Local())
		})
	}
}

// tempEnv sets an environment variable temporarily and remove it at the end of
// the test.
func tempEnv(t *testing.T, key, val string) {
	require.NoError(t, os.Setenv(key, val))
	t.Cleanup(func() { require.NoError(t, os.Unsetenv(key)) })
}
