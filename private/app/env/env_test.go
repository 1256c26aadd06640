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

package env_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/starmapnet/starmap/private/app/env"
)

func TestStarmap(t *testing.T) {
	testCases := map[string]struct {
		Input           string
		parseError      assert.ErrorAssertionFunc
		validationError assert.ErrorAssertionFunc
	}{
		"valid": {
			Input: `
				{
					"general": {
						"server_address": "localhost:60939"
					}
				}
			`,
			parseError:      assert.NoError,
			validationError: assert.NoError,
		},
		"parse error": {
			Input: `
				{
					"general": {
						"server_address": 60939
					}
				}
			`,
			parseError:      assert.Error,
			validationError: assert.NoError,
		},
		"validation error - general": {
			Input: `
				{
					"general": {
						"server_address": "0.0.0.0:60939"
					}
				}
			`,
			parseError:      assert.NoError,
			validationError: assert.Error,
		},
		// Fine-grained validation errors are covered in the tests for the individual sections.
	}

	for name, tc := range testCases {
		name, tc := name, tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			var s env.Starmap
			err := json.Unmarshal([]byte(tc.Input), &s)
			tc.parseError(t, err)
			if err == nil {
				tc.validationError(t, s.Validate())
			}
		})
	}
}

func TestGeneral(t *testing.T) {
	testCases := map[string]struct {
		Input           string
		parseError      assert.ErrorAssertionFunc
		validationError assert.ErrorAssertionFunc
	}{
		"valid": {
			Input: `
				{
					"server_address": "localhost:60939"
				}
			`,
			parseError:      assert.NoError,
			validationError: assert.NoError,
		},
		"empty": {
			Input:           `{}`,
			parseError:      assert.NoError,
			validationError: assert.NoError,
		},
		"parse error": {
			Input: `
				{
					"server_address": 1234
				}
			`,
			parseError:      assert.Error,
			validationError: assert.NoError,
		},
		"invalid host:port string": {
			Input: `
				{
					"server_address": "localhost:60939:"
				}
			`,
			parseError:      assert.NoError,
			validationError: assert.Error,
		},
		"wildcard ip": {
			Input: `
				{
					"server_address": "[::]:60939"
				}
			`,
			parseError:      assert.NoError,
			validationError: assert.Error,
		},
		"port too large": {
			Input: `
				{
					"server_address": "192.168.1.1:609390"
				}
			`,
			parseError:      assert.NoError,
			validationError: assert.Error,
		},
		"port 0": {
			Input: `
				{
					"server_address": "starmap.net:0"
				}
			`,
			parseError:      assert.NoError,
			validationError: assert.Error,
		},
	}

	for name, tc := range testCases {
		name, tc := name, tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			var g env.General
			err := json.Unmarshal([]byte(tc.Input), &g)
			tc.parseError(t, err)
			if err == nil {
				tc.validationError(t, g.Validate())
			}
		})
	}
}
