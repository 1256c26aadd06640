// Copyright 2018 ETH Zurich
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

package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseDuration(t *testing.T) {
	testCases := []struct {
		input     string
		expected  time.Duration
		assertErr assert.ErrorAssertionFunc
	}{
		{"", 0, assert.Error},       // empty string
		{"0", 0, assert.Error},      // no unit
		{"1d12h", 0, assert.Error},  // multiple units
		{"2ns", 2 * time.Nanosecond, assert.NoError},
		{"33us", 33 * time.Microsecond, assert.NoError},
		{"4444µs", 4444 * time.Microsecond, assert.NoError},
		{"55555ms", 55555 * time.Millisecond, assert.NoError},
		{"101s", 101 * time.Second, assert.NoError},
		{"102m", 102 * time.Minute, assert.NoError},
		{"103h", 103 * time.Hour, assert.NoError},
		{"104d", 104 * day, assert.NoError},
		{"105w", 105 * week, assert.NoError},
		{"106y", 106 * year, assert.NoError},
	}
	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			d, err := ParseDuration(tc.input)
			tc.assertErr(t, err)
			if err == nil {
				assert.Equal(t, tc.expected, d)
			}
		})
	}
}

func TestFmtDuration(t *testing.T) {
	testCases := []struct {
		input    time.Duration
		expected string
	}{
		{2 * time.Nanosecond, "2ns"},
		{33 * time.Microsecond, "33us"},
		{44 * time.Millisecond, "44ms"},
		{55 * time.Second, "55s"},
		{66 * time.Hour, "66h"},
		{48 * time.Hour, "2d"},
		{30 * day, "30d"},
		{35 * day, "5w"},
		{101 * year, "101y"},
	}
	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, FmtDuration(tc.input))
		})
	}
}
