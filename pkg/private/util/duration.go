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

// Package util contains helpers for duration handling in configuration files.
// Besides the units supported by time.ParseDuration, durations can be
// expressed in days (d), weeks (w) and years (y).
package util

import (
	"regexp"
	"strconv"
	"time"

	"github.com/starmapnet/starmap/pkg/private/serrors"
)

const (
	day  = 24 * time.Hour
	week = 7 * day
	year = 365 * day
)

var durationRegexp = regexp.MustCompile(`^(\d+)(\w*)$`)

// ParseDuration parses a duration of the form "count unit", e.g. "30s" or
// "2d". Exactly one unit must be present.
func ParseDuration(s string) (time.Duration, error) {
	match := durationRegexp.FindStringSubmatch(s)
	if match == nil {
		return 0, serrors.New("invalid duration", "value", s)
	}
	count, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil {
		return 0, serrors.Wrap("parsing duration count", err, "value", s)
	}
	var unit time.Duration
	switch match[2] {
	case "ns":
		unit = time.Nanosecond
	case "us", "µs":
		unit = time.Microsecond
	case "ms":
		unit = time.Millisecond
	case "s":
		unit = time.Second
	case "m":
		unit = time.Minute
	case "h":
		unit = time.Hour
	case "d":
		unit = day
	case "w":
		unit = week
	case "y":
		unit = year
	default:
		return 0, serrors.New("invalid duration unit", "value", s, "unit", match[2])
	}
	return time.Duration(count) * unit, nil
}

// FmtDuration formats the duration with the largest unit that represents it
// without losing precision.
func FmtDuration(d time.Duration) string {
	var unit string
	var val int64
	switch {
	case d.Nanoseconds()%int64(time.Microsecond) != 0:
		unit, val = "ns", d.Nanoseconds()
	case d.Nanoseconds()%int64(time.Millisecond) != 0:
		unit, val = "us", d.Nanoseconds()/int64(time.Microsecond)
	case d.Nanoseconds()%int64(time.Second) != 0:
		unit, val = "ms", d.Nanoseconds()/int64(time.Millisecond)
	case d.Nanoseconds()%int64(time.Minute) != 0:
		unit, val = "s", int64(d.Seconds())
	case d.Nanoseconds()%int64(time.Hour) != 0:
		unit, val = "m", int64(d.Minutes())
	case d.Nanoseconds()%int64(day) != 0:
		unit, val = "h", int64(d.Hours())
	case d.Nanoseconds()%int64(week) != 0:
		unit, val = "d", int64(d.Hours()/24)
	case d.Nanoseconds()%int64(year) != 0:
		unit, val = "w", int64(d.Hours()/(24*7))
	default:
		unit, val = "y", int64(d.Hours()/(24*365))
	}
	return strconv.FormatInt(val, 10) + unit
}
