// Copyright 2020 Anapaya Systems
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

package app

import (
	"errors"
)

type codeError struct {
	err  error
	code int
}

func (e codeError) Error() string {
	if e.err == nil {
		return ""
	}
	return e.err.Error()
}

func (e codeError) Unwrap() error {
	return e.err
}

func (e codeError) exitCode() int {
	return e.code
}

// WithExitCode attaches an exit code to the error. It can be extracted with
// ExitCode.
func WithExitCode(err error, code int) error {
	return codeError{err: err, code: code}
}

// ExitCode returns the exit code that is attached to the error. For a nil
// error, 0 is returned. For an error without an attached code, -1 is
// returned.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var coded interface{ exitCode() int }
	if errors.As(err, &coded) {
		return coded.exitCode()
	}
	return -1
}
