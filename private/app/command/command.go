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

// Package command contains helpers to construct cobra commands.
package command

import "fmt"

// Pather returns the path to the command it is attached to. Subcommands use
// it to report their full command path in help and error messages.
type Pather interface {
	CommandPath() string
}

// StringPather implements Pather for a static string.
type StringPather string

func (s StringPather) CommandPath() string {
	return string(s)
}

// Join joins the paths of the two pathers.
func Join(a, b Pather) Pather {
	return StringPather(fmt.Sprintf("%s %s", a.CommandPath(), b.CommandPath()))
}
