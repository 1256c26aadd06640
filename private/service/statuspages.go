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

// Package service provides support for servicing HTTP status pages.
package service

import (
	"fmt"
	"html/template"
	"net/http"
	"os"
	"sort"

	"github.com/pelletier/go-toml/v2"

	"github.com/starmapnet/starmap/pkg/log"
	"github.com/starmapnet/starmap/pkg/private/serrors"
	"github.com/starmapnet/starmap/private/env"
)

const mainTmpl = `
<!DOCTYPE html>
<html>
	<head>
		<title>{{.ElemID}}</title>
	</head>
	<body style="font-family:sans-serif">
		<h1>{{.ElemID}}</h1>
		{{range .Pages}}
		<p><a href="/{{.Path}}">[{{.Path}}]</a> {{.Info}}</p>
		{{end}}
	</body>
</html>
`

// StatusPage describes a status page of the service.
type StatusPage struct {
	// Info is a short description of the exposed information.
	Info string
	// Handler serves the page.
	Handler http.HandlerFunc
}

// StatusPages maps status pages to their path. The empty path is reserved for
// the index page.
type StatusPages map[string]StatusPage

// Register registers the status pages with the given mux. An index page that
// links all registered pages is registered at the root.
func (s StatusPages) Register(mux *http.ServeMux, elemID string) error {
	index, err := s.index(elemID)
	if err != nil {
		return err
	}
	mux.HandleFunc("/", index)
	for path, page := range s {
		if path == "" {
			return serrors.New("empty path", "page", page.Info)
		}
		mux.HandleFunc("/"+path, page.Handler)
	}
	return nil
}

func (s StatusPages) index(elemID string) (http.HandlerFunc, error) {
	tmpl, err := template.New("index").Parse(mainTmpl)
	if err != nil {
		return nil, serrors.Wrap("parsing index template", err)
	}
	type page struct {
		Path string
		Info string
	}
	data := struct {
		ElemID string
		Pages  []page
	}{
		ElemID: elemID,
	}
	for path, p := range s {
		data.Pages = append(data.Pages, page{Path: path, Info: p.Info})
	}
	sort.Slice(data.Pages, func(i, j int) bool {
		return data.Pages[i].Path < data.Pages[j].Path
	})
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		if err := tmpl.Execute(w, data); err != nil {
			http.Error(w, "Unable to render index", http.StatusInternalServerError)
		}
	}, nil
}

// NewInfoStatusPage creates a new page with basic info about the process.
func NewInfoStatusPage() StatusPage {
	handler := func(w http.ResponseWriter, r *http.Request) {
		info := fmt.Sprintf("%s  %s\n  %s\n  %s\n",
			env.VersionInfo(),
			fmt.Sprintf("pid:           %d", os.Getpid()),
			fmt.Sprintf("euid/egid:     %d %d", os.Geteuid(), os.Getegid()),
			fmt.Sprintf("cmd line:      %q", os.Args),
		)
		fmt.Fprint(w, info)
	}
	return StatusPage{
		Info:    "generic info about the process",
		Handler: handler,
	}
}

// NewConfigStatusPage creates a new page that shows the TOML representation
// of the config the service is running with.
func NewConfigStatusPage(config interface{}) StatusPage {
	handler := func(w http.ResponseWriter, r *http.Request) {
		raw, err := toml.Marshal(config)
		if err != nil {
			http.Error(w, "Unable to marshal config", http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, string(raw))
	}
	return StatusPage{
		Info:    "configuration the service is running with",
		Handler: handler,
	}
}

// NewLogLevelStatusPage creates a new page that reports the current logging
// level and allows changing it. GET returns the level, PUT sets it, for
// example: PUT with body {"level":"debug"}.
func NewLogLevelStatusPage() StatusPage {
	return StatusPage{
		Info:    "logging level, supports PUT",
		Handler: log.ConsoleLevel.ServeHTTP,
	}
}
