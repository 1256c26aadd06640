// Copyright 2024 Anapaya Systems
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

// Package systems implements the system queries of the starmap tool.
package systems

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/starmapnet/starmap/pkg/private/serrors"
	"github.com/starmapnet/starmap/pkg/rendezvous"
)

// Config configures the rendezvous server queries.
type Config struct {
	// Server is the address of the rendezvous server to query.
	Server string
}

// System describes one advertised system.
type System struct {
	// Name is the system name under which the host advertised.
	Name string `json:"name" yaml:"name"`
	// Address is the host:port the system is reachable at.
	Address string `json:"address" yaml:"address"`
	// Age is the time since the last accepted advertise or heartbeat, in
	// whole seconds. Systems past the liveness timeout of the server are
	// listed with their real age, they are not filtered.
	Age int `json:"age_seconds" yaml:"age_seconds"`
}

// Listing holds the advertised systems of a rendezvous server.
type Listing struct {
	Server  string   `json:"server" yaml:"server"`
	Systems []System `json:"systems" yaml:"systems"`
}

// Human writes human readable output to the writer.
func (l Listing) Human(w io.Writer, colored bool) {
	header := color.New()
	if colored {
		header = color.New(color.FgHiBlack)
	}
	header.Fprintf(w, "%d systems:\n", len(l.Systems))
	rows := make([][]string, 0, len(l.Systems))
	for _, s := range l.Systems {
		rows = append(rows, []string{s.Name, s.Address, fmt.Sprintf("%ds", s.Age)})
	}
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	table.SetHeaderLine(false)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeader([]string{"NAME", "ADDRESS", "AGE"})
	table.AppendBulk(rows)
	table.Render()
}

// JSON writes the listing as a json object to the writer.
func (l Listing) JSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(l)
}

// List queries the server for all advertised systems.
func List(ctx context.Context, cfg Config) (*Listing, error) {
	conn, err := rendezvous.Dial(ctx, cfg.Server)
	if err != nil {
		return nil, serrors.Wrap("connecting to rendezvous server", err)
	}
	defer conn.Close()
	entries, err := conn.List(ctx)
	if err != nil {
		return nil, serrors.Wrap("listing systems", err)
	}
	listing := &Listing{
		Server:  cfg.Server,
		Systems: make([]System, 0, len(entries)),
	}
	for _, entry := range entries {
		listing.Systems = append(listing.Systems, System{
			Name:    entry.Name,
			Address: entry.Address,
			Age:     entry.Age,
		})
	}
	return listing, nil
}

// Discovery holds the result of a find query.
type Discovery struct {
	// Name is the system name that was looked up.
	Name string `json:"name" yaml:"name"`
	// Address is the host:port of the live host, empty if none was found.
	Address string `json:"address,omitempty" yaml:"address,omitempty"`
	// Found indicates whether a live host advertises the system.
	Found bool `json:"found" yaml:"found"`
}

// Human writes human readable output to the writer.
func (d Discovery) Human(w io.Writer, colored bool) {
	noColor := color.New()
	statusGood := noColor
	statusBad := noColor
	if colored {
		statusGood = color.New(color.FgGreen)
		statusBad = color.New(color.FgRed)
	}
	if d.Found {
		fmt.Fprintf(w, "%s %s\n", statusGood.Sprintf("%s at", d.Name), d.Address)
		return
	}
	fmt.Fprintf(w, "%s\n", statusBad.Sprintf("%s has no live host", d.Name))
}

// JSON writes the discovery as a json object to the writer.
func (d Discovery) JSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(d)
}

// Find queries the server for the address of the named system.
func Find(ctx context.Context, cfg Config, name string) (*Discovery, error) {
	conn, err := rendezvous.Dial(ctx, cfg.Server)
	if err != nil {
		return nil, serrors.Wrap("connecting to rendezvous server", err)
	}
	defer conn.Close()
	address, found, err := conn.Find(ctx, name)
	if err != nil {
		return nil, serrors.Wrap("looking up system", err)
	}
	return &Discovery{Name: name, Address: address, Found: found}, nil
}
