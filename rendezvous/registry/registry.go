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

// Package registry implements the directory of advertised systems. The
// directory is the single authoritative table mapping a system name to the
// peer that most recently advertised it.
package registry

import (
	"sort"
	"sync"
	"time"

	"github.com/starmapnet/starmap/rendezvous/transport"
)

// Record is the hosting entry for one system name.
type Record struct {
	// Name is the advertised system name and the unique key of the record.
	Name string
	// Owner is the identity of the connection that last advertised the
	// system. It is a non-owning reference, only used for equality when the
	// peer disconnects.
	Owner transport.PeerID
	// Address is the host:port the owner advertised, captured at advertise
	// or last refresh time.
	Address string
	// LastSeen is the time of the most recent accepted advertise or
	// heartbeat.
	LastSeen time.Time
}

// Entry is a point-in-time listing of one record.
type Entry struct {
	Name    string
	Address string
	// Age is the time since the record was last seen.
	Age time.Duration
}

// Directory is the table of advertised systems. All methods are safe for
// concurrent use; every operation runs to completion under one lock, so
// operations on the same name are totally ordered.
type Directory struct {
	mtx     sync.Mutex
	records map[string]*Record
}

// New creates an empty directory.
func New() *Directory {
	return &Directory{
		records: make(map[string]*Record),
	}
}

// Upsert inserts or overwrites the record for name. The previous owner, if
// any, is not consulted: the most recent advertiser always wins, even if it
// is a different peer. It reports whether an existing record was replaced.
func (d *Directory) Upsert(
	name string,
	owner transport.PeerID,
	address string,
	now time.Time,
) bool {

	d.mtx.Lock()
	defer d.mtx.Unlock()
	_, replaced := d.records[name]
	d.records[name] = &Record{
		Name:     name,
		Owner:    owner,
		Address:  address,
		LastSeen: now,
	}
	return replaced
}

// Lookup returns a copy of the record for name.
func (d *Directory) Lookup(name string) (Record, bool) {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	r, ok := d.records[name]
	if !ok {
		return Record{}, false
	}
	return *r, true
}

// Refresh extends the last-seen time of the record for name, provided the
// record exists and its stored address equals address. It reports whether
// the record was refreshed.
func (d *Directory) Refresh(name, address string, now time.Time) bool {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	r, ok := d.records[name]
	if !ok || r.Address != address {
		return false
	}
	r.LastSeen = now
	return true
}

// RemoveIfAddressMatches deletes the record for name, provided its stored
// address equals address. It reports whether a record was deleted.
func (d *Directory) RemoveIfAddressMatches(name, address string) bool {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	r, ok := d.records[name]
	if !ok || r.Address != address {
		return false
	}
	delete(d.records, name)
	return true
}

// RemoveAllOwnedBy deletes every record owned by the given peer identity,
// regardless of the recorded address. It returns the number of deleted
// records.
func (d *Directory) RemoveAllOwnedBy(owner transport.PeerID) int {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	var removed int
	for name, r := range d.records {
		if r.Owner == owner {
			delete(d.records, name)
			removed++
		}
	}
	return removed
}

// RemoveStale deletes every record whose age exceeds timeout. A record at
// exactly the timeout is kept. It returns the number of deleted records.
func (d *Directory) RemoveStale(now time.Time, timeout time.Duration) int {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	var removed int
	for name, r := range d.records {
		if now.Sub(r.LastSeen) > timeout {
			delete(d.records, name)
			removed++
		}
	}
	return removed
}

// Entries lists all records with their age relative to now, sorted by name.
// The listing is unfiltered and includes records that are stale but not yet
// reaped.
func (d *Directory) Entries(now time.Time) []Entry {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	entries := make([]Entry, 0, len(d.records))
	for _, r := range d.records {
		entries = append(entries, Entry{
			Name:    r.Name,
			Address: r.Address,
			Age:     now.Sub(r.LastSeen),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})
	return entries
}

// Len returns the number of records in the directory.
func (d *Directory) Len() int {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	return len(d.records)
}
