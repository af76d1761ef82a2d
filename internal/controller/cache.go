package controller

import (
	"sort"
	"time"

	"github.com/woozymasta/mgrsgrid/internal/geo"
)

// State is the lifecycle position of a cache entry.
type State int

const (
	Unrequested State = iota
	Pending
	Resolved
	Failed
)

func (s State) String() string {
	switch s {
	case Unrequested:
		return "unrequested"
	case Pending:
		return "pending"
	case Resolved:
		return "resolved"
	case Failed:
		return "error"
	}
	return "unknown"
}

// Entry is the cached generation state of one key.
type Entry struct {
	Key       string
	Parent    string
	Precision int
	State     State
	Features  []geo.GridPolygon
	Err       error
	Attempts  int
	UpdatedAt time.Time
}

// EntryInfo is the exported summary of an entry.
type EntryInfo struct {
	Key       string    `json:"key"`
	Parent    string    `json:"parent,omitempty"`
	Precision int       `json:"precision"`
	State     string    `json:"state"`
	Features  int       `json:"features"`
	Attempts  int       `json:"attempts"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Stats counts entries by state.
type Stats struct {
	Pending  int `json:"pending"`
	Resolved int `json:"resolved"`
	Failed   int `json:"error"`
	Features int `json:"features"`
}

// Cache maps keys to entries. It has a single owner and no locking.
// Resolved entries are never evicted; Reset drops everything.
type Cache struct {
	entries map[string]*Entry
	now     func() time.Time
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]*Entry), now: time.Now}
}

// State returns the state of key; keys never seen are Unrequested.
func (c *Cache) State(key string) State {
	if e, ok := c.entries[key]; ok {
		return e.State
	}
	return Unrequested
}

// Get returns the entry of key.
func (c *Cache) Get(key string) (*Entry, bool) {
	e, ok := c.entries[key]
	return e, ok
}

// Begin moves key to Pending when it is Unrequested or Failed. It returns
// false, leaving the entry untouched, when the key is Pending or Resolved.
func (c *Cache) Begin(key, parent string, precision int) bool {
	e, ok := c.entries[key]
	if !ok {
		e = &Entry{Key: key}
		c.entries[key] = e
	}
	if e.State == Pending || e.State == Resolved {
		return false
	}

	e.Parent = parent
	e.Precision = precision
	e.State = Pending
	e.Err = nil
	e.Attempts++
	e.UpdatedAt = c.now()
	return true
}

// Resolve stores the features of a pending key. Keys that are not pending
// are left alone, which drops results arriving after Reset.
func (c *Cache) Resolve(key string, features []geo.GridPolygon) bool {
	e, ok := c.entries[key]
	if !ok || e.State != Pending {
		return false
	}
	e.State = Resolved
	e.Features = features
	e.UpdatedAt = c.now()
	return true
}

// Fail records the error of a pending key. A failed key is eligible for
// Begin again.
func (c *Cache) Fail(key string, err error) bool {
	e, ok := c.entries[key]
	if !ok || e.State != Pending {
		return false
	}
	e.State = Failed
	e.Err = err
	e.UpdatedAt = c.now()
	return true
}

// PendingKeys returns the keys awaiting a result.
func (c *Cache) PendingKeys() []string {
	var keys []string
	for k, e := range c.entries {
		if e.State == Pending {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Reset returns every key to Unrequested.
func (c *Cache) Reset() {
	c.entries = make(map[string]*Entry)
}

// Len returns the number of entries.
func (c *Cache) Len() int {
	return len(c.entries)
}

// Stats counts entries per state.
func (c *Cache) Stats() Stats {
	var s Stats
	for _, e := range c.entries {
		switch e.State {
		case Pending:
			s.Pending++
		case Resolved:
			s.Resolved++
			s.Features += len(e.Features)
		case Failed:
			s.Failed++
		}
	}
	return s
}

// Entries summarises every entry, sorted by key.
func (c *Cache) Entries() []EntryInfo {
	out := make([]EntryInfo, 0, len(c.entries))
	for _, e := range c.entries {
		info := EntryInfo{
			Key:       e.Key,
			Parent:    e.Parent,
			Precision: e.Precision,
			State:     e.State.String(),
			Features:  len(e.Features),
			Attempts:  e.Attempts,
			UpdatedAt: e.UpdatedAt,
		}
		if e.Err != nil {
			info.Error = e.Err.Error()
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
