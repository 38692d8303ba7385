package engine

import (
	"sort"
	"sync"
)

// CheckTally counts the outcomes of one named check
type CheckTally struct {
	Passes int `json:"passes"`
	Fails  int `json:"fails"`
}

// Checks collects check outcomes from concurrent batches
type Checks struct {
	mu      sync.Mutex
	tallies map[string]*CheckTally
}

// NewChecks creates an empty tally set
func NewChecks() *Checks {
	return &Checks{tallies: make(map[string]*CheckTally)}
}

// Record adds one outcome for name. Safe on a nil receiver, which discards it.
func (c *Checks) Record(name string, ok bool) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	tally, exists := c.tallies[name]
	if !exists {
		tally = &CheckTally{}
		c.tallies[name] = tally
	}
	if ok {
		tally.Passes++
	} else {
		tally.Fails++
	}
}

// Snapshot returns a copy of the tallies, or nil when nothing was recorded
func (c *Checks) Snapshot() map[string]CheckTally {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.tallies) == 0 {
		return nil
	}
	out := make(map[string]CheckTally, len(c.tallies))
	for name, tally := range c.tallies {
		out[name] = *tally
	}
	return out
}

// Failed returns the names of checks with at least one failure, sorted
func (c *Checks) Failed() []string {
	var names []string
	for name, tally := range c.Snapshot() {
		if tally.Fails > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
