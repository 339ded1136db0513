// ABOUTME: Shared fetch state for screen controllers
// ABOUTME: Generation counter ensures only the latest fetch determines visible state

package console

import "sync"

// screenCore carries the state every screen shares: the mutex guarding the
// screen's fields, the loading flag, the screen-level error message, and the
// fetch generation counter.
//
// A fetch calls begin() before its round trips and apply() after: begin
// bumps the generation and apply runs the state mutation only if no newer
// fetch has begun since. A superseded fetch's result is silently discarded,
// so rapid re-triggers (page flips, filter changes) always settle on the
// last-requested state no matter the response arrival order.
type screenCore struct {
	mu      sync.Mutex
	gen     uint64
	loading bool
	errMsg  string
}

// begin marks a new fetch: bumps the generation, raises the loading flag,
// and clears the previous error. Returns the fetch's generation token.
// Callers that need a consistent snapshot of screen inputs should hold
// mu themselves and call beginLocked.
func (c *screenCore) begin() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.beginLocked()
}

func (c *screenCore) beginLocked() uint64 {
	c.gen++
	c.loading = true
	c.errMsg = ""
	return c.gen
}

// apply runs fn under the lock if gen is still the current generation and
// lowers the loading flag. Returns false when the fetch was superseded, in
// which case fn does not run and loading is left for the newer fetch to
// resolve.
func (c *screenCore) apply(gen uint64, fn func()) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return false
	}
	fn()
	c.loading = false
	return true
}

// fail records an error outcome for the fetch, if still current.
func (c *screenCore) fail(gen uint64, message string, also func()) bool {
	return c.apply(gen, func() {
		c.errMsg = message
		if also != nil {
			also()
		}
	})
}
