// Package console implements the screen controllers behind the admin UI.
//
// Every listing screen follows the same contract: a validated filter set and
// a zero-based page feed exactly one backend query that applies the filters,
// orders by a stable column, and fetches the page rows together with the
// exact matching total. Detail screens validate the route identifier before
// any network round trip and treat a zero-row result as not-found rather
// than an error.
//
// Fetches are re-triggered whenever filters or the page change, so each
// screen tags in-flight work with a generation counter and discards results
// whose generation is no longer current: only the most recently triggered
// fetch may determine visible state, regardless of response arrival order.
//
// The only mutations in the console live here too: support ticket status
// updates (a conditional patch merged field-by-field into the in-memory
// row) and watch-URL grants (ephemeral, never stored).
package console
