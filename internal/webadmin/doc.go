// Package webadmin serves the operator-facing web UI of the console.
//
// Every page is rendered server side from embedded templates. State lives in
// two places: the backend itself (all records) and a per-cookie browser
// session holding the operator's backend credential and one instance of each
// screen controller from the console package. Handlers translate query
// parameters into screen inputs, trigger a load, and render the screen's
// snapshot; they never talk to the backend directly except for the
// dashboard's aggregate counts.
//
// Authentication is a backend password grant guarded by the admin gate: an
// account without the admin claim is signed out immediately after signing
// in and shown a not-authorized page. Mutating routes are protected by a
// double-submit CSRF token.
package webadmin
