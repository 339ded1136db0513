// Package session holds the backend auth session for one operator and
// broadcasts changes to dependents.
//
// The store is injected at the composition root rather than living as a
// package-level global: each browsing session of the console gets its own
// Store, and everything downstream (the admin gate, the screens) reads from
// the instance it was handed. Screens never mutate auth state directly;
// they call SignIn/SignOut, which route through the backend and publish the
// outcome as a Change event.
package session
