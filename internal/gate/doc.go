// Package gate is the authorization guard in front of every protected
// console screen.
//
// The gate derives one of four states from the session store: loading,
// unauthenticated, unauthorized, or authorized. Unauthenticated callers are
// redirected to sign-in by the shell; an authenticated but non-admin caller
// is signed out on the spot and shown a fixed not-authorized message with no
// redirect, making the condition terminal for that browsing session. The
// admin flag on the backend user record is the sole authorization signal.
package gate
