// Package fakebackend is a local stand-in for the managed backend, used for
// development and end-to-end tests. It serves the same surfaces the console
// client speaks: the password-grant auth endpoints, the REST dialect the
// query builder emits (select with embeds, eq/ilike/in/or filters, ordering,
// Range paging with exact Content-Range totals), the admin_list_users
// procedure, and the bespoke watch-URL endpoint.
//
// Data lives in SQLite. The REST layer deliberately implements only the
// dialect subset the console uses; unknown operators are rejected loudly so
// a drifting client shows up in tests instead of silently matching nothing.
package fakebackend
