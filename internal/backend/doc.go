// Package backend is the typed client for the managed backend that owns
// all console data.
//
// The backend exposes three surfaces, all plain HTTP:
//
//   - a relational REST interface (/rest/v1/{table}) speaking the PostgREST
//     dialect: select projections with resource embedding, eq/ilike/in/or
//     predicates, ordering, Range-header pagination, and exact row counts
//     via Prefer: count=exact,
//   - remote procedures (/rest/v1/rpc/{name}), of which the console uses
//     admin_list_users,
//   - token auth (/auth/v1): password grant sign-in and sign-out.
//
// One bespoke endpoint lives outside the REST surface:
// GET /api/v1/admin/recordings/{id}/watch-url returns a short-lived signed
// playback URL for a recording.
//
// The console never owns the data: it reads projections and performs exactly
// two writes (support ticket status, ephemeral watch-URL grants). Errors from
// the backend are surfaced verbatim; a zero-row single-entity read is the
// distinct ErrNotFound, not an error message.
package backend
