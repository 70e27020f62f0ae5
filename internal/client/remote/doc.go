// Package remote is the client's gateway to the backing store: PostgreSQL
// rows reached through pgx's database/sql driver and photo objects kept in
// an S3-compatible bucket.
//
// Every row operation is scoped to the principal passed as owner; tasks and
// photos are scoped through their parent time entry. The primary keys of
// inserted rows are generated by the server, and inserts carry the local
// speculative ID as client_id so replaying an insert whose acknowledgement
// was lost returns the existing row instead of creating a duplicate.
//
// Errors
//
// Failures are reported with the sentinels below, matched via errors.Is:
//
//   - ErrUnavailable: the store could not be reached or timed out.
//   - ErrRejected: the store answered and refused the request.
//   - ErrNotFound: the addressed row or object does not exist.
package remote
