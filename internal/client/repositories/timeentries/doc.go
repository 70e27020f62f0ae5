// Package timeentries stores the local mirror of time entries in SQLite.
//
// Rows are unique per (owner, date). Dates are kept as YYYY-MM-DD text so
// they order correctly as strings; created_at uses dbx.FormatTime.
package timeentries
