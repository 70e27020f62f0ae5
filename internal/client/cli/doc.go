// Package cli provides the interactive worklog command-line client.
//
// The REPL records the working day (time in/out, tasks, photos) and
// settings through services.Repository. Every command works offline:
// writes land in the local store and are replayed when the connection
// comes back or on "sync". The prompt shows the signed-in principal, the
// connectivity mode and the number of pending writes.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App and runREPL for details.
package cli
