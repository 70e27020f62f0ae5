// Package services implements the offline sync engine of the client: the
// sync-aware Repository that prefers the remote store and falls back to the
// local mirror, the Drainer that replays queued writes, the Bootstrapper
// that seeds the mirror after sign-in, and the SessionService that owns the
// signed-in principal.
//
// All of them share one Store, the handle to the local mirror created by
// the composition root.
package services
