// Package storage is the optional persistence layer.
//
// It keeps:
//   - an append-only audit log of chat commands
//   - the tracking configuration snapshot, so configs survive restarts
//
// Seen listing ids are deliberately not stored here.
package storage
