// Package tracker is the listing tracking engine: named query
// configurations, the seen-listing set, the notification builder and the
// polling loop that ties them to a fetcher and a dispatcher.
//
// A listing id is marked seen the moment a cycle detects it, before any
// delivery is attempted, so a failed delivery is never retried by a later
// cycle. At most MaxPerCycle notifications are dispatched per configuration
// per cycle; the rest of the new ids are still marked seen.
package tracker
