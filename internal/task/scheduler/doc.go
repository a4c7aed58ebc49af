// Package scheduler triggers named jobs on cron specs or fixed intervals.
//
// Every job runs with skip-if-still-running semantics, panic recovery and an
// optional timeout, on a context that Stop cancels.
package scheduler
