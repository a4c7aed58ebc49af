// Package notifier is the asynchronous delivery pipeline for outbound chat
// messages: a bounded queue, a worker pool under a supervisor, a shared
// token-bucket rate limit and bounded retries with jittered backoff.
//
// Every notification produces bus events (queued, then sent, failed or
// dropped) so callers can account for outcomes without blocking on them.
// Delivery is best effort: a failed notification is reported, never requeued.
package notifier
