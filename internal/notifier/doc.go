// Package notifier delivers rendered Taiga notifications to Telegram chats.
//
// Messages go through a bounded queue served by a worker pool. Each send
// waits on a shared token bucket, is retried with jittered exponential
// backoff on transient errors, and is suppressed when the same key was
// delivered within the dedup window. Taiga re-sends a webhook when it does
// not get a timely answer, so the dedup window is what keeps users from
// seeing the same message twice. The window can be persisted through the
// storage package so it survives restarts.
//
// # Transport
//
// Delivery is delegated to a transport.Sender (the Telegram adapter in
// production, a fake in tests).
//
// # Events
//
// Lifecycle events (queued, sent, failed, deduped, dropped) are published on
// the event bus; the app logs them.
package notifier
