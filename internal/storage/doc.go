// Package storage persists the notifier's dedup windows across restarts.
//
// Two drivers exist: a file backend (snapshot plus append-only journal) and
// SQLite through sqlx. Expired keys are dropped by PruneExpired, which the
// app runs on a cron schedule.
package storage
