// Package webhook is the HTTP intake for Taiga webhooks.
//
// Every POST to the configured path is answered 200 "OK", whatever happens
// to the event afterwards; Taiga disables webhooks that keep failing, and a
// broken event cannot be fixed by redelivery.
package webhook
