// Package relay turns Taiga webhook events into per-recipient Telegram
// notifications.
//
// The pipeline is synchronous and holds no shared mutable state:
//
//	DecodeEvent -> Classify -> resolve recipients -> Format -> RenderHTML
//
// Classify decides which categories an event triggers (mention, comment,
// description change, status change, assignment). Each category resolves
// its candidates against a Directory snapshot, drops users without a valid
// address or with the category switched off, and renders one payload that
// every recipient of the category receives. Orchestrator.Plan runs the
// categories independently; a failure in one is reported and the others
// still produce instructions.
package relay
