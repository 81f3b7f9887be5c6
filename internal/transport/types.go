package transport

import "context"

type ChatTarget struct {
	ChatID   int64
	ThreadID int
}

type MessageRef struct {
	ChatID    int64
	ThreadID  int
	MessageID int
}

type SendOptions struct {
	ParseMode      string
	DisablePreview bool
}

// Notification is one outbound message queued on the notifier.
type Notification struct {
	Channel string // "telegram"
	Target  ChatTarget
	Text    string
	Options *SendOptions
	// Key, when set, is used for dedup instead of hashing Text.
	Key string
}

// Sender delivers text to a chat on the messaging platform.
type Sender interface {
	SendText(ctx context.Context, to ChatTarget, text string, opt *SendOptions) (MessageRef, error)
}

// Adapter is a Sender with a lifecycle (e.g. a long-poll loop for commands).
type Adapter interface {
	Sender
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
