// Package transport holds the chat-platform neutral types shared by the
// Telegram adapter, the command router and the notification pipeline.
package transport

import (
	"context"
	"strconv"
)

type Update struct {
	Message *Message
}

type Message struct {
	ID           int
	ChatID       int64
	ThreadID     int // forum topic id, 0 if none
	FromID       int64
	FromUsername string
	Text         string
}

// ChatTarget addresses a chat (and optionally a forum topic).
type ChatTarget struct {
	ChatID   int64 `json:"chat_id"`
	ThreadID int   `json:"thread_id,omitempty"`
}

// Resolvable reports whether the target names a chat at all.
func (t ChatTarget) Resolvable() bool { return t.ChatID != 0 }

func (t ChatTarget) String() string {
	s := strconv.FormatInt(t.ChatID, 10)
	if t.ThreadID != 0 {
		s += ":" + strconv.Itoa(t.ThreadID)
	}
	return s
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

// Sender delivers text to a chat.
type Sender interface {
	SendText(ctx context.Context, to ChatTarget, text string, opt *SendOptions) (MessageRef, error)
}

type Adapter interface {
	Sender
	Start(ctx context.Context, out chan<- Update) error
	Stop(ctx context.Context) error
	// Ready is closed once the adapter is connected and receiving updates.
	Ready() <-chan struct{}
}

// BotCommand is one entry of the platform command menu.
type BotCommand struct {
	Command     string
	Description string
}

// MenuUpdater is implemented by adapters with a command menu.
type MenuUpdater interface {
	UpdateMenuCommands(ctx context.Context, cmds []BotCommand) error
}
