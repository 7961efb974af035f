// Package chattransport defines the narrow port the core depends on to
// talk to a chat platform (§6 "Chat transport contract"). internal/telegram
// is its only implementation; no other package may reference transport
// vocabulary directly.
package chattransport

import "github.com/stickfix/stickfix/internal/store"

// Unit is the empty success payload for operations with no data to
// return, carried by Result[Unit] rather than a bare error so Send
// participates in the same sum-type discipline as the stores.
type Unit struct{}

// Button is one inline-keyboard button: a label shown to the user and
// the stable callback name invoked when pressed.
type Button struct {
	Label        string
	CallbackName string
}

// InlineKeyboard is an ordered set of button rows.
type InlineKeyboard struct {
	Rows [][]Button
}

// Sender identifies who sent an inbound message or callback query.
type Sender struct {
	ID       int64
	Username string
}

// Message is an inbound command invocation.
type Message struct {
	Sender  Sender
	Command string
	Args    string
	ReplyTo *ReplyTarget
}

// ReplyTarget describes the message a command was sent in reply to, used
// by the chat-scoped /add command to locate the attached sticker.
type ReplyTarget struct {
	StickerID string
}

// CallbackQuery is an inbound inline-keyboard button press.
type CallbackQuery struct {
	Sender Sender
	Name   string
}

// Transport is the chat-platform port the core consumes.
type Transport interface {
	// Send delivers text to userID, optionally with an inline keyboard.
	Send(userID int64, text string, keyboard *InlineKeyboard) store.Result[Unit]

	// OnCommand registers handler to run for every inbound command
	// named name (without the leading slash).
	OnCommand(name string, handler func(Message))

	// OnCallbackQuery registers handler to run for every inbound
	// callback query named name.
	OnCallbackQuery(name string, handler func(CallbackQuery))
}
