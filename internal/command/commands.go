package command

import (
	"context"
	"log/slog"
	"strings"

	"github.com/stickfix/stickfix/internal/chattransport"
	"github.com/stickfix/stickfix/internal/fsm"
	"github.com/stickfix/stickfix/internal/store"
)

// Command is {name, description, handler} (§4.4).
type Command struct {
	Name        string
	Description string
	Handler     func(ctx context.Context, msg chattransport.Message) Result
}

// Commands returns the full command set StickFix registers with its
// chat transport.
func (h *Handlers) Commands() []Command {
	return []Command{
		h.newStartCommand(),
		h.userScopedCommand("revoke", "Remove your registration", func(ctx context.Context, msg chattransport.Message, user fsm.User) Result {
			kb := confirmationKeyboard("Yes", "RevokeConfirmationYes", "No", "RevokeConfirmationNo")
			return h.promptThenTransition(ctx, user, "revoking", revokePrompt, kb, (*fsm.User).OnRevoke)
		}),
		h.userScopedCommand("private", "Toggle private mode", func(ctx context.Context, msg chattransport.Message, user fsm.User) Result {
			kb := confirmationKeyboard("Enable", "PrivateModeEnabledCallback", "Disable", "PrivateModeDisabledCallback")
			return h.promptThenTransition(ctx, user, "setting private mode", privateModePrompt, kb, (*fsm.User).OnPrivateMode)
		}),
		h.userScopedCommand("shuffle", "Toggle shuffle mode", func(ctx context.Context, msg chattransport.Message, user fsm.User) Result {
			kb := confirmationKeyboard("Enable", "ShuffleEnabledCallback", "Disable", "ShuffleDisabledCallback")
			return h.promptThenTransition(ctx, user, "setting shuffle mode", shufflePrompt, kb, (*fsm.User).OnShuffle)
		}),
		h.newAddCommand(),
		h.newHelpCommand(),
	}
}

// newStartCommand implements §4.4's special-cased start command: the
// "not registered" branch is the happy path.
func (h *Handlers) newStartCommand() Command {
	return Command{
		Name:        "start",
		Description: "Register with StickFix",
		Handler: func(ctx context.Context, msg chattransport.Message) Result {
			if _, ok := h.lookupPersistent(ctx, msg.Sender.ID); ok {
				h.Transport.Send(msg.Sender.ID, welcomeBackMessage, nil)
				return CommandSuccess(msg.Sender.ID, "already registered")
			}

			user := fsm.User{ID: msg.Sender.ID, Username: msg.Sender.Username, State: fsm.Idle}
			kb := confirmationKeyboard("Yes", "StartConfirmationYes", "No", "StartConfirmationNo")
			sendRes := h.Transport.Send(user.ID, startConsentPrompt, kb)
			if !sendRes.OK() {
				return CommandFailure(user.ID, "send failed")
			}
			h.logger().Info("user starting registration", slog.Int64("user_id", user.ID))
			user.OnStart(ctx, h.Deps)
			return CommandSuccess(user.ID, "registration prompt sent")
		},
	}
}

// newAddCommand implements §4.4's chat-scoped command: it operates
// against a chat, not necessarily a registered user. A sender with no
// registration owns the sticker as the default user (store.DefaultUserID),
// StickFix's synthetic owner of non-registered public stickers.
func (h *Handlers) newAddCommand() Command {
	return Command{
		Name:        "add",
		Description: "Tag the sticker you replied to",
		Handler: func(ctx context.Context, msg chattransport.Message) Result {
			if msg.ReplyTo == nil {
				h.Transport.Send(msg.Sender.ID, pleaseReplyToStickerMessage, nil)
				return CommandFailure(msg.Sender.ID, "no sticker reply")
			}
			ownerID := store.DefaultUserID
			if _, ok := h.lookupPersistent(ctx, msg.Sender.ID); ok {
				ownerID = msg.Sender.ID
			}
			tags := tokenizeTags(msg.Args)
			res := h.Deps.Persistent.AddSticker(ctx, ownerID, msg.ReplyTo.StickerID, tags)
			if !res.OK() {
				h.Transport.Send(msg.Sender.ID, addFailedMessage, nil)
				return CommandFailure(msg.Sender.ID, res.Message())
			}
			h.Transport.Send(msg.Sender.ID, addSucceededMessage, nil)
			return CommandSuccess(msg.Sender.ID, "sticker added")
		},
	}
}

func (h *Handlers) newHelpCommand() Command {
	return Command{
		Name:        "help",
		Description: "List available commands",
		Handler: func(ctx context.Context, msg chattransport.Message) Result {
			h.Transport.Send(msg.Sender.ID, helpMessage, nil)
			return CommandSuccess(msg.Sender.ID, "help sent")
		},
	}
}

// tokenizeTags splits a command argument string into lower-cased,
// deduplicated tags (§9 Open Question resolution).
func tokenizeTags(args string) []string {
	fields := strings.Fields(args)
	seen := make(map[string]bool, len(fields))
	tags := make([]string, 0, len(fields))
	for _, f := range fields {
		tag := strings.ToLower(f)
		if seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	return tags
}
