package command

import (
	"context"
	"log/slog"

	"github.com/stickfix/stickfix/internal/chattransport"
	"github.com/stickfix/stickfix/internal/fsm"
)

// Handlers builds the Command and Callback set, closing over the stores
// and transport every handler needs.
type Handlers struct {
	Deps      fsm.Deps
	Transport chattransport.Transport
	Logger    *slog.Logger
}

func (h *Handlers) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func confirmationKeyboard(yesLabel, yesCallback, noLabel, noCallback string) *chattransport.InlineKeyboard {
	return &chattransport.InlineKeyboard{
		Rows: [][]chattransport.Button{
			{
				{Label: yesLabel, CallbackName: yesCallback},
				{Label: noLabel, CallbackName: noCallback},
			},
		},
	}
}

// lookupPersistent loads a registered user as an fsm.User, or reports
// false if the id isn't registered or its stored state fails resolution.
func (h *Handlers) lookupPersistent(ctx context.Context, id int64) (fsm.User, bool) {
	res := h.Deps.Persistent.GetUser(ctx, id)
	if !res.OK() {
		return fsm.User{}, false
	}
	row, _ := res.Data()
	state, err := fsm.FromName(row.State)
	if err != nil {
		h.logger().Error("state resolution failed", slog.Int64("user_id", row.ID), slog.String("error", err.Error()))
		return fsm.User{}, false
	}
	return fsm.User{ID: row.ID, Username: row.Username, State: state}, true
}

// lookupEphemeral loads a pre-confirmation registrant as an fsm.User.
// Start confirmation/rejection callbacks resolve against the ephemeral
// store rather than the persistent one, since by construction a user
// awaiting start confirmation has no persistent row yet.
func (h *Handlers) lookupEphemeral(ctx context.Context, id int64) (fsm.User, bool) {
	res := h.Deps.Ephemeral.Get(ctx, id)
	if !res.OK() {
		return fsm.User{}, false
	}
	row, _ := res.Data()
	state, err := fsm.FromName(row.State)
	if err != nil {
		h.logger().Error("state resolution failed", slog.Int64("user_id", row.ID), slog.String("error", err.Error()))
		return fsm.User{}, false
	}
	return fsm.User{ID: row.ID, Username: row.Username, State: state}, true
}

// userScopedCommand implements the §4.4 "user-scoped command" shape:
// getUser success routes to onRegistered, failure sends a "not
// registered" message and fails.
func (h *Handlers) userScopedCommand(name, description string, onRegistered func(ctx context.Context, msg chattransport.Message, user fsm.User) Result) Command {
	return Command{
		Name:        name,
		Description: description,
		Handler: func(ctx context.Context, msg chattransport.Message) Result {
			user, ok := h.lookupPersistent(ctx, msg.Sender.ID)
			if !ok {
				h.Transport.Send(msg.Sender.ID, notRegisteredMessage, nil)
				return CommandFailure(msg.Sender.ID, "user not registered")
			}
			return onRegistered(ctx, msg, user)
		},
	}
}

// promptThenTransition implements the §4.4 "registered-user prompt
// pattern": log, send the confirmation prompt, and on successful send
// invoke the transition and report success; a send failure leaves state
// untouched.
func (h *Handlers) promptThenTransition(ctx context.Context, user fsm.User, action, prompt string, keyboard *chattransport.InlineKeyboard, transition func(*fsm.User, context.Context, fsm.Deps) fsm.TransitionResult) Result {
	h.logger().Info("user invoking action", slog.Int64("user_id", user.ID), slog.String("action", action))
	sendRes := h.Transport.Send(user.ID, prompt, keyboard)
	if !sendRes.OK() {
		return CommandFailure(user.ID, "send failed")
	}
	transition(&user, ctx, h.Deps)
	return CommandSuccess(user.ID, "prompt sent")
}

// transitionCallback implements the §4.4 callback shape: resolve the
// user via lookup, invoke transition, send a confirmation message.
func (h *Handlers) transitionCallback(name string, lookup func(context.Context, int64) (fsm.User, bool), transition func(*fsm.User, context.Context, fsm.Deps) fsm.TransitionResult, confirmMessage string) Callback {
	return Callback{
		Name: name,
		Handler: func(ctx context.Context, cq chattransport.CallbackQuery) Result {
			user, ok := lookup(ctx, cq.Sender.ID)
			if !ok {
				return CallbackFailure(cq.Sender.ID, "not registered")
			}
			result := transition(&user, ctx, h.Deps)
			if !result.OK() {
				return CallbackFailure(cq.Sender.ID, "transition failed")
			}
			sendRes := h.Transport.Send(user.ID, confirmMessage, nil)
			if !sendRes.OK() {
				return CallbackFailure(cq.Sender.ID, "send failed")
			}
			return CallbackSuccess(cq.Sender.ID, "confirmed")
		},
	}
}
