package command

import (
	"context"

	"github.com/stickfix/stickfix/internal/chattransport"
	"github.com/stickfix/stickfix/internal/fsm"
)

// Callback is named by its class tag (§4.4, §6 "Callback names").
type Callback struct {
	Name    string
	Handler func(ctx context.Context, cq chattransport.CallbackQuery) Result
}

// Callbacks returns the eight confirmation callbacks StickFix registers
// with its chat transport.
func (h *Handlers) Callbacks() []Callback {
	return []Callback{
		h.transitionCallback("StartConfirmationYes", h.lookupEphemeral, (*fsm.User).OnStartConfirmation, startConfirmedMessage),
		h.transitionCallback("StartConfirmationNo", h.lookupEphemeral, (*fsm.User).OnStartRejection, startRejectedMessage),
		h.transitionCallback("RevokeConfirmationYes", h.lookupPersistent, (*fsm.User).OnRevokeConfirmation, revokeConfirmedMessage),
		h.transitionCallback("RevokeConfirmationNo", h.lookupPersistent, (*fsm.User).OnRevokeRejection, revokeRejectedMessage),
		h.transitionCallback("PrivateModeEnabledCallback", h.lookupPersistent, (*fsm.User).OnPrivateModeEnabled, privateModeEnabledMessage),
		h.transitionCallback("PrivateModeDisabledCallback", h.lookupPersistent, (*fsm.User).OnPrivateModeDisabled, privateModeDisabledMessage),
		h.transitionCallback("ShuffleEnabledCallback", h.lookupPersistent, (*fsm.User).OnShuffleEnabled, shuffleEnabledMessage),
		h.transitionCallback("ShuffleDisabledCallback", h.lookupPersistent, (*fsm.User).OnShuffleDisabled, shuffleDisabledMessage),
	}
}
