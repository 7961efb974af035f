package fsm

import (
	"context"
	"log/slog"

	"github.com/stickfix/stickfix/internal/ephemeral"
	"github.com/stickfix/stickfix/internal/store"
)

// User is a transient value copy of a persisted user row, refreshed from
// the store at each dispatch (§3 "Ownership").
type User struct {
	ID       int64
	Username string
	State    State
}

// Deps are the stores a transition's side effect may call into.
type Deps struct {
	Persistent *store.Store
	Ephemeral  *ephemeral.Store
	Logger     *slog.Logger
}

func (d Deps) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

func (d Deps) logFailure(u User, event string, err string) {
	d.logger().Warn("transition failed",
		slog.Int64("user_id", u.ID),
		slog.String("state", u.State.String()),
		slog.String("event", event),
		slog.String("reason", err))
}

// OnStart: Idle -> Start, staging the user in the ephemeral store.
func (u *User) OnStart(ctx context.Context, d Deps) TransitionResult {
	if u.State != Idle {
		d.logFailure(*u, "onStart", "not in Idle")
		return TransitionFailure(u.State)
	}
	res := d.Ephemeral.Add(ctx, u.ID, u.Username, Start.String())
	if !res.OK() {
		d.logFailure(*u, "onStart", res.Message())
		return TransitionFailure(u.State)
	}
	u.State = Start
	return TransitionSuccess(u.State)
}

// OnIdle has no allowed transition in any state; it always fails per the
// table's documented default.
func (u *User) OnIdle(ctx context.Context, d Deps) TransitionResult {
	d.logFailure(*u, "onIdle", "no allowed transition")
	return TransitionFailure(u.State)
}

// OnRevoke: Idle -> Revoke.
func (u *User) OnRevoke(ctx context.Context, d Deps) TransitionResult {
	if u.State != Idle {
		d.logFailure(*u, "onRevoke", "not in Idle")
		return TransitionFailure(u.State)
	}
	return u.setState(ctx, d, "onRevoke", Revoke)
}

// OnPrivateMode: Idle -> PrivateMode.
func (u *User) OnPrivateMode(ctx context.Context, d Deps) TransitionResult {
	if u.State != Idle {
		d.logFailure(*u, "onPrivateMode", "not in Idle")
		return TransitionFailure(u.State)
	}
	return u.setState(ctx, d, "onPrivateMode", PrivateMode)
}

// OnShuffle: Idle -> Shuffle.
func (u *User) OnShuffle(ctx context.Context, d Deps) TransitionResult {
	if u.State != Idle {
		d.logFailure(*u, "onShuffle", "not in Idle")
		return TransitionFailure(u.State)
	}
	return u.setState(ctx, d, "onShuffle", Shuffle)
}

func (u *User) setState(ctx context.Context, d Deps, event string, newState State) TransitionResult {
	res := d.Persistent.SetUserState(ctx, u.ID, newState.String())
	if !res.OK() {
		d.logFailure(*u, event, res.Message())
		return TransitionFailure(u.State)
	}
	u.State = newState
	return TransitionSuccess(u.State)
}

// OnStartConfirmation: Start -> Idle. Promotes the ephemeral registrant
// to the persistent store.
func (u *User) OnStartConfirmation(ctx context.Context, d Deps) TransitionResult {
	if u.State != Start {
		d.logFailure(*u, "onStartConfirmation", "not in Start")
		return TransitionFailure(u.State)
	}
	if res := d.Persistent.AddUser(ctx, u.ID, u.Username); !res.OK() {
		d.logFailure(*u, "onStartConfirmation", res.Message())
		return TransitionFailure(u.State)
	}
	if res := d.Ephemeral.Delete(ctx, u.ID); !res.OK() {
		d.logFailure(*u, "onStartConfirmation", res.Message())
		return TransitionFailure(u.State)
	}
	if res := d.Persistent.SetUserState(ctx, u.ID, Idle.String()); !res.OK() {
		d.logFailure(*u, "onStartConfirmation", res.Message())
		return TransitionFailure(u.State)
	}
	u.State = Idle
	return TransitionSuccess(u.State)
}

// OnStartRejection: Start -> Idle. Discards the ephemeral registrant.
func (u *User) OnStartRejection(ctx context.Context, d Deps) TransitionResult {
	if u.State != Start {
		d.logFailure(*u, "onStartRejection", "not in Start")
		return TransitionFailure(u.State)
	}
	if res := d.Ephemeral.Delete(ctx, u.ID); !res.OK() {
		d.logFailure(*u, "onStartRejection", res.Message())
		return TransitionFailure(u.State)
	}
	u.State = Idle
	return TransitionSuccess(u.State)
}

// OnRevokeConfirmation: Revoke -> Idle. Deletes the persisted user.
func (u *User) OnRevokeConfirmation(ctx context.Context, d Deps) TransitionResult {
	if u.State != Revoke {
		d.logFailure(*u, "onRevokeConfirmation", "not in Revoke")
		return TransitionFailure(u.State)
	}
	if res := d.Persistent.DeleteUser(ctx, u.ID); !res.OK() {
		d.logFailure(*u, "onRevokeConfirmation", res.Message())
		return TransitionFailure(u.State)
	}
	u.State = Idle
	return TransitionSuccess(u.State)
}

// OnRevokeRejection: Revoke -> Idle.
func (u *User) OnRevokeRejection(ctx context.Context, d Deps) TransitionResult {
	if u.State != Revoke {
		d.logFailure(*u, "onRevokeRejection", "not in Revoke")
		return TransitionFailure(u.State)
	}
	return u.setState(ctx, d, "onRevokeRejection", Idle)
}

// OnPrivateModeEnabled: PrivateMode -> Idle.
func (u *User) OnPrivateModeEnabled(ctx context.Context, d Deps) TransitionResult {
	return u.setMode(ctx, d, "onPrivateModeEnabled", true, d.Persistent.SetPrivateMode)
}

// OnPrivateModeDisabled: PrivateMode -> Idle.
func (u *User) OnPrivateModeDisabled(ctx context.Context, d Deps) TransitionResult {
	return u.setMode(ctx, d, "onPrivateModeDisabled", false, d.Persistent.SetPrivateMode)
}

// OnShuffleEnabled: Shuffle -> Idle.
func (u *User) OnShuffleEnabled(ctx context.Context, d Deps) TransitionResult {
	return u.setMode(ctx, d, "onShuffleEnabled", true, d.Persistent.SetShuffleMode)
}

// OnShuffleDisabled: Shuffle -> Idle.
func (u *User) OnShuffleDisabled(ctx context.Context, d Deps) TransitionResult {
	return u.setMode(ctx, d, "onShuffleDisabled", false, d.Persistent.SetShuffleMode)
}

func (u *User) setMode(ctx context.Context, d Deps, event string, enabled bool, apply func(context.Context, int64, bool) store.Result[bool]) TransitionResult {
	expected := PrivateMode
	if event == "onShuffleEnabled" || event == "onShuffleDisabled" {
		expected = Shuffle
	}
	if u.State != expected {
		d.logFailure(*u, event, "not in "+expected.String())
		return TransitionFailure(u.State)
	}
	if res := apply(ctx, u.ID, enabled); !res.OK() {
		d.logFailure(*u, event, res.Message())
		return TransitionFailure(u.State)
	}
	u.State = Idle
	return TransitionSuccess(u.State)
}
