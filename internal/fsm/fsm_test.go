package fsm

import (
	"context"
	"testing"
	"time"

	stickfixdb "github.com/stickfix/stickfix/internal/db"
	"github.com/stickfix/stickfix/internal/ephemeral"
	"github.com/stickfix/stickfix/internal/store"
	"github.com/stickfix/stickfix/migrations"
)

func newTestDeps(t *testing.T) Deps {
	t.Helper()
	conn, err := stickfixdb.Open(stickfixdb.Driver, ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	persistent, err := store.Init(nil, conn, migrations.FS)
	if err != nil {
		t.Fatalf("store init: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	eph, err := ephemeral.Init(ctx, nil, time.Hour, time.Hour)
	if err != nil {
		t.Fatalf("ephemeral init: %v", err)
	}
	t.Cleanup(func() { eph.Close() })

	return Deps{Persistent: persistent, Ephemeral: eph}
}

func TestFromNameCaseInsensitive(t *testing.T) {
	s, err := FromName("privatemode")
	if err != nil {
		t.Fatalf("FromName failed: %v", err)
	}
	if s != PrivateMode {
		t.Fatalf("expected PrivateMode, got %v", s)
	}
}

func TestFromNameUnknownIsResolutionError(t *testing.T) {
	_, err := FromName("Bogus")
	if err == nil {
		t.Fatal("expected error for unknown state name")
	}
	if _, ok := err.(*StateResolutionError); !ok {
		t.Fatalf("expected *StateResolutionError, got %T", err)
	}
}

func TestStartConfirmationPromotesUser(t *testing.T) {
	d := newTestDeps(t)
	ctx := context.Background()

	u := &User{ID: 900, Username: "ivan", State: Idle}
	if res := u.OnStart(ctx, d); !res.OK() {
		t.Fatalf("OnStart failed: state=%v", res.State())
	}
	if u.State != Start {
		t.Fatalf("expected Start, got %v", u.State)
	}

	if res := u.OnStartConfirmation(ctx, d); !res.OK() {
		t.Fatalf("OnStartConfirmation failed: state=%v", res.State())
	}
	if u.State != Idle {
		t.Fatalf("expected Idle after confirmation, got %v", u.State)
	}

	got := d.Persistent.GetUser(ctx, 900)
	if !got.OK() {
		t.Fatalf("expected user persisted after confirmation: %s", got.Message())
	}

	staged := d.Ephemeral.Get(ctx, 900)
	if staged.OK() {
		t.Fatal("expected ephemeral registration to be removed after confirmation")
	}
}

func TestStartRejectionDiscardsStaging(t *testing.T) {
	d := newTestDeps(t)
	ctx := context.Background()

	u := &User{ID: 901, Username: "judy", State: Idle}
	u.OnStart(ctx, d)

	if res := u.OnStartRejection(ctx, d); !res.OK() {
		t.Fatalf("OnStartRejection failed: state=%v", res.State())
	}
	if u.State != Idle {
		t.Fatalf("expected Idle, got %v", u.State)
	}

	if got := d.Persistent.GetUser(ctx, 901); got.OK() {
		t.Fatal("expected no persisted user after rejection")
	}
}

func TestRevokeConfirmationDeletesUser(t *testing.T) {
	d := newTestDeps(t)
	ctx := context.Background()

	d.Persistent.AddUser(ctx, 902, "kevin")
	u := &User{ID: 902, Username: "kevin", State: Idle}

	if res := u.OnRevoke(ctx, d); !res.OK() {
		t.Fatalf("OnRevoke failed: state=%v", res.State())
	}
	if u.State != Revoke {
		t.Fatalf("expected Revoke, got %v", u.State)
	}

	if res := u.OnRevokeConfirmation(ctx, d); !res.OK() {
		t.Fatalf("OnRevokeConfirmation failed: state=%v", res.State())
	}
	if u.State != Idle {
		t.Fatalf("expected Idle, got %v", u.State)
	}
	if got := d.Persistent.GetUser(ctx, 902); got.OK() {
		t.Fatal("expected user deleted after revoke confirmation")
	}
}

func TestPrivateModeToggleRoundTrip(t *testing.T) {
	d := newTestDeps(t)
	ctx := context.Background()

	d.Persistent.AddUser(ctx, 903, "laura")
	u := &User{ID: 903, Username: "laura", State: Idle}

	u.OnPrivateMode(ctx, d)
	if u.State != PrivateMode {
		t.Fatalf("expected PrivateMode, got %v", u.State)
	}

	if res := u.OnPrivateModeEnabled(ctx, d); !res.OK() {
		t.Fatalf("OnPrivateModeEnabled failed: state=%v", res.State())
	}
	if u.State != Idle {
		t.Fatalf("expected Idle, got %v", u.State)
	}

	got := d.Persistent.GetUser(ctx, 903)
	user, _ := got.Data()
	if !user.PrivateMode {
		t.Fatal("expected private_mode persisted true")
	}
}

func TestDisallowedTransitionFails(t *testing.T) {
	d := newTestDeps(t)
	ctx := context.Background()

	u := &User{ID: 904, Username: "mallory", State: Idle}
	res := u.OnStartConfirmation(ctx, d)
	if res.OK() {
		t.Fatal("expected OnStartConfirmation from Idle to fail")
	}
	if res.State() != Idle {
		t.Fatalf("expected state unchanged at Idle, got %v", res.State())
	}
	if u.State != Idle {
		t.Fatalf("expected in-memory state unchanged, got %v", u.State)
	}
}

func TestOnIdleAlwaysFails(t *testing.T) {
	d := newTestDeps(t)
	ctx := context.Background()

	u := &User{ID: 905, Username: "ned", State: Idle}
	res := u.OnIdle(ctx, d)
	if res.OK() {
		t.Fatal("expected OnIdle to always fail")
	}
}
