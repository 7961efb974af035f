package command

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stickfix/stickfix/internal/chattransport"
	stickfixdb "github.com/stickfix/stickfix/internal/db"
	"github.com/stickfix/stickfix/internal/ephemeral"
	"github.com/stickfix/stickfix/internal/fsm"
	"github.com/stickfix/stickfix/internal/store"
	"github.com/stickfix/stickfix/migrations"
)

// fakeTransport is an in-process Transport recording every Send call, used
// to exercise commands and callbacks without a real chat platform.
type fakeTransport struct {
	mu    sync.Mutex
	sent  []sentMessage
	fails bool
}

type sentMessage struct {
	userID int64
	text   string
}

func (f *fakeTransport) Send(userID int64, text string, kb *chattransport.InlineKeyboard) store.Result[chattransport.Unit] {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fails {
		return store.Failure[chattransport.Unit]("send failed", store.ErrBackend)
	}
	f.sent = append(f.sent, sentMessage{userID: userID, text: text})
	return store.Success("sent", chattransport.Unit{})
}

func (f *fakeTransport) OnCommand(name string, handler func(chattransport.Message))             {}
func (f *fakeTransport) OnCallbackQuery(name string, handler func(chattransport.CallbackQuery)) {}

func (f *fakeTransport) last() sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return sentMessage{}
	}
	return f.sent[len(f.sent)-1]
}

func newTestHandlers(t *testing.T) (*Handlers, *fakeTransport) {
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

	transport := &fakeTransport{}
	h := &Handlers{
		Deps:      fsm.Deps{Persistent: persistent, Ephemeral: eph},
		Transport: transport,
	}
	return h, transport
}

func commandByName(cmds []Command, name string) Command {
	for _, c := range cmds {
		if c.Name == name {
			return c
		}
	}
	panic("command not found: " + name)
}

func callbackByName(cbs []Callback, name string) Callback {
	for _, c := range cbs {
		if c.Name == name {
			return c
		}
	}
	panic("callback not found: " + name)
}

func TestStartThenConfirmRegistersUser(t *testing.T) {
	h, transport := newTestHandlers(t)
	ctx := context.Background()
	sender := chattransport.Sender{ID: 1, Username: "alice"}

	start := commandByName(h.Commands(), "start")
	res := start.Handler(ctx, chattransport.Message{Sender: sender})
	if !res.OK() {
		t.Fatalf("start command failed: %s", res.Message())
	}

	yes := callbackByName(h.Callbacks(), "StartConfirmationYes")
	cbRes := yes.Handler(ctx, chattransport.CallbackQuery{Sender: sender, Name: "StartConfirmationYes"})
	if !cbRes.OK() {
		t.Fatalf("StartConfirmationYes failed: %s", cbRes.Message())
	}

	got := h.Deps.Persistent.GetUser(ctx, 1)
	if !got.OK() {
		t.Fatal("expected user persisted after confirmation")
	}
	if transport.last().text != startConfirmedMessage {
		t.Fatalf("expected confirmation message sent, got %q", transport.last().text)
	}
}

func TestStartThenRejectDoesNotRegister(t *testing.T) {
	h, _ := newTestHandlers(t)
	ctx := context.Background()
	sender := chattransport.Sender{ID: 2, Username: "bob"}

	commandByName(h.Commands(), "start").Handler(ctx, chattransport.Message{Sender: sender})
	no := callbackByName(h.Callbacks(), "StartConfirmationNo")
	if res := no.Handler(ctx, chattransport.CallbackQuery{Sender: sender}); !res.OK() {
		t.Fatalf("StartConfirmationNo failed: %s", res.Message())
	}

	if got := h.Deps.Persistent.GetUser(ctx, 2); got.OK() {
		t.Fatal("expected no persisted user after rejection")
	}
}

func TestRevokeFlow(t *testing.T) {
	h, _ := newTestHandlers(t)
	ctx := context.Background()
	h.Deps.Persistent.AddUser(ctx, 3, "carol")
	sender := chattransport.Sender{ID: 3, Username: "carol"}

	revoke := commandByName(h.Commands(), "revoke")
	if res := revoke.Handler(ctx, chattransport.Message{Sender: sender}); !res.OK() {
		t.Fatalf("revoke command failed: %s", res.Message())
	}

	yes := callbackByName(h.Callbacks(), "RevokeConfirmationYes")
	if res := yes.Handler(ctx, chattransport.CallbackQuery{Sender: sender}); !res.OK() {
		t.Fatalf("RevokeConfirmationYes failed: %s", res.Message())
	}

	if got := h.Deps.Persistent.GetUser(ctx, 3); got.OK() {
		t.Fatal("expected user deleted after revoke confirmation")
	}
}

func TestCommandOnUnregisteredUserFails(t *testing.T) {
	h, transport := newTestHandlers(t)
	ctx := context.Background()
	sender := chattransport.Sender{ID: 4, Username: "dave"}

	revoke := commandByName(h.Commands(), "revoke")
	res := revoke.Handler(ctx, chattransport.Message{Sender: sender})
	if res.OK() {
		t.Fatal("expected revoke on unregistered user to fail")
	}
	if transport.last().text != notRegisteredMessage {
		t.Fatalf("expected not-registered message, got %q", transport.last().text)
	}
}

func TestAddWithoutReplyFails(t *testing.T) {
	h, transport := newTestHandlers(t)
	ctx := context.Background()
	sender := chattransport.Sender{ID: 5, Username: "erin"}

	add := commandByName(h.Commands(), "add")
	res := add.Handler(ctx, chattransport.Message{Sender: sender, Args: "cat dog"})
	if res.OK() {
		t.Fatal("expected add without a sticker reply to fail")
	}
	if transport.last().text != pleaseReplyToStickerMessage {
		t.Fatalf("expected reply-prompt message, got %q", transport.last().text)
	}
}

func TestAddTokenizesAndDedupesTags(t *testing.T) {
	h, _ := newTestHandlers(t)
	ctx := context.Background()
	h.Deps.Persistent.AddUser(ctx, 6, "frank")
	sender := chattransport.Sender{ID: 6, Username: "frank"}

	add := commandByName(h.Commands(), "add")
	res := add.Handler(ctx, chattransport.Message{
		Sender:  sender,
		Args:    "Cat cat DOG",
		ReplyTo: &chattransport.ReplyTarget{StickerID: "CAACAgI"},
	})
	if !res.OK() {
		t.Fatalf("add failed: %s", res.Message())
	}

	listed := h.Deps.Persistent.ListStickersByUser(ctx, 6)
	stickers, _ := listed.Data()
	if len(stickers) != 2 {
		t.Fatalf("expected 2 deduplicated tags, got %d", len(stickers))
	}
}

func TestAddByUnregisteredSenderOwnedByDefaultUser(t *testing.T) {
	h, _ := newTestHandlers(t)
	ctx := context.Background()
	sender := chattransport.Sender{ID: 7, Username: "gina"}

	add := commandByName(h.Commands(), "add")
	res := add.Handler(ctx, chattransport.Message{
		Sender:  sender,
		Args:    "raccoon",
		ReplyTo: &chattransport.ReplyTarget{StickerID: "CAACAgX"},
	})
	if !res.OK() {
		t.Fatalf("add failed: %s", res.Message())
	}

	sticker := h.Deps.Persistent.GetStickersByTag(ctx, "raccoon")
	tagged, ok := sticker.Data()
	if !ok || tagged.UserID != store.DefaultUserID {
		t.Fatalf("expected sticker owned by default user, got %+v (ok=%v)", tagged, ok)
	}
}

func TestHelpSendsStaticMessage(t *testing.T) {
	h, transport := newTestHandlers(t)
	ctx := context.Background()
	sender := chattransport.Sender{ID: 7, Username: "gina"}

	help := commandByName(h.Commands(), "help")
	if res := help.Handler(ctx, chattransport.Message{Sender: sender}); !res.OK() {
		t.Fatalf("help command failed: %s", res.Message())
	}
	if transport.last().text != helpMessage {
		t.Fatal("expected static help message sent")
	}
}

func TestPrivateModeFlow(t *testing.T) {
	h, _ := newTestHandlers(t)
	ctx := context.Background()
	h.Deps.Persistent.AddUser(ctx, 8, "hank")
	sender := chattransport.Sender{ID: 8, Username: "hank"}

	private := commandByName(h.Commands(), "private")
	if res := private.Handler(ctx, chattransport.Message{Sender: sender}); !res.OK() {
		t.Fatalf("private command failed: %s", res.Message())
	}

	enable := callbackByName(h.Callbacks(), "PrivateModeEnabledCallback")
	if res := enable.Handler(ctx, chattransport.CallbackQuery{Sender: sender}); !res.OK() {
		t.Fatalf("PrivateModeEnabledCallback failed: %s", res.Message())
	}

	got := h.Deps.Persistent.GetUser(ctx, 8)
	user, _ := got.Data()
	if !user.PrivateMode {
		t.Fatal("expected private mode enabled")
	}
}
