// Package telegram binds the core's command/callback dispatch to the
// Telegram Bot API (§4.5 "Dispatcher Binding"). It is the only package
// where Telegram's vocabulary appears.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/stickfix/stickfix/internal/chattransport"
	"github.com/stickfix/stickfix/internal/command"
	"github.com/stickfix/stickfix/internal/store"
)

// Dispatcher implements chattransport.Transport against a single
// tgbotapi.BotAPI connection.
type Dispatcher struct {
	bot    *tgbotapi.BotAPI
	logger *slog.Logger

	mu        sync.RWMutex
	commands  map[string]func(chattransport.Message)
	callbacks map[string]func(chattransport.CallbackQuery)
}

// New constructs a Dispatcher from a bot token. The token is sourced from
// the persistent store's meta table at startup, never from config or
// environment (§6).
func New(token string, logger *slog.Logger) (*Dispatcher, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		bot:       bot,
		logger:    logger.With(slog.String("component", "telegram")),
		commands:  make(map[string]func(chattransport.Message)),
		callbacks: make(map[string]func(chattransport.CallbackQuery)),
	}, nil
}

// Send implements chattransport.Transport.
func (d *Dispatcher) Send(userID int64, text string, keyboard *chattransport.InlineKeyboard) store.Result[chattransport.Unit] {
	msg := tgbotapi.NewMessage(userID, text)
	if keyboard != nil {
		msg.ReplyMarkup = toTelegramKeyboard(keyboard)
	}
	if _, err := d.bot.Send(msg); err != nil {
		return store.Failure[chattransport.Unit](err.Error(), store.ErrBackend)
	}
	return store.Success("sent", chattransport.Unit{})
}

// OnCommand implements chattransport.Transport.
func (d *Dispatcher) OnCommand(name string, handler func(chattransport.Message)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.commands[name] = handler
}

// OnCallbackQuery implements chattransport.Transport.
func (d *Dispatcher) OnCallbackQuery(name string, handler func(chattransport.CallbackQuery)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.callbacks[name] = handler
}

// RegisterCommands wires every Command's handler via OnCommand and pushes
// the command list to Telegram via SetMyCommands (the BotCommandRegistrar
// expansion) so it shows up in the client's command menu.
func (d *Dispatcher) RegisterCommands(cmds []command.Command) error {
	tgCommands := make([]tgbotapi.BotCommand, 0, len(cmds))
	for _, c := range cmds {
		c := c
		d.OnCommand(c.Name, func(msg chattransport.Message) {
			res := c.Handler(context.Background(), msg)
			d.logger.Info("command handled",
				slog.String("command", c.Name),
				slog.Int64("user_id", msg.Sender.ID),
				slog.Bool("ok", res.OK()),
				slog.String("message", res.Message()))
		})
		tgCommands = append(tgCommands, tgbotapi.BotCommand{Command: c.Name, Description: c.Description})
	}
	_, err := d.bot.Request(tgbotapi.NewSetMyCommands(tgCommands...))
	return err
}

// RegisterCallbacks wires every Callback's handler via OnCallbackQuery.
func (d *Dispatcher) RegisterCallbacks(cbs []command.Callback) {
	for _, c := range cbs {
		c := c
		d.OnCallbackQuery(c.Name, func(cq chattransport.CallbackQuery) {
			res := c.Handler(context.Background(), cq)
			d.logger.Info("callback handled",
				slog.String("callback", c.Name),
				slog.Int64("user_id", cq.Sender.ID),
				slog.Bool("ok", res.OK()),
				slog.String("message", res.Message()))
		})
	}
}

// Run starts the Telegram update loop, grounded in the teacher's
// Connect-goroutine shape (GetUpdatesChan + select over ctx.Done()). It
// blocks until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 30
	updates := d.bot.GetUpdatesChan(updateConfig)

	for {
		select {
		case <-ctx.Done():
			d.bot.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			d.handleUpdate(update)
		}
	}
}

func (d *Dispatcher) handleUpdate(update tgbotapi.Update) {
	switch {
	case update.Message != nil && update.Message.IsCommand():
		d.handleCommand(update.Message)
	case update.CallbackQuery != nil:
		d.handleCallback(update.CallbackQuery)
	}
}

func (d *Dispatcher) handleCommand(msg *tgbotapi.Message) {
	if msg.From == nil {
		d.logger.Warn("dropping command with no sender")
		return
	}
	name := msg.Command()
	d.mu.RLock()
	handler, ok := d.commands[name]
	d.mu.RUnlock()
	if !ok {
		return
	}

	sender := chattransport.Sender{ID: msg.From.ID, Username: senderUsername(msg.From)}
	d.logger.Info("command received", slog.String("command", name), slog.Int64("user_id", sender.ID))
	handler(chattransport.Message{
		Sender:  sender,
		Command: name,
		Args:    msg.CommandArguments(),
		ReplyTo: extractReplyTarget(msg),
	})
}

func (d *Dispatcher) handleCallback(cq *tgbotapi.CallbackQuery) {
	if cq.From == nil {
		d.logger.Warn("dropping callback with no sender")
		return
	}
	name := cq.Data
	d.mu.RLock()
	handler, ok := d.callbacks[name]
	d.mu.RUnlock()

	if _, err := d.bot.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
		d.logger.Warn("acknowledge callback failed", slog.String("error", err.Error()))
	}
	if !ok {
		return
	}

	sender := chattransport.Sender{ID: cq.From.ID, Username: senderUsername(cq.From)}
	d.logger.Info("callback received", slog.String("callback", name), slog.Int64("user_id", sender.ID))
	handler(chattransport.CallbackQuery{Sender: sender, Name: name})
}

func senderUsername(from *tgbotapi.User) string {
	if from == nil {
		return ""
	}
	if name := strings.TrimSpace(from.UserName); name != "" {
		return name
	}
	return strings.TrimSpace(from.FirstName + " " + from.LastName)
}

func extractReplyTarget(msg *tgbotapi.Message) *chattransport.ReplyTarget {
	if msg.ReplyToMessage == nil || msg.ReplyToMessage.Sticker == nil {
		return nil
	}
	return &chattransport.ReplyTarget{StickerID: msg.ReplyToMessage.Sticker.FileID}
}

func toTelegramKeyboard(kb *chattransport.InlineKeyboard) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(kb.Rows))
	for _, row := range kb.Rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(btn.Label, btn.CallbackName))
		}
		rows = append(rows, buttons)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
