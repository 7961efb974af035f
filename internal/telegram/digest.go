package telegram

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/stickfix/stickfix/internal/store"
)

// StartDailyDigest registers a read-only, once-a-day job (domain-stack
// wiring for robfig/cron, grounded in the teacher's schedule service)
// that logs a structured summary of registered users and tagged
// stickers. It never mutates state and is not part of any core
// invariant. Returns the running *cron.Cron so the caller can Stop it.
func StartDailyDigest(persistent *store.Store, logger *slog.Logger) (*cron.Cron, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "digest"))

	c := cron.New()
	_, err := c.AddFunc("@daily", func() {
		ctx := context.Background()
		usersRes := persistent.CountUsers(ctx)
		stickersRes := persistent.CountStickers(ctx)
		if !usersRes.OK() || !stickersRes.OK() {
			logger.Error("daily digest failed", slog.String("users_error", usersRes.Message()), slog.String("stickers_error", stickersRes.Message()))
			return
		}
		users, _ := usersRes.Data()
		stickers, _ := stickersRes.Data()
		logger.Info("daily digest", slog.Int("registered_users", users), slog.Int("tagged_stickers", stickers))
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	return c, nil
}
