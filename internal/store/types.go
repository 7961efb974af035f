package store

import "time"

// DefaultUserID is the reserved id of the synthetic default/public user
// (I2): it owns unclaimed public stickers and is immutable to mode-set
// operations.
const DefaultUserID int64 = 0

// DefaultUsername is the default user's username, inserted once by the
// schema migration.
const DefaultUsername = "STICKFIX_PUBLIC"

// IdleStateName is the state tag name every newly added user starts in.
const IdleStateName = "Idle"

// User is a row of the users table.
type User struct {
	ID          int64
	Username    string
	State       string
	PrivateMode bool
	Shuffle     bool
	CreatedAt   time.Time
}

// Sticker is a row of the stickers table.
type Sticker struct {
	Tag       string
	UserID    int64
	StickerID string
}
