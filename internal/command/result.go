// Package command implements the command and callback handlers (§4.4):
// the user-scoped and chat-scoped command shapes, the registered-user
// prompt pattern, and the eight confirmation callbacks.
package command

// Result is the two-variant sum every command/callback handler returns.
// It exists solely for logging and testability; the dispatcher never
// re-raises it.
type Result struct {
	ok      bool
	userID  int64
	message string
}

func (r Result) OK() bool        { return r.ok }
func (r Result) UserID() int64   { return r.userID }
func (r Result) Message() string { return r.message }

// CommandSuccess builds a successful command result.
func CommandSuccess(userID int64, message string) Result {
	return Result{ok: true, userID: userID, message: message}
}

// CommandFailure builds a failed command result.
func CommandFailure(userID int64, message string) Result {
	return Result{ok: false, userID: userID, message: message}
}

// CallbackSuccess builds a successful callback result.
func CallbackSuccess(userID int64, message string) Result {
	return Result{ok: true, userID: userID, message: message}
}

// CallbackFailure builds a failed callback result.
func CallbackFailure(userID int64, message string) Result {
	return Result{ok: false, userID: userID, message: message}
}
