// Package widget is the terminal chat panel that talks to POST /chat.
package widget

import "errors"

type Role string

const (
	RoleUser  Role = "user"
	RoleBot   Role = "bot"
	RoleError Role = "error"
)

// FailureNotice is the only text shown when an exchange fails.
const FailureNotice = "Sorry, something went wrong. Please try again."

var (
	ErrSendInFlight = errors.New("a message is already being sent")
	ErrChatFailed   = errors.New("chat request failed")
	ErrEmptyMessage = errors.New("message is empty")
)

// ChatMessage is one transcript entry. Entries are never modified.
type ChatMessage struct {
	Role Role
	Text string
}
