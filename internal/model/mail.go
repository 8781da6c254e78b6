package model

import "time"

// Mail task kinds
const (
	MailKindInvite        = "invite"
	MailKindPasswordReset = "password_reset"
)

// MailTaskPayload is the asynq payload of a mail task. The reset token is
// only ever carried in the task, never stored in clear.
type MailTaskPayload struct {
	Kind      string    `json:"kind"`
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}
