package mail

import "errors"

var (
	// ErrNotConfigured is returned when SMTP credentials are missing.
	ErrNotConfigured = errors.New("smtp credentials not configured")

	// ErrNoRecipient is returned when a message has no usable To address.
	ErrNoRecipient = errors.New("missing recipient")
)
