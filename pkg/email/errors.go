package email

import "errors"

var (
	ErrFailedToSendEmail   = errors.New("failed to send email")
	ErrInvalidConfig       = errors.New("invalid email configuration")
	ErrInvalidParams       = errors.New("invalid email parameters")
	ErrFailedToRenderEmail = errors.New("failed to render email")
)
