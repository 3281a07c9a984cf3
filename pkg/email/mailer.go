package email

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// EmailSender delivers a rendered email.
type EmailSender interface {
	SendEmail(ctx context.Context, params SendEmailParams) error
}

// SendEmailParams is one outbound message.
type SendEmailParams struct {
	SendTo   string `json:"send_to" validate:"required,email"`
	Subject  string `json:"subject" validate:"required,max=255"`
	BodyHTML string `json:"body_html" validate:"required"`
	Tag      string `json:"tag,omitempty" validate:"omitempty,max=100"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate returns ErrInvalidParams joined with a description of the first failing field.
func (p SendEmailParams) Validate() error {
	err := validate.Struct(p)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return errors.Join(ErrInvalidParams, err)
	}

	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%w: %s is required", ErrInvalidParams, fe.Field())
	case "email":
		return fmt.Errorf("%w: %s must be a valid email address", ErrInvalidParams, fe.Field())
	case "max":
		return fmt.Errorf("%w: %s must be at most %s characters", ErrInvalidParams, fe.Field(), fe.Param())
	default:
		return fmt.Errorf("%w: %s failed %q", ErrInvalidParams, fe.Field(), fe.Tag())
	}
}

func validEmail(addr string) bool {
	return validate.Var(addr, "required,email") == nil
}
