package intake

import "errors"

// ValidationError is a user-facing input problem. Nothing has been written
// when one is returned.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return e.Message
}

func IsValidation(err error) bool {
	var verr ValidationError
	return errors.As(err, &verr)
}

var ErrNotConfirmed = errors.New("confirmation required")

// ConfirmationError carries the prompt a destructive action needs answered
// before it runs.
type ConfirmationError struct {
	Prompt string
}

func (e ConfirmationError) Error() string {
	return e.Prompt
}

func (e ConfirmationError) Is(target error) bool {
	return target == ErrNotConfirmed
}

// Confirm returns a ConfirmationError unless confirmed is true.
func Confirm(confirmed bool, prompt string) error {
	if confirmed {
		return nil
	}
	return ConfirmationError{Prompt: prompt}
}
