package common

import "errors"

var (
	// request specific errors
	ErrValidation = errors.New("validation error")

	// user specific errors
	ErrDuplicateUser      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")

	// diary specific errors
	ErrQuotaExceeded        = errors.New("daily diary limit reached")
	ErrNotFound             = errors.New("not found")
	ErrClassificationFailed = errors.New("sentiment classification failed")

	// store specific errors
	ErrPersistFailed = errors.New("persist failed")
)

// Kind returns a stable identifier for the error class of err, suitable for
// API responses. Unknown errors map to "internal".
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrDuplicateUser):
		return "duplicate_user"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrInvalidToken):
		return "invalid_token"
	case errors.Is(err, ErrQuotaExceeded):
		return "quota_exceeded"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrClassificationFailed):
		return "classification_failed"
	case errors.Is(err, ErrPersistFailed):
		return "persist_failed"
	default:
		return "internal"
	}
}
