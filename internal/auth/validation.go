package auth

import (
	"regexp"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// MinPasswordLen is the minimum accepted password length.
const MinPasswordLen = 6

// ValidationError is a rejected-input error; its message is safe to return
// to the caller verbatim.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func validationErr(message string) error {
	return &ValidationError{Message: message}
}

// ValidateEmail checks if an email is valid
func ValidateEmail(email string) bool {
	return emailRegex.MatchString(email) && len(email) < 255
}

// ValidatePassword checks if a password is acceptable
func ValidatePassword(password string) bool {
	return len(password) >= MinPasswordLen && len(password) <= 72
}
