package crypto

import (
	"errors"
	"regexp"

	"golang.org/x/crypto/bcrypt"
)

func HashPassword(password string) (string, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashedPassword), nil
}

func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

var (
	ErrPasswordTooShort      = errors.New("password must be at least 8 characters")
	ErrPasswordTooLong       = errors.New("password must be at most 72 characters")
	ErrPasswordNoUpper       = errors.New("password must contain an uppercase letter")
	ErrPasswordNoLower       = errors.New("password must contain a lowercase letter")
	ErrPasswordNoNumber      = errors.New("password must contain a number")
	ErrPasswordNoSpecialChar = errors.New("password must contain a special character")
)

var (
	upperRe   = regexp.MustCompile(`[A-Z]`)
	lowerRe   = regexp.MustCompile(`[a-z]`)
	numberRe  = regexp.MustCompile(`[0-9]`)
	specialRe = regexp.MustCompile(`[!@#$%^&*()_+\-=\[\]{};':"\\|,.<>\/?]`)
)

// ValidatePasswordStrength reports the first rule the password breaks.
// bcrypt ignores bytes past 72, so longer passwords are refused.
func ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return ErrPasswordTooShort
	}
	if len(password) > 72 {
		return ErrPasswordTooLong
	}
	if !upperRe.MatchString(password) {
		return ErrPasswordNoUpper
	}
	if !lowerRe.MatchString(password) {
		return ErrPasswordNoLower
	}
	if !numberRe.MatchString(password) {
		return ErrPasswordNoNumber
	}
	if !specialRe.MatchString(password) {
		return ErrPasswordNoSpecialChar
	}
	return nil
}

// IsWeakPassword reports whether err is one of the strength rule errors.
func IsWeakPassword(err error) bool {
	for _, rule := range []error{
		ErrPasswordTooShort, ErrPasswordTooLong, ErrPasswordNoUpper,
		ErrPasswordNoLower, ErrPasswordNoNumber, ErrPasswordNoSpecialChar,
	} {
		if errors.Is(err, rule) {
			return true
		}
	}
	return false
}
