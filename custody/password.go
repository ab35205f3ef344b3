package custody

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

const minTrainerPassword = 4

func (e *Engine) hashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), e.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

func checkPassword(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

// normalizePassword trims and enforces a minimum length in characters.
func normalizePassword(pw string, min int) (string, error) {
	pw = strings.TrimSpace(pw)
	if pw == "" {
		return "", fmt.Errorf("%w: password is required", ErrValidation)
	}
	if utf8.RuneCountInString(pw) < min {
		return "", fmt.Errorf("%w: password must be at least %d characters", ErrValidation, min)
	}
	return pw, nil
}
