package users

import (
	"fmt"
	"time"
	"unicode"
)

// Status is the lifecycle state of a user account.
type Status string

const (
	// StatusPendingActivation is the state of a freshly created account.
	// The account holds a throwaway password hash and cannot authenticate
	// until it is activated through a one-time activation token.
	StatusPendingActivation Status = "PENDING_ACTIVATION"
	// StatusActive is the only state in which a user may authenticate.
	StatusActive Status = "ACTIVE"
	// StatusDisabled is terminal; reactivation is not supported.
	StatusDisabled Status = "DISABLED"
)

type User struct {
	ID           string    `json:"id,omitempty"`    // Unique identifier for the user
	Email        string    `json:"email,omitempty"` // Corporate email address (unique)
	PasswordHash string    `json:"-"`               // Argon2id encoded hash - never serialize
	Status       Status    `json:"status,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	FirstName    string    `json:"first_name,omitempty"`
	LastName     string    `json:"last_name,omitempty"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
}

// IsActive reports whether the account may authenticate.
func (u *User) IsActive() bool {
	return u.Status == StatusActive
}

// ValidatePasswordStrength checks if a password meets security requirements:
// - At least 8 characters long
// - Contains uppercase and lowercase letters
// - Contains at least one number
func ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters long")
	}

	var (
		hasUpper  bool
		hasLower  bool
		hasNumber bool
	)

	for _, char := range password {
		if unicode.IsUpper(char) {
			hasUpper = true
		} else if unicode.IsLower(char) {
			hasLower = true
		} else if unicode.IsDigit(char) {
			hasNumber = true
		}
	}

	if !hasUpper {
		return fmt.Errorf("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return fmt.Errorf("password must contain at least one lowercase letter")
	}
	if !hasNumber {
		return fmt.Errorf("password must contain at least one number")
	}

	return nil
}
