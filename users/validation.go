package users

import (
	"net/mail"
	"strings"

	apperrors "github.com/jrsteele09/lingo-web/internal/errors"
)

const minPasswordLength = 8

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	FirstName       string `json:"firstname"`
	LastName        string `json:"lastname"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	TermsAccepted   bool   `json:"termsAccepted"`
	PrivacyAccepted bool   `json:"privacyAccepted"`
}

// ValidatePassword checks the password rules shared by sign up and password changes.
func ValidatePassword(password string) error {
	if len(password) < minPasswordLength {
		return apperrors.Validation("password must be at least 8 characters long")
	}
	return nil
}

func validateEmail(email string) error {
	if strings.TrimSpace(email) == "" {
		return apperrors.Validation("email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != strings.TrimSpace(email) {
		return apperrors.Validation("email address is not valid")
	}
	return nil
}

func (r LoginRequest) Validate() error {
	if err := validateEmail(r.Email); err != nil {
		return err
	}
	if r.Password == "" {
		return apperrors.Validation("password is required")
	}
	return nil
}

// Validate runs every local check; a request that fails here is never sent.
func (r RegisterRequest) Validate() error {
	if strings.TrimSpace(r.FirstName) == "" {
		return apperrors.Validation("first name is required")
	}
	if strings.TrimSpace(r.LastName) == "" {
		return apperrors.Validation("last name is required")
	}
	if err := validateEmail(r.Email); err != nil {
		return err
	}
	if err := ValidatePassword(r.Password); err != nil {
		return err
	}
	if r.Password != r.ConfirmPassword {
		return apperrors.Validation("passwords do not match")
	}
	if !r.TermsAccepted {
		return apperrors.Validation("you must accept the terms of service")
	}
	if !r.PrivacyAccepted {
		return apperrors.Validation("you must accept the privacy policy")
	}
	return nil
}
