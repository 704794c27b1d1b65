package users

import (
	"fmt"
	"time"

	apperrors "github.com/jrsteele09/lingo-web/internal/errors"
)

// Role is the closed set of account types the backend issues.
type Role string

const (
	RoleLearner   Role = "learner"   // Books sessions with speakers
	RoleSpeaker   Role = "speaker"   // Offers conversation sessions
	RoleAdmin     Role = "admin"     // Full access to the admin area
	RoleModerator Role = "moderator" // Admin area, moderation only
)

// Roles lists every valid role.
var Roles = []Role{RoleLearner, RoleSpeaker, RoleAdmin, RoleModerator}

// ParseRole converts a backend role tag into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", apperrors.ErrInvalidRole, s)
	}
	return r, nil
}

func (r Role) Valid() bool {
	switch r {
	case RoleLearner, RoleSpeaker, RoleAdmin, RoleModerator:
		return true
	}
	return false
}

func (r Role) String() string {
	return string(r)
}

// LandingRoute is where a freshly signed in user goes when no return path was requested.
func LandingRoute(r Role) string {
	switch r {
	case RoleLearner:
		return "/speakers"
	case RoleSpeaker:
		return "/dashboard"
	case RoleAdmin, RoleModerator:
		return "/admin/dashboard"
	default:
		return "/"
	}
}

type User struct {
	ID                string     `json:"id"`
	FirstName         string     `json:"firstname,omitempty"`
	LastName          string     `json:"lastname,omitempty"`
	Email             string     `json:"email,omitempty"`
	Role              Role       `json:"role"`
	TermsAccepted     bool       `json:"termsAccepted"`
	PrivacyAccepted   bool       `json:"privacyAccepted"`
	TermsAcceptedAt   *time.Time `json:"termsAcceptedAt,omitempty"`
	PrivacyAcceptedAt *time.Time `json:"privacyAcceptedAt,omitempty"`
}

// NeedsAcceptance reports whether the current terms or privacy policy are still unacknowledged.
func (u *User) NeedsAcceptance() bool {
	return u != nil && (!u.TermsAccepted || !u.PrivacyAccepted)
}

// HasRole reports whether the user's role is one of roles.
func (u *User) HasRole(roles ...Role) bool {
	if u == nil {
		return false
	}
	for _, r := range roles {
		if u.Role == r {
			return true
		}
	}
	return false
}

func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return u.Email
	}
}

// Clone returns a deep copy so callers can patch a user without touching shared state.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	if u.TermsAcceptedAt != nil {
		t := *u.TermsAcceptedAt
		c.TermsAcceptedAt = &t
	}
	if u.PrivacyAcceptedAt != nil {
		t := *u.PrivacyAcceptedAt
		c.PrivacyAcceptedAt = &t
	}
	return &c
}
