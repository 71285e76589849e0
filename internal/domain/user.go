package domain

import "strings"

// User is the authenticated principal. Role is fixed for the session.
type User struct {
	Email string `json:"email" yaml:"email"`
	Role  Role   `json:"role" yaml:"role"`
	Name  string `json:"name,omitempty" yaml:"name,omitempty"`
}

// DisplayName returns Name, or the local part of the email.
func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	if at := strings.IndexByte(u.Email, '@'); at > 0 {
		return u.Email[:at]
	}
	return u.Email
}
