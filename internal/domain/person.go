package domain

import (
	"errors"
	"strings"
	"time"
)

// RoleLibrary is the role held by library staff.
const RoleLibrary = "library"

// ErrPersonUnameEmpty is returned when a person has no user name.
var ErrPersonUnameEmpty = errors.New("person user name cannot be empty")

// Person is a known account. Patrons need no Person row to borrow; staff do,
// since their role gates the administrative operations.
type Person struct {
	Uname        string     `json:"uname"`
	Role         string     `json:"role"`
	DisplayName  string     `json:"display_name,omitempty"`
	PasswordHash string     `json:"-"`
	AuthTime     *time.Time `json:"auth_time,omitempty"`
}

// Validate checks if the Person has valid data.
func (p *Person) Validate() error {
	if strings.TrimSpace(p.Uname) == "" {
		return ErrPersonUnameEmpty
	}
	return nil
}

// IsStaff reports whether the person holds the library role.
func (p *Person) IsStaff() bool {
	return p != nil && HasRole(p.Role, RoleLibrary)
}

// HasRole reports whether a comma separated role list contains role.
func HasRole(roles, role string) bool {
	for _, r := range strings.Split(roles, ",") {
		if strings.TrimSpace(r) == role {
			return true
		}
	}
	return false
}
