package models

import (
	"regexp"
	"strings"
)

// User is an account as returned by the backend.
type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
	Company  string `json:"company,omitempty"`
	IsActive bool   `json:"isActive"`
}

// Identity is the subset of User carried in a Credential.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  Role   `json:"role"`
}

var (
	emailPattern      = regexp.MustCompile(`^\S+@\S+\.\S+$`)
	loginEmailPattern = regexp.MustCompile(`^\S+@\S+$`)
)

const minPasswordLength = 6

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks the login form.
func (r LoginRequest) Validate() error {
	v := ValidationErrors{}
	if !loginEmailPattern.MatchString(r.Email) {
		v.Add("email", "Invalid email")
	}
	if len(r.Password) < minPasswordLength {
		v.Add("password", "Password must be at least 6 characters")
	}
	return v.Err()
}

// SignupRequest is the body of POST /auth/signup.
type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Company  string `json:"company"`
	Password string `json:"password"`
}

// Validate checks the signup form.
func (r SignupRequest) Validate() error {
	v := ValidationErrors{}
	if len(strings.TrimSpace(r.Name)) < 2 {
		v.Add("name", "Name must be at least 2 characters")
	}
	if !emailPattern.MatchString(r.Email) {
		v.Add("email", "Invalid email address")
	}
	if len(r.Password) < minPasswordLength {
		v.Add("password", "Password must be at least 6 characters")
	}
	return v.Err()
}

// CreateUserRequest is the body of POST /users (admin only).
type CreateUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     Role   `json:"role"`
	Company  string `json:"company,omitempty"`
}

// Validate checks the admin create-user form.
func (r CreateUserRequest) Validate() error {
	v := ValidationErrors{}
	if len(strings.TrimSpace(r.Name)) < 2 {
		v.Add("name", "Name must be at least 2 characters")
	}
	if !emailPattern.MatchString(r.Email) {
		v.Add("email", "Invalid email address")
	}
	if len(r.Password) < minPasswordLength {
		v.Add("password", "Password must be at least 6 characters")
	}
	if !r.Role.Valid() {
		v.Add("role", "Role is required")
	}
	return v.Err()
}

// UpdateUserRequest is the body of PATCH /users/:id. Nil fields are left untouched.
type UpdateUserRequest struct {
	Name     *string `json:"name,omitempty"`
	Email    *string `json:"email,omitempty"`
	Password *string `json:"password,omitempty"`
	Role     *Role   `json:"role,omitempty"`
	Company  *string `json:"company,omitempty"`
	IsActive *bool   `json:"isActive,omitempty"`
}

// Empty reports whether the update carries no changes.
func (r UpdateUserRequest) Empty() bool {
	return r.Name == nil && r.Email == nil && r.Password == nil && r.Role == nil && r.Company == nil && r.IsActive == nil
}

// Validate checks only the fields being changed.
func (r UpdateUserRequest) Validate() error {
	v := ValidationErrors{}
	if r.Email != nil && !emailPattern.MatchString(*r.Email) {
		v.Add("email", "Invalid email address")
	}
	if r.Password != nil && len(*r.Password) < minPasswordLength {
		v.Add("password", "Password must be at least 6 characters")
	}
	if r.Role != nil && !r.Role.Valid() {
		v.Add("role", "Role is required")
	}
	return v.Err()
}
