package elearn

import (
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// LoginForm is the login screen's input.
type LoginForm struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
	Role     Role   `validate:"required,oneof=student instructor admin"`
}

// SignupForm is the signup screen's input. Validation runs client-side
// before the request is issued; the server remains authoritative.
type SignupForm struct {
	FirstName       string `validate:"required"`
	LastName        string `validate:"required"`
	Email           string `validate:"required,email"`
	Password        string `validate:"required,min=8"`
	ConfirmPassword string `validate:"required,eqfield=Password"`
	Role            Role   `validate:"required,oneof=student instructor admin"`
}

// Validate checks the login form fields.
func (f LoginForm) Validate() error {
	return validate.Struct(f)
}

// Validate checks field presence and shape, then the password policy.
func (f SignupForm) Validate() error {
	if err := validate.Struct(f); err != nil {
		return err
	}
	if pc := ValidatePassword(f.Password); !pc.Valid {
		return &PasswordError{Problems: pc.Problems}
	}
	return nil
}

// ValidateEmail reports whether the address looks like an email.
func ValidateEmail(email string) bool {
	return validate.Var(email, "required,email") == nil
}

// PasswordCheck is the outcome of the password policy.
type PasswordCheck struct {
	Valid    bool
	Problems []string
}

// PasswordError carries the per-rule messages for inline display.
type PasswordError struct {
	Problems []string
}

func (e *PasswordError) Error() string {
	return "password too weak: " + strings.Join(e.Problems, "; ")
}

// ValidatePassword applies the password policy: at least 8 characters
// with an upper-case letter, a lower-case letter and a digit.
func ValidatePassword(password string) PasswordCheck {
	var problems []string
	if len(password) < 8 {
		problems = append(problems, "must be at least 8 characters")
	}
	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasUpper {
		problems = append(problems, "must contain an upper-case letter")
	}
	if !hasLower {
		problems = append(problems, "must contain a lower-case letter")
	}
	if !hasDigit {
		problems = append(problems, "must contain a digit")
	}
	return PasswordCheck{Valid: len(problems) == 0, Problems: problems}
}
