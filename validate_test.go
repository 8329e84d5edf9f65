package elearn

import (
	"strings"
	"testing"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		valid    bool
		problem  string
	}{
		{"valid", "Passw0rd", true, ""},
		{"too short", "Pw1", false, "at least 8 characters"},
		{"no upper", "password1", false, "upper-case"},
		{"no lower", "PASSWORD1", false, "lower-case"},
		{"no digit", "Passwords", false, "digit"},
		{"empty", "", false, "at least 8 characters"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pc := ValidatePassword(tt.password)
			if pc.Valid != tt.valid {
				t.Fatalf("ValidatePassword(%q).Valid = %v, want %v", tt.password, pc.Valid, tt.valid)
			}
			if tt.problem == "" {
				return
			}
			found := false
			for _, p := range pc.Problems {
				if strings.Contains(p, tt.problem) {
					found = true
				}
			}
			if !found {
				t.Errorf("problems %v missing %q", pc.Problems, tt.problem)
			}
		})
	}
}

func TestValidateEmail(t *testing.T) {
	if !ValidateEmail("student@example.com") {
		t.Error("expected valid email to pass")
	}
	for _, bad := range []string{"", "not-an-email", "missing@domain", "@nouser.com"} {
		if ValidateEmail(bad) {
			t.Errorf("expected %q to be rejected", bad)
		}
	}
}

func TestLoginFormValidate(t *testing.T) {
	valid := LoginForm{Email: "a@b.com", Password: "secret", Role: RoleStudent}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid form rejected: %v", err)
	}

	invalid := []LoginForm{
		{Email: "", Password: "secret", Role: RoleStudent},
		{Email: "a@b.com", Password: "", Role: RoleStudent},
		{Email: "a@b.com", Password: "secret", Role: "ghost"},
	}
	for i, f := range invalid {
		if err := f.Validate(); err == nil {
			t.Errorf("form %d should have failed validation", i)
		}
	}
}

func TestSignupFormValidate(t *testing.T) {
	base := SignupForm{
		FirstName:       "Jane",
		LastName:        "Doe",
		Email:           "jane@example.com",
		Password:        "Passw0rd",
		ConfirmPassword: "Passw0rd",
		Role:            RoleStudent,
	}
	if err := base.Validate(); err != nil {
		t.Errorf("valid form rejected: %v", err)
	}

	mismatch := base
	mismatch.ConfirmPassword = "Different1"
	if err := mismatch.Validate(); err == nil {
		t.Error("mismatched passwords should fail")
	}

	weak := base
	weak.Password = "alllowercase1"
	weak.ConfirmPassword = "alllowercase1"
	err := weak.Validate()
	if err == nil {
		t.Fatal("weak password should fail")
	}
	pwErr, ok := err.(*PasswordError)
	if !ok {
		t.Fatalf("expected *PasswordError, got %T", err)
	}
	if len(pwErr.Problems) == 0 {
		t.Error("expected per-rule problems")
	}
}
