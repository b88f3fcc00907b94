package model

import "testing"

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		email   string
		wantErr bool
	}{
		{"ana@example.com", false},
		{"ana.perez+reservas@sabores.es", false},
		{"", true},
		{"ana@", true},
		{"not-an-email", true},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			if err := ValidateEmail(tt.email); (err != nil) != tt.wantErr {
				t.Errorf("ValidateEmail(%q) error = %v, wantErr %v", tt.email, err, tt.wantErr)
			}
		})
	}
}

func TestParseRole(t *testing.T) {
	if r, err := ParseRole("ADMIN"); err != nil || r != RoleAdmin {
		t.Errorf("ParseRole(ADMIN) = %v, %v", r, err)
	}
	if _, err := ParseRole("owner"); !IsValidationError(err) {
		t.Errorf("ParseRole(owner) error = %v, want validation error", err)
	}
}

func TestValidatePassword(t *testing.T) {
	if err := ValidatePassword("12345"); err == nil {
		t.Error("ValidatePassword(short) should fail")
	}
	if err := ValidatePassword("secreto"); err != nil {
		t.Errorf("ValidatePassword() error = %v", err)
	}
}
