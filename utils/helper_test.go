package utils

import "testing"

func TestIsValidEmail(t *testing.T) {
	cases := []struct {
		email string
		valid bool
	}{
		{"gso-admin@lgu.gov.ph", true},
		{"juan.delacruz@example.com", true},
		{"no-at-sign", false},
		{"missing@tld", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := IsValidEmail(tc.email); got != tc.valid {
			t.Fatalf("IsValidEmail(%q) expected %v, got %v", tc.email, tc.valid, got)
		}
	}
}

func TestValidatePhoneNumber(t *testing.T) {
	if err := ValidatePhoneNumber("+639171234567", "PH"); err != nil {
		t.Fatalf("valid PH mobile rejected: %v", err)
	}
	if err := ValidatePhoneNumber("12", "PH"); err == nil {
		t.Fatal("bogus number accepted")
	}
}
