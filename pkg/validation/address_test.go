package validation

import (
	"strings"
	"testing"
)

func TestDeriveAddress(t *testing.T) {
	addr := DeriveAddress("user-1")
	if err := ValidateAddress(addr); err != nil {
		t.Fatalf("derived address failed validation: %s", err)
	}
	if addr != DeriveAddress("user-1") {
		t.Error("expected derivation to be deterministic")
	}
	if addr == DeriveAddress("user-2") {
		t.Error("expected distinct users to get distinct addresses")
	}
}

func TestValidateAddress(t *testing.T) {
	valid := DeriveAddress("user-1")

	tests := []struct {
		name    string
		addr    string
		wantErr bool
	}{
		{"valid address", valid, false},
		{"empty address", "", true},
		{"wrong prefix", "xx" + valid[2:], true},
		{"too short", valid[:len(valid)-2], true},
		{"too long", valid + "ab", true},
		{"not hex", AddressPrefix + strings.Repeat("zz", 20), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAddress(tt.addr)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAddress(%q) error = %v, wantErr %v", tt.addr, err, tt.wantErr)
			}
		})
	}
}

func TestValidateAndNormalizeAddress(t *testing.T) {
	valid := DeriveAddress("user-1")

	got, err := ValidateAndNormalizeAddress(strings.ToUpper(valid[:2]) + strings.ToUpper(valid[2:]))
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if got != valid {
		t.Errorf("expected %q, got %q", valid, got)
	}

	if _, err := ValidateAndNormalizeAddress("bogus"); err == nil {
		t.Error("expected error for bogus address")
	}
}
