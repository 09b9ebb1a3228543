package domain_test

import (
	"testing"

	"github.com/pharmabridge/pharma-bridge-bff-go/internal/domain"
)

func TestValidZipCode(t *testing.T) {
	valid := []string{"01310-100", "12345-678"}
	for _, s := range valid {
		if !domain.ValidZipCode(s) {
			t.Errorf("expected %q to be valid", s)
		}
	}

	invalid := []string{"", "01310100", "1310-100", "01310-10", "01310-1000", "abcde-fgh", "01310 100"}
	for _, s := range invalid {
		if domain.ValidZipCode(s) {
			t.Errorf("expected %q to be invalid", s)
		}
	}
}

func TestValidPhone(t *testing.T) {
	valid := []string{"(11) 91234-5678", "(11) 1234-5678"}
	for _, s := range valid {
		if !domain.ValidPhone(s) {
			t.Errorf("expected %q to be valid", s)
		}
	}

	invalid := []string{"", "11912345678", "(11)91234-5678", "(11) 912345678", "(1) 1234-5678"}
	for _, s := range invalid {
		if domain.ValidPhone(s) {
			t.Errorf("expected %q to be invalid", s)
		}
	}
}

func TestValidCNPJ(t *testing.T) {
	valid := []string{"12.345.678/0001-95", "00.000.000/0001-00"}
	for _, s := range valid {
		if !domain.ValidCNPJ(s) {
			t.Errorf("expected %q to be valid", s)
		}
	}

	invalid := []string{"", "12345678000195", "12.345.678/0001-9", "12.345.678-0001/95", "12 345 678 0001 95"}
	for _, s := range invalid {
		if domain.ValidCNPJ(s) {
			t.Errorf("expected %q to be invalid", s)
		}
	}
}

func TestFormatCNPJ(t *testing.T) {
	cases := []struct {
		raw, want string
	}{
		{"", ""},
		{"12", "12"},
		{"12345", "12.345"},
		{"12345678", "12.345.678"},
		{"123456780001", "12.345.678/0001"},
		{"12345678000195", "12.345.678/0001-95"},
		{"12.345.678/0001-95", "12.345.678/0001-95"},
		{"123456780001959999", "12.345.678/0001-95"},
	}
	for _, tc := range cases {
		if got := domain.FormatCNPJ(tc.raw); got != tc.want {
			t.Errorf("FormatCNPJ(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestFormatZipCode(t *testing.T) {
	cases := []struct {
		raw, want string
	}{
		{"", ""},
		{"01310", "01310"},
		{"013101", "01310-1"},
		{"01310100", "01310-100"},
		{"01310-100", "01310-100"},
		{"013101009999", "01310-100"},
		{"abc01310def100", "01310-100"},
	}
	for _, tc := range cases {
		if got := domain.FormatZipCode(tc.raw); got != tc.want {
			t.Errorf("FormatZipCode(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestFormatPhone(t *testing.T) {
	cases := []struct {
		raw, want string
	}{
		{"", ""},
		{"11", "11"},
		{"1191", "(11) 91"},
		{"1112345678", "(11) 1234-5678"},
		{"11912345678", "(11) 91234-5678"},
		{"(11) 91234-5678", "(11) 91234-5678"},
		{"119123456789999", "(11) 91234-5678"},
	}
	for _, tc := range cases {
		if got := domain.FormatPhone(tc.raw); got != tc.want {
			t.Errorf("FormatPhone(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestParseRole(t *testing.T) {
	cases := []struct {
		in   string
		want domain.Role
		ok   bool
	}{
		{"ROLE_CUSTOMER", domain.RoleCustomer, true},
		{"Customer", domain.RoleCustomer, true},
		{"customer", domain.RoleCustomer, true},
		{"ROLE_PHARMACY", domain.RolePharmacy, true},
		{"Pharmacy", domain.RolePharmacy, true},
		{" role_pharmacy ", domain.RolePharmacy, true},
		{"ROLE_ADMIN", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := domain.ParseRole(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Errorf("ParseRole(%q) = (%q, %v), want (%q, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestParseRoles_DedupsAndPreservesOrder(t *testing.T) {
	roles := domain.ParseRoles([]string{"Pharmacy", "ROLE_CUSTOMER", "pharmacy", "ROLE_UNKNOWN"})
	if len(roles) != 2 {
		t.Fatalf("expected 2 roles, got %v", roles)
	}
	if roles[0] != domain.RolePharmacy || roles[1] != domain.RoleCustomer {
		t.Errorf("unexpected order: %v", roles)
	}
}
