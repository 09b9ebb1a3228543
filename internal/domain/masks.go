package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// Masked-input helpers: a pure (raw input) → (formatted value) transform per
// mask, plus a separate validation predicate. Formats follow the Brazilian
// conventions the frontend uses: CEP "XXXXX-XXX", phone "(XX) XXXXX-XXXX"
// and CNPJ "XX.XXX.XXX/XXXX-XX".

var (
	zipCodeRe = regexp.MustCompile(`^\d{5}-\d{3}$`)
	phoneRe   = regexp.MustCompile(`^\(\d{2}\) \d{4,5}-\d{4}$`)
	cnpjRe    = regexp.MustCompile(`^\d{2}\.\d{3}\.\d{3}/\d{4}-\d{2}$`)
)

// ValidZipCode reports whether s is a fully formatted CEP.
func ValidZipCode(s string) bool {
	return zipCodeRe.MatchString(s)
}

// ValidPhone reports whether s is a fully formatted phone number
// (8- or 9-digit local part).
func ValidPhone(s string) bool {
	return phoneRe.MatchString(s)
}

// ValidCNPJ reports whether s is a fully formatted CNPJ
// ("XX.XXX.XXX/XXXX-XX").
func ValidCNPJ(s string) bool {
	return cnpjRe.MatchString(s)
}

// digitsOnly strips every non-digit rune and caps the length.
func digitsOnly(s string, max int) string {
	d := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
	if len(d) > max {
		d = d[:max]
	}
	return d
}

// FormatZipCode progressively formats raw input as a CEP. Partial input
// yields a partial mask; validation is ValidZipCode's job, not this one's.
func FormatZipCode(raw string) string {
	d := digitsOnly(raw, 8)
	if len(d) <= 5 {
		return d
	}
	return d[:5] + "-" + d[5:]
}

// FormatCNPJ progressively formats raw input as "XX.XXX.XXX/XXXX-XX".
func FormatCNPJ(raw string) string {
	d := digitsOnly(raw, 14)
	switch {
	case len(d) <= 2:
		return d
	case len(d) <= 5:
		return d[:2] + "." + d[2:]
	case len(d) <= 8:
		return fmt.Sprintf("%s.%s.%s", d[:2], d[2:5], d[5:])
	case len(d) <= 12:
		return fmt.Sprintf("%s.%s.%s/%s", d[:2], d[2:5], d[5:8], d[8:])
	default:
		return fmt.Sprintf("%s.%s.%s/%s-%s", d[:2], d[2:5], d[5:8], d[8:12], d[12:])
	}
}

// FormatPhone progressively formats raw input as "(XX) XXXXX-XXXX",
// falling back to the 8-digit local form for shorter numbers.
func FormatPhone(raw string) string {
	d := digitsOnly(raw, 11)
	switch {
	case len(d) == 0:
		return ""
	case len(d) <= 2:
		return d
	case len(d) <= 6:
		return fmt.Sprintf("(%s) %s", d[:2], d[2:])
	case len(d) <= 10:
		return fmt.Sprintf("(%s) %s-%s", d[:2], d[2:6], d[6:])
	default:
		return fmt.Sprintf("(%s) %s-%s", d[:2], d[2:7], d[7:])
	}
}
