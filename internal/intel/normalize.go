// Package intel consolidates identifiers extracted from scam conversations.
//
// Raw scammer text is noisy: the same phone number shows up with country
// codes, dashes and stray punctuation across turns. Everything that lands
// in a session's intelligence bundle goes through the normalizers here so
// a human analyst reading the final case report sees each identifier once.
package intel

import (
	"strings"
	"unicode"
)

// Clean strips surrounding whitespace and trailing sentence punctuation
// from a raw extracted value.
func Clean(raw string) string {
	s := strings.TrimSpace(raw)
	return strings.TrimRight(s, ".,?!")
}

// Digits returns only the digit runes of s.
func Digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// PhoneFingerprint canonicalizes a phone-like value for duplicate
// detection: all non-digits stripped, then the last 10 digits when at
// least 10 remain. "+91 98765 43210" and "098765-43210" collapse to the
// same fingerprint.
func PhoneFingerprint(s string) string {
	d := Digits(s)
	if len(d) >= 10 {
		return d[len(d)-10:]
	}
	return d
}

// IsAccountCandidate reports whether a cleaned value qualifies as an
// account number: at least 10 digits once non-digits are stripped.
// Shorter strings (bank names, partial numbers) fall back to generic
// string dedup.
func IsAccountCandidate(s string) bool {
	return len(Digits(s)) >= 10
}

// EqualFold reports whether two cleaned values are duplicates under the
// generic rule: case-insensitive exact match.
func EqualFold(a, b string) bool {
	return strings.EqualFold(a, b)
}
