package intel

import (
	"regexp"
	"strings"
)

// Heuristic extraction runs on every turn before the reasoning provider
// is consulted, over the full reconciled transcript. It is a lower bound:
// provider output can only extend what the lexical rules already caught.

var (
	// Country-code tolerant Indian mobile numbers: optional +91/91/0
	// prefix, first digit 6-9, dashes or spaces between the halves.
	// Word boundaries keep this from firing inside longer digit runs,
	// which belong to reAccount.
	rePhone = regexp.MustCompile(`\b(?:\+?91[-\s]?|0)?[6-9]\d{4}[-\s]?\d{5}\b`)

	// Typical 10-18 digit account numbers.
	reAccount = regexp.MustCompile(`\b\d{10,18}\b`)

	// local@domain tokens, the UPI handle shape.
	reUPI = regexp.MustCompile(`[\w.-]+@[\w.-]+`)

	reLink = regexp.MustCompile(`https?://(?:[-\w.]|(?:%[\da-f]{2}))+`)

	// Institution names are recorded as suspicious keywords: a brand
	// mention is context for the analyst, not an account identifier.
	reBank = regexp.MustCompile(`\b(?:hdfc|icici|sbi|axis|kotak|pnb|bob|canara)\b`)
)

var suspiciousKeywords = []string{
	"verify", "blocked", "suspended", "urgent", "otp", "login", "win",
	"lottery", "support", "bank", "account", "refund", "kyc",
	"compromised", "lock",
}

// ExtractHeuristics scans a lowercased combined transcript and returns a
// partial bundle of lexically extracted identifiers. Phone matches are
// normalized to their 10-digit form.
func ExtractHeuristics(combined string) Bundle {
	var b Bundle

	b.BankAccounts = reAccount.FindAllString(combined, -1)
	b.UPIIDs = reUPI.FindAllString(combined, -1)
	b.PhishingLinks = reLink.FindAllString(combined, -1)

	for _, raw := range rePhone.FindAllString(combined, -1) {
		b.PhoneNumbers = append(b.PhoneNumbers, PhoneFingerprint(raw))
	}

	for _, kw := range suspiciousKeywords {
		if strings.Contains(combined, kw) {
			b.SuspiciousKeywords = append(b.SuspiciousKeywords, kw)
		}
	}
	b.SuspiciousKeywords = append(b.SuspiciousKeywords, reBank.FindAllString(combined, -1)...)

	return b
}
