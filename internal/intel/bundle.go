package intel

// Bundle is the per-session accumulator of deduplicated identifiers.
// Category order and insertion order are stable so repeated merges are
// deterministic and idempotent.
type Bundle struct {
	BankAccounts       []string `json:"bankAccounts"`
	UPIIDs             []string `json:"upiIds"`
	PhishingLinks      []string `json:"phishingLinks"`
	PhoneNumbers       []string `json:"phoneNumbers"`
	SuspiciousKeywords []string `json:"suspiciousKeywords"`
}

// Merge folds a partial bundle into b, applying per-category dedup rules.
// Empty values are ignored. Merging the same bundle twice leaves b
// unchanged.
//
// Categories merge in fixed order, accounts before phones: a bare digit
// run seen as an account candidate in the same bundle as its phone-tagged
// twin still ends up classified as a phone.
func (b *Bundle) Merge(in Bundle) {
	for _, v := range in.BankAccounts {
		b.addAccount(v)
	}
	for _, v := range in.UPIIDs {
		addGeneric(&b.UPIIDs, v)
	}
	for _, v := range in.PhishingLinks {
		addGeneric(&b.PhishingLinks, v)
	}
	for _, v := range in.PhoneNumbers {
		b.addPhone(v)
	}
	for _, v := range in.SuspiciousKeywords {
		addGeneric(&b.SuspiciousKeywords, v)
	}
}

// addPhone inserts a phone value unless its fingerprint is already
// represented. A stored bank account with the same fingerprint is moved
// here: accounts and phones share a numeric namespace and a dialable
// number wins.
func (b *Bundle) addPhone(raw string) {
	v := Clean(raw)
	if v == "" {
		return
	}
	fp := PhoneFingerprint(v)
	if fp == "" {
		return
	}
	for _, p := range b.PhoneNumbers {
		if PhoneFingerprint(p) == fp {
			return
		}
	}
	for i, acc := range b.BankAccounts {
		if IsAccountCandidate(acc) && PhoneFingerprint(acc) == fp {
			b.BankAccounts = append(b.BankAccounts[:i], b.BankAccounts[i+1:]...)
			break
		}
	}
	b.PhoneNumbers = append(b.PhoneNumbers, v)
}

// addAccount inserts an account value. Candidates with fewer than 10
// digits (bank names, fragments) use generic dedup. Numeric candidates
// whose fingerprint matches a known phone are dropped — the phone entry
// already represents them. When the bare digits match a stored account,
// the more descriptive (longer, typically bank-labeled) string survives.
func (b *Bundle) addAccount(raw string) {
	v := Clean(raw)
	if v == "" {
		return
	}
	if !IsAccountCandidate(v) {
		addGeneric(&b.BankAccounts, v)
		return
	}
	fp := PhoneFingerprint(v)
	for _, p := range b.PhoneNumbers {
		if PhoneFingerprint(p) == fp {
			return
		}
	}
	d := Digits(v)
	for i, acc := range b.BankAccounts {
		if Digits(acc) == d {
			if len(v) > len(acc) {
				b.BankAccounts[i] = v
			}
			return
		}
	}
	b.BankAccounts = append(b.BankAccounts, v)
}

func addGeneric(list *[]string, raw string) {
	v := Clean(raw)
	if v == "" {
		return
	}
	for _, existing := range *list {
		if EqualFold(existing, v) {
			return
		}
	}
	*list = append(*list, v)
}

// Count is the total number of stored values across all categories.
func (b *Bundle) Count() int {
	return len(b.BankAccounts) + len(b.UPIIDs) + len(b.PhishingLinks) +
		len(b.PhoneNumbers) + len(b.SuspiciousKeywords)
}

// ActionableCount counts identifiers an analyst can act on directly.
// Suspicious keywords are context, not identifiers, and are excluded so
// keyword noise alone never satisfies reporting readiness.
func (b *Bundle) ActionableCount() int {
	return len(b.BankAccounts) + len(b.UPIIDs) + len(b.PhishingLinks) + len(b.PhoneNumbers)
}

// HasDirectContact reports whether the bundle holds any phone number or
// bank account — the highest-value identifier classes.
func (b *Bundle) HasDirectContact() bool {
	return len(b.PhoneNumbers) > 0 || len(b.BankAccounts) > 0
}

// Snapshot returns a deep copy with non-nil category slices, suitable for
// JSON payloads where every category must appear as an array.
func (b *Bundle) Snapshot() Bundle {
	return Bundle{
		BankAccounts:       copyNonNil(b.BankAccounts),
		UPIIDs:             copyNonNil(b.UPIIDs),
		PhishingLinks:      copyNonNil(b.PhishingLinks),
		PhoneNumbers:       copyNonNil(b.PhoneNumbers),
		SuspiciousKeywords: copyNonNil(b.SuspiciousKeywords),
	}
}

func copyNonNil(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
