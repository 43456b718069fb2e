package reasoner

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DecodeOutcome recovers the JSON object embedded in a raw provider
// response. Providers wrap their JSON in prose or markdown fences often
// enough that strict decoding is useless: we take everything from the
// first '{' to the last '}', drop control characters, and decode that.
func DecodeOutcome(raw string) (*Outcome, error) {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start == -1 || end == -1 || end < start {
		return nil, fmt.Errorf("no JSON object in response")
	}

	cleaned := strings.Map(func(r rune) rune {
		if r < 0x20 || (r >= 0x7f && r <= 0x9f) {
			return -1
		}
		return r
	}, raw[start:end+1])

	var out Outcome
	if err := json.Unmarshal([]byte(cleaned), &out); err != nil {
		return nil, fmt.Errorf("decode outcome: %w", err)
	}
	return &out, nil
}
