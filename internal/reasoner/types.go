package reasoner

import "github.com/MikeSquared-Agency/sentinel/internal/intel"

// BehavioralFlags are advisory manipulation indicators from the
// reasoning provider.
type BehavioralFlags struct {
	SocialEngineeringTactics []string `json:"socialEngineeringTactics"`
	PressureLanguageDetected bool     `json:"pressureLanguageDetected"`
	OTPHarvestingAttempt     bool     `json:"otpHarvestingAttempt"`
}

// Outcome is the structured result of one reasoning-provider call,
// consumed within a single turn.
type Outcome struct {
	ScamDetected bool            `json:"scamDetected"`
	Confidence   float64         `json:"confidenceScore"`
	Reply        string          `json:"reply"`
	RiskLevel    string          `json:"riskLevel"`
	Category     string          `json:"scamCategory"`
	ThreatScore  float64         `json:"threatScore"`
	IsFinished   bool            `json:"isFinished"`
	Behavioral   BehavioralFlags `json:"behavioralIndicators"`
	Intelligence intel.Bundle    `json:"extractedIntelligence"`
	Notes        string          `json:"agentNotes"`
}
