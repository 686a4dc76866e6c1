// Package threat scores inbound honeypot messages for scam indicators.
// Scoring is a sum of fixed per-keyword weights found by case-insensitive
// substring search, mapped to a risk level by fixed thresholds.
package threat

import "context"

// Risk levels returned in Report.Level.
const (
	LevelSafe   = "SAFE"
	LevelLow    = "LOW"
	LevelMedium = "MEDIUM"
	LevelHigh   = "HIGH"
)

// Level thresholds. A score at or above a threshold earns that level.
const (
	ThresholdLow    = 1
	ThresholdMedium = 40
	ThresholdHigh   = 70
)

// Keyword is a single entry in the scoring table.
type Keyword struct {
	Term   string `json:"term"`
	Weight int    `json:"weight"`
}

// Report is the output of a scoring run.
type Report struct {
	// Score is the sum of the weights of every keyword found. It is not capped.
	Score int `json:"risk_score"`

	// Level is derived from Score:
	//   0      → "SAFE"
	//   1–39   → "LOW"
	//   40–69  → "MEDIUM"
	//   70+    → "HIGH"
	Level string `json:"risk_level"`

	// Triggers lists every keyword that contributed, in table order.
	Triggers []string `json:"detected_triggers"`
}

// Scorer analyses a message for scam indicators.
type Scorer interface {
	Score(ctx context.Context, text string) (*Report, error)
}

// LevelFor maps a score to its risk level.
func LevelFor(score int) string {
	switch {
	case score >= ThresholdHigh:
		return LevelHigh
	case score >= ThresholdMedium:
		return LevelMedium
	case score >= ThresholdLow:
		return LevelLow
	default:
		return LevelSafe
	}
}
