package generator

import "fmt"

// Soft structural bounds. Violations lower the score without failing parsing.
const (
	minPromptLen      = 20
	maxPromptLen      = 1500
	maxOptionLen      = 300
	minExplanationLen = 20
)

// StructuralScore holds the individual structural compliance checks.
type StructuralScore struct {
	PromptLengthOK    bool
	AllOptionsInRange bool
	ExplanationOK     bool
	NoCatchAllOption  bool
}

// ComputeStructuralScore evaluates structural compliance for a single question.
func ComputeStructuralScore(q GeneratedQuestion) StructuralScore {
	promptLen := len([]rune(q.Prompt))

	optionsOK := true
	catchAllFree := true
	for _, o := range q.Options {
		if len([]rune(o)) > maxOptionLen {
			optionsOK = false
		}
		if catchAllOptions[o] {
			catchAllFree = false
		}
	}

	return StructuralScore{
		PromptLengthOK:    promptLen >= minPromptLen && promptLen <= maxPromptLen,
		AllOptionsInRange: optionsOK,
		ExplanationOK:     len([]rune(q.Explanation)) >= minExplanationLen,
		NoCatchAllOption:  catchAllFree,
	}
}

var catchAllOptions = map[string]bool{
	"Todas las anteriores":      true,
	"Ninguna de las anteriores": true,
	"All of the above":          true,
	"None of the above":         true,
}

// Score returns the share of passed checks (0.0-1.0).
func (s StructuralScore) Score() float64 {
	passed := 0
	for _, ok := range []bool{s.PromptLengthOK, s.AllOptionsInRange, s.ExplanationOK, s.NoCatchAllOption} {
		if ok {
			passed++
		}
	}
	return float64(passed) / 4
}

// Failures lists the checks that did not pass.
func (s StructuralScore) Failures() []string {
	var out []string
	if !s.PromptLengthOK {
		out = append(out, fmt.Sprintf("prompt length outside [%d, %d]", minPromptLen, maxPromptLen))
	}
	if !s.AllOptionsInRange {
		out = append(out, fmt.Sprintf("option longer than %d characters", maxOptionLen))
	}
	if !s.ExplanationOK {
		out = append(out, fmt.Sprintf("explanation shorter than %d characters", minExplanationLen))
	}
	if !s.NoCatchAllOption {
		out = append(out, "catch-all option present")
	}
	return out
}

const (
	QualityReject  = "reject"
	QualityFlagged = "flagged"
	QualityPassed  = "passed"
)

// ClassifyQuality returns "reject" (< 0.50), "flagged" (0.50-0.75) or "passed".
func ClassifyQuality(score float64) string {
	if score < 0.50 {
		return QualityReject
	}
	if score <= 0.75 {
		return QualityFlagged
	}
	return QualityPassed
}
