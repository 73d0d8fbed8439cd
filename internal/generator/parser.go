package generator

import (
	"encoding/json"
	"fmt"
	"strings"
)

// GeneratedQuestion is the JSON shape requested from every provider.
type GeneratedQuestion struct {
	Prompt        string   `json:"prompt"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
	Explanation   string   `json:"explanation"`
}

type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", strings.Join(e.Errors, "; "))
}

// ParseQuestion decodes one generated question, checks it against the
// response schema and then against the structural rules.
func ParseQuestion(responseBody string) (*GeneratedQuestion, error) {
	cleaned := stripCodeFences(responseBody)

	if err := validateSchema([]byte(cleaned)); err != nil {
		return nil, err
	}

	var q GeneratedQuestion
	if err := json.Unmarshal([]byte(cleaned), &q); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w", err)
	}

	q.Options = trimAll(q.Options)
	q.CorrectAnswer = strings.TrimSpace(q.CorrectAnswer)

	if err := validateQuestion(&q); err != nil {
		return nil, err
	}
	return &q, nil
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimSpace(s)
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSpace(s)
	}
	if strings.HasSuffix(s, "```") {
		s = strings.TrimSuffix(s, "```")
		s = strings.TrimSpace(s)
	}
	return s
}

func trimAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.TrimSpace(s)
	}
	return out
}

func validateQuestion(q *GeneratedQuestion) error {
	var errs []string

	if strings.TrimSpace(q.Prompt) == "" {
		errs = append(errs, "empty prompt")
	}
	if len(q.Options) < MinOptions || len(q.Options) > MaxOptions {
		errs = append(errs, fmt.Sprintf("expected %d-%d options, got %d", MinOptions, MaxOptions, len(q.Options)))
	}

	seen := make(map[string]bool, len(q.Options))
	found := false
	for i, o := range q.Options {
		if o == "" {
			errs = append(errs, fmt.Sprintf("option %d is empty", i+1))
			continue
		}
		if seen[o] {
			errs = append(errs, fmt.Sprintf("duplicate option %q", o))
		}
		seen[o] = true
		if o == q.CorrectAnswer {
			found = true
		}
	}
	if !found {
		errs = append(errs, fmt.Sprintf("correct_answer %q is not among options", q.CorrectAnswer))
	}
	if strings.TrimSpace(q.Explanation) == "" {
		errs = append(errs, "empty explanation")
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}
