package models

import (
	"errors"
	"fmt"
	"strings"
)

type Subject string

const (
	SubjectReading Subject = "READING"
	SubjectMath1   Subject = "MATH1"
	SubjectMath2   Subject = "MATH2"
	SubjectScience Subject = "SCIENCE"
	SubjectHistory Subject = "HISTORY"
)

// AllSubjects is the fixed exam order, also used for round-robin scheduling.
var AllSubjects = []Subject{
	SubjectReading,
	SubjectMath1,
	SubjectMath2,
	SubjectScience,
	SubjectHistory,
}

var ValidSubjects = map[Subject]bool{
	SubjectReading: true,
	SubjectMath1:   true,
	SubjectMath2:   true,
	SubjectScience: true,
	SubjectHistory: true,
}

var subjectAliases = map[string]Subject{
	"COMPETENCIA_LECTORA": SubjectReading,
	"LECTURA":             SubjectReading,
	"MATEMATICA_1":        SubjectMath1,
	"M1":                  SubjectMath1,
	"MATEMATICA_2":        SubjectMath2,
	"M2":                  SubjectMath2,
	"CIENCIAS":            SubjectScience,
	"HISTORIA":            SubjectHistory,
}

var subjectNames = map[Subject]string{
	SubjectReading: "Competencia Lectora",
	SubjectMath1:   "Matemática M1",
	SubjectMath2:   "Matemática M2",
	SubjectScience: "Ciencias",
	SubjectHistory: "Historia y Ciencias Sociales",
}

var subjectCodes = map[Subject]string{
	SubjectReading: "CL",
	SubjectMath1:   "M1",
	SubjectMath2:   "M2",
	SubjectScience: "CIEN",
	SubjectHistory: "HIST",
}

// ParseSubject accepts canonical ids and the exam's Spanish test codes.
func ParseSubject(s string) (Subject, error) {
	key := strings.ToUpper(strings.TrimSpace(s))
	if ValidSubjects[Subject(key)] {
		return Subject(key), nil
	}
	if subj, ok := subjectAliases[key]; ok {
		return subj, nil
	}
	return "", fmt.Errorf("unknown subject %q", s)
}

func (s Subject) DisplayName() string {
	if name, ok := subjectNames[s]; ok {
		return name
	}
	return string(s)
}

func (s Subject) Code() string {
	if code, ok := subjectCodes[s]; ok {
		return code
	}
	return string(s)
}

type Skill string

const (
	SkillTrackLocate       Skill = "TRACK_LOCATE"
	SkillInterpretRelate   Skill = "INTERPRET_RELATE"
	SkillEvaluateReflect   Skill = "EVALUATE_REFLECT"
	SkillSolveProblems     Skill = "SOLVE_PROBLEMS"
	SkillRepresent         Skill = "REPRESENT"
	SkillModel             Skill = "MODEL"
	SkillArgueCommunicate  Skill = "ARGUE_COMMUNICATE"
	SkillIdentifyTheories  Skill = "IDENTIFY_THEORIES"
	SkillProcessAnalyze    Skill = "PROCESS_ANALYZE"
	SkillApplyPrinciples   Skill = "APPLY_PRINCIPLES"
	SkillAnalyzeSources    Skill = "ANALYZE_SOURCES"
	SkillHistoricalThought Skill = "HISTORICAL_THINKING"
	SkillCriticalThinking  Skill = "CRITICAL_THINKING"
)

var ValidSkills = map[Skill]bool{
	SkillTrackLocate:       true,
	SkillInterpretRelate:   true,
	SkillEvaluateReflect:   true,
	SkillSolveProblems:     true,
	SkillRepresent:         true,
	SkillModel:             true,
	SkillArgueCommunicate:  true,
	SkillIdentifyTheories:  true,
	SkillProcessAnalyze:    true,
	SkillApplyPrinciples:   true,
	SkillAnalyzeSources:    true,
	SkillHistoricalThought: true,
	SkillCriticalThinking:  true,
}

// SubjectSkills lists the skills assessed by each test, in slot-assignment order.
var SubjectSkills = map[Subject][]Skill{
	SubjectReading: {SkillTrackLocate, SkillInterpretRelate, SkillEvaluateReflect},
	SubjectMath1:   {SkillSolveProblems, SkillModel, SkillRepresent, SkillArgueCommunicate},
	SubjectMath2:   {SkillSolveProblems, SkillModel, SkillRepresent, SkillArgueCommunicate},
	SubjectScience: {SkillIdentifyTheories, SkillProcessAnalyze, SkillApplyPrinciples},
	SubjectHistory: {SkillAnalyzeSources, SkillHistoricalThought, SkillCriticalThinking},
}

type Difficulty string

const (
	DifficultyBasic        Difficulty = "basic"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

var ValidDifficulties = map[Difficulty]bool{
	DifficultyBasic:        true,
	DifficultyIntermediate: true,
	DifficultyAdvanced:     true,
}

type Source string

const (
	SourceOfficial         Source = "official"
	SourceGenerated        Source = "generated"
	SourceFallbackTemplate Source = "fallback-template"
)

// ── Core Structs ───────────────────────────────────────

type Provenance struct {
	Source       Source  `json:"source"`
	OriginalID   *string `json:"original_id,omitempty"`
	CostEstimate int     `json:"cost_estimate_cents"`
}

// Question is immutable once composed into a diagnostic; callers copy, never patch.
type Question struct {
	ID            string     `json:"id"`
	Prompt        string     `json:"prompt"`
	Options       []string   `json:"options"`
	CorrectAnswer string     `json:"correct_answer"`
	Explanation   string     `json:"explanation"`
	Difficulty    Difficulty `json:"difficulty"`
	Skill         Skill      `json:"skill"`
	Subject       Subject    `json:"subject"`
	Provenance    Provenance `json:"provenance"`
}

var ErrInvalidQuestion = errors.New("invalid question")

// Validate enforces the record invariants, most importantly that the
// correct answer is one of the options.
func (q Question) Validate() error {
	var errs []string
	if q.ID == "" {
		errs = append(errs, "empty id")
	}
	if strings.TrimSpace(q.Prompt) == "" {
		errs = append(errs, "empty prompt")
	}
	if len(q.Options) < 2 {
		errs = append(errs, fmt.Sprintf("expected at least 2 options, got %d", len(q.Options)))
	}
	found := false
	seen := make(map[string]bool, len(q.Options))
	for _, o := range q.Options {
		if seen[o] {
			errs = append(errs, fmt.Sprintf("duplicate option %q", o))
		}
		seen[o] = true
		if o == q.CorrectAnswer {
			found = true
		}
	}
	if !found {
		errs = append(errs, fmt.Sprintf("correct answer %q is not among options", q.CorrectAnswer))
	}
	if !ValidDifficulties[q.Difficulty] {
		errs = append(errs, fmt.Sprintf("invalid difficulty %q", q.Difficulty))
	}
	if !ValidSkills[q.Skill] {
		errs = append(errs, fmt.Sprintf("invalid skill %q", q.Skill))
	}
	if !ValidSubjects[q.Subject] {
		errs = append(errs, fmt.Sprintf("invalid subject %q", q.Subject))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w %s: %s", ErrInvalidQuestion, q.ID, strings.Join(errs, "; "))
	}
	return nil
}

// Clone returns a deep copy so a composed question never shares option storage.
func (q Question) Clone() Question {
	c := q
	c.Options = append([]string(nil), q.Options...)
	if q.Provenance.OriginalID != nil {
		id := *q.Provenance.OriginalID
		c.Provenance.OriginalID = &id
	}
	return c
}

type AnswerSubmission struct {
	QuestionID       string  `json:"question_id"`
	SelectedOption   string  `json:"selected_option"`
	TimeSpentSeconds float64 `json:"time_spent_seconds"`
}

// UserContext personalizes generated questions. All fields optional.
type UserContext struct {
	UserID       string   `json:"user_id,omitempty"`
	WeakSkills   []Skill  `json:"weak_skills,omitempty"`
	RecentErrors []string `json:"recent_errors,omitempty"`
	TargetCareer string   `json:"target_career,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
