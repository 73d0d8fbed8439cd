package models

import "time"

type ReadinessTier string

const (
	ReadinessExcellent ReadinessTier = "EXCELENTE"
	ReadinessGood      ReadinessTier = "BUENO"
	ReadinessRegular   ReadinessTier = "REGULAR"
	ReadinessNeedsWork ReadinessTier = "REQUIERE_REFUERZO"
)

type Severity string

const (
	SeverityHigh   Severity = "HIGH"
	SeverityMedium Severity = "MEDIUM"
	SeverityLow    Severity = "LOW"
)

// SubjectPerformance is recomputed in full on every scoring call.
type SubjectPerformance struct {
	SubjectID      Subject       `json:"subject_id"`
	SubjectName    string        `json:"subject_name"`
	SubjectCode    string        `json:"subject_code"`
	TotalQuestions int           `json:"total_questions"`
	Completed      int           `json:"completed"`
	Correct        int           `json:"correct"`
	Accuracy       float64       `json:"accuracy"`
	ProjectedScore int           `json:"projected_score"`
	LastActivity   time.Time     `json:"last_activity"`
	SkillCorrect   map[Skill]int `json:"skill_correct"`
	CriticalAreas  []Skill       `json:"critical_areas"`
	Strengths      []Skill       `json:"strengths"`
}

type UnifiedMetrics struct {
	GlobalScore      int           `json:"global_score"`
	Readiness        ReadinessTier `json:"readiness"`
	Confidence       int           `json:"confidence"`
	WeeklyHours      int           `json:"weekly_study_hours"`
	PrioritySubjects []Subject     `json:"priority_subjects"`
	NextAction       string        `json:"next_action"`
	AdmissionChance  int           `json:"admission_chance"`
}

type SkillGap struct {
	Skill            Skill     `json:"skill"`
	AffectedSubjects []Subject `json:"affected_subjects"`
	Severity         Severity  `json:"severity"`
	RecommendedHours int       `json:"recommended_hours"`
}

type ComparativeAnalysis struct {
	Metrics          UnifiedMetrics `json:"metrics"`
	SkillGaps        []SkillGap     `json:"skill_gaps"`
	StrongestSubject *Subject       `json:"strongest_subject,omitempty"`
	WeakestSubject   *Subject       `json:"weakest_subject,omitempty"`
}
