package models

import (
	"fmt"
	"strings"
	"time"
)

type SimulationMode string

const (
	ModeOfficial SimulationMode = "official"
	ModePractice SimulationMode = "practice"
)

func ParseSimulationMode(s string) (SimulationMode, error) {
	switch SimulationMode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeOfficial, "":
		return ModeOfficial, nil
	case ModePractice:
		return ModePractice, nil
	}
	return "", fmt.Errorf("unknown simulation mode %q", s)
}

// SimulationSpec is the fixed real-exam shape of one test.
type SimulationSpec struct {
	DurationMinutes int `json:"duration_minutes"`
	TotalQuestions  int `json:"total_questions"`
}

// ScaledTo shrinks the shape to n questions, keeping the per-question pace
// and rounding the duration up to a whole minute.
func (s SimulationSpec) ScaledTo(n int) SimulationSpec {
	if n <= 0 || s.TotalQuestions <= 0 || n >= s.TotalQuestions {
		return s
	}
	minutes := (s.DurationMinutes*n + s.TotalQuestions - 1) / s.TotalQuestions
	return SimulationSpec{DurationMinutes: max(minutes, 1), TotalQuestions: n}
}

type Simulation struct {
	ID              string         `json:"id"`
	UserID          string         `json:"user_id,omitempty"`
	Title           string         `json:"title"`
	Subject         Subject        `json:"subject"`
	Mode            SimulationMode `json:"mode"`
	DurationMinutes int            `json:"duration_minutes"`
	TotalQuestions  int            `json:"total_questions"`
	TimedMode       bool           `json:"timed_mode"`
	AllowNavigation bool           `json:"allow_navigation"`
	ShowAnswers     bool           `json:"show_answers"`
	Questions       []Question     `json:"questions"`
	CreatedAt       time.Time      `json:"created_at"`
}

type ScheduledSimulation struct {
	Week            int            `json:"week"`
	UserID          string         `json:"user_id"`
	Subject         Subject        `json:"subject"`
	Title           string         `json:"title"`
	Mode            SimulationMode `json:"mode"`
	DurationMinutes int            `json:"duration_minutes"`
	TotalQuestions  int            `json:"total_questions"`
	ScheduledFor    time.Time      `json:"scheduled_for"`
}

type AnswerResult struct {
	QuestionID       string  `json:"question_id"`
	SelectedOption   string  `json:"selected_option"`
	Correct          bool    `json:"correct"`
	TimeSpentSeconds float64 `json:"time_spent_seconds"`
}

// SimulationResult is persisted append-only.
type SimulationResult struct {
	ID               string            `json:"id"`
	SimulationID     string            `json:"simulation_id"`
	UserID           string            `json:"user_id"`
	Subject          Subject           `json:"subject"`
	Score            int               `json:"score"`
	TotalQuestions   int               `json:"total_questions"`
	CorrectAnswers   int               `json:"correct_answers"`
	TimeSpentSeconds float64           `json:"time_spent_seconds"`
	Answers          []AnswerResult    `json:"answers"`
	SkillPerformance map[Skill]float64 `json:"skill_performance"`
	PredictedScore   int               `json:"predicted_score"`
	CompletedAt      time.Time         `json:"completed_at"`
}

type CreateSimulationRequest struct {
	Subject string `json:"subject"`
	Mode    string `json:"mode"`
}

type SimulationHistory struct {
	Results            []SimulationResult `json:"results"`
	AverageScore       float64            `json:"average_score"`
	BestPredictedScore int                `json:"best_predicted_score"`
	LastDelta          int                `json:"last_delta"`
}
