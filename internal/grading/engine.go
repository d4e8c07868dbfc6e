// Package grading scores objective answers. It performs no I/O and never persists.
package grading

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/SAP-F-2025/exam-attempt-service/internal/models"
)

// ErrNotAutoGradable is returned for question types that need a human grader.
var ErrNotAutoGradable = errors.New("question type is not auto-gradable")

// Strategy scores one answer payload against one question.
type Strategy interface {
	Grade(q *models.Question, payload []byte) float64
}

// StrategyFunc adapts a plain function to Strategy.
type StrategyFunc func(q *models.Question, payload []byte) float64

func (f StrategyFunc) Grade(q *models.Question, payload []byte) float64 {
	return f(q, payload)
}

// Engine routes a question to the strategy registered for its type.
type Engine struct {
	strategies map[models.QuestionType]Strategy
}

type Option func(*Engine)

// WithStrategy registers or replaces the strategy used for a question type.
func WithStrategy(t models.QuestionType, s Strategy) Option {
	return func(e *Engine) { e.strategies[t] = s }
}

// NewEngine installs exact-set strategies for both choice types.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		strategies: map[models.QuestionType]Strategy{
			models.SingleChoice:   exactSetStrategy{},
			models.MultipleChoice: exactSetStrategy{},
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Grade(q *models.Question, payload []byte) (float64, error) {
	s, ok := e.strategies[q.Type]
	if !ok {
		return 0, ErrNotAutoGradable
	}
	return s.Grade(q, payload), nil
}

// exactSetStrategy awards max score only when the selected set equals the correct set.
type exactSetStrategy struct{}

func (exactSetStrategy) Grade(q *models.Question, payload []byte) float64 {
	correct := toSet(SelectedKeys(q.CorrectAnswers))
	if len(correct) == 0 {
		return 0
	}
	selected := toSet(SelectedKeys(payload))
	if !setEqual(correct, selected) {
		return 0
	}
	return float64(q.MaxScore)
}

// SelectedKeys extracts option keys from an answer payload or answer key.
// It accepts {"selected": [...]}, {"selected_options": [...]}, {"selected_option": "..."},
// a bare array of strings or a bare string. Anything else yields nil.
func SelectedKeys(raw []byte) []string {
	if len(raw) == 0 {
		return nil
	}

	var answer models.ChoiceAnswer
	if err := json.Unmarshal(raw, &answer); err == nil {
		return cleanKeys(answer.Keys())
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return cleanKeys(list)
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return cleanKeys([]string{single})
	}
	return nil
}

func cleanKeys(keys []string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k != "" {
			out = append(out, k)
		}
	}
	return out
}

func toSet(keys []string) map[string]struct{} {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return set
}

func setEqual(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
