package validator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/SAP-F-2025/exam-attempt-service/internal/grading"
	"github.com/SAP-F-2025/exam-attempt-service/internal/models"
)

const maxOptions = 10

// QuestionValidator handles question-specific validation
type QuestionValidator struct{}

// NewQuestionValidator creates a new question validator
func NewQuestionValidator() *QuestionValidator {
	return &QuestionValidator{}
}

// ValidateQuestion checks the type-dependent shape of options and answer key.
// It returns ValidationErrors listing every problem found, or nil.
func (v *QuestionValidator) ValidateQuestion(question *models.Question) error {
	var errs ValidationErrors

	if strings.TrimSpace(question.Title) == "" {
		errs.Add("title", "is required", question.Title)
	}
	if question.MaxScore < 1 {
		errs.Add("max_score", "must be at least 1", question.MaxScore)
	}
	if !question.Type.IsValid() {
		errs.Add("ques_type", "must be a valid question type (single_choice, multiple_choice, text)", question.Type)
		return errs
	}

	options, err := parseOptions(question.Options)
	if err != nil {
		errs.Add("options", "must be an object of option key to label", string(question.Options))
		return errs
	}

	if question.Type.IsAutoGradable() {
		errs = append(errs, v.validateChoiceContent(question.Type, options, question.CorrectAnswers)...)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (v *QuestionValidator) validateChoiceContent(qType models.QuestionType, options map[string]string, correctRaw []byte) ValidationErrors {
	var errs ValidationErrors

	if len(options) < 2 {
		errs.Add("options", "must have at least 2 options", len(options))
	}
	if len(options) > maxOptions {
		errs.Add("options", fmt.Sprintf("cannot have more than %d options", maxOptions), len(options))
	}
	for key, label := range options {
		if strings.TrimSpace(label) == "" {
			errs.Add("options", fmt.Sprintf("option '%s' has an empty label", key), key)
		}
	}

	correct := grading.SelectedKeys(correctRaw)
	if len(correct) == 0 {
		errs.Add("correct_answers", "must select at least 1 option", string(correctRaw))
		return errs
	}
	if qType == models.SingleChoice && len(uniqueKeys(correct)) != 1 {
		errs.Add("correct_answers", "single_choice must have exactly 1 correct option", correct)
	}
	for _, key := range correct {
		if _, ok := options[key]; !ok {
			errs.Add("correct_answers", fmt.Sprintf("correct answer '%s' does not match any option", key), key)
		}
	}
	return errs
}

func parseOptions(raw []byte) (map[string]string, error) {
	options := map[string]string{}
	if len(raw) == 0 || string(raw) == "null" {
		return options, nil
	}
	if err := json.Unmarshal(raw, &options); err != nil {
		return nil, err
	}
	return options, nil
}

func uniqueKeys(keys []string) map[string]struct{} {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return set
}
