package models

// QuestionImportSummary reports the outcome of a spreadsheet import.
type QuestionImportSummary struct {
	TotalRowsParsed     int              `json:"total_rows_parsed"`
	NewQuestionsCreated int              `json:"new_questions_created"`
	ImportSuccessful    bool             `json:"import_successful"`
	Errors              []ImportRowError `json:"errors"`
}

type ImportRowError struct {
	Row     int    `json:"row"`
	Column  string `json:"column,omitempty"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

// ImportColumns is the expected header row of a question import sheet.
var ImportColumns = []string{"title", "complexity", "ques_type", "options", "correct_answers", "max_score", "tags"}

// ResultExportColumns is the header row of an exam results export.
var ResultExportColumns = []string{"attempt_id", "user_email", "start_time", "end_time", "is_submitted", "total_score", "graded_count"}
