package types

import (
	"bytes"
	"encoding/json"
)

// LinkRecord is a single harvested question link, attributed to the
// category that was active when it was encountered on the index page.
type LinkRecord struct {
	// URL is the absolute, fragment-stripped question URL.
	URL string `json:"url"`

	// Text is the link's display text (falls back to the URL).
	Text string `json:"text"`

	// QuestionType is the marker type active at harvest time
	// (e.g. "Problem Solving (PS)"), if any.
	QuestionType string `json:"question_type"`

	// Section is the subcategory the index page placed this link under.
	Section string `json:"section"`
}

// QuestionRecord holds everything extracted from a single question page.
// Records are built once and never mutated after archiving.
type QuestionRecord struct {
	Question      string   `json:"question"`
	AnswerChoices []string `json:"answer_choices"`
	CorrectAnswer string   `json:"correct_answer"`
	Explanation   string   `json:"explanation"`
	QuestionType  string   `json:"question_type"`
	Category      string   `json:"category"`
	MainCategory  string   `json:"main_category"`
	Subsection    string   `json:"subsection,omitempty"`
	DetectedType  string   `json:"detected_type,omitempty"`
	SourceURL     string   `json:"source_url"`
}

// Preview returns the first n runes of the question text.
func (q *QuestionRecord) Preview(n int) string {
	runes := []rune(q.Question)
	if len(runes) <= n {
		return q.Question
	}
	return string(runes[:n])
}

// ToJSON serializes the record with indentation and HTML escaping off so
// Unicode and math notation survive intact.
func (q *QuestionRecord) ToJSON() ([]byte, error) {
	return marshalPretty(q)
}

// QuestionSummary is the lightweight per-question entry kept in a
// category's index file.
type QuestionSummary struct {
	Filename        string `json:"filename"`
	URL             string `json:"url"`
	QuestionPreview string `json:"question_preview"`
	QuestionType    string `json:"question_type"`
}

// CategoryIndex summarizes the questions archived under one category
// folder. It is rebuilt wholesale on each run that touches the category.
type CategoryIndex struct {
	Category       string            `json:"category"`
	TotalQuestions int               `json:"total_questions"`
	Questions      []QuestionSummary `json:"questions"`
}

// ToJSON serializes the index with indentation.
func (ci *CategoryIndex) ToJSON() ([]byte, error) {
	return marshalPretty(ci)
}

func marshalPretty(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
