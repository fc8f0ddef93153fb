// internal/domain/question/catalog.go
package question

import (
	"fmt"
	"time"
)

// Question is a single scheduled daily check-in prompt. Questions are
// immutable; their identity is their position in the Catalog.
type Question struct {
	Hour        int // fire time, in the catalog's location
	Minute      int
	Prompt      string // the yes/no question sent to the chat
	YesFollowUp string // sent after a "Yes" answer (asks for a photo)
	NoFollowUp  string // sent after a "No" answer (asks for an explanation)
}

// CronSpec renders the question's fire time as a standard 5-field cron
// expression, e.g. "30 14 * * *" for 14:30 daily.
func (q Question) CronSpec() string {
	return fmt.Sprintf("%d %d * * *", q.Minute, q.Hour)
}

// Catalog is the fixed ordered list of daily questions together with the
// location their fire times are interpreted in.
type Catalog struct {
	questions []Question
	location  *time.Location
}

// NewCatalog validates the given questions and returns a Catalog.
func NewCatalog(questions []Question, location *time.Location) (*Catalog, error) {
	if len(questions) == 0 {
		return nil, fmt.Errorf("question catalog must not be empty")
	}
	if location == nil {
		return nil, fmt.Errorf("question catalog requires a location")
	}
	for i, q := range questions {
		if q.Hour < 0 || q.Hour > 23 {
			return nil, fmt.Errorf("question %d: invalid hour %d", i, q.Hour)
		}
		if q.Minute < 0 || q.Minute > 59 {
			return nil, fmt.Errorf("question %d: invalid minute %d", i, q.Minute)
		}
		if q.Prompt == "" || q.YesFollowUp == "" || q.NoFollowUp == "" {
			return nil, fmt.Errorf("question %d: prompt and follow-up texts must not be empty", i)
		}
	}
	return &Catalog{questions: questions, location: location}, nil
}

// DefaultCatalog returns the standard diet-plan follow-up questions
// (breakfast, lunch, dinner) with fire times in the given location.
func DefaultCatalog(location *time.Location) (*Catalog, error) {
	return NewCatalog([]Question{
		{
			Hour:        10,
			Minute:      0,
			Prompt:      "Did you have your breakfast as per the diet plan?",
			YesFollowUp: "Please share a picture of your breakfast.",
			NoFollowUp:  "Please provide an explanation for missing breakfast.",
		},
		{
			Hour:        14,
			Minute:      30,
			Prompt:      "Did you have your lunch as per the diet plan?",
			YesFollowUp: "Please share a picture of your lunch.",
			NoFollowUp:  "Please provide an explanation for missing lunch.",
		},
		{
			Hour:        21,
			Minute:      0,
			Prompt:      "Did you have your dinner as per the diet plan?",
			YesFollowUp: "Please share a picture of your dinner.",
			NoFollowUp:  "Please provide an explanation for missing dinner.",
		},
	}, location)
}

// Get returns the question at the given index, or ok=false when the index
// is outside the catalog. Callers treat an out-of-range index from internal
// code as an invariant violation, never as user input.
func (c *Catalog) Get(index int) (Question, bool) {
	if index < 0 || index >= len(c.questions) {
		return Question{}, false
	}
	return c.questions[index], true
}

// Len returns the number of questions in the catalog.
func (c *Catalog) Len() int {
	return len(c.questions)
}

// Location returns the location fire times are interpreted in.
func (c *Catalog) Location() *time.Location {
	return c.location
}
