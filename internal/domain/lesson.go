package domain

import "time"

// Proficiency enumerates the skill levels a lesson can target.
type Proficiency string

const (
	ProficiencyBeginner     Proficiency = "Beginner"
	ProficiencyIntermediate Proficiency = "Intermediate"
	ProficiencyAdvanced     Proficiency = "Advanced"
)

// Valid reports whether p is one of the known proficiency levels.
func (p Proficiency) Valid() bool {
	switch p {
	case ProficiencyBeginner, ProficiencyIntermediate, ProficiencyAdvanced:
		return true
	}
	return false
}

// VocabularyEntry is one word or phrase taught by a lesson.
type VocabularyEntry struct {
	Term        string `json:"term"`
	Translation string `json:"translation"`
	Example     string `json:"example"`
}

// DialogueLine is one exchange in a lesson's practice dialogue.
type DialogueLine struct {
	Speaker     string `json:"speaker"`
	Line        string `json:"line"`
	Translation string `json:"translation"`
}

// LessonPlan is the structured content produced by the generation backend.
type LessonPlan struct {
	Title       string            `json:"title"`
	Objectives  []string          `json:"objectives"`
	Vocabulary  []VocabularyEntry `json:"vocabulary"`
	Dialogue    []DialogueLine    `json:"dialogue"`
	GrammarTips []string          `json:"grammar_tips"`
	Practice    []string          `json:"practice"`
}

// LessonRecord is one generated lesson persisted for a user. Records are
// append-only; (UserID, Language) is the partition key for retrieval and
// CreatedAt is assigned by the storage backend on insert.
type LessonRecord struct {
	ID          string      `json:"id"`
	LessonPlan  LessonPlan  `json:"lesson_plan"`
	Topic       string      `json:"topic"`
	Proficiency Proficiency `json:"proficiency"`
	Language    string      `json:"language"`
	UserID      string      `json:"user_id"`
	CreatedAt   time.Time   `json:"created_at"`
}
