package domain

import "time"

// TranslationRecord is one completed translation persisted for a user.
// Append-only, partitioned by (UserID, SelectedLanguage) like LessonRecord.
// SelectedLanguage is the catalog language the user was studying, which is
// the target or the source depending on the translation direction.
type TranslationRecord struct {
	ID               string    `json:"id"`
	OriginalText     string    `json:"original_text"`
	TranslatedText   string    `json:"translated_text"`
	SourceLangName   string    `json:"source_lang_name"`
	TargetLangName   string    `json:"target_lang_name"`
	SelectedLanguage string    `json:"selected_language"`
	UserID           string    `json:"user_id"`
	CreatedAt        time.Time `json:"created_at"`
}
