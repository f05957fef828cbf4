package domain

import (
	"context"
	"time"
)

// UserRepository defines access methods for accounts and their profiles.
type UserRepository interface {
	// Create inserts the account and its profile row atomically. When the
	// profile write fails the account must not be observable afterwards.
	Create(ctx context.Context, user *User, passwordHash string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	// CredentialsByEmail returns the user id and stored password hash.
	CredentialsByEmail(ctx context.Context, email string) (string, string, error)
	// UpsertByEmail creates or refreshes an account from an external
	// identity provider (no password credential).
	UpsertByEmail(ctx context.Context, user *User) (*User, error)
	SetPro(ctx context.Context, userID string, isPro bool) error
	TouchLastSeen(ctx context.Context, userID string) error
	ListRecentlyActive(ctx context.Context, since time.Time, limit int) ([]User, error)
}

// LessonRepository persists generated lessons.
type LessonRepository interface {
	// Append inserts one record with a server-assigned timestamp and
	// announces the insert to live-feed listeners.
	Append(ctx context.Context, rec *LessonRecord) error
	// ListByPartition returns the user's records for the language,
	// newest first.
	ListByPartition(ctx context.Context, userID, language string) ([]LessonRecord, error)
}

// TranslationRepository persists completed translations.
type TranslationRepository interface {
	Append(ctx context.Context, rec *TranslationRecord) error
	ListByPartition(ctx context.Context, userID, language string) ([]TranslationRecord, error)
}

// Generator is the request/response boundary to the AI backend. It never
// touches storage and holds no state between calls.
type Generator interface {
	GenerateLesson(ctx context.Context, topic string, proficiency Proficiency, language string) (*LessonPlan, error)
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}

// SubscriptionChecker refreshes a user's pro entitlement from the billing
// backend. Callers treat it as best-effort.
type SubscriptionChecker interface {
	CheckSubscription(ctx context.Context, userID string) error
}
