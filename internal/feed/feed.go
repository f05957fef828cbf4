// Package feed implements the live read view over the append-only lesson
// and translation partitions. Writers announce inserts on a Postgres NOTIFY
// channel; the hub re-queries the affected partition and pushes a fresh
// snapshot to every subscriber of that partition.
package feed

import (
	"context"

	"polylingo/internal/domain"
)

// Channel is the Postgres NOTIFY channel records are announced on.
const Channel = "polylingo_records"

// Kind selects which record collection a subscription follows.
type Kind string

const (
	KindLessons      Kind = "lessons"
	KindTranslations Kind = "translations"
)

// Event is the NOTIFY payload emitted by the repositories after an append.
type Event struct {
	Kind     Kind   `json:"kind"`
	UserID   string `json:"user_id"`
	Language string `json:"language"`
}

// Key identifies one partition from a subscriber's point of view.
type Key struct {
	Kind     Kind
	UserID   string
	Language string
}

// Snapshot is the full ordered state of one partition, newest first.
// Exactly one of the record slices is populated, matching Kind.
type Snapshot struct {
	Kind         Kind                       `json:"kind"`
	Lessons      []domain.LessonRecord      `json:"lessons,omitempty"`
	Translations []domain.TranslationRecord `json:"translations,omitempty"`
}

// Loader fetches the current snapshot of a partition. Implemented by the
// repositories; faked in tests.
type Loader interface {
	Load(ctx context.Context, key Key) (Snapshot, error)
}
