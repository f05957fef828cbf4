package repo

import (
	"context"
	"fmt"

	"polylingo/internal/domain"
	"polylingo/internal/feed"
)

// FeedLoader adapts the record repositories to the feed.Loader contract.
type FeedLoader struct {
	Lessons      domain.LessonRepository
	Translations domain.TranslationRepository
}

// Load fetches the current snapshot of one partition, newest first.
func (l FeedLoader) Load(ctx context.Context, key feed.Key) (feed.Snapshot, error) {
	switch key.Kind {
	case feed.KindLessons:
		records, err := l.Lessons.ListByPartition(ctx, key.UserID, key.Language)
		if err != nil {
			return feed.Snapshot{}, err
		}
		return feed.Snapshot{Kind: key.Kind, Lessons: records}, nil
	case feed.KindTranslations:
		records, err := l.Translations.ListByPartition(ctx, key.UserID, key.Language)
		if err != nil {
			return feed.Snapshot{}, err
		}
		return feed.Snapshot{Kind: key.Kind, Translations: records}, nil
	default:
		return feed.Snapshot{}, fmt.Errorf("unknown feed kind %q", key.Kind)
	}
}

var _ feed.Loader = FeedLoader{}
