package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"polylingo/internal/domain"
	"polylingo/internal/feed"
)

// TranslationRepositoryPG implements domain.TranslationRepository backed by
// PostgreSQL. Append-only, same contract as the lesson repository.
type TranslationRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewTranslationRepository creates a new TranslationRepositoryPG.
func NewTranslationRepository(pool *pgxpool.Pool) *TranslationRepositoryPG {
	return &TranslationRepositoryPG{pool: pool}
}

// Append inserts one translation record with a server-assigned timestamp
// and announces the insert on the feed channel.
func (r *TranslationRepositoryPG) Append(ctx context.Context, rec *domain.TranslationRecord) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", domain.ErrPersistenceFailed, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `
INSERT INTO translations (id, user_id, original_text, translated_text, source_lang_name, target_lang_name, selected_language)
VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6)
RETURNING id, created_at;
`, rec.UserID, rec.OriginalText, rec.TranslatedText, rec.SourceLangName, rec.TargetLangName, rec.SelectedLanguage)
	if err := row.Scan(&rec.ID, &rec.CreatedAt); err != nil {
		return fmt.Errorf("%w: insert translation: %v", domain.ErrPersistenceFailed, err)
	}

	if err := notifyAppend(ctx, tx, feed.KindTranslations, rec.UserID, rec.SelectedLanguage); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit: %v", domain.ErrPersistenceFailed, err)
	}
	return nil
}

// ListByPartition returns the user's translations for the selected
// language, newest first.
func (r *TranslationRepositoryPG) ListByPartition(ctx context.Context, userID, language string) ([]domain.TranslationRecord, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, user_id, original_text, translated_text, source_lang_name, target_lang_name, selected_language, created_at
FROM translations
WHERE user_id = $1 AND selected_language = $2
ORDER BY created_at DESC, id DESC;
`, userID, language)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.TranslationRecord
	for rows.Next() {
		rec, err := scanTranslation(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

func scanTranslation(row pgx.Row) (*domain.TranslationRecord, error) {
	var rec domain.TranslationRecord
	if err := row.Scan(&rec.ID, &rec.UserID, &rec.OriginalText, &rec.TranslatedText, &rec.SourceLangName, &rec.TargetLangName, &rec.SelectedLanguage, &rec.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

var _ domain.TranslationRepository = (*TranslationRepositoryPG)(nil)
