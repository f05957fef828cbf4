package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"polylingo/internal/domain"
	"polylingo/internal/feed"
)

// LessonRepositoryPG implements domain.LessonRepository backed by PostgreSQL.
// The lessons table is append-only; nothing in this repository updates or
// deletes rows.
type LessonRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewLessonRepository creates a new LessonRepositoryPG.
func NewLessonRepository(pool *pgxpool.Pool) *LessonRepositoryPG {
	return &LessonRepositoryPG{pool: pool}
}

// Append inserts one lesson record with a server-assigned timestamp and
// announces the insert on the feed channel. The NOTIFY rides the insert
// transaction, so listeners only hear about committed rows.
func (r *LessonRepositoryPG) Append(ctx context.Context, rec *domain.LessonRecord) error {
	planJSON, err := json.Marshal(rec.LessonPlan)
	if err != nil {
		return fmt.Errorf("%w: encode lesson plan: %v", domain.ErrPersistenceFailed, err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", domain.ErrPersistenceFailed, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `
INSERT INTO lessons (id, user_id, language, topic, proficiency, lesson_plan)
VALUES (gen_random_uuid(), $1, $2, $3, $4, $5)
RETURNING id, created_at;
`, rec.UserID, rec.Language, rec.Topic, rec.Proficiency, planJSON)
	if err := row.Scan(&rec.ID, &rec.CreatedAt); err != nil {
		return fmt.Errorf("%w: insert lesson: %v", domain.ErrPersistenceFailed, err)
	}

	if err := notifyAppend(ctx, tx, feed.KindLessons, rec.UserID, rec.Language); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit: %v", domain.ErrPersistenceFailed, err)
	}
	return nil
}

// ListByPartition returns the user's lessons for the language, newest first.
func (r *LessonRepositoryPG) ListByPartition(ctx context.Context, userID, language string) ([]domain.LessonRecord, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, user_id, language, topic, proficiency, lesson_plan, created_at
FROM lessons
WHERE user_id = $1 AND language = $2
ORDER BY created_at DESC, id DESC;
`, userID, language)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.LessonRecord
	for rows.Next() {
		rec, err := scanLesson(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

func scanLesson(row pgx.Row) (*domain.LessonRecord, error) {
	var rec domain.LessonRecord
	var planJSON []byte
	if err := row.Scan(&rec.ID, &rec.UserID, &rec.Language, &rec.Topic, &rec.Proficiency, &planJSON, &rec.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(planJSON, &rec.LessonPlan); err != nil {
		return nil, fmt.Errorf("decode lesson plan: %w", err)
	}
	return &rec, nil
}

func notifyAppend(ctx context.Context, tx pgx.Tx, kind feed.Kind, userID, language string) error {
	payload, err := json.Marshal(feed.Event{Kind: kind, UserID: userID, Language: language})
	if err != nil {
		return fmt.Errorf("%w: encode notify payload: %v", domain.ErrPersistenceFailed, err)
	}
	if _, err := tx.Exec(ctx, `SELECT pg_notify($1, $2);`, feed.Channel, string(payload)); err != nil {
		return fmt.Errorf("%w: notify: %v", domain.ErrPersistenceFailed, err)
	}
	return nil
}

var _ domain.LessonRepository = (*LessonRepositoryPG)(nil)
