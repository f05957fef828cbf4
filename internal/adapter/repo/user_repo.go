package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"polylingo/internal/domain"
)

const pgUniqueViolation = "23505"

// UserRepositoryPG implements domain.UserRepository backed by PostgreSQL.
// Accounts live in users; the pro entitlement lives in a separate profiles
// row so the billing refresher can update it independently of identity.
type UserRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new UserRepositoryPG.
func NewUserRepository(pool *pgxpool.Pool) *UserRepositoryPG {
	return &UserRepositoryPG{pool: pool}
}

const selectUser = `
SELECT u.id, u.email, u.name, u.picture, u.provider,
       COALESCE(p.is_pro, FALSE), u.last_seen_at, u.created_at, u.updated_at
FROM users u
LEFT JOIN profiles p ON p.user_id = u.id
`

// Create inserts the account and its profile atomically. If the profile
// insert is rejected the whole transaction rolls back, so a half-registered
// account is never observable.
func (r *UserRepositoryPG) Create(ctx context.Context, user *domain.User, passwordHash string) (*domain.User, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: begin: %v", domain.ErrPersistenceFailed, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `
INSERT INTO users (id, email, name, picture, provider, password_hash)
VALUES (gen_random_uuid(), $1, $2, $3, $4, $5)
RETURNING id, created_at, updated_at;
`, user.Email, user.Name, user.Picture, user.Provider, passwordHash)

	created := *user
	if err := row.Scan(&created.ID, &created.CreatedAt, &created.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, domain.ErrEmailTaken
		}
		return nil, fmt.Errorf("%w: insert user: %v", domain.ErrPersistenceFailed, err)
	}

	if _, err := tx.Exec(ctx, `
INSERT INTO profiles (user_id, is_pro) VALUES ($1, FALSE);
`, created.ID); err != nil {
		return nil, fmt.Errorf("%w: insert profile: %v", domain.ErrPersistenceFailed, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("%w: commit: %v", domain.ErrPersistenceFailed, err)
	}
	created.IsPro = false
	return &created, nil
}

// GetByID fetches a user with their profile entitlement.
func (r *UserRepositoryPG) GetByID(ctx context.Context, id string) (*domain.User, error) {
	row := r.pool.QueryRow(ctx, selectUser+`WHERE u.id = $1`, id)
	return scanUser(row)
}

// GetByEmail fetches a user by email.
func (r *UserRepositoryPG) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.pool.QueryRow(ctx, selectUser+`WHERE u.email = $1`, email)
	return scanUser(row)
}

// CredentialsByEmail returns the user id and stored password hash for a
// password sign-in attempt.
func (r *UserRepositoryPG) CredentialsByEmail(ctx context.Context, email string) (string, string, error) {
	row := r.pool.QueryRow(ctx, `
SELECT id, COALESCE(password_hash, '') FROM users WHERE email = $1 AND provider = 'password';
`, email)
	var id, hash string
	if err := row.Scan(&id, &hash); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", "", domain.ErrNotFound
		}
		return "", "", err
	}
	return id, hash, nil
}

// UpsertByEmail creates or refreshes an account coming from an external
// identity provider, along with a default profile.
func (r *UserRepositoryPG) UpsertByEmail(ctx context.Context, user *domain.User) (*domain.User, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: begin: %v", domain.ErrPersistenceFailed, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `
INSERT INTO users (id, email, name, picture, provider)
VALUES (gen_random_uuid(), $1, $2, $3, $4)
ON CONFLICT (email) DO UPDATE
SET name = EXCLUDED.name,
    picture = EXCLUDED.picture,
    updated_at = NOW()
RETURNING id, created_at, updated_at;
`, user.Email, user.Name, user.Picture, user.Provider)

	upserted := *user
	if err := row.Scan(&upserted.ID, &upserted.CreatedAt, &upserted.UpdatedAt); err != nil {
		return nil, fmt.Errorf("%w: upsert user: %v", domain.ErrPersistenceFailed, err)
	}

	if _, err := tx.Exec(ctx, `
INSERT INTO profiles (user_id, is_pro) VALUES ($1, FALSE)
ON CONFLICT (user_id) DO NOTHING;
`, upserted.ID); err != nil {
		return nil, fmt.Errorf("%w: upsert profile: %v", domain.ErrPersistenceFailed, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("%w: commit: %v", domain.ErrPersistenceFailed, err)
	}
	return r.GetByID(ctx, upserted.ID)
}

// SetPro updates the profile entitlement flag.
func (r *UserRepositoryPG) SetPro(ctx context.Context, userID string, isPro bool) error {
	tag, err := r.pool.Exec(ctx, `
UPDATE profiles SET is_pro = $2, updated_at = NOW() WHERE user_id = $1;
`, userID, isPro)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// TouchLastSeen records page-load activity for the billing refresher.
func (r *UserRepositoryPG) TouchLastSeen(ctx context.Context, userID string) error {
	_, err := r.pool.Exec(ctx, `
UPDATE users SET last_seen_at = NOW() WHERE id = $1;
`, userID)
	return err
}

// ListRecentlyActive returns users seen since the given time, most recent first.
func (r *UserRepositoryPG) ListRecentlyActive(ctx context.Context, since time.Time, limit int) ([]domain.User, error) {
	rows, err := r.pool.Query(ctx, selectUser+`
WHERE u.last_seen_at >= $1
ORDER BY u.last_seen_at DESC
LIMIT $2`, since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Picture, &u.Provider, &u.IsPro, &u.LastSeenAt, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

var _ domain.UserRepository = (*UserRepositoryPG)(nil)
