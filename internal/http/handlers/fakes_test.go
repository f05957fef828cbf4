package handlers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"polylingo/internal/domain"
	"polylingo/internal/infra"
)

// fakeUserRepo keeps users in memory and records mutation calls.
type fakeUserRepo struct {
	mu          sync.Mutex
	users       map[string]*domain.User
	credentials map[string]string // email -> password hash
	createErr   error
	createCalls int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users:       make(map[string]*domain.User),
		credentials: make(map[string]string),
	}
}

func (f *fakeUserRepo) add(u domain.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := u
	f.users[u.ID] = &copied
}

func (f *fakeUserRepo) Create(ctx context.Context, user *domain.User, passwordHash string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.createErr != nil {
		return nil, f.createErr
	}
	for _, existing := range f.users {
		if existing.Email == user.Email {
			return nil, domain.ErrEmailTaken
		}
	}
	created := *user
	created.ID = fmt.Sprintf("user-%d", len(f.users)+1)
	created.CreatedAt = time.Now()
	created.UpdatedAt = created.CreatedAt
	f.users[created.ID] = &created
	f.credentials[created.Email] = passwordHash
	return &created, nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeUserRepo) CredentialsByEmail(ctx context.Context, email string) (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	hash, ok := f.credentials[email]
	if !ok {
		return "", "", domain.ErrNotFound
	}
	for id, u := range f.users {
		if u.Email == email {
			return id, hash, nil
		}
	}
	return "", "", domain.ErrNotFound
}

func (f *fakeUserRepo) UpsertByEmail(ctx context.Context, user *domain.User) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == user.Email {
			u.Name = user.Name
			u.Picture = user.Picture
			copied := *u
			return &copied, nil
		}
	}
	created := *user
	created.ID = fmt.Sprintf("user-%d", len(f.users)+1)
	f.users[created.ID] = &created
	return &created, nil
}

func (f *fakeUserRepo) SetPro(ctx context.Context, userID string, isPro bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return domain.ErrNotFound
	}
	u.IsPro = isPro
	return nil
}

func (f *fakeUserRepo) TouchLastSeen(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[userID]; ok {
		u.LastSeenAt = time.Now()
	}
	return nil
}

func (f *fakeUserRepo) ListRecentlyActive(ctx context.Context, since time.Time, limit int) ([]domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.User
	for _, u := range f.users {
		if u.LastSeenAt.After(since) && len(out) < limit {
			out = append(out, *u)
		}
	}
	return out, nil
}

type fakeLessonRepo struct {
	mu      sync.Mutex
	records []domain.LessonRecord
	err     error
}

func (f *fakeLessonRepo) Append(ctx context.Context, rec *domain.LessonRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	rec.ID = fmt.Sprintf("lesson-%d", len(f.records)+1)
	rec.CreatedAt = time.Now()
	f.records = append([]domain.LessonRecord{*rec}, f.records...)
	return nil
}

func (f *fakeLessonRepo) ListByPartition(ctx context.Context, userID, language string) ([]domain.LessonRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.LessonRecord
	for _, rec := range f.records {
		if rec.UserID == userID && rec.Language == language {
			out = append(out, rec)
		}
	}
	return out, nil
}

type fakeTranslationRepo struct {
	mu      sync.Mutex
	records []domain.TranslationRecord
	err     error
}

func (f *fakeTranslationRepo) Append(ctx context.Context, rec *domain.TranslationRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	rec.ID = fmt.Sprintf("translation-%d", len(f.records)+1)
	rec.CreatedAt = time.Now()
	f.records = append([]domain.TranslationRecord{*rec}, f.records...)
	return nil
}

func (f *fakeTranslationRepo) ListByPartition(ctx context.Context, userID, language string) ([]domain.TranslationRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.TranslationRecord
	for _, rec := range f.records {
		if rec.UserID == userID && rec.SelectedLanguage == language {
			out = append(out, rec)
		}
	}
	return out, nil
}

// fakeGenerator returns canned results and counts calls. When block is set,
// calls park on it until the test releases them.
type fakeGenerator struct {
	mu             sync.Mutex
	plan           *domain.LessonPlan
	translated     string
	err            error
	lessonCalls    int
	translateCalls int
	lastSource     string
	lastTarget     string
	block          chan struct{}
	entered        chan struct{}
}

func (f *fakeGenerator) GenerateLesson(ctx context.Context, topic string, proficiency domain.Proficiency, language string) (*domain.LessonPlan, error) {
	f.mu.Lock()
	f.lessonCalls++
	block, entered := f.block, f.entered
	f.mu.Unlock()
	if entered != nil {
		entered <- struct{}{}
	}
	if block != nil {
		<-block
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.plan != nil {
		return f.plan, nil
	}
	return &domain.LessonPlan{Title: "Lesson: " + topic}, nil
}

func (f *fakeGenerator) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	f.mu.Lock()
	f.translateCalls++
	f.lastSource = sourceLang
	f.lastTarget = targetLang
	f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	if f.translated != "" {
		return f.translated, nil
	}
	return "translated: " + text, nil
}

type fakeBilling struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeBilling) CheckSubscription(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, userID)
	return nil
}

func newTestApp() (*App, *fakeUserRepo, *fakeLessonRepo, *fakeTranslationRepo, *fakeGenerator) {
	users := newFakeUserRepo()
	lessons := &fakeLessonRepo{}
	translations := &fakeTranslationRepo{}
	generator := &fakeGenerator{}
	app := &App{
		Config: &infra.Config{
			JWTSecret:       "test-secret",
			GenerateTimeout: time.Second,
		},
		Logger:       zerolog.Nop(),
		Users:        users,
		Lessons:      lessons,
		Translations: translations,
		Generator:    generator,
	}
	return app, users, lessons, translations, generator
}
