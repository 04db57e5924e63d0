package services_test

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/comitanigiacomo/regen-engine/internal/core/domain"
	"github.com/comitanigiacomo/regen-engine/internal/core/workers"
)

type MockTrackerRepo struct {
	mock.Mock
}

func (m *MockTrackerRepo) Create(ctx context.Context, t *domain.Tracker) error {
	return m.Called(ctx, t).Error(0)
}

func (m *MockTrackerRepo) GetByID(ctx context.Context, id string) (*domain.Tracker, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Tracker), args.Error(1)
}

func (m *MockTrackerRepo) ListByUserID(ctx context.Context, userID string, activeOnly bool) ([]*domain.Tracker, error) {
	args := m.Called(ctx, userID, activeOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Tracker), args.Error(1)
}

func (m *MockTrackerRepo) Update(ctx context.Context, t *domain.Tracker) error {
	return m.Called(ctx, t).Error(0)
}

func (m *MockTrackerRepo) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockTrackerRepo) IncrementEntryCount(ctx context.Context, id string, delta int) error {
	return m.Called(ctx, id, delta).Error(0)
}

func (m *MockTrackerRepo) ListExpired(ctx context.Context, now time.Time, limit int) ([]*domain.Tracker, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Tracker), args.Error(1)
}

func (m *MockTrackerRepo) CompleteMany(ctx context.Context, trackers []*domain.Tracker) error {
	return m.Called(ctx, trackers).Error(0)
}

type MockEntryRepo struct {
	mock.Mock
}

func (m *MockEntryRepo) Create(ctx context.Context, e *domain.TrackerEntry) error {
	return m.Called(ctx, e).Error(0)
}

func (m *MockEntryRepo) CreateMany(ctx context.Context, entries []*domain.TrackerEntry) error {
	return m.Called(ctx, entries).Error(0)
}

func (m *MockEntryRepo) GetByID(ctx context.Context, id string) (*domain.TrackerEntry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TrackerEntry), args.Error(1)
}

func (m *MockEntryRepo) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockEntryRepo) ListByTracker(ctx context.Context, trackerID, from, to string) ([]*domain.TrackerEntry, error) {
	args := m.Called(ctx, trackerID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.TrackerEntry), args.Error(1)
}

func (m *MockEntryRepo) ListByUser(ctx context.Context, userID, from, to string) ([]*domain.TrackerEntry, error) {
	args := m.Called(ctx, userID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.TrackerEntry), args.Error(1)
}

type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) Create(ctx context.Context, user *domain.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepo) Update(ctx context.Context, user *domain.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepo) Increment(ctx context.Context, userID string, deltas map[string]float64, set map[string]any) error {
	return m.Called(ctx, userID, deltas, set).Error(0)
}

func (m *MockUserRepo) ListActiveSince(ctx context.Context, day string) ([]*domain.User, error) {
	args := m.Called(ctx, day)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.User), args.Error(1)
}

func (m *MockUserRepo) ListByStatus(ctx context.Context, status string) ([]*domain.User, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.User), args.Error(1)
}

// recordingQueue captures enqueued jobs instead of running them.
type recordingQueue struct {
	mu   sync.Mutex
	jobs []workers.Job
}

func (q *recordingQueue) Enqueue(job workers.Job) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
	return true
}

func (q *recordingQueue) Jobs() []workers.Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]workers.Job(nil), q.jobs...)
}

type stubGenerator struct {
	text    string
	err     error
	prompts []string
}

func (g *stubGenerator) Generate(_ context.Context, prompt string, _ domain.GenerateOptions) (string, error) {
	g.prompts = append(g.prompts, prompt)
	return g.text, g.err
}

func (g *stubGenerator) Model() string { return "stub-model" }

type stubPushSender struct {
	mu     sync.Mutex
	result domain.PushResult
	err    error
	sent   []domain.PushMessage
	tokens [][]string
}

func (s *stubPushSender) Send(_ context.Context, tokens []string, msg domain.PushMessage) (domain.PushResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	s.tokens = append(s.tokens, tokens)
	if s.err != nil {
		return domain.PushResult{}, s.err
	}
	if s.result.Success == 0 && s.result.Failure == 0 {
		return domain.PushResult{Success: len(tokens)}, nil
	}
	return s.result, nil
}

func (s *stubPushSender) Messages() []domain.PushMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.PushMessage(nil), s.sent...)
}

type stubWeather struct {
	conditions string
	err        error
}

func (w stubWeather) Current(context.Context, string) (string, error) {
	return w.conditions, w.err
}
