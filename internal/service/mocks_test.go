package service

import (
	"context"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/mock"

	"github.com/medgraph/patient-portal-go/internal/audit"
	"github.com/medgraph/patient-portal-go/internal/database"
	"github.com/medgraph/patient-portal-go/internal/model"
	"github.com/medgraph/patient-portal-go/internal/repository"
)

// Mock repositories

type mockIdentityRepo struct {
	mock.Mock
}

func (m *mockIdentityRepo) FindByID(ctx context.Context, id string) (*model.PortalIdentity, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PortalIdentity), args.Error(1)
}

func (m *mockIdentityRepo) FindByEmail(ctx context.Context, email string) (*model.PortalIdentity, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PortalIdentity), args.Error(1)
}

func (m *mockIdentityRepo) FindByExternalRef(ctx context.Context, ref string) (*model.PortalIdentity, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PortalIdentity), args.Error(1)
}

func (m *mockIdentityRepo) Upsert(ctx context.Context, params model.UpsertIdentityParams) (*model.PortalIdentity, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PortalIdentity), args.Error(1)
}

func (m *mockIdentityRepo) IncrementFailedAttempts(ctx context.Context, id string) (int, error) {
	args := m.Called(ctx, id)
	return args.Int(0), args.Error(1)
}

func (m *mockIdentityRepo) UpdateLockoutState(ctx context.Context, id string, failedAttempts int, lockedUntil *time.Time) error {
	args := m.Called(ctx, id, failedAttempts, lockedUntil)
	return args.Error(0)
}

func (m *mockIdentityRepo) RecordLoginSuccess(ctx context.Context, id string, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *mockIdentityRepo) SetStatus(ctx context.Context, id string, status model.IdentityStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *mockIdentityRepo) UpdatePasswordHash(ctx context.Context, id string, hash string) error {
	args := m.Called(ctx, id, hash)
	return args.Error(0)
}

func (m *mockIdentityRepo) Stats(ctx context.Context, orgRef string) (*model.PortalStats, error) {
	args := m.Called(ctx, orgRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PortalStats), args.Error(1)
}

func (m *mockIdentityRepo) WithTx(tx *sqlx.Tx) repository.IdentityRepository {
	return m
}

type mockSessionRepo struct {
	mock.Mock
}

func (m *mockSessionRepo) Create(ctx context.Context, params model.CreateSessionParams) (*model.Session, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Session), args.Error(1)
}

func (m *mockSessionRepo) FindByTokenHash(ctx context.Context, tokenHash string) (*model.Session, *model.PortalIdentity, error) {
	args := m.Called(ctx, tokenHash)
	var session *model.Session
	var identity *model.PortalIdentity
	if args.Get(0) != nil {
		session = args.Get(0).(*model.Session)
	}
	if args.Get(1) != nil {
		identity = args.Get(1).(*model.PortalIdentity)
	}
	return session, identity, args.Error(2)
}

func (m *mockSessionRepo) Touch(ctx context.Context, id string, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *mockSessionRepo) DeleteByTokenHash(ctx context.Context, tokenHash string) (string, bool, error) {
	args := m.Called(ctx, tokenHash)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *mockSessionRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockSessionRepo) DeleteAllForIdentity(ctx context.Context, identityID string) error {
	args := m.Called(ctx, identityID)
	return args.Error(0)
}

func (m *mockSessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockSessionRepo) CountForIdentity(ctx context.Context, identityID string) (int, error) {
	args := m.Called(ctx, identityID)
	return args.Int(0), args.Error(1)
}

func (m *mockSessionRepo) WithTx(tx *sqlx.Tx) repository.SessionRepository {
	return m
}

// fakeRecorder captures audit entries synchronously so tests can assert on
// exactly what was recorded.
type fakeRecorder struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (r *fakeRecorder) Record(ctx context.Context, entry audit.Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
}

func (r *fakeRecorder) all() []audit.Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]audit.Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// stubTx runs the transaction body without a real database.
type stubTx struct {
	err error
}

func (s *stubTx) WithTx(ctx context.Context, fn database.TxFunc) error {
	if s.err != nil {
		return s.err
	}
	return fn(nil)
}
