package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medgraph/patient-portal-go/internal/model"
)

// stubAuditRepo captures appended events; optionally fails or blocks.
type stubAuditRepo struct {
	mu      sync.Mutex
	events  []model.AppendAuditEventParams
	err     error
	release chan struct{}
}

func (s *stubAuditRepo) Append(ctx context.Context, params model.AppendAuditEventParams) error {
	if s.release != nil {
		<-s.release
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, params)
	return s.err
}

func (s *stubAuditRepo) ListForIdentity(ctx context.Context, identityID string, limit int) ([]model.AuditEvent, error) {
	return nil, nil
}

func (s *stubAuditRepo) appended() []model.AppendAuditEventParams {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.AppendAuditEventParams, len(s.events))
	copy(out, s.events)
	return out
}

func TestDispatcher_WritesEntries(t *testing.T) {
	repo := &stubAuditRepo{}
	d := NewDispatcher(repo, 16)

	identityID := "id-1"
	d.Record(context.Background(), Entry{
		IdentityID: &identityID,
		Action:     model.AuditActionLoginSuccess,
		Status:     model.AuditStatusSuccess,
		IP:         "203.0.113.7",
		Metadata:   map[string]any{"reason": "test"},
	})

	d.Close()

	events := repo.appended()
	require.Len(t, events, 1)
	assert.NotEmpty(t, events[0].ID)
	assert.Equal(t, model.AuditActionLoginSuccess, events[0].Action)
	assert.Equal(t, model.AuditStatusSuccess, events[0].Status)
	assert.Equal(t, "203.0.113.7", events[0].IPAddress)
	require.NotNil(t, events[0].IdentityID)
	assert.Equal(t, "id-1", *events[0].IdentityID)
}

func TestDispatcher_DrainsOnClose(t *testing.T) {
	repo := &stubAuditRepo{}
	d := NewDispatcher(repo, 64)

	for i := 0; i < 20; i++ {
		d.Record(context.Background(), Entry{
			Action: model.AuditActionLoginFailed,
			Status: model.AuditStatusFailure,
		})
	}

	d.Close()

	assert.Len(t, repo.appended(), 20)
	assert.Zero(t, d.Dropped())
}

func TestDispatcher_StoreFailureIsSwallowed(t *testing.T) {
	repo := &stubAuditRepo{err: errors.New("connection refused")}
	d := NewDispatcher(repo, 16)

	// Record never surfaces the store error.
	d.Record(context.Background(), Entry{
		Action: model.AuditActionLoginSuccess,
		Status: model.AuditStatusSuccess,
	})

	d.Close()
	assert.Len(t, repo.appended(), 1)
}

func TestDispatcher_DropsWhenFull(t *testing.T) {
	release := make(chan struct{})
	repo := &stubAuditRepo{release: release}
	d := NewDispatcher(repo, 1)

	// First entry occupies the worker, second fills the buffer, the rest
	// must be dropped without blocking the caller.
	for i := 0; i < 5; i++ {
		d.Record(context.Background(), Entry{
			Action: model.AuditActionLoginFailed,
			Status: model.AuditStatusFailure,
		})
	}

	assert.Eventually(t, func() bool {
		return d.Dropped() > 0
	}, time.Second, 10*time.Millisecond)

	close(release)
	d.Close()
}

func TestDispatcher_RecordAfterCloseIsNoop(t *testing.T) {
	repo := &stubAuditRepo{}
	d := NewDispatcher(repo, 16)
	d.Close()

	d.Record(context.Background(), Entry{
		Action: model.AuditActionLogout,
		Status: model.AuditStatusSuccess,
	})

	assert.Empty(t, repo.appended())
}

func TestDispatcher_NilSafe(t *testing.T) {
	var d *Dispatcher
	d.Record(context.Background(), Entry{})
	d.Close()
	assert.Zero(t, d.Dropped())
}
