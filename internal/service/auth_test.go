package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/medgraph/patient-portal-go/internal/errors"
	"github.com/medgraph/patient-portal-go/internal/model"
)

const testJWTSecret = "0123456789abcdef0123456789abcdef01234567"

var testNow = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

type authFixture struct {
	identities *mockIdentityRepo
	sessions   *mockSessionRepo
	recorder   *fakeRecorder
	svc        *AuthService
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	identities := new(mockIdentityRepo)
	sessions := new(mockSessionRepo)
	recorder := &fakeRecorder{}

	tokens, err := NewTokenManager(testJWTSecret, 30*24*time.Hour)
	require.NoError(t, err)

	clockFn := func() time.Time { return testNow }
	sessionService := &SessionService{
		sessions: sessions,
		ttl:      30 * 24 * time.Hour,
		now:      clockFn,
	}

	return &authFixture{
		identities: identities,
		sessions:   sessions,
		recorder:   recorder,
		svc: &AuthService{
			tx:          &stubTx{},
			identities:  identities,
			sessionRepo: sessions,
			sessions:    sessionService,
			hasher:      NewPasswordHasher(),
			tokens:      tokens,
			recorder:    recorder,
			now:         clockFn,
		},
	}
}

// testHash hashes at the minimum cost; verification does not care about the
// work factor of the stored hash.
func testHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func activeIdentity(t *testing.T, password string) *model.PortalIdentity {
	t.Helper()
	return &model.PortalIdentity{
		ID:                 "id-1",
		ExternalPatientRef: "patient-42",
		OrgRef:             "org-1",
		Email:              "jane@example.com",
		PasswordHash:       testHash(t, password),
		Status:             model.IdentityStatusActive,
		GrantedBy:          "staff-1",
		GrantedAt:          testNow.Add(-24 * time.Hour),
	}
}

func TestAuthenticate_Success(t *testing.T) {
	f := newAuthFixture(t)
	identity := activeIdentity(t, "Correct1pass")

	f.identities.On("FindByEmail", mock.Anything, "jane@example.com").Return(identity, nil)
	f.identities.On("RecordLoginSuccess", mock.Anything, "id-1", testNow).Return(nil)
	f.sessions.On("Create", mock.Anything, mock.MatchedBy(func(p model.CreateSessionParams) bool {
		return p.IdentityID == "id-1" &&
			len(p.TokenHash) == 64 &&
			p.ExpiresAt.Equal(testNow.Add(30*24*time.Hour))
	})).Return(&model.Session{
		ID:         "sess-1",
		IdentityID: "id-1",
		ExpiresAt:  testNow.Add(30 * 24 * time.Hour),
	}, nil)

	result, err := f.svc.Authenticate(context.Background(), AuthenticateParams{
		Email:    "jane@example.com",
		Password: "Correct1pass",
		ClientIP: "203.0.113.7",
	})

	require.NoError(t, err)
	assert.NotEmpty(t, result.SessionToken)
	assert.NotEmpty(t, result.BearerToken)
	assert.NotEqual(t, result.SessionToken, result.BearerToken)
	assert.Equal(t, testNow.Add(30*24*time.Hour), result.SessionExpiresAt)
	assert.Equal(t, 0, result.Identity.FailedLoginAttempts)
	assert.Nil(t, result.Identity.LockedUntil)
	require.NotNil(t, result.Identity.LastLoginAt)
	assert.Equal(t, testNow, *result.Identity.LastLoginAt)

	entries := f.recorder.all()
	require.Len(t, entries, 1)
	assert.Equal(t, model.AuditActionLoginSuccess, entries[0].Action)
	assert.Equal(t, model.AuditStatusSuccess, entries[0].Status)
	assert.Equal(t, "203.0.113.7", entries[0].IP)
	require.NotNil(t, entries[0].IdentityID)
	assert.Equal(t, "id-1", *entries[0].IdentityID)
}

func TestAuthenticate_SessionTokenIsOpaque(t *testing.T) {
	f := newAuthFixture(t)
	identity := activeIdentity(t, "Correct1pass")

	var storedHash string
	f.identities.On("FindByEmail", mock.Anything, "jane@example.com").Return(identity, nil)
	f.identities.On("RecordLoginSuccess", mock.Anything, "id-1", testNow).Return(nil)
	f.sessions.On("Create", mock.Anything, mock.MatchedBy(func(p model.CreateSessionParams) bool {
		storedHash = p.TokenHash
		return true
	})).Return(&model.Session{ID: "sess-1", ExpiresAt: testNow.Add(time.Hour)}, nil)

	result, err := f.svc.Authenticate(context.Background(), AuthenticateParams{
		Email:    "jane@example.com",
		Password: "Correct1pass",
	})

	require.NoError(t, err)
	// 32 random bytes, hex encoded; the plaintext token never equals what the
	// store received.
	assert.Len(t, result.SessionToken, 64)
	assert.NotEqual(t, result.SessionToken, storedHash)
}

func TestAuthenticate_UnknownEmail(t *testing.T) {
	f := newAuthFixture(t)

	f.identities.On("FindByEmail", mock.Anything, "nobody@example.com").Return(nil, nil)

	_, err := f.svc.Authenticate(context.Background(), AuthenticateParams{
		Email:    "nobody@example.com",
		Password: "whatever1",
	})

	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeInvalidCredentials, appErr.Code)
	assert.Equal(t, "Invalid email or password", appErr.Message)

	f.identities.AssertNotCalled(t, "IncrementFailedAttempts")

	entries := f.recorder.all()
	require.Len(t, entries, 1)
	assert.Equal(t, model.AuditActionLoginFailed, entries[0].Action)
	assert.Equal(t, model.AuditStatusFailure, entries[0].Status)
	assert.Nil(t, entries[0].IdentityID)
	assert.Equal(t, "user_not_found", entries[0].Metadata["reason"])
	// Raw email never lands in the audit trail.
	assert.NotEqual(t, "nobody@example.com", entries[0].Metadata["email"])
}

func TestAuthenticate_WrongPassword_BelowThreshold(t *testing.T) {
	f := newAuthFixture(t)
	identity := activeIdentity(t, "Correct1pass")

	f.identities.On("FindByEmail", mock.Anything, "jane@example.com").Return(identity, nil)
	f.identities.On("IncrementFailedAttempts", mock.Anything, "id-1").Return(3, nil)

	_, err := f.svc.Authenticate(context.Background(), AuthenticateParams{
		Email:    "jane@example.com",
		Password: "wrong-guess1",
	})

	require.Error(t, err)
	appErr, _ := apperrors.AsAppError(err)
	assert.Equal(t, apperrors.ErrCodeInvalidCredentials, appErr.Code)
	// The attempts-remaining count stays out of the user-facing message.
	assert.Equal(t, "Invalid email or password", appErr.Message)

	f.identities.AssertNotCalled(t, "UpdateLockoutState")
	f.sessions.AssertNotCalled(t, "Create")

	entries := f.recorder.all()
	require.Len(t, entries, 1)
	assert.Equal(t, model.AuditActionLoginFailed, entries[0].Action)
	assert.Equal(t, 3, entries[0].Metadata["failed_attempts"])
	assert.Equal(t, 2, entries[0].Metadata["attempts_remaining"])
}

func TestAuthenticate_FifthFailure_LocksAccount(t *testing.T) {
	f := newAuthFixture(t)
	identity := activeIdentity(t, "Correct1pass")
	identity.FailedLoginAttempts = 4

	f.identities.On("FindByEmail", mock.Anything, "jane@example.com").Return(identity, nil)
	f.identities.On("IncrementFailedAttempts", mock.Anything, "id-1").Return(5, nil)
	f.identities.On("UpdateLockoutState", mock.Anything, "id-1", 5,
		mock.MatchedBy(func(until *time.Time) bool {
			return until != nil && until.Equal(testNow.Add(15*time.Minute))
		})).Return(nil)

	_, err := f.svc.Authenticate(context.Background(), AuthenticateParams{
		Email:    "jane@example.com",
		Password: "wrong-guess1",
	})

	require.Error(t, err)
	appErr, _ := apperrors.AsAppError(err)
	assert.Equal(t, apperrors.ErrCodeAccountLocked, appErr.Code)
	assert.Equal(t, "Too many failed attempts. Account locked for 15 minutes.", appErr.Message)

	f.identities.AssertExpectations(t)

	entries := f.recorder.all()
	require.Len(t, entries, 1)
	assert.Equal(t, true, entries[0].Metadata["locked"])
	assert.Equal(t, 5, entries[0].Metadata["failed_attempts"])
}

func TestAuthenticate_LockedAccount_RejectedBeforeVerify(t *testing.T) {
	f := newAuthFixture(t)
	identity := activeIdentity(t, "Correct1pass")
	identity.FailedLoginAttempts = 5
	lockedUntil := testNow.Add(10 * time.Minute)
	identity.LockedUntil = &lockedUntil

	f.identities.On("FindByEmail", mock.Anything, "jane@example.com").Return(identity, nil)

	// Even the correct password is rejected while the lock holds, and the
	// failure counter is not touched, so the lock window never slides.
	_, err := f.svc.Authenticate(context.Background(), AuthenticateParams{
		Email:    "jane@example.com",
		Password: "Correct1pass",
	})

	require.Error(t, err)
	appErr, _ := apperrors.AsAppError(err)
	assert.Equal(t, apperrors.ErrCodeAccountLocked, appErr.Code)
	assert.Equal(t, "Account is locked. Try again in 10 minutes.", appErr.Message)

	f.identities.AssertNotCalled(t, "IncrementFailedAttempts")
	f.identities.AssertNotCalled(t, "UpdateLockoutState")

	entries := f.recorder.all()
	require.Len(t, entries, 1)
	assert.Equal(t, "account_locked", entries[0].Metadata["reason"])
	assert.Equal(t, 10, entries[0].Metadata["remaining_minutes"])
}

func TestAuthenticate_LockRemainingRoundsUp(t *testing.T) {
	f := newAuthFixture(t)
	identity := activeIdentity(t, "Correct1pass")
	lockedUntil := testNow.Add(30 * time.Second)
	identity.LockedUntil = &lockedUntil

	f.identities.On("FindByEmail", mock.Anything, "jane@example.com").Return(identity, nil)

	_, err := f.svc.Authenticate(context.Background(), AuthenticateParams{
		Email:    "jane@example.com",
		Password: "Correct1pass",
	})

	require.Error(t, err)
	appErr, _ := apperrors.AsAppError(err)
	assert.Equal(t, "Account is locked. Try again in 1 minutes.", appErr.Message)
}

func TestAuthenticate_ExpiredLock_AttemptProceeds(t *testing.T) {
	f := newAuthFixture(t)
	identity := activeIdentity(t, "Correct1pass")
	identity.FailedLoginAttempts = 5
	expired := testNow.Add(-1 * time.Minute)
	identity.LockedUntil = &expired

	f.identities.On("FindByEmail", mock.Anything, "jane@example.com").Return(identity, nil)
	f.identities.On("RecordLoginSuccess", mock.Anything, "id-1", testNow).Return(nil)
	f.sessions.On("Create", mock.Anything, mock.Anything).
		Return(&model.Session{ID: "sess-1", ExpiresAt: testNow.Add(time.Hour)}, nil)

	result, err := f.svc.Authenticate(context.Background(), AuthenticateParams{
		Email:    "jane@example.com",
		Password: "Correct1pass",
	})

	require.NoError(t, err)
	assert.NotEmpty(t, result.SessionToken)
	f.identities.AssertCalled(t, "RecordLoginSuccess", mock.Anything, "id-1", testNow)
}

func TestAuthenticate_DisabledAccount(t *testing.T) {
	f := newAuthFixture(t)
	identity := activeIdentity(t, "Correct1pass")
	identity.Status = model.IdentityStatusDisabled

	f.identities.On("FindByEmail", mock.Anything, "jane@example.com").Return(identity, nil)

	_, err := f.svc.Authenticate(context.Background(), AuthenticateParams{
		Email:    "jane@example.com",
		Password: "Correct1pass",
	})

	require.Error(t, err)
	appErr, _ := apperrors.AsAppError(err)
	assert.Equal(t, apperrors.ErrCodeAccountDisabled, appErr.Code)
	assert.Equal(t, "Account is not active. Please contact support.", appErr.Message)

	entries := f.recorder.all()
	require.Len(t, entries, 1)
	assert.Equal(t, "account_disabled", entries[0].Metadata["reason"])
}

func TestAuthenticate_StoreOutage_NotACredentialFailure(t *testing.T) {
	f := newAuthFixture(t)

	f.identities.On("FindByEmail", mock.Anything, "jane@example.com").
		Return(nil, context.DeadlineExceeded)

	_, err := f.svc.Authenticate(context.Background(), AuthenticateParams{
		Email:    "jane@example.com",
		Password: "Correct1pass",
	})

	require.Error(t, err)
	appErr, _ := apperrors.AsAppError(err)
	assert.Equal(t, apperrors.ErrCodeUnavailable, appErr.Code)
}

func TestAuthenticate_MissingFields(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.svc.Authenticate(context.Background(), AuthenticateParams{Email: "jane@example.com"})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeMissingRequired, apperrors.GetCode(err))

	_, err = f.svc.Authenticate(context.Background(), AuthenticateParams{Password: "Correct1pass"})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeMissingRequired, apperrors.GetCode(err))

	f.identities.AssertNotCalled(t, "FindByEmail")
}

func TestGrantAccess_NewIdentity(t *testing.T) {
	f := newAuthFixture(t)

	f.identities.On("FindByExternalRef", mock.Anything, "patient-42").Return(nil, nil)
	f.identities.On("Upsert", mock.Anything, mock.MatchedBy(func(p model.UpsertIdentityParams) bool {
		return p.ExternalPatientRef == "patient-42" &&
			p.Email == "jane@example.com" &&
			p.OrgRef == "org-1" &&
			p.GrantedBy == "staff-1" &&
			p.PasswordHash != "Secret1pass"
	})).Return(&model.PortalIdentity{
		ID:                 "id-1",
		ExternalPatientRef: "patient-42",
		Email:              "jane@example.com",
		Status:             model.IdentityStatusActive,
	}, nil)

	identity, err := f.svc.GrantAccess(context.Background(), GrantAccessParams{
		ExternalPatientRef: "patient-42",
		Email:              "jane@example.com",
		Password:           "Secret1pass",
		GrantedBy:          "staff-1",
		OrgRef:             "org-1",
	})

	require.NoError(t, err)
	assert.Equal(t, "id-1", identity.ID)

	entries := f.recorder.all()
	require.Len(t, entries, 1)
	assert.Equal(t, model.AuditActionAccessGranted, entries[0].Action)
	assert.Equal(t, "staff-1", entries[0].Metadata["granted_by"])
}

func TestGrantAccess_ExistingIdentity_AuditsUpdate(t *testing.T) {
	f := newAuthFixture(t)
	existing := activeIdentity(t, "OldSecret1")

	f.identities.On("FindByExternalRef", mock.Anything, "patient-42").Return(existing, nil)
	f.identities.On("Upsert", mock.Anything, mock.Anything).Return(existing, nil)

	_, err := f.svc.GrantAccess(context.Background(), GrantAccessParams{
		ExternalPatientRef: "patient-42",
		Email:              "jane@example.com",
		Password:           "NewSecret1",
		GrantedBy:          "staff-2",
		OrgRef:             "org-1",
	})

	require.NoError(t, err)

	entries := f.recorder.all()
	require.Len(t, entries, 1)
	assert.Equal(t, model.AuditActionAccessUpdated, entries[0].Action)
}

func TestGrantAccess_Validation(t *testing.T) {
	f := newAuthFixture(t)

	tests := []struct {
		name   string
		params GrantAccessParams
		code   apperrors.ErrorCode
	}{
		{
			name:   "missing patient ref",
			params: GrantAccessParams{Email: "a@b.com", Password: "Secret1pass", OrgRef: "org-1"},
			code:   apperrors.ErrCodeMissingRequired,
		},
		{
			name:   "missing email",
			params: GrantAccessParams{ExternalPatientRef: "p-1", Password: "Secret1pass", OrgRef: "org-1"},
			code:   apperrors.ErrCodeMissingRequired,
		},
		{
			name:   "bad email",
			params: GrantAccessParams{ExternalPatientRef: "p-1", Email: "not-an-email", Password: "Secret1pass", OrgRef: "org-1"},
			code:   apperrors.ErrCodeInvalidInput,
		},
		{
			name:   "short password",
			params: GrantAccessParams{ExternalPatientRef: "p-1", Email: "a@b.com", Password: "Ab1", OrgRef: "org-1"},
			code:   apperrors.ErrCodeInvalidInput,
		},
		{
			name:   "password without digit",
			params: GrantAccessParams{ExternalPatientRef: "p-1", Email: "a@b.com", Password: "onlyletters", OrgRef: "org-1"},
			code:   apperrors.ErrCodeInvalidInput,
		},
		{
			name:   "missing org ref",
			params: GrantAccessParams{ExternalPatientRef: "p-1", Email: "a@b.com", Password: "Secret1pass"},
			code:   apperrors.ErrCodeMissingRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.GrantAccess(context.Background(), tt.params)
			require.Error(t, err)
			assert.Equal(t, tt.code, apperrors.GetCode(err))
		})
	}

	f.identities.AssertNotCalled(t, "Upsert")
	assert.Empty(t, f.recorder.all())
}

func TestCheckAccess_UnknownRef(t *testing.T) {
	f := newAuthFixture(t)

	f.identities.On("FindByExternalRef", mock.Anything, "ghost").Return(nil, nil)

	status, err := f.svc.CheckAccess(context.Background(), "ghost")

	require.NoError(t, err)
	assert.False(t, status.HasAccess)
	assert.Empty(t, status.Email)
}

func TestCheckAccess_ActiveIdentity(t *testing.T) {
	f := newAuthFixture(t)
	identity := activeIdentity(t, "Secret1pass")
	lastLogin := testNow.Add(-time.Hour)
	identity.LastLoginAt = &lastLogin

	f.identities.On("FindByExternalRef", mock.Anything, "patient-42").Return(identity, nil)

	status, err := f.svc.CheckAccess(context.Background(), "patient-42")

	require.NoError(t, err)
	assert.True(t, status.HasAccess)
	assert.Equal(t, "jane@example.com", status.Email)
	assert.Equal(t, model.IdentityStatusActive, status.Status)
	require.NotNil(t, status.LastLoginAt)
	assert.Equal(t, lastLogin, *status.LastLoginAt)
}

func TestCheckAccess_RevokedIdentity(t *testing.T) {
	f := newAuthFixture(t)
	identity := activeIdentity(t, "Secret1pass")
	identity.Status = model.IdentityStatusDisabled

	f.identities.On("FindByExternalRef", mock.Anything, "patient-42").Return(identity, nil)

	status, err := f.svc.CheckAccess(context.Background(), "patient-42")

	require.NoError(t, err)
	assert.False(t, status.HasAccess)
	assert.Equal(t, model.IdentityStatusDisabled, status.Status)
}

func TestRevokeAccess(t *testing.T) {
	f := newAuthFixture(t)
	identity := activeIdentity(t, "Secret1pass")

	f.identities.On("FindByExternalRef", mock.Anything, "patient-42").Return(identity, nil)
	f.identities.On("SetStatus", mock.Anything, "id-1", model.IdentityStatusDisabled).Return(nil)
	f.sessions.On("DeleteAllForIdentity", mock.Anything, "id-1").Return(nil)

	err := f.svc.RevokeAccess(context.Background(), "patient-42", "staff-9")

	require.NoError(t, err)
	f.identities.AssertExpectations(t)
	f.sessions.AssertExpectations(t)

	entries := f.recorder.all()
	require.Len(t, entries, 1)
	assert.Equal(t, model.AuditActionAccessRevoked, entries[0].Action)
	assert.Equal(t, "staff-9", entries[0].Metadata["revoked_by"])
}

func TestRevokeAccess_UnknownRef(t *testing.T) {
	f := newAuthFixture(t)

	f.identities.On("FindByExternalRef", mock.Anything, "ghost").Return(nil, nil)

	err := f.svc.RevokeAccess(context.Background(), "ghost", "staff-9")

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeNotFound, apperrors.GetCode(err))
	f.identities.AssertNotCalled(t, "SetStatus")
	f.sessions.AssertNotCalled(t, "DeleteAllForIdentity")
	assert.Empty(t, f.recorder.all())
}

func TestRevokeAccess_TxFailure_NoAudit(t *testing.T) {
	f := newAuthFixture(t)
	f.svc.tx = &stubTx{err: context.DeadlineExceeded}
	identity := activeIdentity(t, "Secret1pass")

	f.identities.On("FindByExternalRef", mock.Anything, "patient-42").Return(identity, nil)

	err := f.svc.RevokeAccess(context.Background(), "patient-42", "staff-9")

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeUnavailable, apperrors.GetCode(err))
	assert.Empty(t, f.recorder.all())
}

func TestChangePassword(t *testing.T) {
	f := newAuthFixture(t)
	identity := activeIdentity(t, "OldSecret1")

	f.identities.On("FindByID", mock.Anything, "id-1").Return(identity, nil)
	f.identities.On("UpdatePasswordHash", mock.Anything, "id-1", mock.MatchedBy(func(hash string) bool {
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte("NewSecret1")) == nil
	})).Return(nil)
	f.sessions.On("DeleteAllForIdentity", mock.Anything, "id-1").Return(nil)

	err := f.svc.ChangePassword(context.Background(), "id-1", "OldSecret1", "NewSecret1")

	require.NoError(t, err)
	f.identities.AssertExpectations(t)
	// Every existing session dies with the old credential.
	f.sessions.AssertCalled(t, "DeleteAllForIdentity", mock.Anything, "id-1")

	entries := f.recorder.all()
	require.Len(t, entries, 1)
	assert.Equal(t, model.AuditActionPasswordChanged, entries[0].Action)
}

func TestChangePassword_WrongCurrentPassword(t *testing.T) {
	f := newAuthFixture(t)
	identity := activeIdentity(t, "OldSecret1")

	f.identities.On("FindByID", mock.Anything, "id-1").Return(identity, nil)

	err := f.svc.ChangePassword(context.Background(), "id-1", "not-the-old1", "NewSecret1")

	require.Error(t, err)
	appErr, _ := apperrors.AsAppError(err)
	assert.Equal(t, apperrors.ErrCodePasswordMismatch, appErr.Code)
	assert.Equal(t, "Current password is incorrect", appErr.Message)

	f.identities.AssertNotCalled(t, "UpdatePasswordHash")
	f.sessions.AssertNotCalled(t, "DeleteAllForIdentity")
	assert.Empty(t, f.recorder.all())
}

func TestChangePassword_WeakNewPassword(t *testing.T) {
	f := newAuthFixture(t)

	err := f.svc.ChangePassword(context.Background(), "id-1", "OldSecret1", "short")

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeInvalidInput, apperrors.GetCode(err))
	f.identities.AssertNotCalled(t, "FindByID")
}

func TestLogout(t *testing.T) {
	f := newAuthFixture(t)

	f.sessions.On("DeleteByTokenHash", mock.Anything, mock.AnythingOfType("string")).
		Return("id-1", true, nil)

	err := f.svc.Logout(context.Background(), "some-session-token")

	require.NoError(t, err)
	entries := f.recorder.all()
	require.Len(t, entries, 1)
	assert.Equal(t, model.AuditActionLogout, entries[0].Action)
	require.NotNil(t, entries[0].IdentityID)
	assert.Equal(t, "id-1", *entries[0].IdentityID)
}

func TestLogout_UnknownToken_Idempotent(t *testing.T) {
	f := newAuthFixture(t)

	f.sessions.On("DeleteByTokenHash", mock.Anything, mock.AnythingOfType("string")).
		Return("", false, nil)

	err := f.svc.Logout(context.Background(), "never-issued")

	require.NoError(t, err)
	assert.Empty(t, f.recorder.all())
}

func TestGetStats(t *testing.T) {
	f := newAuthFixture(t)

	f.identities.On("Stats", mock.Anything, "org-1").Return(&model.PortalStats{
		TotalUsers:       10,
		ActiveUsers:      8,
		UsersWhoLoggedIn: 6,
	}, nil)

	stats, err := f.svc.GetStats(context.Background(), "org-1")

	require.NoError(t, err)
	assert.Equal(t, 10, stats.TotalUsers)
	assert.Equal(t, 8, stats.ActiveUsers)

	_, err = f.svc.GetStats(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeMissingRequired, apperrors.GetCode(err))
}
