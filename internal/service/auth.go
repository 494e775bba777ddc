package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/medgraph/patient-portal-go/internal/audit"
	"github.com/medgraph/patient-portal-go/internal/config"
	"github.com/medgraph/patient-portal-go/internal/database"
	apperrors "github.com/medgraph/patient-portal-go/internal/errors"
	"github.com/medgraph/patient-portal-go/internal/model"
	"github.com/medgraph/patient-portal-go/internal/repository"
	"github.com/medgraph/patient-portal-go/internal/util"
)

// txRunner is satisfied by *database.DB; tests substitute a pass-through.
type txRunner interface {
	WithTx(ctx context.Context, fn database.TxFunc) error
}

// AuthService is the authentication orchestrator: the single entry point for
// granting/revoking portal access, authenticating credentials under lockout,
// and changing passwords. It alone translates store errors into the error
// taxonomy; no raw store error reaches a caller.
type AuthService struct {
	tx          txRunner
	identities  repository.IdentityRepository
	sessionRepo repository.SessionRepository
	sessions    *SessionService
	hasher      *PasswordHasher
	tokens      *TokenManager
	recorder    audit.Recorder
	now         clock
}

func NewAuthService(
	tx txRunner,
	identities repository.IdentityRepository,
	sessionRepo repository.SessionRepository,
	sessions *SessionService,
	hasher *PasswordHasher,
	tokens *TokenManager,
	recorder audit.Recorder,
) *AuthService {
	return &AuthService{
		tx:          tx,
		identities:  identities,
		sessionRepo: sessionRepo,
		sessions:    sessions,
		hasher:      hasher,
		tokens:      tokens,
		recorder:    recorder,
		now:         time.Now,
	}
}

type GrantAccessParams struct {
	ExternalPatientRef string
	Email              string
	Password           string
	GrantedBy          string
	OrgRef             string
}

// GrantAccess enables portal login for a patient. The operation is an
// idempotent upsert: granting again replaces email and password, reactivates
// a revoked identity, and clears lockout state.
func (s *AuthService) GrantAccess(ctx context.Context, params GrantAccessParams) (*model.PortalIdentity, error) {
	if err := validateGrant(params); err != nil {
		return nil, err
	}

	passwordHash, err := s.hasher.Hash(params.Password)
	if err != nil {
		return nil, apperrors.Internal("Failed to hash password").WithCause(err)
	}

	storeCtx, cancel := withStoreTimeout(ctx)
	defer cancel()

	existing, err := s.identities.FindByExternalRef(storeCtx, params.ExternalPatientRef)
	if err != nil {
		return nil, storeError(err)
	}

	identity, err := s.identities.Upsert(storeCtx, model.UpsertIdentityParams{
		ID:                 uuid.NewString(),
		ExternalPatientRef: params.ExternalPatientRef,
		OrgRef:             params.OrgRef,
		Email:              params.Email,
		PasswordHash:       passwordHash,
		GrantedBy:          params.GrantedBy,
	})
	if err != nil {
		return nil, storeError(err)
	}

	action := model.AuditActionAccessGranted
	if existing != nil {
		action = model.AuditActionAccessUpdated
	}
	s.recorder.Record(ctx, audit.Entry{
		IdentityID: &identity.ID,
		Action:     action,
		Status:     model.AuditStatusSuccess,
		Metadata: map[string]any{
			"granted_by": params.GrantedBy,
			"email":      params.Email,
		},
	})

	log.Info().
		Str("identityId", identity.ID).
		Str("patientRef", params.ExternalPatientRef).
		Str("action", string(action)).
		Msg("portal access granted")

	return identity, nil
}

type AuthenticateParams struct {
	Email     string
	Password  string
	ClientIP  string
	UserAgent string
}

type LoginResult struct {
	Identity         *model.PortalIdentity
	BearerToken      string
	SessionToken     string
	SessionExpiresAt time.Time
}

// Authenticate runs the login state machine: lookup, lock check, status
// check, password verification. Every attempt, success or failure, records
// exactly one audit event. Failure responses never reveal whether the email
// exists.
func (s *AuthService) Authenticate(ctx context.Context, params AuthenticateParams) (*LoginResult, error) {
	if params.Email == "" || params.Password == "" {
		return nil, apperrors.MissingRequired("email and password")
	}

	storeCtx, cancel := withStoreTimeout(ctx)
	defer cancel()

	identity, err := s.identities.FindByEmail(storeCtx, params.Email)
	if err != nil {
		return nil, storeError(err)
	}

	now := s.now()

	if identity == nil {
		s.recordLoginFailure(ctx, nil, params, map[string]any{
			"reason": "user_not_found",
			"email":  util.MaskEmail(params.Email),
		})
		return nil, apperrors.InvalidCredentials()
	}

	// Locked accounts are rejected before the password is ever verified, so
	// a guess burns no hashing work and cannot reset the lock window.
	if locked, remaining := LockRemaining(identity.LockedUntil, now); locked {
		minutes := RemainingMinutes(remaining)
		s.recordLoginFailure(ctx, &identity.ID, params, map[string]any{
			"reason":            "account_locked",
			"remaining_minutes": minutes,
		})
		return nil, apperrors.AccountLocked(minutes)
	}

	if !identity.IsActive() {
		s.recordLoginFailure(ctx, &identity.ID, params, map[string]any{
			"reason": "account_disabled",
		})
		return nil, apperrors.AccountDisabled()
	}

	if !s.hasher.Verify(params.Password, identity.PasswordHash) {
		return nil, s.handleWrongPassword(ctx, storeCtx, identity, params, now)
	}

	if err := s.identities.RecordLoginSuccess(storeCtx, identity.ID, now); err != nil {
		return nil, storeError(err)
	}

	sessionToken, session, err := s.sessions.Issue(ctx, identity.ID, params.ClientIP, params.UserAgent)
	if err != nil {
		return nil, err
	}

	bearer, err := s.tokens.Issue(identity, now)
	if err != nil {
		return nil, apperrors.Internal("Failed to issue bearer token").WithCause(err)
	}

	s.recorder.Record(ctx, audit.Entry{
		IdentityID: &identity.ID,
		Action:     model.AuditActionLoginSuccess,
		Status:     model.AuditStatusSuccess,
		IP:         params.ClientIP,
		UserAgent:  params.UserAgent,
	})

	identity.FailedLoginAttempts = 0
	identity.LockedUntil = nil
	identity.LastLoginAt = &now

	return &LoginResult{
		Identity:         identity,
		BearerToken:      bearer,
		SessionToken:     sessionToken,
		SessionExpiresAt: session.ExpiresAt,
	}, nil
}

// handleWrongPassword applies the lockout policy to a failed verification.
// The counter increment is a single atomic statement in the store, so two
// racing wrong-password attempts cannot both observe the pre-threshold count.
func (s *AuthService) handleWrongPassword(
	ctx, storeCtx context.Context,
	identity *model.PortalIdentity,
	params AuthenticateParams,
	now time.Time,
) error {
	newCount, err := s.identities.IncrementFailedAttempts(storeCtx, identity.ID)
	if err != nil {
		return storeError(err)
	}

	lockNow, until, attemptsRemaining := OnFailedAttempt(newCount, now)

	if lockNow {
		if err := s.identities.UpdateLockoutState(storeCtx, identity.ID, newCount, &until); err != nil {
			return storeError(err)
		}
		s.recordLoginFailure(ctx, &identity.ID, params, map[string]any{
			"reason":          "invalid_password",
			"failed_attempts": newCount,
			"locked":          true,
		})
		return apperrors.AccountLockedNow(int(config.LockoutDuration.Minutes()))
	}

	s.recordLoginFailure(ctx, &identity.ID, params, map[string]any{
		"reason":             "invalid_password",
		"failed_attempts":    newCount,
		"attempts_remaining": attemptsRemaining,
	})
	return apperrors.InvalidCredentials()
}

// Logout revokes the session behind the token. Unknown tokens are a no-op,
// not an error.
func (s *AuthService) Logout(ctx context.Context, sessionToken string) error {
	identityID, found, err := s.sessions.RevokeByToken(ctx, sessionToken)
	if err != nil {
		return err
	}
	if found {
		s.recorder.Record(ctx, audit.Entry{
			IdentityID: &identityID,
			Action:     model.AuditActionLogout,
			Status:     model.AuditStatusSuccess,
		})
	}
	return nil
}

type AccessStatus struct {
	HasAccess   bool                 `json:"hasAccess"`
	Email       string               `json:"email,omitempty"`
	Status      model.IdentityStatus `json:"status,omitempty"`
	GrantedAt   *time.Time           `json:"grantedAt,omitempty"`
	LastLoginAt *time.Time           `json:"lastLoginAt,omitempty"`
}

// CheckAccess reports whether a patient currently has portal access. An
// unknown reference is a negative answer, not an error.
func (s *AuthService) CheckAccess(ctx context.Context, externalPatientRef string) (*AccessStatus, error) {
	if externalPatientRef == "" {
		return nil, apperrors.MissingRequired("externalPatientRef")
	}

	storeCtx, cancel := withStoreTimeout(ctx)
	defer cancel()

	identity, err := s.identities.FindByExternalRef(storeCtx, externalPatientRef)
	if err != nil {
		return nil, storeError(err)
	}
	if identity == nil {
		return &AccessStatus{HasAccess: false}, nil
	}

	grantedAt := identity.GrantedAt
	return &AccessStatus{
		HasAccess:   identity.Status == model.IdentityStatusActive,
		Email:       identity.Email,
		Status:      identity.Status,
		GrantedAt:   &grantedAt,
		LastLoginAt: identity.LastLoginAt,
	}, nil
}

// RevokeAccess disables the identity and hard-deletes every session it owns,
// atomically, so no window exists where a disabled identity still holds a
// valid session. Revoking an unknown reference is an error: callers are
// expected to know the identity exists.
func (s *AuthService) RevokeAccess(ctx context.Context, externalPatientRef, revokedBy string) error {
	if externalPatientRef == "" {
		return apperrors.MissingRequired("externalPatientRef")
	}

	storeCtx, cancel := withStoreTimeout(ctx)
	defer cancel()

	identity, err := s.identities.FindByExternalRef(storeCtx, externalPatientRef)
	if err != nil {
		return storeError(err)
	}
	if identity == nil {
		return apperrors.NotFound("Patient portal user")
	}

	err = s.tx.WithTx(storeCtx, func(tx *sqlx.Tx) error {
		if err := s.identities.WithTx(tx).SetStatus(storeCtx, identity.ID, model.IdentityStatusDisabled); err != nil {
			return err
		}
		return s.sessionRepo.WithTx(tx).DeleteAllForIdentity(storeCtx, identity.ID)
	})
	if err != nil {
		return storeError(err)
	}

	s.recorder.Record(ctx, audit.Entry{
		IdentityID: &identity.ID,
		Action:     model.AuditActionAccessRevoked,
		Status:     model.AuditStatusSuccess,
		Metadata: map[string]any{
			"revoked_by": revokedBy,
		},
	})

	log.Info().
		Str("identityId", identity.ID).
		Str("patientRef", externalPatientRef).
		Msg("portal access revoked")

	return nil
}

// ValidateSession resolves a session token on behalf of the transport layer.
func (s *AuthService) ValidateSession(ctx context.Context, sessionToken string) (*model.Session, *model.PortalIdentity, error) {
	return s.sessions.Validate(ctx, sessionToken)
}

// ChangePassword replaces the credential after verifying the current
// password, and invalidates every existing session in the same transaction
// as the hash update. This path does not consult the lockout policy: the
// caller already holds a valid session.
func (s *AuthService) ChangePassword(ctx context.Context, identityID, oldPassword, newPassword string) error {
	if !util.IsValidPassword(newPassword) {
		return apperrors.InvalidInput("newPassword",
			"must be at least 8 characters with at least one letter and one digit")
	}

	storeCtx, cancel := withStoreTimeout(ctx)
	defer cancel()

	identity, err := s.identities.FindByID(storeCtx, identityID)
	if err != nil {
		return storeError(err)
	}
	if identity == nil {
		return apperrors.NotFound("Patient portal user")
	}

	if !s.hasher.Verify(oldPassword, identity.PasswordHash) {
		// Deliberately not audited as a login failure: the caller is already
		// authenticated and the mismatch is safe to disclose.
		return apperrors.PasswordMismatch()
	}

	newHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return apperrors.Internal("Failed to hash password").WithCause(err)
	}

	err = s.tx.WithTx(storeCtx, func(tx *sqlx.Tx) error {
		if err := s.identities.WithTx(tx).UpdatePasswordHash(storeCtx, identity.ID, newHash); err != nil {
			return err
		}
		return s.sessionRepo.WithTx(tx).DeleteAllForIdentity(storeCtx, identity.ID)
	})
	if err != nil {
		return storeError(err)
	}

	s.recorder.Record(ctx, audit.Entry{
		IdentityID: &identity.ID,
		Action:     model.AuditActionPasswordChanged,
		Status:     model.AuditStatusSuccess,
	})

	return nil
}

// GetStats returns per-organization portal usage counts for the staff
// dashboard.
func (s *AuthService) GetStats(ctx context.Context, orgRef string) (*model.PortalStats, error) {
	if orgRef == "" {
		return nil, apperrors.MissingRequired("orgRef")
	}

	storeCtx, cancel := withStoreTimeout(ctx)
	defer cancel()

	stats, err := s.identities.Stats(storeCtx, orgRef)
	if err != nil {
		return nil, storeError(err)
	}
	return stats, nil
}

func (s *AuthService) recordLoginFailure(ctx context.Context, identityID *string, params AuthenticateParams, metadata map[string]any) {
	s.recorder.Record(ctx, audit.Entry{
		IdentityID: identityID,
		Action:     model.AuditActionLoginFailed,
		Status:     model.AuditStatusFailure,
		IP:         params.ClientIP,
		UserAgent:  params.UserAgent,
		Metadata:   metadata,
	})
}

func validateGrant(params GrantAccessParams) error {
	if params.ExternalPatientRef == "" {
		return apperrors.MissingRequired("externalPatientRef")
	}
	if params.Email == "" {
		return apperrors.MissingRequired("email")
	}
	if !util.IsValidEmail(params.Email) {
		return apperrors.InvalidInput("email", "must be a valid email address")
	}
	if !util.IsValidPassword(params.Password) {
		return apperrors.InvalidInput("password",
			"must be at least 8 characters with at least one letter and one digit")
	}
	if params.OrgRef == "" {
		return apperrors.MissingRequired("orgRef")
	}
	return nil
}
