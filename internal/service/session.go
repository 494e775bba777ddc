package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/medgraph/patient-portal-go/internal/model"
	"github.com/medgraph/patient-portal-go/internal/repository"
	"github.com/medgraph/patient-portal-go/internal/util"
)

// SessionService issues, validates and revokes portal sessions. Tokens are
// 256-bit random values handed to the client exactly once; only the SHA-256
// hash is persisted and used for lookups.
type SessionService struct {
	sessions repository.SessionRepository
	ttl      time.Duration
	now      clock
}

func NewSessionService(sessions repository.SessionRepository, ttl time.Duration) *SessionService {
	return &SessionService{
		sessions: sessions,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Issue creates a session for the identity and returns the plaintext token.
// The token is not retrievable again.
func (s *SessionService) Issue(ctx context.Context, identityID, ip, userAgent string) (string, *model.Session, error) {
	token, err := util.GenerateToken()
	if err != nil {
		return "", nil, fmt.Errorf("generate session token: %w", err)
	}

	ctx, cancel := withStoreTimeout(ctx)
	defer cancel()

	session, err := s.sessions.Create(ctx, model.CreateSessionParams{
		ID:         uuid.NewString(),
		IdentityID: identityID,
		TokenHash:  util.HashToken(token),
		IPAddress:  ip,
		UserAgent:  userAgent,
		ExpiresAt:  s.now().Add(s.ttl),
	})
	if err != nil {
		return "", nil, storeError(err)
	}

	log.Info().
		Str("sessionId", session.ID).
		Str("identityId", identityID).
		Time("expiresAt", session.ExpiresAt).
		Msg("portal session issued")

	return token, session, nil
}

// Validate resolves a plaintext token to its session and owning identity.
// It returns (nil, nil, nil) for unknown, expired, or disabled-identity
// tokens; infrastructure failures come back as a distinct error so callers
// do not treat a store outage as "logged out".
func (s *SessionService) Validate(ctx context.Context, token string) (*model.Session, *model.PortalIdentity, error) {
	ctx, cancel := withStoreTimeout(ctx)
	defer cancel()

	session, identity, err := s.sessions.FindByTokenHash(ctx, util.HashToken(token))
	if err != nil {
		return nil, nil, storeError(err)
	}
	if session == nil {
		return nil, nil, nil
	}

	now := s.now()
	if session.IsExpired(now) || !identity.IsActive() {
		return nil, nil, nil
	}

	// Last-activity bookkeeping is best-effort; it never extends expiry and
	// never fails validation.
	if err := s.sessions.Touch(ctx, session.ID, now); err != nil {
		log.Warn().Err(err).Str("sessionId", session.ID).Msg("session activity touch failed")
	}
	session.LastActivityAt = now

	return session, identity, nil
}

// RevokeByToken deletes the session behind a plaintext token and reports the
// owning identity. Revoking an unknown token is not an error.
func (s *SessionService) RevokeByToken(ctx context.Context, token string) (string, bool, error) {
	ctx, cancel := withStoreTimeout(ctx)
	defer cancel()

	identityID, found, err := s.sessions.DeleteByTokenHash(ctx, util.HashToken(token))
	if err != nil {
		return "", false, storeError(err)
	}
	return identityID, found, nil
}

// RevokeOne deletes a single session by id; idempotent.
func (s *SessionService) RevokeOne(ctx context.Context, sessionID string) error {
	ctx, cancel := withStoreTimeout(ctx)
	defer cancel()

	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return storeError(err)
	}
	return nil
}

// RevokeAllForIdentity deletes every session owned by the identity;
// idempotent.
func (s *SessionService) RevokeAllForIdentity(ctx context.Context, identityID string) error {
	ctx, cancel := withStoreTimeout(ctx)
	defer cancel()

	if err := s.sessions.DeleteAllForIdentity(ctx, identityID); err != nil {
		return storeError(err)
	}
	return nil
}
