package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/medgraph/patient-portal-go/internal/model"
)

// BearerClaims are the signed claims carried by the portal bearer token.
type BearerClaims struct {
	PatientRef string `json:"patientRef"`
	OrgRef     string `json:"orgRef"`
	Email      string `json:"email"`
	UserType   string `json:"userType"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies the HS256-signed bearer credential
// returned alongside the session token at login.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenManager(secret string, ttl time.Duration) (*TokenManager, error) {
	if len(secret) < 32 {
		return nil, errors.New("jwt secret must be at least 32 bytes")
	}
	if ttl <= 0 {
		return nil, errors.New("token ttl must be positive")
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl}, nil
}

func (m *TokenManager) Issue(identity *model.PortalIdentity, now time.Time) (string, error) {
	claims := BearerClaims{
		PatientRef: identity.ExternalPatientRef,
		OrgRef:     identity.OrgRef,
		Email:      identity.Email,
		UserType:   "patient",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign bearer token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a bearer token, rejecting any signing method
// other than HS256.
func (m *TokenManager) Verify(tokenStr string) (*BearerClaims, error) {
	claims := &BearerClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, errors.New("invalid bearer token")
	}
	return claims, nil
}
