// Package session issues and verifies the local session artifact: a signed
// cookie binding the browser to the subject that last signed in. The
// authorization backend keeps its own session; this one only gates the
// edit-profile and revoke-consent pages.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/keyxmakerx/identity/internal/metrics"
)

// ErrInvalidSession is returned for missing, malformed, expired, forged and
// revoked session tokens alike.
var ErrInvalidSession = errors.New("invalid session")

// Claims are the JWT claims carried by the session cookie. The subject is
// the registered "sub" claim.
type Claims struct {
	jwt.RegisteredClaims
}

// Revocations stores the ids of tokens revoked before their expiry.
type Revocations interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// Manager signs and verifies session tokens with HS256.
type Manager struct {
	key         []byte
	issuer      string
	ttl         time.Duration
	revocations Revocations
	metrics     *metrics.Metrics
	now         func() time.Time
}

// NewManager creates a manager whose tokens live for ttl.
func NewManager(secret, issuer string, ttl time.Duration, revocations Revocations, m *metrics.Metrics) *Manager {
	return &Manager{
		key:         []byte(secret),
		issuer:      issuer,
		ttl:         ttl,
		revocations: revocations,
		metrics:     m,
		now:         time.Now,
	}
}

// TTL returns the lifetime of issued tokens.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Issue returns a signed token for subject.
func (m *Manager) Issue(subject string) (string, error) {
	now := m.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    m.issuer,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	})

	signed, err := token.SignedString(m.key)
	if err != nil {
		return "", fmt.Errorf("signing session token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature, expiry and revocation state of token and
// returns its claims.
func (m *Manager) Verify(ctx context.Context, token string) (*Claims, error) {
	claims, err := m.parse(token, false)
	if err != nil {
		m.metrics.Session("invalid")
		return nil, err
	}

	revoked, err := m.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		m.metrics.Session("error")
		return nil, fmt.Errorf("checking session revocation: %w", err)
	}
	if revoked {
		m.metrics.Session("revoked")
		return nil, ErrInvalidSession
	}

	m.metrics.Session("valid")
	return claims, nil
}

// Revoke invalidates token for the rest of its lifetime. Tokens that are
// already expired or were never valid are ignored.
func (m *Manager) Revoke(ctx context.Context, token string) error {
	claims, err := m.parse(token, true)
	if err != nil {
		return nil
	}

	remaining := claims.ExpiresAt.Time.Sub(m.now())
	if remaining <= 0 {
		return nil
	}
	return m.revocations.Revoke(ctx, claims.ID, remaining)
}

// Subject returns the subject of a correctly signed token, expired or not,
// or "" for anything else. It is for labelling, never for authorization.
func (m *Manager) Subject(token string) string {
	claims, err := m.parse(token, true)
	if err != nil {
		return ""
	}
	return claims.Subject
}

// parse validates the signature and issuer. skipExpiry is used on revoke,
// where an expired token simply needs no entry.
func (m *Manager) parse(token string, skipExpiry bool) (*Claims, error) {
	if token == "" {
		return nil, ErrInvalidSession
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	}
	if skipExpiry {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}

	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return m.key, nil
	}, opts...)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidSession
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || claims.Subject == "" || claims.ID == "" || claims.ExpiresAt == nil {
		return nil, ErrInvalidSession
	}
	return claims, nil
}
