package credentials

import (
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenConfig configures a TokenSource.
type TokenConfig struct {
	// Lifetime is how long minted tokens are valid.
	// Default: 1 hour
	Lifetime time.Duration

	// RefreshWindow is how long before expiry a fresh token is minted.
	// Default: Lifetime / 5
	RefreshWindow time.Duration
}

// TokenSource mints short-lived signed tokens that authenticate a credential
// with a broker. Tokens are cached and reused until they approach expiry, so
// reconnecting transports can call Token on every connection attempt.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Errors: signing failures are returned, never cached.
type TokenSource struct {
	cred   Credential
	config TokenConfig
	now    func() time.Time

	mu      sync.Mutex
	token   string
	expires time.Time
}

// NewTokenSource creates a token source for cred.
func NewTokenSource(cred Credential, config TokenConfig) *TokenSource {
	// Apply defaults
	if config.Lifetime <= 0 {
		config.Lifetime = time.Hour
	}
	if config.RefreshWindow <= 0 {
		config.RefreshWindow = config.Lifetime / 5
	}

	return &TokenSource{
		cred:   cred,
		config: config,
		now:    time.Now,
	}
}

// Token returns a signed token for the credential, minting a fresh one when
// the cached token is inside the refresh window before its expiry.
func (s *TokenSource) Token() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.token != "" && now.Before(s.expires.Add(-s.config.RefreshWindow)) {
		return s.token, nil
	}

	expires := now.Add(s.config.Lifetime)
	claims := jwt.RegisteredClaims{
		Subject:   s.cred.DeviceID,
		Audience:  jwt.ClaimStrings{s.cred.Host},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cred.Key)
	if err != nil {
		return "", fmt.Errorf("credentials: sign token: %w", err)
	}

	s.token = signed
	s.expires = expires
	return signed, nil
}

// Expires returns the expiry of the cached token, or the zero time when no
// token has been minted yet.
func (s *TokenSource) Expires() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expires
}
