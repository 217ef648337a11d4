// Package httpapi provides the gateway's HTTP-boundary authentication:
// bearer-JWT and static-API-key credential checking for inbound requests,
// and OAuth2 client-credentials token resolution for providers that front
// their API behind an OAuth2-protected gateway of their own rather than a
// static key.
package httpapi

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"
	"sync"
	"time"
)

var (
	// ErrAuthDisabled is returned by every validation method when no secret
	// or static key has been configured.
	ErrAuthDisabled = errors.New("httpapi: auth disabled")
	// ErrInvalidToken is returned when a bearer JWT fails signature or claim
	// validation.
	ErrInvalidToken = errors.New("httpapi: invalid token")
	// ErrInvalidKey is returned when a static API key has no match.
	ErrInvalidKey = errors.New("httpapi: invalid api key")
)

// Principal is the caller identity attached to a request's context once
// credentials validate. The gateway authenticates services, not end users,
// so a Principal carries only a subject and the method that authenticated
// it — there is no user profile to hydrate.
type Principal struct {
	Subject string
	Method  string // "jwt" or "api_key"
}

// Config configures Service.
type Config struct {
	Secret     string
	Issuer     string
	TokenTTL   time.Duration
	StaticKeys []string
}

// Service validates bearer JWTs and static API keys for the HTTP boundary.
// A zero-value Service (or a nil *Service) is always disabled, so handlers
// that build one unconditionally degrade safely when no secret is set.
type Service struct {
	mu         sync.RWMutex
	jwt        *JWTService
	staticKeys map[string]struct{}
}

// NewService builds a Service from cfg. Both the JWT secret and the static
// key list are optional; Enabled reports true if either is present.
func NewService(cfg Config) *Service {
	s := &Service{staticKeys: make(map[string]struct{}, len(cfg.StaticKeys))}
	if strings.TrimSpace(cfg.Secret) != "" {
		s.jwt = NewJWTService(cfg.Secret, cfg.Issuer, cfg.TokenTTL)
	}
	for _, k := range cfg.StaticKeys {
		k = strings.TrimSpace(k)
		if k != "" {
			s.staticKeys[k] = struct{}{}
		}
	}
	return s
}

// Enabled reports whether the HTTP boundary should enforce credentials at
// all. A Service with neither a JWT secret nor static keys configured lets
// every request through, matching an intentionally auth-free deployment
// (e.g. behind a trusted internal network boundary).
func (s *Service) Enabled() bool {
	if s == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.jwt != nil || len(s.staticKeys) > 0
}

// IssueToken signs a bearer token for subject, for operator tooling that
// needs to mint credentials for a service account.
func (s *Service) IssueToken(subject string) (string, error) {
	if s == nil {
		return "", ErrAuthDisabled
	}
	s.mu.RLock()
	jwtSvc := s.jwt
	s.mu.RUnlock()
	if jwtSvc == nil {
		return "", ErrAuthDisabled
	}
	return jwtSvc.Generate(subject)
}

// ValidateJWT parses and validates a bearer token and returns its Principal.
func (s *Service) ValidateJWT(token string) (*Principal, error) {
	if s == nil {
		return nil, ErrAuthDisabled
	}
	s.mu.RLock()
	jwtSvc := s.jwt
	s.mu.RUnlock()
	if jwtSvc == nil {
		return nil, ErrAuthDisabled
	}
	return jwtSvc.Validate(token)
}

// ValidateAPIKey checks key against the configured static keys using
// constant-time comparison, so a timing side channel can't reveal how many
// leading bytes of a guess matched a real key.
func (s *Service) ValidateAPIKey(key string) (*Principal, error) {
	if s == nil {
		return nil, ErrAuthDisabled
	}
	s.mu.RLock()
	keys := s.staticKeys
	s.mu.RUnlock()
	if len(keys) == 0 {
		return nil, ErrAuthDisabled
	}

	input := strings.TrimSpace(key)
	matched := false
	for stored := range keys {
		if subtle.ConstantTimeCompare([]byte(input), []byte(stored)) == 1 {
			matched = true
		}
	}
	if !matched {
		return nil, ErrInvalidKey
	}
	sum := sha256.Sum256([]byte(input))
	return &Principal{Subject: "api_" + hex.EncodeToString(sum[:8]), Method: "api_key"}, nil
}
