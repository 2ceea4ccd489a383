package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"ragconsole/internal/domain"
)

// errLoggedOut is returned when Logout ran while a login was in flight.
var errLoggedOut = errors.New("session ended while signing in")

// Store holds the credential for the lifetime of the process.
type Store struct {
	mu    sync.RWMutex
	auth  domain.Authenticator
	log   *zap.Logger
	cred  domain.Credential
	epoch uint64
}

func NewStore(auth domain.Authenticator, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{auth: auth, log: log.Named("session")}
}

// Login exchanges credentials for a token and keeps it.
// On any failure the current credential is left as it was.
func (s *Store) Login(ctx context.Context, username, password string) (domain.Credential, error) {
	s.mu.RLock()
	epoch := s.epoch
	s.mu.RUnlock()

	cred, err := s.auth.Login(ctx, username, password)
	if err != nil {
		s.log.Info("login failed", zap.String("user", username), zap.Error(err))
		return domain.Credential{}, fmt.Errorf("%w: %w", domain.ErrAuth, err)
	}
	if cred.Token == "" {
		return domain.Credential{}, fmt.Errorf("%w: empty access token", domain.ErrAuth)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return domain.Credential{}, fmt.Errorf("%w: %w", domain.ErrAuth, errLoggedOut)
	}
	s.cred = cred
	s.log.Info("logged in", zap.String("user", username))
	return cred, nil
}

// Logout clears the credential. Logins already in flight will not store their token.
func (s *Store) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred = domain.Credential{}
	s.epoch++
	s.log.Info("logged out")
}

func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cred.Token != ""
}

// Token returns the bearer token and whether one is set.
func (s *Store) Token() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cred.Token, s.cred.Token != ""
}

// Claims decodes the token without verifying it. Opaque tokens yield false.
func (s *Store) Claims() (domain.Claims, bool) {
	tok, ok := s.Token()
	if !ok {
		return domain.Claims{}, false
	}
	var rc jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(tok, &rc); err != nil {
		return domain.Claims{}, false
	}
	c := domain.Claims{Subject: rc.Subject}
	if rc.ExpiresAt != nil {
		c.ExpiresAt = rc.ExpiresAt.Time
	}
	return c, true
}
