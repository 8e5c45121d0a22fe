package services

import (
	"errors"
	"log"
	"os"
	"strings"
	"sync"

	"fingate-portal/internal/core/domain"
	"fingate-portal/internal/pkg/token"
)

// Session service errors
var (
	ErrNotAuthenticated = errors.New("not authenticated")
)

// Session is the credential store: the current bearer token and the user it
// belongs to. One session is created at root scope and passed by reference
// into every service; Clear tears it down on logout.
type Session struct {
	mu        sync.RWMutex
	token     string
	user      *domain.User
	tokenFile string
}

// NewSession creates an unauthenticated session persisting to tokenFile
func NewSession(tokenFile string) *Session {
	return &Session{tokenFile: tokenFile}
}

// Restore loads a previously persisted token, if any. A missing or expired
// token leaves the session unauthenticated without error; the access gate
// then redirects to login.
func (s *Session) Restore() error {
	raw, err := os.ReadFile(s.tokenFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	tokenString := strings.TrimSpace(string(raw))
	if tokenString == "" {
		return nil
	}

	claims, err := token.Parse(tokenString)
	if err != nil {
		// Stale persisted token: drop it and stay logged out
		log.Printf("⚠️ Stored token rejected (%v), removing %s", err, s.tokenFile)
		os.Remove(s.tokenFile)
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = tokenString
	s.user = userFromClaims(claims)

	return nil
}

// SetToken installs a freshly issued token and persists it
func (s *Session) SetToken(tokenString string) (*domain.User, error) {
	tokenString = strings.TrimSpace(tokenString)
	claims, err := token.Parse(tokenString)
	if err != nil {
		return nil, err
	}

	if err := os.WriteFile(s.tokenFile, []byte(tokenString), 0o600); err != nil {
		return nil, err
	}

	user := userFromClaims(claims)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = tokenString
	s.user = user

	copied := *user
	return &copied, nil
}

// Token returns the current bearer token, empty when logged out
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// CurrentUser returns a copy of the authenticated user, nil when logged out
func (s *Session) CurrentUser() *domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	copied := *s.user
	return &copied
}

// Role returns the authenticated user's role, empty when logged out
func (s *Session) Role() domain.Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return ""
	}
	return s.user.Role
}

// IsAuthenticated reports whether a token is installed
func (s *Session) IsAuthenticated() bool {
	return s.Token() != ""
}

// Clear wipes the session and the persisted token (logout)
func (s *Session) Clear() error {
	s.mu.Lock()
	s.token = ""
	s.user = nil
	s.mu.Unlock()

	if err := os.Remove(s.tokenFile); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// userFromClaims maps token claims onto the domain user
func userFromClaims(claims *token.Claims) *domain.User {
	return &domain.User{
		ID:       claims.UserID,
		Username: claims.Username,
		Role:     domain.Role(claims.Role),
	}
}
