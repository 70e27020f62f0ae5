package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/worklog/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/worklog/internal/common"
	"github.com/dmitrijs2005/worklog/internal/logging"
	"github.com/dmitrijs2005/worklog/internal/pubsub"
	"github.com/golang-jwt/jwt/v5"
)

// Principal yields the signed-in user.
type Principal interface {
	// CurrentPrincipalID returns common.ErrNotAuthenticated when nobody is
	// signed in.
	CurrentPrincipalID() (string, error)
}

type SessionEventKind int

const (
	SignedIn SessionEventKind = iota + 1
	SignedOut
)

func (k SessionEventKind) String() string {
	switch k {
	case SignedIn:
		return "signed_in"
	case SignedOut:
		return "signed_out"
	}
	return "unknown"
}

type SessionEvent struct {
	Kind        SessionEventKind
	PrincipalID string
}

// Claims are the access token claims issued by the backend's auth service.
// The principal is the subject; older tokens carry it in user_id instead.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id,omitempty"`
}

func (c *Claims) principalID() string {
	if c.Subject != "" {
		return c.Subject
	}
	return c.UserID
}

// SessionService verifies access tokens and keeps the signed-in principal.
// The token is persisted in the mirror so the session survives an offline
// restart.
type SessionService struct {
	store  *Store
	secret []byte
	log    logging.Logger

	mu        sync.RWMutex
	principal string
	events    pubsub.Subject[SessionEvent]
}

func NewSessionService(store *Store, secret []byte, log logging.Logger) *SessionService {
	return &SessionService{store: store, secret: secret, log: log.With("module", "session")}
}

func (s *SessionService) CurrentPrincipalID() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.principal == "" {
		return "", common.ErrNotAuthenticated
	}
	return s.principal, nil
}

// OnSessionEvent subscribes fn to sign-in and sign-out events.
func (s *SessionService) OnSessionEvent(fn func(SessionEvent)) (unsubscribe func()) {
	return s.events.Subscribe(fn)
}

// SignIn verifies token and makes its subject the current principal.
func (s *SessionService) SignIn(ctx context.Context, token string) (string, error) {
	id, err := s.verify(token)
	if err != nil {
		return "", err
	}
	if err := s.store.repos.Metadata(s.store.db).Set(ctx, metadata.KeyAccessToken, token); err != nil {
		return "", fmt.Errorf("persist session: %w", err)
	}
	s.activate(ctx, id)
	return id, nil
}

// Restore signs in from the persisted token. An expired token is accepted:
// the mirror stays usable offline, and the backend rejects stale tokens on
// its own.
func (s *SessionService) Restore(ctx context.Context) (string, error) {
	token, err := s.store.repos.Metadata(s.store.db).Get(ctx, metadata.KeyAccessToken)
	if errors.Is(err, common.ErrNotFound) {
		return "", common.ErrNotAuthenticated
	}
	if err != nil {
		return "", fmt.Errorf("load session: %w", err)
	}

	id, err := s.verify(token, jwt.WithoutClaimsValidation())
	if err != nil {
		return "", err
	}
	s.activate(ctx, id)
	return id, nil
}

// SignOut forgets the principal and the persisted token.
func (s *SessionService) SignOut(ctx context.Context) error {
	if err := s.store.repos.Metadata(s.store.db).Delete(ctx, metadata.KeyAccessToken); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}

	s.mu.Lock()
	id := s.principal
	s.principal = ""
	s.mu.Unlock()

	if id == "" {
		return nil
	}
	s.log.Info(ctx, "signed out", "principal", id)
	s.events.Publish(SessionEvent{Kind: SignedOut, PrincipalID: id})
	return nil
}

func (s *SessionService) activate(ctx context.Context, id string) {
	s.mu.Lock()
	s.principal = id
	s.mu.Unlock()

	s.log.Info(ctx, "signed in", "principal", id)
	s.events.Publish(SessionEvent{Kind: SignedIn, PrincipalID: id})
}

func (s *SessionService) verify(token string, opts ...jwt.ParserOption) (string, error) {
	claims := &Claims{}
	opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return "", common.ErrInvalidToken
	}

	id := claims.principalID()
	if id == "" {
		return "", fmt.Errorf("%w: no subject", common.ErrInvalidToken)
	}
	return id, nil
}
