package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"standup-tracker/internal/config"
	dbx "standup-tracker/internal/db"
	"standup-tracker/internal/logger"
	"standup-tracker/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Event kinds delivered to subscribers.
const (
	EventSignIn  = "sign_in"
	EventSignOut = "sign_out"
)

type Event struct {
	Kind     string
	Identity model.Identity
}

// Provisioner creates the display profile for a freshly signed-up
// identity. A concurrent duplicate creation must not surface as an error.
type Provisioner interface {
	Ensure(ctx context.Context, id model.Identity) error
}

// Store owns the authentication lifecycle: it verifies credentials,
// issues bearer tokens, tracks which token IDs are live, and notifies
// subscribers of sign-in/sign-out transitions. Constructed once at
// application start and closed at shutdown; never reached as an ambient
// singleton.
type Store struct {
	db        *gorm.DB
	profiles  Provisioner
	secret    []byte
	ttl       time.Duration

	mu       sync.Mutex
	sessions map[string]model.Identity
	subs     map[int]func(Event)
	nextSub  int
	lastErr  string
	closed   bool
}

func NewStore(db *gorm.DB, profiles Provisioner, cfg config.AuthConfig) *Store {
	ttl := time.Duration(cfg.TokenTTLHours) * time.Hour
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Store{
		db:       db,
		profiles: profiles,
		secret:   []byte(cfg.JWTSecret),
		ttl:      ttl,
		sessions: make(map[string]model.Identity),
		subs:     make(map[int]func(Event)),
	}
}

// Close tears down all subscriptions. Further auth operations fail with
// a session error.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.subs = make(map[int]func(Event))
}

// Subscribe registers a listener for auth-state changes and returns its
// teardown func.
func (s *Store) Subscribe(fn func(Event)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// Current returns the identity bound to a live token ID.
func (s *Store) Current(tokenID string) (model.Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.sessions[tokenID]
	return id, ok
}

// LastError exposes the error slot consumed by the presentation layer.
func (s *Store) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *Store) Login(ctx context.Context, email, password string) (model.Identity, string, error) {
	var acct model.Account
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&acct).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Identity{}, "", s.fail(ReasonInvalidCredentials, nil)
	}
	if err != nil {
		return model.Identity{}, "", s.fail(ReasonSessionFailure, err)
	}
	if bcrypt.CompareHashAndPassword([]byte(acct.Password), []byte(password)) != nil {
		return model.Identity{}, "", s.fail(ReasonInvalidCredentials, nil)
	}

	ident := model.Identity{ID: acct.ID, Name: acct.Name, Email: acct.Email}
	token, err := s.establish(ident)
	if err != nil {
		return model.Identity{}, "", s.fail(ReasonSessionFailure, err)
	}
	logger.Info("login.ok", "uid", ident.ID, "email", ident.Email)
	return ident, token, nil
}

func (s *Store) Signup(ctx context.Context, name, email, password, confirm string) (model.Identity, string, error) {
	// Checked locally, before any remote call.
	if password != confirm {
		return model.Identity{}, "", s.fail(ReasonPasswordMismatch, nil)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return model.Identity{}, "", s.fail(ReasonSessionFailure, err)
	}

	acct := model.Account{
		ID:       uuid.NewString(),
		Email:    email,
		Password: string(hash),
		Name:     name,
	}
	if err := s.db.WithContext(ctx).Create(&acct).Error; err != nil {
		if dbx.IsDuplicateKey(err) {
			return model.Identity{}, "", s.fail(ReasonEmailTaken, nil)
		}
		return model.Identity{}, "", s.fail(ReasonSessionFailure, err)
	}

	ident := model.Identity{ID: acct.ID, Name: acct.Name, Email: acct.Email}

	// Provision the display profile. Ensure swallows duplicate-key
	// conflicts from a concurrent signup; anything else surfaces.
	if s.profiles != nil {
		if err := s.profiles.Ensure(ctx, ident); err != nil {
			return model.Identity{}, "", s.fail(ReasonSessionFailure, err)
		}
	}

	token, err := s.establish(ident)
	if err != nil {
		return model.Identity{}, "", s.fail(ReasonSessionFailure, err)
	}
	logger.Info("signup.ok", "uid", ident.ID, "email", ident.Email)
	return ident, token, nil
}

func (s *Store) Logout(ctx context.Context, tokenID string) error {
	s.mu.Lock()
	ident, ok := s.sessions[tokenID]
	delete(s.sessions, tokenID)
	s.lastErr = ""
	s.mu.Unlock()
	if ok {
		s.notify(Event{Kind: EventSignOut, Identity: ident})
	}
	return nil
}

// establish issues the bearer token, then records the session and fires
// the sign-in event. A signing failure leaves no session behind and no
// subscriber ever hears about it.
func (s *Store) establish(ident model.Identity) (string, error) {
	jti := uuid.NewString()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"jti":   jti,
		"uid":   ident.ID,
		"name":  ident.Name,
		"email": ident.Email,
		"exp":   time.Now().Add(s.ttl).Unix(),
	}).SignedString(s.secret)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", errors.New("store closed")
	}
	s.sessions[jti] = ident
	s.lastErr = ""
	s.mu.Unlock()

	s.notify(Event{Kind: EventSignIn, Identity: ident})
	return token, nil
}

func (s *Store) notify(ev Event) {
	s.mu.Lock()
	fns := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func (s *Store) fail(reason string, err error) *AuthError {
	e := authErr(reason, err)
	s.mu.Lock()
	s.lastErr = reason
	s.mu.Unlock()
	if err != nil {
		logger.Warn("auth."+reason, "err", err)
	} else {
		logger.Warn("auth." + reason)
	}
	return e
}

// Secret exposes the signing key for the JWT middleware.
func (s *Store) Secret() []byte { return s.secret }

// TTL exposes the configured token lifetime for renewal decisions.
func (s *Store) TTL() time.Duration { return s.ttl }
