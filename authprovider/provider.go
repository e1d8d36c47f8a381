package authprovider

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"sync"
	"time"

	"ElderCare360/apperr"
	"ElderCare360/localstore"
	"ElderCare360/models"
	"ElderCare360/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// User is the provider's view of a signed-in account.
type User struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
}

type CredentialStore interface {
	Create(ctx context.Context, cred *models.Credential) error
	FindByEmail(ctx context.Context, email string) (*models.Credential, error)
	FindByID(ctx context.Context, id string) (*models.Credential, error)
	SetDisplayName(ctx context.Context, id, name string) error
	Delete(ctx context.Context, id string) error
}

// SessionStore persists the signed session token on the device.
type SessionStore interface {
	Get(key string) (string, error)
	Set(key, value string, ttl time.Duration) error
	Delete(key string) error
}

type Options struct {
	Secret            string
	SessionTTL        time.Duration
	MinPasswordLength int
}

// CredentialProvider authenticates accounts against the credentials collection and
// keeps the signed-in user in a JWT that survives restarts.
type CredentialProvider struct {
	creds    CredentialStore
	sessions SessionStore
	secret   []byte
	ttl      time.Duration
	minLen   int
	log      *zap.Logger
	now      func() time.Time

	mu        sync.Mutex
	current   *User
	next      int
	listeners map[int]func(*User)
}

func New(creds CredentialStore, sessions SessionStore, opts Options, log *zap.Logger) *CredentialProvider {
	if opts.MinPasswordLength < 1 {
		opts.MinPasswordLength = 6
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 30 * 24 * time.Hour
	}
	return &CredentialProvider{
		creds:     creds,
		sessions:  sessions,
		secret:    []byte(opts.Secret),
		ttl:       opts.SessionTTL,
		minLen:    opts.MinPasswordLength,
		log:       log,
		now:       time.Now,
		listeners: make(map[int]func(*User)),
	}
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", apperr.Invalid("invalid email address")
	}
	return email, nil
}

func userOf(c *models.Credential) *User {
	return &User{UID: c.ID, Email: c.Email, DisplayName: c.DisplayName}
}

/*
* Normalize the email and apply the password policy
* Hash the password and store the credential
* A duplicate email maps to ErrEmailInUse
* The new user is signed in, like a hosted provider does after sign-up
 */
func (p *CredentialProvider) CreateUser(ctx context.Context, email, password string) (*User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if len(password) < p.minLen {
		return nil, apperr.ErrWeakPassword.WithMessage("password must have at least %d characters", p.minLen)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.ErrWeakPassword.WithCause(err)
	}
	cred := &models.Credential{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    p.now().UTC(),
	}
	if err := p.creds.Create(ctx, cred); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.ErrEmailInUse
		}
		p.log.Error("Error from credentials create", zap.Error(err))
		return nil, apperr.ErrWriteFailed.WithCause(err)
	}
	u := userOf(cred)
	p.signIn(u)
	return u, nil
}

func (p *CredentialProvider) SignIn(ctx context.Context, email, password string) (*User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, apperr.ErrInvalidCredentials
	}
	cred, err := p.creds.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.ErrInvalidCredentials
		}
		p.log.Error("Error from credentials lookup", zap.Error(err))
		return nil, apperr.ErrReadFailed.WithCause(err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		return nil, apperr.ErrInvalidCredentials
	}
	u := userOf(cred)
	p.signIn(u)
	return u, nil
}

func (p *CredentialProvider) signIn(u *User) {
	token, err := p.issue(u.UID)
	if err != nil {
		p.log.Warn("Session token not issued", zap.Error(err))
	} else if err := p.sessions.Set(localstore.KeySession, token, p.ttl); err != nil {
		p.log.Warn("Session token not persisted", zap.Error(err))
	}
	p.setCurrent(u)
}

func (p *CredentialProvider) SignOut(ctx context.Context) error {
	if err := p.sessions.Delete(localstore.KeySession); err != nil {
		p.log.Warn("Session token not removed", zap.Error(err))
	}
	p.setCurrent(nil)
	return nil
}

// DeleteUser removes the credential. Deleting the signed-in user also signs out.
func (p *CredentialProvider) DeleteUser(ctx context.Context, uid string) error {
	if err := p.creds.Delete(ctx, uid); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return apperr.ErrWriteFailed.WithCause(err)
	}
	if cur := p.CurrentUser(); cur != nil && cur.UID == uid {
		return p.SignOut(ctx)
	}
	return nil
}

func (p *CredentialProvider) UpdateDisplayName(ctx context.Context, uid, name string) error {
	if err := p.creds.SetDisplayName(ctx, uid, name); err != nil {
		return apperr.ErrWriteFailed.WithCause(err)
	}
	p.mu.Lock()
	if p.current != nil && p.current.UID == uid {
		updated := *p.current
		updated.DisplayName = name
		p.current = &updated
	}
	p.mu.Unlock()
	return nil
}

func (p *CredentialProvider) CurrentUser() *User {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// OnAuthStateChanged registers fn for every sign-in and sign-out. fn runs on the caller's goroutine.
func (p *CredentialProvider) OnAuthStateChanged(fn func(*User)) (unsubscribe func()) {
	p.mu.Lock()
	id := p.next
	p.next++
	p.listeners[id] = fn
	p.mu.Unlock()
	return func() {
		p.mu.Lock()
		delete(p.listeners, id)
		p.mu.Unlock()
	}
}

func (p *CredentialProvider) setCurrent(u *User) {
	p.mu.Lock()
	p.current = u
	listeners := make([]func(*User), 0, len(p.listeners))
	for _, fn := range p.listeners {
		listeners = append(listeners, fn)
	}
	p.mu.Unlock()

	for _, fn := range listeners {
		fn(u)
	}
}

/*
* Read the persisted token, nothing stored means signed out
* Verify signature and expiry, a bad token is discarded
* The credential must still exist
* Emit the resolved user, or nil, to the listeners
 */
func (p *CredentialProvider) Restore(ctx context.Context) error {
	token, err := p.sessions.Get(localstore.KeySession)
	if err != nil {
		if !errors.Is(err, localstore.ErrNotFound) {
			p.log.Warn("Session token not readable", zap.Error(err))
		}
		p.setCurrent(nil)
		return nil
	}
	uid, err := p.verify(token)
	if err != nil {
		p.log.Info("Discarding stored session", zap.Error(err))
		_ = p.sessions.Delete(localstore.KeySession)
		p.setCurrent(nil)
		return nil
	}
	cred, err := p.creds.FindByID(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			_ = p.sessions.Delete(localstore.KeySession)
			p.setCurrent(nil)
			return nil
		}
		p.setCurrent(nil)
		return apperr.ErrReadFailed.WithCause(err)
	}
	p.setCurrent(userOf(cred))
	return nil
}

func (p *CredentialProvider) issue(uid string) (string, error) {
	now := p.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   uid,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(p.ttl)),
	})
	return token.SignedString(p.secret)
}

func (p *CredentialProvider) verify(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return p.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(p.now), jwt.WithExpirationRequired())
	if err != nil {
		return "", err
	}
	if !token.Valid || claims.Subject == "" {
		return "", errors.New("invalid session token")
	}
	return claims.Subject, nil
}
