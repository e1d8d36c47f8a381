package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"ElderCare360/apperr"
	"ElderCare360/authprovider"
	"ElderCare360/localstore"
	"ElderCare360/metrics"
	"ElderCare360/models"
	"ElderCare360/repository"
	"ElderCare360/role"

	"go.uber.org/zap"
)

type SessionState int

const (
	StateUnresolved SessionState = iota
	StateNone
	StateAccount
	StateElder
)

func (s SessionState) String() string {
	switch s {
	case StateNone:
		return "none"
	case StateAccount:
		return "account"
	case StateElder:
		return "elder"
	default:
		return "unresolved"
	}
}

// SessionManager owns the single current identity of the process.
type SessionManager struct {
	auth     AuthProvider
	users    UserRepository
	patients PatientRepository
	local    LocalStore
	log      *zap.Logger
	metrics  *metrics.Metrics
	now      func() time.Time

	// opMu serializes explicit operations and rehydration.
	opMu sync.Mutex
	// driving is set while an explicit operation runs; provider events raised by it are ignored.
	driving atomic.Bool

	mu          sync.RWMutex
	identity    models.Identity
	resolved    bool
	resolvedCh  chan struct{}
	observers   map[int]func(models.Identity)
	nextObs     int
	unsubscribe func()
}

func NewSessionManager(auth AuthProvider, users UserRepository, patients PatientRepository, local LocalStore, log *zap.Logger, m *metrics.Metrics) *SessionManager {
	return &SessionManager{
		auth:       auth,
		users:      users,
		patients:   patients,
		local:      local,
		log:        log,
		metrics:    m,
		now:        time.Now,
		resolvedCh: make(chan struct{}),
		observers:  make(map[int]func(models.Identity)),
	}
}

func (s *SessionManager) Current() models.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity
}

func (s *SessionManager) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch {
	case !s.resolved:
		return StateUnresolved
	case s.identity.Account != nil:
		return StateAccount
	case s.identity.Elder != nil:
		return StateElder
	default:
		return StateNone
	}
}

// WaitResolved blocks until the first identity resolution or until ctx is done.
func (s *SessionManager) WaitResolved(ctx context.Context) error {
	select {
	case <-s.resolvedCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe registers fn for every identity change. fn runs after the change is visible.
func (s *SessionManager) Subscribe(fn func(models.Identity)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

func (s *SessionManager) adopt(id models.Identity) {
	s.mu.Lock()
	s.identity = id
	if !s.resolved {
		s.resolved = true
		close(s.resolvedCh)
	}
	observers := make([]func(models.Identity), 0, len(s.observers))
	for _, fn := range s.observers {
		observers = append(observers, fn)
	}
	s.mu.Unlock()

	s.log.Info("Identity changed", zap.String("kind", id.Kind()), zap.String("uid", id.UID()))
	for _, fn := range observers {
		fn(id)
	}
}

func (s *SessionManager) beginOp() func() {
	s.opMu.Lock()
	s.driving.Store(true)
	return func() {
		s.driving.Store(false)
		s.opMu.Unlock()
	}
}

/*
* Validate name and role, only familiar and caregiver can register
* Create the provider credential and set its display name
* Write the profile keyed by the provider uid
* If any step after the credential fails, delete the credential again
* Adopt the new account
 */
func (s *SessionManager) RegisterAccount(ctx context.Context, name, email, password string, r role.Role) (acc *models.Account, err error) {
	defer func() { s.metrics.Observe("register", err) }()

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Invalid("name is required")
	}
	if !r.IsAccount() {
		return nil, apperr.Invalid("role must be %s or %s", role.Familiar, role.Caregiver)
	}

	done := s.beginOp()
	defer done()

	u, err := s.auth.CreateUser(ctx, email, password)
	if err != nil {
		s.log.Info("Error from CreateUser", zap.Error(err))
		return nil, err
	}
	compensate := func(cause error) error {
		if delErr := s.auth.DeleteUser(ctx, u.UID); delErr != nil {
			s.log.Error("Credential left without profile", zap.String("uid", u.UID), zap.Error(delErr))
		}
		return apperr.ErrWriteFailed.WithCause(cause)
	}
	if err := s.auth.UpdateDisplayName(ctx, u.UID, name); err != nil {
		s.log.Error("Error from UpdateDisplayName", zap.Error(err))
		return nil, compensate(err)
	}
	acc = &models.Account{
		ID:        u.UID,
		Name:      name,
		Email:     u.Email,
		Role:      r,
		CreatedAt: s.now().UTC(),
	}
	if err := s.users.Create(ctx, acc); err != nil {
		s.log.Error("Error from users create", zap.Error(err))
		return nil, compensate(err)
	}
	s.adopt(models.AccountIdentity(acc))
	return acc, nil
}

/*
* Sign in with the provider
* Fetch the profile, a missing profile signs out again
* Stamp lastLogin, a failure there does not fail the login
* Adopt the account
 */
func (s *SessionManager) LoginAccount(ctx context.Context, email, password string) (acc *models.Account, err error) {
	defer func() { s.metrics.Observe("login", err) }()

	done := s.beginOp()
	defer done()

	u, err := s.auth.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}
	acc, err = s.users.FindByID(ctx, u.UID)
	if err != nil {
		if signOutErr := s.auth.SignOut(ctx); signOutErr != nil {
			s.log.Warn("Error from SignOut", zap.Error(signOutErr))
		}
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.ErrProfileMissing
		}
		s.log.Error("Error from users lookup", zap.Error(err))
		return nil, apperr.ErrReadFailed.WithCause(err)
	}
	now := s.now().UTC()
	if err := s.users.SetLastLogin(ctx, acc.ID, now); err != nil {
		s.log.Warn("Error from SetLastLogin", zap.Error(err))
	} else {
		acc.LastLogin = &now
	}
	s.adopt(models.AccountIdentity(acc))
	return acc, nil
}

/*
* Normalize the typed code and match it against patient codes
* Only a successful login persists the code on the device
* A provider session left from an account is closed so rehydration finds the elder
 */
func (s *SessionManager) LoginElder(ctx context.Context, code string) (elder *models.ElderSession, err error) {
	defer func() { s.metrics.Observe("loginElder", err) }()

	code = models.NormalizeCode(code)
	if code == "" {
		return nil, apperr.Invalid("code is required")
	}

	done := s.beginOp()
	defer done()

	p, err := s.patients.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.ErrCodeNotFound
		}
		s.log.Error("Error from FindByCode", zap.Error(err))
		return nil, apperr.ErrReadFailed.WithCause(err)
	}
	if err := s.local.Set(localstore.KeyElderCode, code, 0); err != nil {
		s.log.Warn("Elder code not persisted", zap.Error(err))
	}
	if s.auth.CurrentUser() != nil {
		if err := s.auth.SignOut(ctx); err != nil {
			s.log.Warn("Error from SignOut", zap.Error(err))
		}
	}
	elder = models.NewElderSession(p)
	s.adopt(models.ElderIdentity(elder))
	return elder, nil
}

// Logout clears the saved elder code and the provider session. It never fails.
func (s *SessionManager) Logout(ctx context.Context) {
	defer s.metrics.Observe("logout", nil)

	done := s.beginOp()
	defer done()

	if err := s.local.Delete(localstore.KeyElderCode); err != nil {
		s.log.Warn("Elder code not cleared", zap.Error(err))
	}
	if err := s.auth.SignOut(ctx); err != nil {
		s.log.Warn("Error from SignOut", zap.Error(err))
	}
	s.adopt(models.Identity{})
}

/*
* Listen to provider auth-state changes
* Ask the provider to restore its persisted session
* Make sure the state is resolved even if the provider stayed silent
 */
func (s *SessionManager) Start(ctx context.Context) error {
	listenCtx := context.WithoutCancel(ctx)
	s.unsubscribe = s.auth.OnAuthStateChanged(func(u *authprovider.User) {
		if s.driving.Load() {
			return
		}
		s.rehydrate(listenCtx, u)
	})
	if err := s.auth.Restore(ctx); err != nil {
		s.log.Warn("Error from provider restore", zap.Error(err))
	}
	s.mu.RLock()
	resolved := s.resolved
	s.mu.RUnlock()
	if !resolved {
		s.rehydrate(ctx, s.auth.CurrentUser())
	}
	return nil
}

func (s *SessionManager) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

/*
* A provider user with a profile becomes the account identity
* Otherwise a saved elder code is replayed as an elder login
* Otherwise nobody is signed in
 */
func (s *SessionManager) rehydrate(ctx context.Context, u *authprovider.User) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if u != nil {
		acc, err := s.users.FindByID(ctx, u.UID)
		if err == nil {
			s.adopt(models.AccountIdentity(acc))
			return
		}
		s.log.Warn("Provider user without usable profile", zap.String("uid", u.UID), zap.Error(err))
	}

	code, err := s.local.Get(localstore.KeyElderCode)
	if err != nil || code == "" {
		if err != nil && !errors.Is(err, localstore.ErrNotFound) {
			s.log.Warn("Elder code not readable", zap.Error(err))
		}
		s.adopt(models.Identity{})
		return
	}
	p, err := s.patients.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			if delErr := s.local.Delete(localstore.KeyElderCode); delErr != nil {
				s.log.Warn("Stale elder code not cleared", zap.Error(delErr))
			}
		} else {
			s.log.Error("Error from FindByCode during rehydration", zap.Error(err))
		}
		s.adopt(models.Identity{})
		return
	}
	s.adopt(models.ElderIdentity(models.NewElderSession(p)))
}
