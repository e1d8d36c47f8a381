package servicestest

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"ElderCare360/apperr"
	"ElderCare360/authprovider"
	"ElderCare360/localstore"
	"ElderCare360/models"
	"ElderCare360/role"

	"github.com/google/uuid"
)

type account struct {
	user     authprovider.User
	password string
}

// Auth is a scriptable authentication provider. Every state change is emitted to listeners synchronously.
type Auth struct {
	mu        sync.Mutex
	byEmail   map[string]*account
	current   *authprovider.User
	restored  *authprovider.User
	listeners map[int]func(*authprovider.User)
	next      int

	FailDisplayName error
	FailDelete      error
	Deleted         []string
}

func NewAuth() *Auth {
	return &Auth{byEmail: map[string]*account{}, listeners: map[int]func(*authprovider.User){}}
}

func (a *Auth) emit(u *authprovider.User) {
	a.mu.Lock()
	fns := make([]func(*authprovider.User), 0, len(a.listeners))
	for _, fn := range a.listeners {
		fns = append(fns, fn)
	}
	a.mu.Unlock()
	for _, fn := range fns {
		fn(u)
	}
}

func (a *Auth) CreateUser(_ context.Context, email, password string) (*authprovider.User, error) {
	a.mu.Lock()
	if _, ok := a.byEmail[email]; ok {
		a.mu.Unlock()
		return nil, apperr.ErrEmailInUse
	}
	if len(password) < 6 {
		a.mu.Unlock()
		return nil, apperr.ErrWeakPassword
	}
	acc := &account{user: authprovider.User{UID: uuid.NewString(), Email: email}, password: password}
	a.byEmail[email] = acc
	u := acc.user
	a.current = &u
	a.mu.Unlock()
	a.emit(&u)
	return &u, nil
}

func (a *Auth) SignIn(_ context.Context, email, password string) (*authprovider.User, error) {
	a.mu.Lock()
	acc, ok := a.byEmail[email]
	if !ok || acc.password != password {
		a.mu.Unlock()
		return nil, apperr.ErrInvalidCredentials
	}
	u := acc.user
	a.current = &u
	a.mu.Unlock()
	a.emit(&u)
	return &u, nil
}

func (a *Auth) SignOut(context.Context) error {
	a.mu.Lock()
	a.current = nil
	a.mu.Unlock()
	a.emit(nil)
	return nil
}

func (a *Auth) DeleteUser(ctx context.Context, uid string) error {
	a.mu.Lock()
	if a.FailDelete != nil {
		a.mu.Unlock()
		return a.FailDelete
	}
	for email, acc := range a.byEmail {
		if acc.user.UID == uid {
			delete(a.byEmail, email)
		}
	}
	a.Deleted = append(a.Deleted, uid)
	wasCurrent := a.current != nil && a.current.UID == uid
	a.mu.Unlock()
	if wasCurrent {
		return a.SignOut(ctx)
	}
	return nil
}

func (a *Auth) UpdateDisplayName(_ context.Context, uid, name string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.FailDisplayName != nil {
		return a.FailDisplayName
	}
	for _, acc := range a.byEmail {
		if acc.user.UID == uid {
			acc.user.DisplayName = name
			return nil
		}
	}
	return errors.New("no such user")
}

func (a *Auth) CurrentUser() *authprovider.User {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current == nil {
		return nil
	}
	u := *a.current
	return &u
}

func (a *Auth) OnAuthStateChanged(fn func(*authprovider.User)) (unsubscribe func()) {
	a.mu.Lock()
	id := a.next
	a.next++
	a.listeners[id] = fn
	a.mu.Unlock()
	return func() {
		a.mu.Lock()
		delete(a.listeners, id)
		a.mu.Unlock()
	}
}

// SetPersisted makes the next Restore bring back the user registered under email.
func (a *Auth) SetPersisted(email string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if acc, ok := a.byEmail[email]; ok {
		u := acc.user
		a.restored = &u
	}
}

func (a *Auth) Restore(context.Context) error {
	a.mu.Lock()
	u := a.restored
	a.current = u
	a.mu.Unlock()
	a.emit(u)
	return nil
}

// Emit raises an auth-state change that no operation asked for.
func (a *Auth) Emit(u *authprovider.User) {
	a.mu.Lock()
	a.current = u
	a.mu.Unlock()
	a.emit(u)
}

// Register creates a credential without touching the current user.
func (a *Auth) Register(email, password string) authprovider.User {
	a.mu.Lock()
	defer a.mu.Unlock()
	acc := &account{user: authprovider.User{UID: uuid.NewString(), Email: email}, password: password}
	a.byEmail[email] = acc
	return acc.user
}

type Local struct {
	mu   sync.Mutex
	data map[string]string
}

func NewLocal() *Local {
	return &Local{data: map[string]string{}}
}

func (l *Local) Get(key string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	v, ok := l.data[key]
	if !ok {
		return "", localstore.ErrNotFound
	}
	return v, nil
}

func (l *Local) Set(key, value string, _ time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.data[key] = value
	return nil
}

func (l *Local) Delete(key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.data, key)
	return nil
}

type Photos struct {
	mu         sync.Mutex
	Objects    map[string][]byte
	FailPut    error
	FailDelete error
}

func NewPhotos() *Photos {
	return &Photos{Objects: map[string][]byte{}}
}

func (p *Photos) Put(_ context.Context, key string, body io.Reader, _ string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.FailPut != nil {
		return "", p.FailPut
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return "", err
	}
	p.Objects[key] = buf.Bytes()
	return "https://photos.test/" + key, nil
}

func (p *Photos) Delete(_ context.Context, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.FailDelete != nil {
		return p.FailDelete
	}
	delete(p.Objects, key)
	return nil
}

func (p *Photos) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Objects)
}

// Identity is a settable identity source.
type Identity struct {
	mu        sync.Mutex
	current   models.Identity
	observers map[int]func(models.Identity)
	next      int
}

func NewIdentity(id models.Identity) *Identity {
	return &Identity{current: id, observers: map[int]func(models.Identity){}}
}

func (i *Identity) Current() models.Identity {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.current
}

func (i *Identity) Subscribe(fn func(models.Identity)) (unsubscribe func()) {
	i.mu.Lock()
	id := i.next
	i.next++
	i.observers[id] = fn
	i.mu.Unlock()
	return func() {
		i.mu.Lock()
		delete(i.observers, id)
		i.mu.Unlock()
	}
}

func (i *Identity) Set(id models.Identity) {
	i.mu.Lock()
	i.current = id
	fns := make([]func(models.Identity), 0, len(i.observers))
	for _, fn := range i.observers {
		fns = append(fns, fn)
	}
	i.mu.Unlock()
	for _, fn := range fns {
		fn(id)
	}
}

func Caregiver(uid string) models.Identity {
	return models.AccountIdentity(&models.Account{ID: uid, Name: "Ana", Email: uid + "@example.com", Role: role.Caregiver})
}

func Elder(p *models.Patient) models.Identity {
	return models.ElderIdentity(models.NewElderSession(p))
}
