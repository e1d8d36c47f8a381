package services

import (
	"context"
	"errors"
	"testing"

	"ElderCare360/apperr"
	"ElderCare360/localstore"
	"ElderCare360/models"
	"ElderCare360/role"
	"ElderCare360/services/servicestest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type sessionFixture struct {
	auth     *servicestest.Auth
	users    *servicestest.Users
	patients *servicestest.Patients
	local    *servicestest.Local
	sm       *SessionManager
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()
	f := &sessionFixture{
		auth:     servicestest.NewAuth(),
		users:    servicestest.NewUsers(),
		patients: servicestest.NewPatients(),
		local:    servicestest.NewLocal(),
	}
	f.sm = NewSessionManager(f.auth, f.users, f.patients, f.local, zap.NewNop(), nil)
	require.NoError(t, f.sm.Start(context.Background()))
	t.Cleanup(f.sm.Close)
	return f
}

func (f *sessionFixture) addPatient(t *testing.T, code string) *models.Patient {
	t.Helper()
	p := &models.Patient{CaregiverID: "cg-1", Cedula: "0102" + code, Code: code, Name: "Rosa", Surname: "Vera", Age: 80}
	require.NoError(t, f.patients.Create(context.Background(), p))
	return p
}

func TestSession_StartsResolvedAsNone(t *testing.T) {
	f := newSessionFixture(t)

	assert.Equal(t, StateNone, f.sm.State())
	assert.True(t, f.sm.Current().IsNone())
	assert.NoError(t, f.sm.WaitResolved(context.Background()))
}

func TestSession_UnresolvedBeforeStart(t *testing.T) {
	sm := NewSessionManager(servicestest.NewAuth(), servicestest.NewUsers(), servicestest.NewPatients(), servicestest.NewLocal(), zap.NewNop(), nil)
	assert.Equal(t, StateUnresolved, sm.State())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sm.WaitResolved(ctx), context.Canceled)
}

func TestSession_RegisterAccount(t *testing.T) {
	f := newSessionFixture(t)
	var seen []models.Identity
	f.sm.Subscribe(func(id models.Identity) { seen = append(seen, id) })

	acc, err := f.sm.RegisterAccount(context.Background(), " Ana ", "ana@example.com", "secret1", role.Caregiver)
	require.NoError(t, err)

	assert.Equal(t, "Ana", acc.Name)
	assert.Equal(t, StateAccount, f.sm.State())
	assert.Equal(t, acc.ID, f.sm.Current().UID())
	require.Len(t, seen, 1)
	assert.Equal(t, role.Caregiver, seen[0].Role())

	stored, err := f.users.FindByID(context.Background(), acc.ID)
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", stored.Email)
}

func TestSession_RegisterRejectsInput(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	_, err := f.sm.RegisterAccount(ctx, "Ana", "ana@example.com", "secret1", role.Elder)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, err = f.sm.RegisterAccount(ctx, " ", "ana@example.com", "secret1", role.Familiar)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, err = f.sm.RegisterAccount(ctx, "Ana", "ana@example.com", "123", role.Familiar)
	assert.ErrorIs(t, err, apperr.ErrWeakPassword)

	_, err = f.sm.RegisterAccount(ctx, "Ana", "ana@example.com", "secret1", role.Familiar)
	require.NoError(t, err)
	_, err = f.sm.RegisterAccount(ctx, "Ana", "ana@example.com", "secret1", role.Familiar)
	assert.ErrorIs(t, err, apperr.ErrEmailInUse)
}

func TestSession_RegisterCompensatesFailedProfileWrite(t *testing.T) {
	f := newSessionFixture(t)
	f.users.FailCreate = errors.New("connection reset")

	_, err := f.sm.RegisterAccount(context.Background(), "Ana", "ana@example.com", "secret1", role.Caregiver)

	assert.ErrorIs(t, err, apperr.ErrWriteFailed)
	assert.Len(t, f.auth.Deleted, 1)
	assert.Nil(t, f.auth.CurrentUser())
	assert.Equal(t, StateNone, f.sm.State())
	assert.Equal(t, 0, f.users.Len())
}

func TestSession_LoginAccount(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	_, err := f.sm.RegisterAccount(ctx, "Ana", "ana@example.com", "secret1", role.Familiar)
	require.NoError(t, err)
	f.sm.Logout(ctx)
	require.Equal(t, StateNone, f.sm.State())

	_, err = f.sm.LoginAccount(ctx, "ana@example.com", "wrong")
	assert.ErrorIs(t, err, apperr.ErrInvalidCredentials)
	assert.Equal(t, StateNone, f.sm.State())

	acc, err := f.sm.LoginAccount(ctx, "ana@example.com", "secret1")
	require.NoError(t, err)
	assert.NotNil(t, acc.LastLogin)
	assert.Equal(t, role.Familiar, f.sm.Current().Role())
}

func TestSession_LoginWithoutProfileSignsOut(t *testing.T) {
	f := newSessionFixture(t)
	f.auth.Register("ghost@example.com", "secret1")

	_, err := f.sm.LoginAccount(context.Background(), "ghost@example.com", "secret1")

	assert.ErrorIs(t, err, apperr.ErrProfileMissing)
	assert.Nil(t, f.auth.CurrentUser())
	assert.Equal(t, StateNone, f.sm.State())
}

func TestSession_LoginElder(t *testing.T) {
	f := newSessionFixture(t)
	p := f.addPatient(t, "7AB")

	_, err := f.sm.LoginElder(context.Background(), "zzz")
	assert.ErrorIs(t, err, apperr.ErrCodeNotFound)
	_, err = f.local.Get(localstore.KeyElderCode)
	assert.ErrorIs(t, err, localstore.ErrNotFound)

	elder, err := f.sm.LoginElder(context.Background(), " 7ab ")
	require.NoError(t, err)
	assert.Equal(t, p.ID.Hex(), elder.ID)
	assert.Equal(t, "Rosa Vera", elder.Name)
	assert.Equal(t, StateElder, f.sm.State())

	code, err := f.local.Get(localstore.KeyElderCode)
	require.NoError(t, err)
	assert.Equal(t, "7AB", code)
}

func TestSession_FailedElderLoginKeepsSavedCode(t *testing.T) {
	f := newSessionFixture(t)
	f.addPatient(t, "7AB")
	_, err := f.sm.LoginElder(context.Background(), "7AB")
	require.NoError(t, err)

	_, err = f.sm.LoginElder(context.Background(), "XYZ")
	assert.ErrorIs(t, err, apperr.ErrCodeNotFound)

	code, err := f.local.Get(localstore.KeyElderCode)
	require.NoError(t, err)
	assert.Equal(t, "7AB", code)
	assert.Equal(t, StateElder, f.sm.State())
}

func TestSession_LogoutClearsEverything(t *testing.T) {
	f := newSessionFixture(t)
	f.addPatient(t, "7AB")
	_, err := f.sm.LoginElder(context.Background(), "7AB")
	require.NoError(t, err)

	f.sm.Logout(context.Background())

	assert.Equal(t, StateNone, f.sm.State())
	_, err = f.local.Get(localstore.KeyElderCode)
	assert.ErrorIs(t, err, localstore.ErrNotFound)
}

func TestSession_RehydratesAccount(t *testing.T) {
	auth := servicestest.NewAuth()
	users := servicestest.NewUsers()
	u := auth.Register("ana@example.com", "secret1")
	require.NoError(t, users.Create(context.Background(), &models.Account{ID: u.UID, Name: "Ana", Role: role.Caregiver}))
	auth.SetPersisted("ana@example.com")

	sm := NewSessionManager(auth, users, servicestest.NewPatients(), servicestest.NewLocal(), zap.NewNop(), nil)
	require.NoError(t, sm.Start(context.Background()))
	defer sm.Close()

	assert.Equal(t, StateAccount, sm.State())
	assert.Equal(t, u.UID, sm.Current().UID())
}

func TestSession_RehydratesElderFromSavedCode(t *testing.T) {
	patients := servicestest.NewPatients()
	p := &models.Patient{CaregiverID: "cg-1", Code: "7AB", Name: "Rosa", Surname: "Vera"}
	require.NoError(t, patients.Create(context.Background(), p))
	local := servicestest.NewLocal()
	require.NoError(t, local.Set(localstore.KeyElderCode, "7AB", 0))

	sm := NewSessionManager(servicestest.NewAuth(), servicestest.NewUsers(), patients, local, zap.NewNop(), nil)
	require.NoError(t, sm.Start(context.Background()))
	defer sm.Close()

	assert.Equal(t, StateElder, sm.State())
	assert.Equal(t, p.ID.Hex(), sm.Current().UID())
}

func TestSession_StaleSavedCodeIsDropped(t *testing.T) {
	local := servicestest.NewLocal()
	require.NoError(t, local.Set(localstore.KeyElderCode, "GONE", 0))

	sm := NewSessionManager(servicestest.NewAuth(), servicestest.NewUsers(), servicestest.NewPatients(), local, zap.NewNop(), nil)
	require.NoError(t, sm.Start(context.Background()))
	defer sm.Close()

	assert.Equal(t, StateNone, sm.State())
	_, err := local.Get(localstore.KeyElderCode)
	assert.ErrorIs(t, err, localstore.ErrNotFound)
}

func TestSession_ProviderSignOutFromOutside(t *testing.T) {
	f := newSessionFixture(t)
	_, err := f.sm.RegisterAccount(context.Background(), "Ana", "ana@example.com", "secret1", role.Caregiver)
	require.NoError(t, err)

	f.auth.Emit(nil)

	assert.Equal(t, StateNone, f.sm.State())
}

func TestSession_ElderLoginClosesProviderSession(t *testing.T) {
	f := newSessionFixture(t)
	f.addPatient(t, "7AB")
	_, err := f.sm.RegisterAccount(context.Background(), "Ana", "ana@example.com", "secret1", role.Caregiver)
	require.NoError(t, err)

	_, err = f.sm.LoginElder(context.Background(), "7AB")
	require.NoError(t, err)

	assert.Nil(t, f.auth.CurrentUser())
	assert.Equal(t, StateElder, f.sm.State())
}
