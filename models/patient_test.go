package models

import (
	"errors"
	"testing"

	"ElderCare360/apperr"
	"ElderCare360/role"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestDeriveCode(t *testing.T) {
	assert.Equal(t, "567", DeriveCode("0101234567"))
	assert.Equal(t, "X9Z", DeriveCode(" ab12x9z "))
	assert.Equal(t, "AB", DeriveCode("ab"))
	assert.Equal(t, "A1B", NormalizeCode(" a1b "))
}

func TestPatientInputNormalize(t *testing.T) {
	in := PatientInput{Cedula: " 0101234567 ", Name: " Rosa ", Surname: "Perez", Age: 81, BloodType: "o+"}
	require.NoError(t, in.Normalize())
	assert.Equal(t, "0101234567", in.Cedula)
	assert.Equal(t, "Rosa", in.Name)
	assert.Equal(t, "O+", in.BloodType)

	bad := PatientInput{Cedula: "12", Name: "Rosa", Surname: "Perez", Age: 81}
	assert.True(t, errors.Is(bad.Normalize(), apperr.ErrInvalidInput))

	bad = PatientInput{Cedula: "010-123", Name: "Rosa", Surname: "Perez", Age: 81}
	assert.True(t, errors.Is(bad.Normalize(), apperr.ErrInvalidInput))

	bad = PatientInput{Cedula: "0101234567", Name: "Rosa", Surname: "Perez", Age: 0}
	assert.True(t, errors.Is(bad.Normalize(), apperr.ErrInvalidInput))

	bad = PatientInput{Cedula: "0101234567", Name: "Rosa", Surname: "Perez", Age: 70, BloodType: "C+"}
	assert.True(t, errors.Is(bad.Normalize(), apperr.ErrInvalidInput))
}

func TestPatientUpdateFields(t *testing.T) {
	name := " Ana "
	age := 90
	set, err := PatientUpdate{Name: &name, Age: &age}.Fields()
	require.NoError(t, err)
	assert.Equal(t, "Ana", set["name"])

	p := &Patient{Name: "Rosa", Age: 80}
	p.Apply(set)
	assert.Equal(t, "Ana", p.Name)
	assert.Equal(t, 90, p.Age)

	_, err = PatientUpdate{}.Fields()
	assert.True(t, errors.Is(err, apperr.ErrInvalidInput))
}

func TestIdentity(t *testing.T) {
	none := Identity{}
	assert.True(t, none.IsNone())
	assert.Equal(t, "none", none.Kind())
	assert.Equal(t, role.Role(""), none.Role())

	acc := AccountIdentity(&Account{ID: "uid-1", Name: "Maria", Role: role.Caregiver})
	assert.Equal(t, "account", acc.Kind())
	assert.Equal(t, "uid-1", acc.UID())
	assert.Equal(t, role.Caregiver, acc.Role())

	p := &Patient{ID: primitive.NewObjectID(), Name: "Rosa", Surname: "Perez", Code: "567", CaregiverID: "uid-1"}
	elder := ElderIdentity(NewElderSession(p))
	assert.Equal(t, "elder", elder.Kind())
	assert.Equal(t, p.ID.Hex(), elder.UID())
	assert.Equal(t, "Rosa Perez", elder.Name())
	assert.Equal(t, role.Elder, elder.Role())
}
