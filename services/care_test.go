package services

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"ElderCare360/apperr"
	"ElderCare360/cache"
	"ElderCare360/events"
	"ElderCare360/models"
	"ElderCare360/repository"
	"ElderCare360/services/servicestest"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// 2026-03-02 is a Monday.
var careNow = time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

type careFixture struct {
	identity     *servicestest.Identity
	patients     *servicestest.Patients
	medications  *servicestest.Medications
	records      *servicestest.Scoped[models.HealthRecord]
	appointments *servicestest.Scoped[models.Appointment]
	photos       *servicestest.Photos
	bus          *events.Bus
	store        *CareStore
}

func newCareFixture(t *testing.T, id models.Identity) *careFixture {
	t.Helper()
	f := &careFixture{
		identity:     servicestest.NewIdentity(id),
		patients:     servicestest.NewPatients(),
		medications:  servicestest.NewMedications(),
		records:      servicestest.NewHealthRecords(),
		appointments: servicestest.NewAppointments(),
		photos:       servicestest.NewPhotos(),
		bus:          events.NewBus(zap.NewNop()),
	}
	f.store = NewCareStore(CareDeps{
		Identity:      f.identity,
		Patients:      f.patients,
		Medications:   f.medications,
		HealthRecords: f.records,
		Appointments:  f.appointments,
		Photos:        f.photos,
		Bus:           f.bus,
		Log:           zap.NewNop(),
		PollInterval:  time.Hour,
	})
	f.store.now = func() time.Time { return careNow }
	t.Cleanup(f.store.Attach())
	return f
}

func patientInput(cedula string) models.PatientInput {
	return models.PatientInput{Cedula: cedula, Name: "Rosa", Surname: "Vera", Age: 81, BloodType: "o+"}
}

func (f *careFixture) add(t *testing.T, cedula string) *models.Patient {
	t.Helper()
	p, err := f.store.AddPatient(context.Background(), patientInput(cedula))
	require.NoError(t, err)
	return p
}

func TestAddPatient(t *testing.T) {
	f := newCareFixture(t, servicestest.Caregiver("cg-1"))
	var got []events.Event
	f.bus.Subscribe(func(e events.Event) { got = append(got, e) })

	in := patientInput("0102030a7b")
	in.Photo = bytes.NewReader([]byte("jpeg"))
	p, err := f.store.AddPatient(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, "A7B", p.Code)
	assert.Equal(t, "cg-1", p.CaregiverID)
	assert.Equal(t, "O+", p.BloodType)
	assert.Regexp(t, `^https://photos\.test/patients/cg-1/0102030a7b-[0-9a-f-]{36}\.jpg$`, p.PhotoURL)
	assert.Equal(t, careNow, p.CreatedAt)
	assert.Len(t, f.store.Patients(), 1)
	require.Len(t, got, 1)
	assert.Equal(t, events.PatientCreated, got[0].Type)
	assert.Equal(t, p.ID.Hex(), got[0].PatientID)
}

func TestAddPatient_WithoutPhotoSkipsUpload(t *testing.T) {
	f := newCareFixture(t, servicestest.Caregiver("cg-1"))

	p := f.add(t, "0102030455")

	assert.Empty(t, p.PhotoURL)
	assert.Equal(t, 0, f.photos.Len())
}

func TestAddPatient_RejectsCodeInUse(t *testing.T) {
	f := newCareFixture(t, servicestest.Caregiver("cg-1"))
	f.add(t, "1111111455")

	_, err := f.store.AddPatient(context.Background(), patientInput("2222222455"))

	assert.ErrorIs(t, err, apperr.ErrCodeInUse)
	assert.Equal(t, 1, f.patients.Len())
}

func TestAddPatient_RemovesPhotoWhenWriteFails(t *testing.T) {
	f := newCareFixture(t, servicestest.Caregiver("cg-1"))
	f.patients.FailCreate = errors.New("timeout")

	in := patientInput("0102030455")
	in.Photo = bytes.NewReader([]byte("jpeg"))
	_, err := f.store.AddPatient(context.Background(), in)

	assert.ErrorIs(t, err, apperr.ErrWriteFailed)
	assert.Equal(t, 0, f.photos.Len())
	assert.Empty(t, f.store.Patients())
}

func TestAddPatient_PartialWriteWhenPhotoCannotBeRemoved(t *testing.T) {
	f := newCareFixture(t, servicestest.Caregiver("cg-1"))
	f.patients.FailCreate = errors.New("timeout")
	f.photos.FailDelete = errors.New("access denied")

	in := patientInput("0102030455")
	in.Photo = bytes.NewReader([]byte("jpeg"))
	_, err := f.store.AddPatient(context.Background(), in)

	assert.ErrorIs(t, err, apperr.ErrPartialWrite)
	assert.Equal(t, apperr.KindPartialFailure, apperr.KindOf(err))
	assert.Equal(t, 1, f.photos.Len())
}

func TestAddPatient_PhotoUploadFailure(t *testing.T) {
	f := newCareFixture(t, servicestest.Caregiver("cg-1"))
	f.photos.FailPut = errors.New("bucket missing")

	in := patientInput("0102030455")
	in.Photo = bytes.NewReader([]byte("jpeg"))
	_, err := f.store.AddPatient(context.Background(), in)

	assert.ErrorIs(t, err, apperr.ErrPhotoUpload)
	assert.Equal(t, 0, f.patients.Len())
}

func TestAddPatient_RequiresAccount(t *testing.T) {
	f := newCareFixture(t, models.Identity{})
	_, err := f.store.AddPatient(context.Background(), patientInput("0102030455"))
	assert.ErrorIs(t, err, apperr.ErrNotSignedIn)

	p := &models.Patient{Code: "XYZ"}
	require.NoError(t, f.patients.Create(context.Background(), p))
	f.identity.Set(servicestest.Elder(p))
	_, err = f.store.AddPatient(context.Background(), patientInput("0102030455"))
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestReloadFollowsIdentity(t *testing.T) {
	f := newCareFixture(t, servicestest.Caregiver("cg-1"))
	first := f.add(t, "0102030001")
	f.add(t, "0102030002")
	require.Len(t, f.store.Patients(), 2)

	f.identity.Set(servicestest.Caregiver("cg-2"))
	assert.Empty(t, f.store.Patients())

	f.identity.Set(servicestest.Elder(first))
	list := f.store.Patients()
	require.Len(t, list, 1)
	assert.Equal(t, first.ID, list[0].ID)

	f.identity.Set(models.Identity{})
	assert.Empty(t, f.store.Patients())
	assert.False(t, f.store.Loading())
}

func TestReloadPatients_Idempotent(t *testing.T) {
	f := newCareFixture(t, servicestest.Caregiver("cg-1"))
	for _, cedula := range []string{"0102030001", "0102030002", "0102030003"} {
		f.add(t, cedula)
	}
	ctx := context.Background()

	first, err := f.store.ReloadPatients(ctx)
	require.NoError(t, err)
	second, err := f.store.ReloadPatients(ctx)
	require.NoError(t, err)

	ids := func(list []models.Patient) []string {
		out := make([]string, 0, len(list))
		for _, p := range list {
			out = append(out, p.ID.Hex())
		}
		return out
	}
	require.Len(t, first, 3)
	assert.Equal(t, ids(first), ids(second))
	assert.Equal(t, ids(first), ids(f.store.Patients()))
}

func TestAddPatient_ReloadReturnsInput(t *testing.T) {
	f := newCareFixture(t, servicestest.Caregiver("cg-1"))
	in := models.PatientInput{
		Cedula:       "0912345678",
		Name:         "Rosa",
		Surname:      "Vera",
		Age:          81,
		BloodType:    "AB-",
		ContactName:  "Lucia Vera",
		ContactPhone: "0991234567",
		Photo:        bytes.NewReader([]byte("jpeg")),
	}
	added, err := f.store.AddPatient(context.Background(), in)
	require.NoError(t, err)

	list, err := f.store.ReloadPatients(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	got := list[0]
	assert.Equal(t, added.ID, got.ID)
	assert.NotEmpty(t, got.PhotoURL)

	got.ID = primitive.NilObjectID
	got.Code = ""
	got.CreatedAt = time.Time{}
	got.PhotoURL = ""
	assert.Equal(t, models.Patient{
		CaregiverID:  "cg-1",
		Cedula:       in.Cedula,
		Name:         in.Name,
		Surname:      in.Surname,
		Age:          in.Age,
		BloodType:    in.BloodType,
		ContactName:  in.ContactName,
		ContactPhone: in.ContactPhone,
	}, got)
}

func TestAddPatient_LostCodeRaceKeepsWinnerPhoto(t *testing.T) {
	f := newCareFixture(t, servicestest.Caregiver("cg-1"))
	in := patientInput("0102030455")
	in.Photo = bytes.NewReader([]byte("winner"))
	winner, err := f.store.AddPatient(context.Background(), in)
	require.NoError(t, err)

	// A second request that passed the code check before the winner was written.
	racing := servicestest.NewPatients()
	racing.FailCreate = repository.ErrDuplicate
	loser := NewCareStore(CareDeps{
		Identity:      f.identity,
		Patients:      racing,
		Medications:   f.medications,
		HealthRecords: f.records,
		Appointments:  f.appointments,
		Photos:        f.photos,
		Bus:           f.bus,
		Log:           zap.NewNop(),
	})
	in = patientInput("0102030455")
	in.Photo = bytes.NewReader([]byte("loser"))
	_, err = loser.AddPatient(context.Background(), in)

	assert.ErrorIs(t, err, apperr.ErrCodeInUse)
	require.Equal(t, 1, f.photos.Len())
	key := strings.TrimPrefix(winner.PhotoURL, "https://photos.test/")
	assert.Equal(t, []byte("winner"), f.photos.Objects[key])
}

func TestPatientAccess(t *testing.T) {
	f := newCareFixture(t, servicestest.Caregiver("cg-1"))
	p := f.add(t, "0102030001")
	ctx := context.Background()

	got, err := f.store.Patient(ctx, p.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, p.Code, got.Code)

	_, err = f.store.Patient(ctx, "not-an-id")
	assert.ErrorIs(t, err, apperr.ErrPatientNotFound)

	f.identity.Set(servicestest.Caregiver("cg-2"))
	_, err = f.store.Patient(ctx, p.ID.Hex())
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	f.identity.Set(servicestest.Elder(p))
	own, err := f.store.ElderPatient(ctx)
	require.NoError(t, err)
	assert.Equal(t, p.ID, own.ID)
	_, err = f.store.UpdatePatient(ctx, p.ID.Hex(), models.PatientUpdate{})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = f.store.ListHealthRecords(ctx, p.ID.Hex(), 0)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestUpdatePatientAndAssignGame(t *testing.T) {
	f := newCareFixture(t, servicestest.Caregiver("cg-1"))
	p := f.add(t, "0102030001")
	ctx := context.Background()

	age := 82
	updated, err := f.store.UpdatePatient(ctx, p.ID.Hex(), models.PatientUpdate{Age: &age})
	require.NoError(t, err)
	assert.Equal(t, 82, updated.Age)
	assert.Equal(t, 82, f.store.Patients()[0].Age)

	assert.ErrorIs(t, f.store.AssignGame(ctx, p.ID.Hex(), "game9"), apperr.ErrInvalidInput)
	require.NoError(t, f.store.AssignGame(ctx, p.ID.Hex(), models.GameMemory))
	assert.Equal(t, models.GameMemory, f.store.Patients()[0].AssignedGame)

	stored, err := f.patients.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.GameMemory, stored.AssignedGame)
	assert.Equal(t, 82, stored.Age)
}

func TestPatientReadThroughCache(t *testing.T) {
	mr := miniredis.RunT(t)
	f := newCareFixture(t, servicestest.Caregiver("cg-1"))
	f.store.cache = cache.NewRedis(cache.Dial(mr.Addr(), "", 0), time.Minute)
	p := f.add(t, "0102030001")
	ctx := context.Background()

	before := f.patients.Finds
	_, err := f.store.Patient(ctx, p.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, before, f.patients.Finds)

	mr.FlushAll()
	_, err = f.store.Patient(ctx, p.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, before+1, f.patients.Finds)
}

func TestFailedPatientWriteEvictsCache(t *testing.T) {
	mr := miniredis.RunT(t)
	f := newCareFixture(t, servicestest.Caregiver("cg-1"))
	f.store.cache = cache.NewRedis(cache.Dial(mr.Addr(), "", 0), time.Minute)
	p := f.add(t, "0102030001")
	ctx := context.Background()
	key := cache.PatientKey + p.ID.Hex()
	require.True(t, mr.Exists(key))

	f.patients.FailUpdate = errors.New("timeout")
	err := f.store.AssignGame(ctx, p.ID.Hex(), models.GameMemory)
	assert.ErrorIs(t, err, apperr.ErrWriteFailed)
	assert.False(t, mr.Exists(key))

	_, err = f.store.Patient(ctx, p.ID.Hex())
	require.NoError(t, err)
	require.True(t, mr.Exists(key))

	age := 90
	_, err = f.store.UpdatePatient(ctx, p.ID.Hex(), models.PatientUpdate{Age: &age})
	assert.ErrorIs(t, err, apperr.ErrWriteFailed)
	assert.False(t, mr.Exists(key))
}

func medicationInput() models.MedicationInput {
	return models.MedicationInput{
		Type:         "Tableta",
		Name:         "Losartan",
		DailyDose:    2,
		Schedule:     []string{"20:00", "08:00", "14:00"},
		StartDate:    time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		DaysOfWeek:   []string{"Mon", "Wed"},
		DurationDays: 10,
	}
}

func TestMedications(t *testing.T) {
	f := newCareFixture(t, servicestest.Caregiver("cg-1"))
	p := f.add(t, "0102030001")
	ctx := context.Background()

	m, err := f.store.AssignMedication(ctx, p.ID.Hex(), medicationInput())
	require.NoError(t, err)
	assert.Equal(t, models.MedicationTablet, m.Type)
	assert.Equal(t, []string{"20:00", "08:00"}, m.Schedule)

	doses, err := f.store.MedicationsDueOn(ctx, p.ID.Hex(), careNow)
	require.NoError(t, err)
	require.Len(t, doses, 2)
	assert.Equal(t, "08:00", doses[0].Time)

	doses, err = f.store.MedicationsDueOn(ctx, p.ID.Hex(), careNow.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Empty(t, doses)

	one := 1
	updated, err := f.store.UpdateMedication(ctx, p.ID.Hex(), m.ID.Hex(), models.MedicationUpdate{DailyDose: &one})
	require.NoError(t, err)
	assert.Equal(t, []string{"20:00"}, updated.Schedule)

	_, err = f.store.UpdateMedication(ctx, p.ID.Hex(), "ffffffffffffffffffffffff", models.MedicationUpdate{DailyDose: &one})
	assert.ErrorIs(t, err, apperr.ErrMedicationNotFound)

	require.NoError(t, f.store.RemoveMedication(ctx, p.ID.Hex(), m.ID.Hex()))
	list, err := f.store.ListMedications(ctx, p.ID.Hex())
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.ErrorIs(t, f.store.RemoveMedication(ctx, p.ID.Hex(), m.ID.Hex()), apperr.ErrMedicationNotFound)
}

func TestElderReadsOwnMedications(t *testing.T) {
	f := newCareFixture(t, servicestest.Caregiver("cg-1"))
	p := f.add(t, "0102030001")
	_, err := f.store.AssignMedication(context.Background(), p.ID.Hex(), medicationInput())
	require.NoError(t, err)

	f.identity.Set(servicestest.Elder(p))
	list, err := f.store.ListMedications(context.Background(), p.ID.Hex())
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = f.store.AssignMedication(context.Background(), p.ID.Hex(), medicationInput())
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestFinishExpiredCourses(t *testing.T) {
	f := newCareFixture(t, servicestest.Caregiver("cg-1"))
	p := f.add(t, "0102030001")
	ctx := context.Background()
	_, err := f.store.AssignMedication(ctx, p.ID.Hex(), medicationInput())
	require.NoError(t, err)
	var finished []events.Event
	f.bus.Subscribe(func(e events.Event) {
		if e.Type == events.MedicationsFinished {
			finished = append(finished, e)
		}
	})

	n, err := f.store.FinishExpiredCourses(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	f.store.now = func() time.Time { return careNow.AddDate(0, 0, 30) }
	n, err = f.store.FinishExpiredCourses(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Len(t, finished, 1)

	list, err := f.store.ListMedications(ctx, p.ID.Hex())
	require.NoError(t, err)
	assert.True(t, list[0].Finished)
}

func float(v float64) *float64 { return &v }

func TestHealthRecords(t *testing.T) {
	f := newCareFixture(t, servicestest.Caregiver("cg-1"))
	p := f.add(t, "0102030001")
	ctx := context.Background()

	_, err := f.store.AddHealthRecord(ctx, p.ID.Hex(), models.Measurement{})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	first, err := f.store.AddHealthRecord(ctx, p.ID.Hex(), models.Measurement{Weight: float(70), Temperature: float(36.5)})
	require.NoError(t, err)
	assert.Equal(t, careNow, first.DateTime)

	f.store.now = func() time.Time { return careNow.Add(time.Hour) }
	_, err = f.store.AddHealthRecord(ctx, p.ID.Hex(), models.Measurement{Weight: float(72), BloodPressure: &models.BloodPressure{Sys: 120, Dia: 80}})
	require.NoError(t, err)

	list, err := f.store.ListHealthRecords(ctx, p.ID.Hex(), 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, 72.0, *list[0].Weight)

	limited, err := f.store.ListHealthRecords(ctx, p.ID.Hex(), 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	sum, err := f.store.HealthSummary(ctx, p.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Records)
	assert.Equal(t, 72.0, sum.Weight.Value)
	assert.InDelta(t, 71.0, *sum.AverageWeight, 1e-9)
	assert.Equal(t, "120/80", sum.BloodPressure.String())

	updated, err := f.store.UpdateHealthRecord(ctx, p.ID.Hex(), first.ID.Hex(), models.HealthRecordUpdate{Measurement: models.Measurement{Oxygen: float(97)}})
	require.NoError(t, err)
	assert.Equal(t, 97.0, *updated.Oxygen)
	assert.Equal(t, 70.0, *updated.Weight)

	require.NoError(t, f.store.RemoveHealthRecord(ctx, p.ID.Hex(), first.ID.Hex()))
	list, err = f.store.ListHealthRecords(ctx, p.ID.Hex(), 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestAppointments(t *testing.T) {
	f := newCareFixture(t, servicestest.Caregiver("cg-1"))
	p := f.add(t, "0102030001")
	ctx := context.Background()

	late, err := f.store.AssignAppointment(ctx, p.ID.Hex(), models.AppointmentInput{DoctorName: "Dr. Paz", DateTime: careNow.AddDate(0, 0, 7)})
	require.NoError(t, err)
	_, err = f.store.AssignAppointment(ctx, p.ID.Hex(), models.AppointmentInput{DoctorName: "Dr. Luna", Specialization: "Cardiology", DateTime: careNow.AddDate(0, 0, 2)})
	require.NoError(t, err)
	_, err = f.store.AssignAppointment(ctx, p.ID.Hex(), models.AppointmentInput{DateTime: careNow})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	list, err := f.store.ListAppointments(ctx, p.ID.Hex())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Dr. Luna", list[0].DoctorName)

	when := careNow.AddDate(0, 0, 1)
	updated, err := f.store.UpdateAppointment(ctx, p.ID.Hex(), late.ID.Hex(), models.AppointmentUpdate{DateTime: &when})
	require.NoError(t, err)
	assert.Equal(t, when, updated.DateTime)

	list, err = f.store.ListAppointments(ctx, p.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, "Dr. Paz", list[0].DoctorName)

	require.NoError(t, f.store.RemoveAppointment(ctx, p.ID.Hex(), late.ID.Hex()))
	assert.ErrorIs(t, f.store.RemoveAppointment(ctx, p.ID.Hex(), late.ID.Hex()), apperr.ErrAppointmentNotFound)
}
