package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"ElderCare360/apperr"
	"ElderCare360/cache"
	"ElderCare360/events"
	"ElderCare360/metrics"
	"ElderCare360/models"
	"ElderCare360/repository"
	"ElderCare360/role"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type CareDeps struct {
	Identity      IdentitySource
	Patients      PatientRepository
	Medications   MedicationRepository
	HealthRecords ScopedRepository[models.HealthRecord]
	Appointments  ScopedRepository[models.Appointment]
	Photos        PhotoStore
	Cache         PatientCache
	Bus           *events.Bus
	Log           *zap.Logger
	Metrics       *metrics.Metrics
	WatchWindow   int
	PollInterval  time.Duration
}

// CareStore holds the patient list of the current identity and every care record operation.
type CareStore struct {
	identity     IdentitySource
	patients     PatientRepository
	medications  MedicationRepository
	records      ScopedRepository[models.HealthRecord]
	appointments ScopedRepository[models.Appointment]
	photos       PhotoStore
	cache        PatientCache
	bus          *events.Bus
	log          *zap.Logger
	metrics      *metrics.Metrics
	now          func() time.Time
	watchWindow  int
	pollInterval time.Duration

	mu         sync.RWMutex
	list       []models.Patient
	loading    bool
	generation uint64
}

func NewCareStore(d CareDeps) *CareStore {
	if d.Cache == nil {
		d.Cache = cache.Noop{}
	}
	if d.WatchWindow < 1 {
		d.WatchWindow = 50
	}
	if d.PollInterval <= 0 {
		d.PollInterval = 15 * time.Second
	}
	return &CareStore{
		identity:     d.Identity,
		patients:     d.Patients,
		medications:  d.Medications,
		records:      d.HealthRecords,
		appointments: d.Appointments,
		photos:       d.Photos,
		cache:        d.Cache,
		bus:          d.Bus,
		log:          d.Log,
		metrics:      d.Metrics,
		now:          time.Now,
		watchWindow:  d.WatchWindow,
		pollInterval: d.PollInterval,
		list:         []models.Patient{},
	}
}

/*
* Subscribe to identity changes
* The previous identity's list is dropped before the reload starts
* so nothing of it is visible to the next identity
 */
func (s *CareStore) Attach() (detach func()) {
	return s.identity.Subscribe(func(models.Identity) {
		s.mu.Lock()
		s.generation++
		s.list = []models.Patient{}
		s.mu.Unlock()
		if _, err := s.ReloadPatients(context.Background()); err != nil {
			s.log.Warn("Patient reload after identity change failed", zap.Error(err))
		}
	})
}

func (s *CareStore) Patients() []models.Patient {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Patient(nil), s.list...)
}

func (s *CareStore) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

/*
* Caregivers and familiar members get the patients they registered
* An elder gets their own patient record
* Nobody signed in gets an empty list
* A reload that finishes after an identity change is discarded
 */
func (s *CareStore) ReloadPatients(ctx context.Context) (list []models.Patient, err error) {
	defer func() { s.metrics.Observe("reloadPatients", err) }()

	id := s.identity.Current()
	s.mu.Lock()
	gen := s.generation
	s.loading = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
	}()

	list = []models.Patient{}
	switch {
	case id.Account != nil:
		list, err = s.patients.ListByCaregiver(ctx, id.Account.ID)
	case id.Elder != nil:
		var p *models.Patient
		p, err = s.fetchPatient(ctx, id.Elder.ID)
		if err == nil {
			list = []models.Patient{*p}
		} else if errors.Is(err, apperr.ErrPatientNotFound) {
			err = nil
		}
	}
	if err != nil {
		s.log.Error("Error from patient reload", zap.Error(err))
		return nil, apperr.ErrReadFailed.WithCause(err)
	}

	s.mu.Lock()
	if gen == s.generation {
		s.list = list
	}
	s.mu.Unlock()
	for i := range list {
		if err := s.cache.SetPatient(ctx, &list[i]); err != nil {
			s.log.Debug("Patient cache write failed", zap.Error(err))
		}
	}
	return append([]models.Patient(nil), list...), nil
}

func (s *CareStore) replaceInList(p *models.Patient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.list {
		if s.list[i].ID == p.ID {
			s.list[i] = *p
			return
		}
	}
}

// fetchPatient reads through the patient cache.
func (s *CareStore) fetchPatient(ctx context.Context, patientID string) (*models.Patient, error) {
	oid, err := primitive.ObjectIDFromHex(patientID)
	if err != nil {
		return nil, apperr.ErrPatientNotFound
	}
	if p, err := s.cache.GetPatient(ctx, patientID); err == nil {
		return p, nil
	} else if !errors.Is(err, cache.ErrMiss) {
		s.log.Debug("Patient cache read failed", zap.Error(err))
	}
	p, err := s.patients.FindByID(ctx, oid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.ErrPatientNotFound
		}
		s.log.Error("Error from patients FindByID", zap.Error(err))
		return nil, apperr.ErrReadFailed.WithCause(err)
	}
	if err := s.cache.SetPatient(ctx, p); err != nil {
		s.log.Debug("Patient cache write failed", zap.Error(err))
	}
	return p, nil
}

func requireRole(id models.Identity, resource, action string) error {
	if id.IsNone() {
		return apperr.ErrNotSignedIn
	}
	if !role.Can(id.Role(), resource, action) {
		return apperr.ErrForbidden
	}
	return nil
}

/*
* Check the role may perform action on resource
* Load the patient
* Accounts may only reach patients they registered
* An elder may only reach their own patient
 */
func (s *CareStore) access(ctx context.Context, patientID, resource, action string) (*models.Patient, error) {
	id := s.identity.Current()
	if err := requireRole(id, resource, action); err != nil {
		return nil, err
	}
	p, err := s.fetchPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	switch {
	case id.Account != nil && p.CaregiverID == id.Account.ID:
		return p, nil
	case id.Elder != nil && p.ID.Hex() == id.Elder.ID:
		return p, nil
	}
	return nil, apperr.ErrForbidden
}

func (s *CareStore) publish(ctx context.Context, t events.Type, patientID primitive.ObjectID, payload any) {
	s.bus.Publish(ctx, events.Event{Type: t, PatientID: patientID.Hex(), Payload: payload})
}

// writeErr maps a repository write failure to the store's error taxonomy.
func writeErr(err error, notFound *apperr.Error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return notFound
	}
	return apperr.ErrWriteFailed.WithCause(err)
}

func readErr(err error, notFound *apperr.Error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return notFound
	}
	return apperr.ErrReadFailed.WithCause(err)
}

func parseID(id string, notFound *apperr.Error) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, notFound
	}
	return oid, nil
}
