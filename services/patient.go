package services

import (
	"context"
	"errors"

	"ElderCare360/apperr"
	"ElderCare360/events"
	"ElderCare360/models"
	"ElderCare360/repository"
	"ElderCare360/role"
	"ElderCare360/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

/*
* Validate the input and derive the elder code from the cedula
* Reject a code that is already in use
* Upload the photo if one was given, under a key of its own
* Write the patient, on failure remove the uploaded photo again
* A photo that cannot be removed is reported as a partial write
* Publish, cache and reload the list
 */
func (s *CareStore) AddPatient(ctx context.Context, in models.PatientInput) (p *models.Patient, err error) {
	defer func() { s.metrics.Observe("addPatient", err) }()

	id := s.identity.Current()
	if err := requireRole(id, role.ResourcePatient, role.ActionCreate); err != nil {
		return nil, err
	}
	if err := in.Normalize(); err != nil {
		return nil, err
	}
	code := models.DeriveCode(in.Cedula)

	if _, err := s.patients.FindByCode(ctx, code); err == nil {
		return nil, apperr.ErrCodeInUse.WithMessage("patient code %s already in use", code)
	} else if !errors.Is(err, repository.ErrNotFound) {
		s.log.Error("Error from FindByCode", zap.Error(err))
		return nil, apperr.ErrReadFailed.WithCause(err)
	}

	var photoKey, photoURL string
	if in.Photo != nil {
		if s.photos == nil {
			return nil, apperr.ErrPhotoUpload.WithMessage("photo storage is not configured")
		}
		photoKey = storage.PhotoKey(id.UID(), in.Cedula, uuid.NewString())
		photoURL, err = s.photos.Put(ctx, photoKey, in.Photo, in.PhotoContentType)
		if err != nil {
			s.log.Error("Error from photo upload", zap.String("key", photoKey), zap.Error(err))
			return nil, apperr.ErrPhotoUpload.WithCause(err)
		}
	}

	p = &models.Patient{
		CaregiverID:  id.UID(),
		Cedula:       in.Cedula,
		Code:         code,
		Name:         in.Name,
		Surname:      in.Surname,
		Age:          in.Age,
		BloodType:    in.BloodType,
		ContactName:  in.ContactName,
		ContactPhone: in.ContactPhone,
		PhotoURL:     photoURL,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.patients.Create(ctx, p); err != nil {
		s.log.Error("Error from patients create", zap.Error(err))
		var failure error = apperr.ErrWriteFailed.WithCause(err)
		if errors.Is(err, repository.ErrDuplicate) {
			failure = apperr.ErrCodeInUse.WithMessage("patient code %s already in use", code)
		}
		if photoKey != "" {
			if delErr := s.photos.Delete(ctx, photoKey); delErr != nil {
				s.log.Error("Orphaned patient photo", zap.String("key", photoKey), zap.Error(delErr))
				return nil, apperr.ErrPartialWrite.WithCause(errors.Join(err, delErr))
			}
		}
		return nil, failure
	}

	if err := s.cache.SetPatient(ctx, p); err != nil {
		s.log.Debug("Patient cache write failed", zap.Error(err))
	}
	s.publish(ctx, events.PatientCreated, p.ID, p)
	if _, err := s.ReloadPatients(ctx); err != nil {
		s.log.Warn("Patient reload after add failed", zap.Error(err))
	}
	return p, nil
}

// evict drops a cached patient whose remote state is unknown after a failed write.
func (s *CareStore) evict(ctx context.Context, patientID string) {
	if err := s.cache.DeletePatient(ctx, patientID); err != nil {
		s.log.Warn("Patient cache evict failed", zap.String("patient", patientID), zap.Error(err))
	}
}

func (s *CareStore) Patient(ctx context.Context, patientID string) (*models.Patient, error) {
	return s.access(ctx, patientID, role.ResourcePatient, role.ActionView)
}

// ElderPatient returns the patient record of the signed-in elder.
func (s *CareStore) ElderPatient(ctx context.Context) (*models.Patient, error) {
	id := s.identity.Current()
	if id.Elder == nil {
		if id.IsNone() {
			return nil, apperr.ErrNotSignedIn
		}
		return nil, apperr.ErrForbidden
	}
	return s.fetchPatient(ctx, id.Elder.ID)
}

func (s *CareStore) UpdatePatient(ctx context.Context, patientID string, u models.PatientUpdate) (p *models.Patient, err error) {
	defer func() { s.metrics.Observe("updatePatient", err) }()

	p, err = s.access(ctx, patientID, role.ResourcePatient, role.ActionUpdate)
	if err != nil {
		return nil, err
	}
	set, err := u.Fields()
	if err != nil {
		return nil, err
	}
	if err := s.patients.Update(ctx, p.ID, set); err != nil {
		s.log.Error("Error from patients update", zap.Error(err))
		s.evict(ctx, p.ID.Hex())
		return nil, writeErr(err, apperr.ErrPatientNotFound)
	}
	updated := *p
	updated.Apply(set)
	if err := s.cache.SetPatient(ctx, &updated); err != nil {
		s.log.Debug("Patient cache write failed", zap.Error(err))
	}
	s.replaceInList(&updated)
	s.publish(ctx, events.PatientUpdated, updated.ID, set)
	return &updated, nil
}

/*
* Only the four known games can be assigned
* Write the remote document first
* Then update the cached patient and the list in the same call
 */
func (s *CareStore) AssignGame(ctx context.Context, patientID string, game models.GameID) (err error) {
	defer func() { s.metrics.Observe("assignGame", err) }()

	p, err := s.access(ctx, patientID, role.ResourceGame, role.ActionAssign)
	if err != nil {
		return err
	}
	if !game.Valid() {
		return apperr.Invalid("unknown game %q", game)
	}
	if err := s.patients.Update(ctx, p.ID, map[string]interface{}{"assignedGame": game}); err != nil {
		s.log.Error("Error from assign game", zap.Error(err))
		s.evict(ctx, p.ID.Hex())
		return writeErr(err, apperr.ErrPatientNotFound)
	}
	updated := *p
	updated.AssignedGame = game
	if err := s.cache.SetPatient(ctx, &updated); err != nil {
		s.log.Debug("Patient cache write failed", zap.Error(err))
	}
	s.replaceInList(&updated)
	s.publish(ctx, events.GameAssigned, updated.ID, map[string]interface{}{"assignedGame": game})
	return nil
}
