package services

import (
	"context"
	"time"

	"ElderCare360/apperr"
	"ElderCare360/events"
	"ElderCare360/models"
	"ElderCare360/role"

	"go.uber.org/zap"
)

func (s *CareStore) AssignMedication(ctx context.Context, patientID string, in models.MedicationInput) (m *models.Medication, err error) {
	defer func() { s.metrics.Observe("assignMedication", err) }()

	p, err := s.access(ctx, patientID, role.ResourceMedication, role.ActionCreate)
	if err != nil {
		return nil, err
	}
	m, err = in.Build(p.ID, s.now().UTC())
	if err != nil {
		return nil, err
	}
	id, err := s.medications.Create(ctx, m)
	if err != nil {
		s.log.Error("Error from medications create", zap.Error(err))
		return nil, apperr.ErrWriteFailed.WithCause(err)
	}
	m.ID = id
	s.publish(ctx, events.MedicationCreated, p.ID, m)
	return m, nil
}

/*
* Load the current document, the update is validated against it
* Write the changed fields and return the stored document
 */
func (s *CareStore) UpdateMedication(ctx context.Context, patientID, medicationID string, u models.MedicationUpdate) (m *models.Medication, err error) {
	defer func() { s.metrics.Observe("updateMedication", err) }()

	p, err := s.access(ctx, patientID, role.ResourceMedication, role.ActionUpdate)
	if err != nil {
		return nil, err
	}
	oid, err := parseID(medicationID, apperr.ErrMedicationNotFound)
	if err != nil {
		return nil, err
	}
	current, err := s.medications.Find(ctx, p.ID, oid)
	if err != nil {
		return nil, readErr(err, apperr.ErrMedicationNotFound)
	}
	set, err := u.Fields(current)
	if err != nil {
		return nil, err
	}
	if err := s.medications.Update(ctx, p.ID, oid, set); err != nil {
		s.log.Error("Error from medications update", zap.Error(err))
		return nil, writeErr(err, apperr.ErrMedicationNotFound)
	}
	m, err = s.medications.Find(ctx, p.ID, oid)
	if err != nil {
		return nil, readErr(err, apperr.ErrMedicationNotFound)
	}
	s.publish(ctx, events.MedicationUpdated, p.ID, m)
	return m, nil
}

func (s *CareStore) RemoveMedication(ctx context.Context, patientID, medicationID string) (err error) {
	defer func() { s.metrics.Observe("removeMedication", err) }()

	p, err := s.access(ctx, patientID, role.ResourceMedication, role.ActionDelete)
	if err != nil {
		return err
	}
	oid, err := parseID(medicationID, apperr.ErrMedicationNotFound)
	if err != nil {
		return err
	}
	if err := s.medications.Delete(ctx, p.ID, oid); err != nil {
		s.log.Error("Error from medications delete", zap.Error(err))
		return writeErr(err, apperr.ErrMedicationNotFound)
	}
	s.publish(ctx, events.MedicationRemoved, p.ID, map[string]string{"id": medicationID})
	return nil
}

func (s *CareStore) ListMedications(ctx context.Context, patientID string) ([]models.Medication, error) {
	p, err := s.access(ctx, patientID, role.ResourceMedication, role.ActionView)
	if err != nil {
		return nil, err
	}
	list, err := s.medications.List(ctx, p.ID, 0)
	if err != nil {
		s.log.Error("Error from medications list", zap.Error(err))
		return nil, apperr.ErrReadFailed.WithCause(err)
	}
	return list, nil
}

// MedicationsDueOn lists the doses scheduled for the patient on day.
func (s *CareStore) MedicationsDueOn(ctx context.Context, patientID string, day time.Time) ([]models.Dose, error) {
	list, err := s.ListMedications(ctx, patientID)
	if err != nil {
		return nil, err
	}
	return models.DosesOn(list, day), nil
}

// FinishExpiredCourses flags finished courses for every patient. It runs from the scheduler, not on behalf of an identity.
func (s *CareStore) FinishExpiredCourses(ctx context.Context) (n int64, err error) {
	defer func() { s.metrics.Observe("finishExpiredCourses", err) }()

	n, err = s.medications.FinishExpired(ctx, s.now().UTC())
	if err != nil {
		s.log.Error("Error from FinishExpired", zap.Error(err))
		return 0, apperr.ErrWriteFailed.WithCause(err)
	}
	if n > 0 {
		s.bus.Publish(ctx, events.Event{Type: events.MedicationsFinished, Payload: map[string]int64{"count": n}})
	}
	return n, nil
}
