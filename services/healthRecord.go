package services

import (
	"context"

	"ElderCare360/apperr"
	"ElderCare360/events"
	"ElderCare360/models"
	"ElderCare360/role"

	"go.uber.org/zap"
)

// AddHealthRecord stores a measurement stamped with the store clock.
func (s *CareStore) AddHealthRecord(ctx context.Context, patientID string, m models.Measurement) (rec *models.HealthRecord, err error) {
	defer func() { s.metrics.Observe("addHealthRecord", err) }()

	p, err := s.access(ctx, patientID, role.ResourceHealthRecord, role.ActionCreate)
	if err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	rec = &models.HealthRecord{PatientID: p.ID, Measurement: m, DateTime: s.now().UTC()}
	id, err := s.records.Create(ctx, rec)
	if err != nil {
		s.log.Error("Error from healthRecords create", zap.Error(err))
		return nil, apperr.ErrWriteFailed.WithCause(err)
	}
	rec.ID = id
	s.publish(ctx, events.HealthRecordCreated, p.ID, rec)
	return rec, nil
}

func (s *CareStore) UpdateHealthRecord(ctx context.Context, patientID, recordID string, u models.HealthRecordUpdate) (rec *models.HealthRecord, err error) {
	defer func() { s.metrics.Observe("updateHealthRecord", err) }()

	p, err := s.access(ctx, patientID, role.ResourceHealthRecord, role.ActionUpdate)
	if err != nil {
		return nil, err
	}
	oid, err := parseID(recordID, apperr.ErrHealthRecordNotFound)
	if err != nil {
		return nil, err
	}
	set, err := u.Fields()
	if err != nil {
		return nil, err
	}
	if err := s.records.Update(ctx, p.ID, oid, set); err != nil {
		s.log.Error("Error from healthRecords update", zap.Error(err))
		return nil, writeErr(err, apperr.ErrHealthRecordNotFound)
	}
	rec, err = s.records.Find(ctx, p.ID, oid)
	if err != nil {
		return nil, readErr(err, apperr.ErrHealthRecordNotFound)
	}
	s.publish(ctx, events.HealthRecordUpdated, p.ID, rec)
	return rec, nil
}

func (s *CareStore) RemoveHealthRecord(ctx context.Context, patientID, recordID string) (err error) {
	defer func() { s.metrics.Observe("removeHealthRecord", err) }()

	p, err := s.access(ctx, patientID, role.ResourceHealthRecord, role.ActionDelete)
	if err != nil {
		return err
	}
	oid, err := parseID(recordID, apperr.ErrHealthRecordNotFound)
	if err != nil {
		return err
	}
	if err := s.records.Delete(ctx, p.ID, oid); err != nil {
		s.log.Error("Error from healthRecords delete", zap.Error(err))
		return writeErr(err, apperr.ErrHealthRecordNotFound)
	}
	s.publish(ctx, events.HealthRecordRemoved, p.ID, map[string]string{"id": recordID})
	return nil
}

// ListHealthRecords returns the newest records first. A limit of zero returns all of them.
func (s *CareStore) ListHealthRecords(ctx context.Context, patientID string, limit int) ([]models.HealthRecord, error) {
	p, err := s.access(ctx, patientID, role.ResourceHealthRecord, role.ActionView)
	if err != nil {
		return nil, err
	}
	list, err := s.records.List(ctx, p.ID, limit)
	if err != nil {
		s.log.Error("Error from healthRecords list", zap.Error(err))
		return nil, apperr.ErrReadFailed.WithCause(err)
	}
	return list, nil
}

func (s *CareStore) HealthSummary(ctx context.Context, patientID string) (models.Summary, error) {
	list, err := s.ListHealthRecords(ctx, patientID, 0)
	if err != nil {
		return models.Summary{}, err
	}
	return models.Summarize(list), nil
}
