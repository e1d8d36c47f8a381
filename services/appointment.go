package services

import (
	"context"

	"ElderCare360/apperr"
	"ElderCare360/events"
	"ElderCare360/models"
	"ElderCare360/role"

	"go.uber.org/zap"
)

func (s *CareStore) AssignAppointment(ctx context.Context, patientID string, in models.AppointmentInput) (a *models.Appointment, err error) {
	defer func() { s.metrics.Observe("assignAppointment", err) }()

	p, err := s.access(ctx, patientID, role.ResourceAppointment, role.ActionCreate)
	if err != nil {
		return nil, err
	}
	a, err = in.Build(p.ID, s.now().UTC())
	if err != nil {
		return nil, err
	}
	id, err := s.appointments.Create(ctx, a)
	if err != nil {
		s.log.Error("Error from appointments create", zap.Error(err))
		return nil, apperr.ErrWriteFailed.WithCause(err)
	}
	a.ID = id
	s.publish(ctx, events.AppointmentCreated, p.ID, a)
	return a, nil
}

func (s *CareStore) UpdateAppointment(ctx context.Context, patientID, appointmentID string, u models.AppointmentUpdate) (a *models.Appointment, err error) {
	defer func() { s.metrics.Observe("updateAppointment", err) }()

	p, err := s.access(ctx, patientID, role.ResourceAppointment, role.ActionUpdate)
	if err != nil {
		return nil, err
	}
	oid, err := parseID(appointmentID, apperr.ErrAppointmentNotFound)
	if err != nil {
		return nil, err
	}
	set, err := u.Fields()
	if err != nil {
		return nil, err
	}
	if err := s.appointments.Update(ctx, p.ID, oid, set); err != nil {
		s.log.Error("Error from appointments update", zap.Error(err))
		return nil, writeErr(err, apperr.ErrAppointmentNotFound)
	}
	a, err = s.appointments.Find(ctx, p.ID, oid)
	if err != nil {
		return nil, readErr(err, apperr.ErrAppointmentNotFound)
	}
	s.publish(ctx, events.AppointmentUpdated, p.ID, a)
	return a, nil
}

func (s *CareStore) RemoveAppointment(ctx context.Context, patientID, appointmentID string) (err error) {
	defer func() { s.metrics.Observe("removeAppointment", err) }()

	p, err := s.access(ctx, patientID, role.ResourceAppointment, role.ActionDelete)
	if err != nil {
		return err
	}
	oid, err := parseID(appointmentID, apperr.ErrAppointmentNotFound)
	if err != nil {
		return err
	}
	if err := s.appointments.Delete(ctx, p.ID, oid); err != nil {
		s.log.Error("Error from appointments delete", zap.Error(err))
		return writeErr(err, apperr.ErrAppointmentNotFound)
	}
	s.publish(ctx, events.AppointmentRemoved, p.ID, map[string]string{"id": appointmentID})
	return nil
}

// ListAppointments returns the patient's appointments, earliest first.
func (s *CareStore) ListAppointments(ctx context.Context, patientID string) ([]models.Appointment, error) {
	p, err := s.access(ctx, patientID, role.ResourceAppointment, role.ActionView)
	if err != nil {
		return nil, err
	}
	list, err := s.appointments.List(ctx, p.ID, 0)
	if err != nil {
		s.log.Error("Error from appointments list", zap.Error(err))
		return nil, apperr.ErrReadFailed.WithCause(err)
	}
	return list, nil
}
