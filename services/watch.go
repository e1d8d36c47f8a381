package services

import (
	"context"
	"reflect"
	"time"

	"ElderCare360/events"
	"ElderCare360/models"
	"ElderCare360/role"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// WatchHealthRecords streams the newest window health records of the patient, newest first.
func (s *CareStore) WatchHealthRecords(ctx context.Context, patientID string, window int) (<-chan []models.HealthRecord, error) {
	p, err := s.access(ctx, patientID, role.ResourceHealthRecord, role.ActionView)
	if err != nil {
		return nil, err
	}
	return watch(ctx, s, p.ID, events.HealthRecordCreated.Entity(), s.window(window), s.records), nil
}

// WatchAppointments streams the first window appointments of the patient, earliest first.
func (s *CareStore) WatchAppointments(ctx context.Context, patientID string, window int) (<-chan []models.Appointment, error) {
	p, err := s.access(ctx, patientID, role.ResourceAppointment, role.ActionView)
	if err != nil {
		return nil, err
	}
	return watch(ctx, s, p.ID, events.AppointmentCreated.Entity(), s.window(window), s.appointments), nil
}

func (s *CareStore) window(n int) int {
	if n < 1 || n > s.watchWindow {
		return s.watchWindow
	}
	return n
}

/*
* Deliver the first snapshot right away
* Re-read on every bus event for the entity and patient and on every poll tick
* Only snapshots that differ from the last delivered one are sent
* The channel holds one snapshot, a newer one replaces an unread older one
* The channel closes when ctx is done
 */
func watch[T any](ctx context.Context, s *CareStore, patientID primitive.ObjectID, entity string, window int, repo ScopedRepository[T]) <-chan []T {
	out := make(chan []T, 1)
	trigger := make(chan struct{}, 1)
	poke := func() {
		select {
		case trigger <- struct{}{}:
		default:
		}
	}

	unsubscribe := func() {}
	if s.bus != nil {
		unsubscribe = s.bus.Subscribe(func(e events.Event) {
			if e.Type.Entity() == entity && e.PatientID == patientID.Hex() {
				poke()
			}
		})
	}

	go func() {
		defer close(out)
		defer unsubscribe()
		ticker := time.NewTicker(s.pollInterval)
		defer ticker.Stop()

		var last []T
		first := true
		for {
			list, err := repo.List(ctx, patientID, window)
			if list == nil {
				list = []T{}
			}
			switch {
			case err != nil:
				if ctx.Err() != nil {
					return
				}
				s.log.Warn("Error from watch refresh", zap.String("entity", entity), zap.Error(err))
			case first || !reflect.DeepEqual(list, last):
				first = false
				last = list
				deliver(out, list)
			}

			select {
			case <-ctx.Done():
				return
			case <-trigger:
			case <-ticker.C:
			}
		}
	}()
	return out
}

// deliver replaces an unread snapshot with the newer one.
func deliver[T any](out chan []T, v []T) {
	for {
		select {
		case out <- v:
			return
		default:
		}
		select {
		case <-out:
		default:
		}
	}
}
