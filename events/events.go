package events

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Type string

const (
	PatientCreated      Type = "patient.created"
	PatientUpdated      Type = "patient.updated"
	GameAssigned        Type = "game.assigned"
	MedicationCreated   Type = "medication.created"
	MedicationUpdated   Type = "medication.updated"
	MedicationRemoved   Type = "medication.removed"
	MedicationsFinished Type = "medication.finished"
	HealthRecordCreated Type = "healthRecord.created"
	HealthRecordUpdated Type = "healthRecord.updated"
	HealthRecordRemoved Type = "healthRecord.removed"
	AppointmentCreated  Type = "appointment.created"
	AppointmentUpdated  Type = "appointment.updated"
	AppointmentRemoved  Type = "appointment.removed"
)

// Entity is the part before the dot, e.g. "healthRecord".
func (t Type) Entity() string {
	entity, _, _ := strings.Cut(string(t), ".")
	return entity
}

type Event struct {
	ID        string    `json:"id"`
	Type      Type      `json:"type"`
	PatientID string    `json:"patientId,omitempty"`
	At        time.Time `json:"at"`
	Payload   any       `json:"payload,omitempty"`
}

// Handler runs on the publisher's goroutine and must not block.
type Handler func(Event)

// Sink receives every event after local handlers ran.
type Sink interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

type Bus struct {
	mu       sync.RWMutex
	next     int
	handlers map[int]Handler
	sinks    []Sink
	log      *zap.Logger
}

func NewBus(log *zap.Logger, sinks ...Sink) *Bus {
	return &Bus{handlers: make(map[int]Handler), sinks: sinks, log: log}
}

func (b *Bus) Subscribe(h Handler) (unsubscribe func()) {
	b.mu.Lock()
	id := b.next
	b.next++
	b.handlers[id] = h
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.handlers, id)
			b.mu.Unlock()
		})
	}
}

/*
* Stamp the event id and time when missing
* Copy the handlers under the lock and call them outside it
* Forward to every sink, a failing sink is logged and skipped
 */
func (b *Bus) Publish(ctx context.Context, e Event) {
	if b == nil {
		return
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}

	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.handlers))
	for _, h := range b.handlers {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(e)
	}
	for _, s := range b.sinks {
		if err := s.Publish(ctx, e); err != nil {
			b.log.Warn("Event sink publish failed", zap.String("type", string(e.Type)), zap.Error(err))
		}
	}
}

func (b *Bus) Close() error {
	var first error
	for _, s := range b.sinks {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
