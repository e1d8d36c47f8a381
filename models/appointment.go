package models

import (
	"strings"
	"time"

	"ElderCare360/apperr"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Appointment struct {
	ID             primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	PatientID      primitive.ObjectID `json:"patientId" bson:"patientId"`
	DoctorName     string             `json:"doctorName" bson:"doctorName"`
	Specialization string             `json:"specialization" bson:"specialization"`
	DateTime       time.Time          `json:"dateTime" bson:"dateTime"`
	CreatedAt      time.Time          `json:"createdAt" bson:"createdAt"`
}

type AppointmentInput struct {
	DoctorName     string    `json:"doctorName"`
	Specialization string    `json:"specialization"`
	DateTime       time.Time `json:"dateTime"`
}

func (in AppointmentInput) Build(patientID primitive.ObjectID, now time.Time) (*Appointment, error) {
	doctor := strings.TrimSpace(in.DoctorName)
	if doctor == "" {
		return nil, apperr.Invalid("doctorName is required")
	}
	if in.DateTime.IsZero() {
		return nil, apperr.Invalid("dateTime is required")
	}
	return &Appointment{
		PatientID:      patientID,
		DoctorName:     doctor,
		Specialization: strings.TrimSpace(in.Specialization),
		DateTime:       in.DateTime.UTC(),
		CreatedAt:      now,
	}, nil
}

type AppointmentUpdate struct {
	DoctorName     *string    `json:"doctorName,omitempty"`
	Specialization *string    `json:"specialization,omitempty"`
	DateTime       *time.Time `json:"dateTime,omitempty"`
}

func (u AppointmentUpdate) Fields() (map[string]interface{}, error) {
	set := make(map[string]interface{})
	if u.DoctorName != nil {
		doctor := strings.TrimSpace(*u.DoctorName)
		if doctor == "" {
			return nil, apperr.Invalid("doctorName cannot be empty")
		}
		set["doctorName"] = doctor
	}
	if u.Specialization != nil {
		set["specialization"] = strings.TrimSpace(*u.Specialization)
	}
	if u.DateTime != nil {
		if u.DateTime.IsZero() {
			return nil, apperr.Invalid("dateTime cannot be empty")
		}
		set["dateTime"] = u.DateTime.UTC()
	}
	if len(set) == 0 {
		return nil, apperr.Invalid("nothing to update")
	}
	return set, nil
}
