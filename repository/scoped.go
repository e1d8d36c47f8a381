package repository

import (
	"context"
	"time"

	"ElderCare360/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Scoped is a collection whose documents belong to one patient through patientId.
// Every query carries the patient id so one patient can never reach another's documents.
type Scoped[T any] struct {
	coll  *mongo.Collection
	order bson.D
}

func (s *Scoped[T]) Create(ctx context.Context, doc *T) (primitive.ObjectID, error) {
	return CreateOne(ctx, s.coll, doc)
}

func (s *Scoped[T]) Find(ctx context.Context, patientID, id primitive.ObjectID) (*T, error) {
	out := new(T)
	if err := FindOne(ctx, s.coll, bson.M{"_id": id, "patientId": patientID}, out); err != nil {
		return nil, err
	}
	return out, nil
}

// List returns the patient's documents in collection order. A limit of zero means all.
func (s *Scoped[T]) List(ctx context.Context, patientID primitive.ObjectID, limit int) ([]T, error) {
	opts := options.Find().SetSort(s.order)
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return FindAll[T](ctx, s.coll, bson.M{"patientId": patientID}, opts)
}

func (s *Scoped[T]) Update(ctx context.Context, patientID, id primitive.ObjectID, set map[string]interface{}) error {
	return UpdateOne(ctx, s.coll, bson.M{"_id": id, "patientId": patientID}, bson.M{"$set": set})
}

func (s *Scoped[T]) Delete(ctx context.Context, patientID, id primitive.ObjectID) error {
	return DeleteOne(ctx, s.coll, bson.M{"_id": id, "patientId": patientID})
}

type Medications struct {
	*Scoped[models.Medication]
}

func NewMedications(m *Mongo) *Medications {
	return &Medications{&Scoped[models.Medication]{
		coll:  m.OpenCollection(MedicationCollection),
		order: bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}},
	}}
}

// FinishExpired flags every course whose startDate plus durationDays is not after now.
func (r *Medications) FinishExpired(ctx context.Context, now time.Time) (int64, error) {
	filter := bson.M{
		"finished": bson.M{"$ne": true},
		"$expr": bson.M{"$lte": bson.A{
			bson.M{"$dateAdd": bson.M{"startDate": "$startDate", "unit": "day", "amount": "$durationDays"}},
			now,
		}},
	}
	res, err := r.coll.UpdateMany(ctx, filter, bson.M{"$set": bson.M{"finished": true}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func NewHealthRecords(m *Mongo) *Scoped[models.HealthRecord] {
	return &Scoped[models.HealthRecord]{
		coll:  m.OpenCollection(HealthRecordCollection),
		order: bson.D{{Key: "dateTime", Value: -1}, {Key: "_id", Value: -1}},
	}
}

func NewAppointments(m *Mongo) *Scoped[models.Appointment] {
	return &Scoped[models.Appointment]{
		coll:  m.OpenCollection(AppointmentCollection),
		order: bson.D{{Key: "dateTime", Value: 1}, {Key: "_id", Value: 1}},
	}
}
