package repository

import (
	"context"

	"ElderCare360/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Patients struct {
	coll *mongo.Collection
}

func NewPatients(m *Mongo) *Patients {
	return &Patients{coll: m.OpenCollection(PatientCollection)}
}

// Create inserts p and fills in its generated id. A taken code yields ErrDuplicate.
func (r *Patients) Create(ctx context.Context, p *models.Patient) error {
	id, err := CreateOne(ctx, r.coll, p)
	if err != nil {
		return err
	}
	p.ID = id
	return nil
}

func (r *Patients) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Patient, error) {
	p := &models.Patient{}
	if err := FindOne(ctx, r.coll, bson.M{"_id": id}, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *Patients) FindByCode(ctx context.Context, code string) (*models.Patient, error) {
	p := &models.Patient{}
	if err := FindOne(ctx, r.coll, bson.M{"code": code}, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *Patients) ListByCaregiver(ctx context.Context, caregiverID string) ([]models.Patient, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	return FindAll[models.Patient](ctx, r.coll, bson.M{"caregiverId": caregiverID}, opts)
}

func (r *Patients) Update(ctx context.Context, id primitive.ObjectID, set map[string]interface{}) error {
	return UpdateOne(ctx, r.coll, bson.M{"_id": id}, bson.M{"$set": set})
}
