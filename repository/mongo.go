package repository

import (
	"context"
	"errors"
	"fmt"

	"ElderCare360/config"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound  = errors.New("document not found")
	ErrDuplicate = errors.New("duplicate key")
)

const (
	UserCollection         = "users"
	CredentialCollection   = "credentials"
	PatientCollection      = "patients"
	MedicationCollection   = "medications"
	HealthRecordCollection = "healthRecords"
	AppointmentCollection  = "appointments"
	ElderCollection        = "elders"
)

type Mongo struct {
	Client *mongo.Client
	DB     *mongo.Database
}

func Connect(ctx context.Context, cfg config.MongoConfig) (*Mongo, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI).SetTimeout(cfg.Timeout))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return &Mongo{Client: client, DB: client.Database(cfg.Database)}, nil
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}

func (m *Mongo) OpenCollection(name string) *mongo.Collection {
	return m.DB.Collection(name)
}

/*
* Unique email on credentials and unique code on patients
* The code index only covers string codes so patients without one never collide
* Patients are listed per caregiver in creation order
* Sub-collections are always scoped by patientId and ordered by dateTime
 */
func (m *Mongo) EnsureIndexes(ctx context.Context) error {
	for name, idx := range indexModels() {
		if _, err := m.OpenCollection(name).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("create indexes on %s: %w", name, err)
		}
	}
	return nil
}

func indexModels() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		CredentialCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		PatientCollection: {
			{Keys: bson.D{{Key: "code", Value: 1}}, Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"code": bson.M{"$type": "string"}})},
			{Keys: bson.D{{Key: "caregiverId", Value: 1}, {Key: "createdAt", Value: 1}}},
		},
		MedicationCollection: {
			{Keys: bson.D{{Key: "patientId", Value: 1}, {Key: "createdAt", Value: 1}}},
			{Keys: bson.D{{Key: "finished", Value: 1}}},
		},
		HealthRecordCollection: {
			{Keys: bson.D{{Key: "patientId", Value: 1}, {Key: "dateTime", Value: -1}}},
		},
		AppointmentCollection: {
			{Keys: bson.D{{Key: "patientId", Value: 1}, {Key: "dateTime", Value: 1}}},
		},
	}
}

func FindOne(ctx context.Context, coll *mongo.Collection, filter interface{}, out interface{}) error {
	err := coll.FindOne(ctx, filter).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}

func FindAll[T any](ctx context.Context, coll *mongo.Collection, filter interface{}, opts ...*options.FindOptions) ([]T, error) {
	cur, err := coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	out := []T{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateOne inserts doc and returns the generated ObjectID when the driver made one.
func CreateOne(ctx context.Context, coll *mongo.Collection, doc interface{}) (primitive.ObjectID, error) {
	res, err := coll.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, ErrDuplicate
		}
		return primitive.NilObjectID, err
	}
	id, _ := res.InsertedID.(primitive.ObjectID)
	return id, nil
}

func UpdateOne(ctx context.Context, coll *mongo.Collection, filter, update interface{}) error {
	res, err := coll.UpdateOne(ctx, filter, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func DeleteOne(ctx context.Context, coll *mongo.Collection, filter interface{}) error {
	res, err := coll.DeleteOne(ctx, filter)
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
