package repository

import (
	"context"
	"time"

	"ElderCare360/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Users holds account profiles keyed by provider uid.
type Users struct {
	coll *mongo.Collection
}

func NewUsers(m *Mongo) *Users {
	return &Users{coll: m.OpenCollection(UserCollection)}
}

func (u *Users) Create(ctx context.Context, a *models.Account) error {
	_, err := CreateOne(ctx, u.coll, a)
	return err
}

func (u *Users) FindByID(ctx context.Context, id string) (*models.Account, error) {
	a := &models.Account{}
	if err := FindOne(ctx, u.coll, bson.M{"_id": id}, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (u *Users) SetLastLogin(ctx context.Context, id string, at time.Time) error {
	return UpdateOne(ctx, u.coll, bson.M{"_id": id}, bson.M{"$set": bson.M{"lastLogin": at}})
}

// Credentials is the provider's own store of emails and password hashes.
type Credentials struct {
	coll *mongo.Collection
}

func NewCredentials(m *Mongo) *Credentials {
	return &Credentials{coll: m.OpenCollection(CredentialCollection)}
}

func (c *Credentials) Create(ctx context.Context, cred *models.Credential) error {
	_, err := CreateOne(ctx, c.coll, cred)
	return err
}

func (c *Credentials) FindByEmail(ctx context.Context, email string) (*models.Credential, error) {
	cred := &models.Credential{}
	if err := FindOne(ctx, c.coll, bson.M{"email": email}, cred); err != nil {
		return nil, err
	}
	return cred, nil
}

func (c *Credentials) FindByID(ctx context.Context, id string) (*models.Credential, error) {
	cred := &models.Credential{}
	if err := FindOne(ctx, c.coll, bson.M{"_id": id}, cred); err != nil {
		return nil, err
	}
	return cred, nil
}

func (c *Credentials) SetDisplayName(ctx context.Context, id, name string) error {
	return UpdateOne(ctx, c.coll, bson.M{"_id": id}, bson.M{"$set": bson.M{"displayName": name}})
}

func (c *Credentials) Delete(ctx context.Context, id string) error {
	return DeleteOne(ctx, c.coll, bson.M{"_id": id})
}
