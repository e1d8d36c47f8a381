package services

import (
	"context"
	"io"
	"time"

	"ElderCare360/authprovider"
	"ElderCare360/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AuthProvider is the external authentication provider behind the session manager.
type AuthProvider interface {
	CreateUser(ctx context.Context, email, password string) (*authprovider.User, error)
	SignIn(ctx context.Context, email, password string) (*authprovider.User, error)
	SignOut(ctx context.Context) error
	DeleteUser(ctx context.Context, uid string) error
	UpdateDisplayName(ctx context.Context, uid, name string) error
	CurrentUser() *authprovider.User
	OnAuthStateChanged(fn func(*authprovider.User)) (unsubscribe func())
	Restore(ctx context.Context) error
}

type UserRepository interface {
	Create(ctx context.Context, a *models.Account) error
	FindByID(ctx context.Context, id string) (*models.Account, error)
	SetLastLogin(ctx context.Context, id string, at time.Time) error
}

type PatientRepository interface {
	Create(ctx context.Context, p *models.Patient) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Patient, error)
	FindByCode(ctx context.Context, code string) (*models.Patient, error)
	ListByCaregiver(ctx context.Context, caregiverID string) ([]models.Patient, error)
	Update(ctx context.Context, id primitive.ObjectID, set map[string]interface{}) error
}

// ScopedRepository stores documents that belong to one patient.
type ScopedRepository[T any] interface {
	Create(ctx context.Context, doc *T) (primitive.ObjectID, error)
	Find(ctx context.Context, patientID, id primitive.ObjectID) (*T, error)
	List(ctx context.Context, patientID primitive.ObjectID, limit int) ([]T, error)
	Update(ctx context.Context, patientID, id primitive.ObjectID, set map[string]interface{}) error
	Delete(ctx context.Context, patientID, id primitive.ObjectID) error
}

type MedicationRepository interface {
	ScopedRepository[models.Medication]
	FinishExpired(ctx context.Context, now time.Time) (int64, error)
}

// LocalStore is the device-local durable key/value store.
type LocalStore interface {
	Get(key string) (string, error)
	Set(key, value string, ttl time.Duration) error
	Delete(key string) error
}

type PhotoStore interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

type PatientCache interface {
	GetPatient(ctx context.Context, id string) (*models.Patient, error)
	SetPatient(ctx context.Context, p *models.Patient) error
	DeletePatient(ctx context.Context, id string) error
}

// IdentitySource exposes the current identity and its changes.
type IdentitySource interface {
	Current() models.Identity
	Subscribe(fn func(models.Identity)) (unsubscribe func())
}
