package models

import "time"

// Credential is the provider-side record of an account: email, password hash and display name.
type Credential struct {
	ID           string    `json:"id" bson:"_id"`
	Email        string    `json:"email" bson:"email"`
	PasswordHash string    `json:"-" bson:"passwordHash"`
	DisplayName  string    `json:"displayName" bson:"displayName"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
}
