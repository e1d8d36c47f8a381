package models

import (
	"time"

	"ElderCare360/role"
)

// Account is the profile record of a familiar member or caregiver, keyed by the provider uid.
type Account struct {
	ID        string     `json:"id" bson:"_id"`
	Name      string     `json:"name" bson:"name"`
	Email     string     `json:"email" bson:"email"`
	Role      role.Role  `json:"role" bson:"role"`
	CreatedAt time.Time  `json:"createdAt" bson:"createdAt"`
	LastLogin *time.Time `json:"lastLogin,omitempty" bson:"lastLogin,omitempty"`
}

// ElderSession is the identity adopted after a successful elder-code login.
// ID is the id of the patient the code belongs to.
type ElderSession struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Role        role.Role `json:"role"`
	Code        string    `json:"code"`
	CaregiverID string    `json:"caregiverId"`
}

func NewElderSession(p *Patient) *ElderSession {
	return &ElderSession{
		ID:          p.ID.Hex(),
		Name:        p.FullName(),
		Role:        role.Elder,
		Code:        p.Code,
		CaregiverID: p.CaregiverID,
	}
}

// Identity holds at most one of Account or Elder. The zero value means nobody is signed in.
type Identity struct {
	Account *Account      `json:"account,omitempty"`
	Elder   *ElderSession `json:"elder,omitempty"`
}

func AccountIdentity(a *Account) Identity {
	return Identity{Account: a}
}

func ElderIdentity(e *ElderSession) Identity {
	return Identity{Elder: e}
}

func (i Identity) IsNone() bool {
	return i.Account == nil && i.Elder == nil
}

func (i Identity) UID() string {
	switch {
	case i.Account != nil:
		return i.Account.ID
	case i.Elder != nil:
		return i.Elder.ID
	}
	return ""
}

func (i Identity) Role() role.Role {
	switch {
	case i.Account != nil:
		return i.Account.Role
	case i.Elder != nil:
		return role.Elder
	}
	return ""
}

func (i Identity) Name() string {
	switch {
	case i.Account != nil:
		return i.Account.Name
	case i.Elder != nil:
		return i.Elder.Name
	}
	return ""
}

// Kind is "account", "elder" or "none".
func (i Identity) Kind() string {
	switch {
	case i.Account != nil:
		return "account"
	case i.Elder != nil:
		return "elder"
	}
	return "none"
}
