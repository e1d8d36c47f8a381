package models

import (
	"io"
	"strings"
	"time"
	"unicode"

	"ElderCare360/apperr"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Patient struct {
	ID           primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	CaregiverID  string             `json:"caregiverId" bson:"caregiverId"`
	Cedula       string             `json:"cedula" bson:"cedula"`
	Code         string             `json:"code" bson:"code"`
	Name         string             `json:"name" bson:"name"`
	Surname      string             `json:"surname" bson:"surname"`
	Age          int                `json:"age" bson:"age"`
	BloodType    string             `json:"bloodType" bson:"bloodType"`
	ContactName  string             `json:"contactName" bson:"contactName"`
	ContactPhone string             `json:"contactPhone" bson:"contactPhone"`
	PhotoURL     string             `json:"photoUrl" bson:"photoUrl"`
	AssignedGame GameID             `json:"assignedGame,omitempty" bson:"assignedGame,omitempty"`
	CreatedAt    time.Time          `json:"createdAt" bson:"createdAt"`
}

func (p *Patient) FullName() string {
	return strings.TrimSpace(p.Name + " " + p.Surname)
}

var bloodTypes = map[string]bool{
	"A+": true, "A-": true, "B+": true, "B-": true,
	"AB+": true, "AB-": true, "O+": true, "O-": true,
}

// PatientInput is what a caregiver submits to register a patient.
// Photo is optional; a nil reader skips the upload.
type PatientInput struct {
	Cedula           string    `json:"cedula" form:"cedula"`
	Name             string    `json:"name" form:"name"`
	Surname          string    `json:"surname" form:"surname"`
	Age              int       `json:"age" form:"age"`
	BloodType        string    `json:"bloodType" form:"bloodType"`
	ContactName      string    `json:"contactName" form:"contactName"`
	ContactPhone     string    `json:"contactPhone" form:"contactPhone"`
	Photo            io.Reader `json:"-" form:"-"`
	PhotoContentType string    `json:"-" form:"-"`
}

/*
* Trim every text field
* Cedula must be alphanumeric and long enough to yield a code
* Name, surname and age are required
* Blood type is optional but must be a known group
 */
func (in *PatientInput) Normalize() error {
	in.Cedula = strings.TrimSpace(in.Cedula)
	in.Name = strings.TrimSpace(in.Name)
	in.Surname = strings.TrimSpace(in.Surname)
	in.BloodType = strings.ToUpper(strings.TrimSpace(in.BloodType))
	in.ContactName = strings.TrimSpace(in.ContactName)
	in.ContactPhone = strings.TrimSpace(in.ContactPhone)

	if len([]rune(in.Cedula)) < CodeLength {
		return apperr.Invalid("cedula must have at least %d characters", CodeLength)
	}
	for _, r := range in.Cedula {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return apperr.Invalid("cedula must be alphanumeric")
		}
	}
	if in.Name == "" {
		return apperr.Invalid("name is required")
	}
	if in.Surname == "" {
		return apperr.Invalid("surname is required")
	}
	if err := validateAge(in.Age); err != nil {
		return err
	}
	if in.BloodType != "" && !bloodTypes[in.BloodType] {
		return apperr.Invalid("unknown blood type %q", in.BloodType)
	}
	return nil
}

func validateAge(age int) error {
	if age <= 0 || age > 130 {
		return apperr.Invalid("age must be between 1 and 130")
	}
	return nil
}

const CodeLength = 3

// DeriveCode returns the elder login code of a cedula: its last three characters, upper-cased.
func DeriveCode(cedula string) string {
	r := []rune(strings.TrimSpace(cedula))
	if len(r) > CodeLength {
		r = r[len(r)-CodeLength:]
	}
	return strings.ToUpper(string(r))
}

// NormalizeCode is applied to codes typed at the elder login screen.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// PatientUpdate carries the editable fields of a patient. Cedula, code and
// caregiver cannot change once the patient exists.
type PatientUpdate struct {
	Name         *string `json:"name,omitempty"`
	Surname      *string `json:"surname,omitempty"`
	Age          *int    `json:"age,omitempty"`
	BloodType    *string `json:"bloodType,omitempty"`
	ContactName  *string `json:"contactName,omitempty"`
	ContactPhone *string `json:"contactPhone,omitempty"`
}

func (u PatientUpdate) Fields() (map[string]interface{}, error) {
	set := make(map[string]interface{})
	if u.Name != nil {
		name := strings.TrimSpace(*u.Name)
		if name == "" {
			return nil, apperr.Invalid("name cannot be empty")
		}
		set["name"] = name
	}
	if u.Surname != nil {
		surname := strings.TrimSpace(*u.Surname)
		if surname == "" {
			return nil, apperr.Invalid("surname cannot be empty")
		}
		set["surname"] = surname
	}
	if u.Age != nil {
		if err := validateAge(*u.Age); err != nil {
			return nil, err
		}
		set["age"] = *u.Age
	}
	if u.BloodType != nil {
		bt := strings.ToUpper(strings.TrimSpace(*u.BloodType))
		if bt != "" && !bloodTypes[bt] {
			return nil, apperr.Invalid("unknown blood type %q", bt)
		}
		set["bloodType"] = bt
	}
	if u.ContactName != nil {
		set["contactName"] = strings.TrimSpace(*u.ContactName)
	}
	if u.ContactPhone != nil {
		set["contactPhone"] = strings.TrimSpace(*u.ContactPhone)
	}
	if len(set) == 0 {
		return nil, apperr.Invalid("nothing to update")
	}
	return set, nil
}

// Apply copies already validated fields onto p.
func (p *Patient) Apply(set map[string]interface{}) {
	for k, v := range set {
		switch k {
		case "name":
			p.Name = v.(string)
		case "surname":
			p.Surname = v.(string)
		case "age":
			p.Age = v.(int)
		case "bloodType":
			p.BloodType = v.(string)
		case "contactName":
			p.ContactName = v.(string)
		case "contactPhone":
			p.ContactPhone = v.(string)
		}
	}
}
