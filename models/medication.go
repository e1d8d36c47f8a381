package models

import (
	"sort"
	"strings"
	"time"

	"ElderCare360/apperr"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type MedicationType string

const (
	MedicationTablet    MedicationType = "tablet"
	MedicationCapsule   MedicationType = "capsule"
	MedicationDrops     MedicationType = "drops"
	MedicationInjection MedicationType = "injection"
)

// LegacyMedicationTypes maps the labels older clients stored to the canonical values.
// Keys are lower case; labels match regardless of case.
var LegacyMedicationTypes = map[string]MedicationType{
	"tableta":   MedicationTablet,
	"capsula":   MedicationCapsule,
	"cápsula":   MedicationCapsule,
	"gotas":     MedicationDrops,
	"inyeccion": MedicationInjection,
	"inyección": MedicationInjection,
}

func ParseMedicationType(s string) (MedicationType, error) {
	s = strings.TrimSpace(s)
	lower := strings.ToLower(s)
	switch t := MedicationType(lower); t {
	case MedicationTablet, MedicationCapsule, MedicationDrops, MedicationInjection:
		return t, nil
	}
	if t, ok := LegacyMedicationTypes[lower]; ok {
		return t, nil
	}
	return "", apperr.Invalid("unknown medication type %q", s)
}

var weekdayCodes = [...]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// WeekdayCode returns the stored code of a weekday, e.g. "Mon".
func WeekdayCode(d time.Weekday) string {
	return weekdayCodes[d]
}

func validWeekday(code string) bool {
	for _, c := range weekdayCodes {
		if c == code {
			return true
		}
	}
	return false
}

type Medication struct {
	ID           primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	PatientID    primitive.ObjectID `json:"patientId" bson:"patientId"`
	Type         MedicationType     `json:"type" bson:"type"`
	Name         string             `json:"name" bson:"name"`
	DailyDose    int                `json:"dailyDose" bson:"dailyDose"`
	Schedule     []string           `json:"schedule" bson:"schedule"`
	StartDate    time.Time          `json:"startDate" bson:"startDate"`
	DaysOfWeek   []string           `json:"daysOfWeek" bson:"daysOfWeek"`
	DurationDays int                `json:"durationDays" bson:"durationDays"`
	Finished     bool               `json:"finished" bson:"finished"`
	CreatedAt    time.Time          `json:"createdAt" bson:"createdAt"`
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// EndDate is the instant the course is over.
func (m *Medication) EndDate() time.Time {
	return m.StartDate.AddDate(0, 0, m.DurationDays)
}

/*
* A finished course is never active
* The day must fall inside [startDate, startDate+durationDays)
* The weekday of the day must be one of daysOfWeek
 */
func (m *Medication) ActiveOn(day time.Time) bool {
	if m.Finished {
		return false
	}
	loc := day.Location()
	d := startOfDay(day, loc)
	start := startOfDay(m.StartDate, loc)
	end := start.AddDate(0, 0, m.DurationDays)
	if d.Before(start) || !d.Before(end) {
		return false
	}
	code := WeekdayCode(d.Weekday())
	for _, w := range m.DaysOfWeek {
		if w == code {
			return true
		}
	}
	return false
}

type Dose struct {
	MedicationID primitive.ObjectID `json:"medicationId"`
	Name         string             `json:"name"`
	Type         MedicationType     `json:"type"`
	Time         string             `json:"time"`
}

// DosesOn lists every dose scheduled on day, ordered by time of day.
func DosesOn(meds []Medication, day time.Time) []Dose {
	doses := []Dose{}
	for i := range meds {
		m := &meds[i]
		if !m.ActiveOn(day) {
			continue
		}
		for _, at := range m.Schedule {
			doses = append(doses, Dose{MedicationID: m.ID, Name: m.Name, Type: m.Type, Time: at})
		}
	}
	sort.SliceStable(doses, func(i, j int) bool { return doses[i].Time < doses[j].Time })
	return doses
}

type MedicationInput struct {
	Type         string    `json:"type"`
	Name         string    `json:"name"`
	DailyDose    int       `json:"dailyDose"`
	Schedule     []string  `json:"schedule"`
	StartDate    time.Time `json:"startDate"`
	DaysOfWeek   []string  `json:"daysOfWeek"`
	DurationDays int       `json:"durationDays"`
}

func normalizeSchedule(schedule []string, dailyDose int) ([]string, error) {
	if dailyDose < 1 || dailyDose > 24 {
		return nil, apperr.Invalid("dailyDose must be between 1 and 24")
	}
	if len(schedule) < dailyDose {
		return nil, apperr.Invalid("schedule needs %d times, got %d", dailyDose, len(schedule))
	}
	out := make([]string, 0, dailyDose)
	for _, s := range schedule[:dailyDose] {
		t, err := time.Parse("15:04", strings.TrimSpace(s))
		if err != nil {
			return nil, apperr.Invalid("schedule time %q must be HH:MM", s)
		}
		out = append(out, t.Format("15:04"))
	}
	return out, nil
}

func normalizeDays(days []string) ([]string, error) {
	if len(days) == 0 {
		return nil, apperr.Invalid("daysOfWeek cannot be empty")
	}
	seen := make(map[string]bool, len(days))
	out := make([]string, 0, len(days))
	for _, d := range days {
		if !validWeekday(d) {
			return nil, apperr.Invalid("unknown weekday %q", d)
		}
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	return out, nil
}

// Build validates the input and returns the medication to store for patientID.
// The schedule is cut to dailyDose entries.
func (in MedicationInput) Build(patientID primitive.ObjectID, now time.Time) (*Medication, error) {
	t, err := ParseMedicationType(in.Type)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.Invalid("medication name is required")
	}
	schedule, err := normalizeSchedule(in.Schedule, in.DailyDose)
	if err != nil {
		return nil, err
	}
	days, err := normalizeDays(in.DaysOfWeek)
	if err != nil {
		return nil, err
	}
	if in.StartDate.IsZero() {
		return nil, apperr.Invalid("startDate is required")
	}
	if in.DurationDays < 1 {
		return nil, apperr.Invalid("durationDays must be positive")
	}
	return &Medication{
		PatientID:    patientID,
		Type:         t,
		Name:         name,
		DailyDose:    in.DailyDose,
		Schedule:     schedule,
		StartDate:    in.StartDate.UTC(),
		DaysOfWeek:   days,
		DurationDays: in.DurationDays,
		CreatedAt:    now,
	}, nil
}

type MedicationUpdate struct {
	Type         *string    `json:"type,omitempty"`
	Name         *string    `json:"name,omitempty"`
	DailyDose    *int       `json:"dailyDose,omitempty"`
	Schedule     []string   `json:"schedule,omitempty"`
	StartDate    *time.Time `json:"startDate,omitempty"`
	DaysOfWeek   []string   `json:"daysOfWeek,omitempty"`
	DurationDays *int       `json:"durationDays,omitempty"`
}

// Fields validates the update against the current document and returns the fields to set.
// Changing dailyDose without a schedule re-cuts the stored schedule.
func (u MedicationUpdate) Fields(current *Medication) (map[string]interface{}, error) {
	set := make(map[string]interface{})
	if u.Type != nil {
		t, err := ParseMedicationType(*u.Type)
		if err != nil {
			return nil, err
		}
		set["type"] = t
	}
	if u.Name != nil {
		name := strings.TrimSpace(*u.Name)
		if name == "" {
			return nil, apperr.Invalid("medication name cannot be empty")
		}
		set["name"] = name
	}
	if u.DailyDose != nil || u.Schedule != nil {
		dose := current.DailyDose
		if u.DailyDose != nil {
			dose = *u.DailyDose
		}
		schedule := current.Schedule
		if u.Schedule != nil {
			schedule = u.Schedule
		}
		normalized, err := normalizeSchedule(schedule, dose)
		if err != nil {
			return nil, err
		}
		set["dailyDose"] = dose
		set["schedule"] = normalized
	}
	if u.StartDate != nil {
		if u.StartDate.IsZero() {
			return nil, apperr.Invalid("startDate cannot be empty")
		}
		set["startDate"] = u.StartDate.UTC()
	}
	if u.DaysOfWeek != nil {
		days, err := normalizeDays(u.DaysOfWeek)
		if err != nil {
			return nil, err
		}
		set["daysOfWeek"] = days
	}
	if u.DurationDays != nil {
		if *u.DurationDays < 1 {
			return nil, apperr.Invalid("durationDays must be positive")
		}
		set["durationDays"] = *u.DurationDays
	}
	if len(set) == 0 {
		return nil, apperr.Invalid("nothing to update")
	}
	if _, ok := set["startDate"]; ok {
		set["finished"] = false
	} else if _, ok := set["durationDays"]; ok {
		set["finished"] = false
	}
	return set, nil
}
