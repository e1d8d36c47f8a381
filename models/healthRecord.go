package models

import (
	"math"
	"strconv"
	"strings"
	"time"

	"ElderCare360/apperr"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type BloodPressure struct {
	Sys int `json:"sys" bson:"sys"`
	Dia int `json:"dia" bson:"dia"`
}

func (bp BloodPressure) String() string {
	return strconv.Itoa(bp.Sys) + "/" + strconv.Itoa(bp.Dia)
}

// ParseBloodPressure reads the "SYS/DIA" form typed on the pressure screen.
func ParseBloodPressure(s string) (BloodPressure, error) {
	sys, dia, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok {
		return BloodPressure{}, apperr.Invalid("blood pressure must be SYS/DIA")
	}
	bp := BloodPressure{}
	var err error
	if bp.Sys, err = strconv.Atoi(strings.TrimSpace(sys)); err != nil {
		return BloodPressure{}, apperr.Invalid("systolic value %q is not a number", sys)
	}
	if bp.Dia, err = strconv.Atoi(strings.TrimSpace(dia)); err != nil {
		return BloodPressure{}, apperr.Invalid("diastolic value %q is not a number", dia)
	}
	return bp, bp.validate()
}

func (bp BloodPressure) validate() error {
	if bp.Sys <= 0 || bp.Dia <= 0 {
		return apperr.Invalid("blood pressure values must be positive")
	}
	return nil
}

type Metric string

const (
	MetricBloodPressure Metric = "bloodPressure"
	MetricHeartRate     Metric = "heartRate"
	MetricOxygen        Metric = "oxygen"
	MetricWeight        Metric = "weight"
	MetricGlucose       Metric = "glucose"
	MetricTemperature   Metric = "temperature"
)

// Measurement is the metric payload of a health record. Absent metrics are nil.
type Measurement struct {
	BloodPressure *BloodPressure `json:"bloodPressure,omitempty" bson:"bloodPressure,omitempty"`
	HeartRate     *float64       `json:"heartRate,omitempty" bson:"heartRate,omitempty"`
	Oxygen        *float64       `json:"oxygen,omitempty" bson:"oxygen,omitempty"`
	Weight        *float64       `json:"weight,omitempty" bson:"weight,omitempty"`
	Glucose       *float64       `json:"glucose,omitempty" bson:"glucose,omitempty"`
	Temperature   *float64       `json:"temperature,omitempty" bson:"temperature,omitempty"`
}

func (m Measurement) scalars() map[Metric]*float64 {
	return map[Metric]*float64{
		MetricHeartRate:   m.HeartRate,
		MetricOxygen:      m.Oxygen,
		MetricWeight:      m.Weight,
		MetricGlucose:     m.Glucose,
		MetricTemperature: m.Temperature,
	}
}

func (m Measurement) IsEmpty() bool {
	if m.BloodPressure != nil {
		return false
	}
	for _, v := range m.scalars() {
		if v != nil {
			return false
		}
	}
	return true
}

// Validate rejects an empty measurement and any value that is not a positive finite number.
func (m Measurement) Validate() error {
	if m.IsEmpty() {
		return apperr.Invalid("a health record needs at least one metric")
	}
	return m.validateValues()
}

func (m Measurement) validateValues() error {
	if m.BloodPressure != nil {
		if err := m.BloodPressure.validate(); err != nil {
			return err
		}
	}
	for metric, v := range m.scalars() {
		if v == nil {
			continue
		}
		if math.IsNaN(*v) || math.IsInf(*v, 0) {
			return apperr.Invalid("%s must be a finite number", metric)
		}
		if *v <= 0 {
			return apperr.Invalid("%s must be positive", metric)
		}
	}
	return nil
}

// Fields returns the present metrics keyed by their stored names.
func (m Measurement) Fields() map[string]interface{} {
	set := make(map[string]interface{})
	if m.BloodPressure != nil {
		set[string(MetricBloodPressure)] = *m.BloodPressure
	}
	for metric, v := range m.scalars() {
		if v != nil {
			set[string(metric)] = *v
		}
	}
	return set
}

// ParseMeasurement builds a single-metric measurement from the text typed on a metric screen.
func ParseMeasurement(metric Metric, text string) (Measurement, error) {
	if metric == MetricBloodPressure {
		bp, err := ParseBloodPressure(text)
		if err != nil {
			return Measurement{}, err
		}
		return Measurement{BloodPressure: &bp}, nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(text), ",", "."), 64)
	if err != nil {
		return Measurement{}, apperr.Invalid("%s value %q is not a number", metric, text)
	}
	m := Measurement{}
	switch metric {
	case MetricHeartRate:
		m.HeartRate = &v
	case MetricOxygen:
		m.Oxygen = &v
	case MetricWeight:
		m.Weight = &v
	case MetricGlucose:
		m.Glucose = &v
	case MetricTemperature:
		m.Temperature = &v
	default:
		return Measurement{}, apperr.Invalid("unknown metric %q", metric)
	}
	return m, m.Validate()
}

type HealthRecord struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	PatientID primitive.ObjectID `json:"patientId" bson:"patientId"`
	DateTime  time.Time          `json:"dateTime" bson:"dateTime"`

	Measurement `bson:",inline"`
}

type HealthRecordUpdate struct {
	Measurement
	DateTime *time.Time `json:"dateTime,omitempty"`
}

func (u HealthRecordUpdate) Fields() (map[string]interface{}, error) {
	if err := u.validateValues(); err != nil {
		return nil, err
	}
	set := u.Measurement.Fields()
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

type Reading struct {
	Value float64   `json:"value"`
	At    time.Time `json:"at"`
}

type PressureReading struct {
	BloodPressure
	At time.Time `json:"at"`
}

// Summary is the latest value of each metric plus the weight and temperature means.
type Summary struct {
	BloodPressure      *PressureReading `json:"bloodPressure,omitempty"`
	HeartRate          *Reading         `json:"heartRate,omitempty"`
	Oxygen             *Reading         `json:"oxygen,omitempty"`
	Weight             *Reading         `json:"weight,omitempty"`
	Glucose            *Reading         `json:"glucose,omitempty"`
	Temperature        *Reading         `json:"temperature,omitempty"`
	AverageWeight      *float64         `json:"averageWeight,omitempty"`
	AverageTemperature *float64         `json:"averageTemperature,omitempty"`
	Records            int              `json:"records"`
}

type mean struct {
	sum float64
	n   int
}

func (m *mean) add(v *float64) {
	if v != nil {
		m.sum += *v
		m.n++
	}
}

func (m mean) value() *float64 {
	if m.n == 0 {
		return nil
	}
	v := m.sum / float64(m.n)
	return &v
}

func latest(cur *Reading, v *float64, at time.Time) *Reading {
	if v == nil || (cur != nil && !at.After(cur.At)) {
		return cur
	}
	return &Reading{Value: *v, At: at}
}

/*
* Walk the records once
* Keep, per metric, the reading with the newest dateTime that has the metric
* Average weight and temperature over the records that carry them
 */
func Summarize(records []HealthRecord) Summary {
	s := Summary{Records: len(records)}
	var weight, temperature mean
	for i := range records {
		r := &records[i]
		if bp := r.BloodPressure; bp != nil && (s.BloodPressure == nil || r.DateTime.After(s.BloodPressure.At)) {
			s.BloodPressure = &PressureReading{BloodPressure: *bp, At: r.DateTime}
		}
		s.HeartRate = latest(s.HeartRate, r.HeartRate, r.DateTime)
		s.Oxygen = latest(s.Oxygen, r.Oxygen, r.DateTime)
		s.Weight = latest(s.Weight, r.Weight, r.DateTime)
		s.Glucose = latest(s.Glucose, r.Glucose, r.DateTime)
		s.Temperature = latest(s.Temperature, r.Temperature, r.DateTime)
		weight.add(r.Weight)
		temperature.add(r.Temperature)
	}
	s.AverageWeight = weight.value()
	s.AverageTemperature = temperature.value()
	return s
}
