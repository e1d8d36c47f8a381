// Package servicestest holds in-memory fakes of the stores behind services.
package servicestest

import (
	"context"
	"sort"
	"sync"
	"time"

	"ElderCare360/models"
	"ElderCare360/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Users struct {
	mu         sync.Mutex
	byID       map[string]models.Account
	FailCreate error
}

func NewUsers() *Users {
	return &Users{byID: map[string]models.Account{}}
}

func (u *Users) Create(_ context.Context, a *models.Account) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.FailCreate != nil {
		return u.FailCreate
	}
	if _, ok := u.byID[a.ID]; ok {
		return repository.ErrDuplicate
	}
	u.byID[a.ID] = *a
	return nil
}

func (u *Users) FindByID(_ context.Context, id string) (*models.Account, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	a, ok := u.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &a, nil
}

func (u *Users) SetLastLogin(_ context.Context, id string, at time.Time) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	a, ok := u.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	a.LastLogin = &at
	u.byID[id] = a
	return nil
}

func (u *Users) Len() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.byID)
}

type Patients struct {
	mu         sync.Mutex
	list       []models.Patient
	FailCreate error
	FailUpdate error
	Finds      int
}

func NewPatients() *Patients {
	return &Patients{}
}

func (r *Patients) Create(_ context.Context, p *models.Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailCreate != nil {
		return r.FailCreate
	}
	for _, existing := range r.list {
		if existing.Code == p.Code {
			return repository.ErrDuplicate
		}
	}
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	r.list = append(r.list, *p)
	return nil
}

func (r *Patients) FindByID(_ context.Context, id primitive.ObjectID) (*models.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Finds++
	for _, p := range r.list {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *Patients) FindByCode(_ context.Context, code string) (*models.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.list {
		if p.Code == code {
			return &p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *Patients) ListByCaregiver(_ context.Context, caregiverID string) ([]models.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Patient{}
	for _, p := range r.list {
		if p.CaregiverID == caregiverID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *Patients) Update(_ context.Context, id primitive.ObjectID, set map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailUpdate != nil {
		return r.FailUpdate
	}
	for i := range r.list {
		if r.list[i].ID == id {
			return applySet(&r.list[i], set)
		}
	}
	return repository.ErrNotFound
}

func (r *Patients) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.list)
}

// applySet round-trips doc through bson so a $set document updates it the way Mongo would.
func applySet(doc interface{}, set map[string]interface{}) error {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return err
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		return err
	}
	for k, v := range set {
		m[k] = v
	}
	raw, err = bson.Marshal(m)
	if err != nil {
		return err
	}
	return bson.Unmarshal(raw, doc)
}

// Scoped keeps patient-scoped documents as bson and sorts them like the Mongo repository.
type Scoped[T any] struct {
	mu       sync.Mutex
	docs     []bson.M
	sortKey  string
	desc     bool
	FailList error
	lists    int
}

func NewScoped[T any](sortKey string, desc bool) *Scoped[T] {
	return &Scoped[T]{sortKey: sortKey, desc: desc}
}

func NewHealthRecords() *Scoped[models.HealthRecord] {
	return NewScoped[models.HealthRecord]("dateTime", true)
}

func NewAppointments() *Scoped[models.Appointment] {
	return NewScoped[models.Appointment]("dateTime", false)
}

func decode[T any](m bson.M) (*T, error) {
	raw, err := bson.Marshal(m)
	if err != nil {
		return nil, err
	}
	out := new(T)
	return out, bson.Unmarshal(raw, out)
}

func (s *Scoped[T]) Create(_ context.Context, doc *T) (primitive.ObjectID, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return primitive.NilObjectID, err
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		return primitive.NilObjectID, err
	}
	id := primitive.NewObjectID()
	m["_id"] = id
	s.mu.Lock()
	s.docs = append(s.docs, m)
	s.mu.Unlock()
	return id, nil
}

func (s *Scoped[T]) index(patientID, id primitive.ObjectID) int {
	for i, m := range s.docs {
		if m["_id"] == id && m["patientId"] == patientID {
			return i
		}
	}
	return -1
}

func (s *Scoped[T]) Find(_ context.Context, patientID, id primitive.ObjectID) (*T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(patientID, id)
	if i < 0 {
		return nil, repository.ErrNotFound
	}
	return decode[T](s.docs[i])
}

func (s *Scoped[T]) List(_ context.Context, patientID primitive.ObjectID, limit int) ([]T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists++
	if s.FailList != nil {
		return nil, s.FailList
	}
	matched := []bson.M{}
	for _, m := range s.docs {
		if m["patientId"] == patientID {
			matched = append(matched, m)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		a, b := sortValue(matched[i][s.sortKey]), sortValue(matched[j][s.sortKey])
		if a == b {
			less := sortID(matched[i]) < sortID(matched[j])
			return less != s.desc
		}
		if s.desc {
			return a > b
		}
		return a < b
	})
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	out := make([]T, 0, len(matched))
	for _, m := range matched {
		doc, err := decode[T](m)
		if err != nil {
			return nil, err
		}
		out = append(out, *doc)
	}
	return out, nil
}

// ListCalls reports how many times List ran.
func (s *Scoped[T]) ListCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lists
}

func sortValue(v interface{}) int64 {
	if dt, ok := v.(primitive.DateTime); ok {
		return int64(dt)
	}
	return 0
}

func sortID(m bson.M) string {
	id, _ := m["_id"].(primitive.ObjectID)
	return id.Hex()
}

func (s *Scoped[T]) Update(_ context.Context, patientID, id primitive.ObjectID, set map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(patientID, id)
	if i < 0 {
		return repository.ErrNotFound
	}
	doc, err := decode[T](s.docs[i])
	if err != nil {
		return err
	}
	if err := applySet(doc, set); err != nil {
		return err
	}
	raw, err := bson.Marshal(doc)
	if err != nil {
		return err
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		return err
	}
	s.docs[i] = m
	return nil
}

func (s *Scoped[T]) Delete(_ context.Context, patientID, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(patientID, id)
	if i < 0 {
		return repository.ErrNotFound
	}
	s.docs = append(s.docs[:i], s.docs[i+1:]...)
	return nil
}

type Medications struct {
	*Scoped[models.Medication]
}

func NewMedications() *Medications {
	return &Medications{NewScoped[models.Medication]("createdAt", false)}
}

func (r *Medications) FinishExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for i, m := range r.docs {
		med, err := decode[models.Medication](m)
		if err != nil {
			return n, err
		}
		if med.Finished || med.EndDate().After(now) {
			continue
		}
		r.docs[i]["finished"] = true
		n++
	}
	return n, nil
}
