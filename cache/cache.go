package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"ElderCare360/models"

	"github.com/redis/go-redis/v9"
)

var ErrMiss = errors.New("cache miss")

const PatientKey = "patient:"

// Redis caches patient documents as JSON under PatientKey + id.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func Dial(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) GetPatient(ctx context.Context, id string) (*models.Patient, error) {
	val, err := r.client.Get(ctx, PatientKey+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMiss
		}
		return nil, err
	}
	var p models.Patient
	if err := json.Unmarshal(val, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Redis) SetPatient(ctx context.Context, p *models.Patient) error {
	val, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, PatientKey+p.ID.Hex(), val, r.ttl).Err()
}

func (r *Redis) DeletePatient(ctx context.Context, id string) error {
	return r.client.Del(ctx, PatientKey+id).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}

// Noop is used when no Redis address is configured. Every read misses.
type Noop struct{}

func (Noop) GetPatient(context.Context, string) (*models.Patient, error) { return nil, ErrMiss }
func (Noop) SetPatient(context.Context, *models.Patient) error           { return nil }
func (Noop) DeletePatient(context.Context, string) error                 { return nil }
