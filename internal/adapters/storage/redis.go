package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alejandrodnm/streakbot/internal/domain"
)

const defaultRedisKey = "streakbot:state"

// RedisConfig configura el RedisStore.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Key      string
}

// RedisStore guarda el documento de estado en una sola key de Redis.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore conecta y hace ping con un timeout de 5s.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("storage.NewRedisStore: ping %s: %w", cfg.Addr, err)
	}

	key := cfg.Key
	if key == "" {
		key = defaultRedisKey
	}
	return &RedisStore{client: client, key: key}, nil
}

// Load implementa ports.StateStore. Una key inexistente es un estado vacío.
func (r *RedisStore) Load(ctx context.Context) (*domain.State, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.NewState(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage.RedisStore.Load: %w: %w", domain.ErrUnavailable, err)
	}

	st, err := domain.DecodeState(data)
	if err != nil {
		return nil, fmt.Errorf("storage.RedisStore.Load: %w", err)
	}
	return st, nil
}

// Save implementa ports.StateStore. SET es atómico: no hay lecturas parciales.
func (r *RedisStore) Save(ctx context.Context, st *domain.State) error {
	data, err := domain.EncodeState(st)
	if err != nil {
		return fmt.Errorf("storage.RedisStore.Save: %w", err)
	}
	if err := r.client.Set(ctx, r.key, data, 0).Err(); err != nil {
		return fmt.Errorf("storage.RedisStore.Save: %w: %w", domain.ErrUnavailable, err)
	}
	return nil
}

// Close cierra el pool de conexiones.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
