package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dhgwag/korail-reservation/models"
)

// RedisKey is the list reservations are pushed onto
const RedisKey = "korail:reservations"

type RedisJournal struct {
	client *redis.Client
	key    string
}

func NewRedisJournal(ctx context.Context, rawURL string) (*RedisJournal, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis journal: %w", err)
	}

	return &RedisJournal{client: client, key: RedisKey}, nil
}

func (j *RedisJournal) Record(ctx context.Context, r models.Reservation) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return j.client.RPush(ctx, j.key, data).Err()
}

func (j *RedisJournal) Close() error {
	return j.client.Close()
}
