package database

import (
	"context"
	"fmt"
	"net/url"

	"github.com/dhgwag/korail-reservation/models"
)

// Journal records completed reservations. It is write-only: nothing in a
// reservation run reads it back.
type Journal interface {
	Record(ctx context.Context, r models.Reservation) error
	Close() error
}

// OpenJournal selects a journal backend from a URL. An empty URL disables
// the journal.
func OpenJournal(ctx context.Context, rawURL string) (Journal, error) {
	if rawURL == "" {
		return NewNoOpJournal(), nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid journal url: %w", err)
	}
	switch u.Scheme {
	case "postgres", "postgresql":
		return NewPostgresJournal(ctx, rawURL)
	case "redis", "rediss":
		return NewRedisJournal(ctx, rawURL)
	}
	return nil, fmt.Errorf("unsupported journal scheme %q", u.Scheme)
}

type NoOpJournal struct{}

func NewNoOpJournal() *NoOpJournal {
	return &NoOpJournal{}
}

func (j *NoOpJournal) Record(ctx context.Context, r models.Reservation) error {
	return nil
}

func (j *NoOpJournal) Close() error {
	return nil
}
