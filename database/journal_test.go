package database

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/dhgwag/korail-reservation/models"
)

func TestOpenJournalEmptyURLIsNoOp(t *testing.T) {
	j, err := OpenJournal(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := j.(*NoOpJournal); !ok {
		t.Fatalf("expected NoOpJournal, got %T", j)
	}
	if err := j.Record(context.Background(), models.Reservation{ID: "PNR"}); err != nil {
		t.Fatalf("noop record should not fail: %v", err)
	}
	if err := j.Close(); err != nil {
		t.Fatalf("noop close should not fail: %v", err)
	}
}

func TestOpenJournalRejectsUnknownScheme(t *testing.T) {
	_, err := OpenJournal(context.Background(), "mysql://localhost/db")
	if err == nil || !strings.Contains(err.Error(), "unsupported journal scheme") {
		t.Fatalf("expected unsupported scheme error, got %v", err)
	}
}

func TestOpenJournalRedisUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	_, err := OpenJournal(ctx, "redis://127.0.0.1:1/0")
	if err == nil {
		t.Fatalf("expected connection error for unreachable redis")
	}
}

func TestOpenJournalPostgresUnreachable(t *testing.T) {
	connectRetries, retryDelay = 2, time.Millisecond
	t.Cleanup(func() { connectRetries, retryDelay = 3, 2*time.Second })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := OpenJournal(ctx, "postgres://korail@127.0.0.1:1/journal?sslmode=disable&connect_timeout=1")
	if err == nil || !strings.Contains(err.Error(), "after 2 attempts") {
		t.Fatalf("expected retry exhaustion error, got %v", err)
	}
}
