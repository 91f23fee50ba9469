package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/lib/pq"

	"github.com/dhgwag/korail-reservation/models"
)

var (
	connectRetries = 3
	retryDelay     = 2 * time.Second
)

// PostgresJournal appends reservations to the reservation_journal table
type PostgresJournal struct {
	db *sql.DB
}

// NewPostgresJournal connects to PostgreSQL and makes sure the journal table exists
func NewPostgresJournal(ctx context.Context, dsn string) (*PostgresJournal, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	// The engine writes at most one row per criterion
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := ping(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	if err := RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &PostgresJournal{db: db}, nil
}

func ping(ctx context.Context, db *sql.DB) error {
	var err error
	for i := 0; i < connectRetries; i++ {
		err = db.PingContext(ctx)
		if err == nil {
			log.Println("Successfully connected to journal database")
			return nil
		}
		log.Printf("Failed to connect to journal database (attempt %d/%d): %v", i+1, connectRetries, err)
		if i < connectRetries-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryDelay):
			}
		}
	}
	return fmt.Errorf("failed to connect to journal database after %d attempts: %w", connectRetries, err)
}

const insertReservation = `
	INSERT INTO reservation_journal
		(reservation_no, run_id, criterion, train_no, train_type, dep_station, arr_station,
		 dep_date, dep_time, arr_time, seat_class, passengers, reserved_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
`

func (j *PostgresJournal) Record(ctx context.Context, r models.Reservation) error {
	_, err := j.db.ExecContext(ctx, insertReservation,
		r.ID, r.RunID, r.Criterion,
		r.Train.TrainNo, r.Train.TrainType,
		r.Train.DepStation, r.Train.ArrStation,
		r.Train.DepDate, r.Train.DepTime, r.Train.ArrTime,
		string(r.SeatClass), r.Passengers, r.ReservedAt,
	)
	if err != nil {
		return fmt.Errorf("error recording reservation: %w", err)
	}
	return nil
}

func (j *PostgresJournal) Close() error {
	return j.db.Close()
}
