package models

import (
	"fmt"
	"strings"
	"time"
)

// ReserveOption tells the provider which seat class to take
type ReserveOption string

const (
	GeneralFirst ReserveOption = "GENERAL_FIRST"
	GeneralOnly  ReserveOption = "GENERAL_ONLY"
	SpecialFirst ReserveOption = "SPECIAL_FIRST"
	SpecialOnly  ReserveOption = "SPECIAL_ONLY"
)

// ParseReserveOption parses a reserve option name, case-insensitively
func ParseReserveOption(s string) (ReserveOption, error) {
	opt := ReserveOption(strings.ToUpper(strings.TrimSpace(s)))
	switch opt {
	case GeneralFirst, GeneralOnly, SpecialFirst, SpecialOnly:
		return opt, nil
	}
	return "", fmt.Errorf("unknown reserve option %q", s)
}

// Reservation represents a seat held by the provider for one criterion
type Reservation struct {
	ID         string     `json:"id"`
	RunID      string     `json:"run_id,omitempty"`
	Criterion  int        `json:"criterion"` // 1-based position in the criteria list
	Train      TrainOffer `json:"train"`
	SeatClass  SeatType   `json:"seat_class"`
	Passengers int        `json:"passengers"`
	ReservedAt time.Time  `json:"reserved_at"`
}

func (r Reservation) String() string {
	return fmt.Sprintf("reservation %s: %s %s %s~%s %s(%s~%s) %s seat x%d",
		r.ID,
		r.Train.TrainType, r.Train.TrainNo,
		r.Train.DepStation, r.Train.ArrStation,
		monthDay(r.Train.DepDate), clock(r.Train.DepTime), clock(r.Train.ArrTime),
		r.SeatClass, r.Passengers,
	)
}
