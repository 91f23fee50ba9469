package models

import (
	"errors"
	"fmt"
)

// TrainType is the train category a criterion searches for
type TrainType string

const (
	TrainTypeKTX       TrainType = "KTX"
	TrainTypeMugunghwa TrainType = "MUGUNGHWA"
	TrainTypeAll       TrainType = "ALL"
)

// SeatType is the seat class a criterion accepts
type SeatType string

const (
	SeatGeneral SeatType = "general"
	SeatSpecial SeatType = "special"
	SeatAny     SeatType = "any"
)

// DefaultDepTime is used when a criterion has no search start time
const DefaultDepTime = "000000"

// SearchCriterion represents one desired trip query
type SearchCriterion struct {
	DepStation string    `json:"dep_station"`
	ArrStation string    `json:"arr_station"`
	DepDate    string    `json:"dep_date"` // YYYYMMDD
	DepTime    string    `json:"dep_time"` // HHMMSS
	TrainType  TrainType `json:"train_type"`
	TimeStart  *string   `json:"time_start"` // HH, inclusive
	TimeEnd    *string   `json:"time_end"`   // HH, exclusive
	SeatType   SeatType  `json:"seat_type"`
}

// Validate performs the presence checks required before a criterion is stored
func (c SearchCriterion) Validate() error {
	switch {
	case c.DepStation == "":
		return errors.New("dep_station is required")
	case c.ArrStation == "":
		return errors.New("arr_station is required")
	case c.DepDate == "":
		return errors.New("dep_date is required")
	}
	return nil
}

// Normalized fills defaults for optional fields and maps unknown enum values
// to their defaults.
func (c SearchCriterion) Normalized() SearchCriterion {
	switch c.TrainType {
	case TrainTypeKTX, TrainTypeMugunghwa, TrainTypeAll:
	default:
		c.TrainType = TrainTypeKTX
	}
	switch c.SeatType {
	case SeatGeneral, SeatSpecial, SeatAny:
	default:
		c.SeatType = SeatAny
	}
	if c.DepTime == "" {
		c.DepTime = DefaultDepTime
	}
	return c
}

// HasWindow reports whether both bounds of the preferred-hour window are set
func (c SearchCriterion) HasWindow() bool {
	return c.TimeStart != nil && c.TimeEnd != nil && *c.TimeStart != "" && *c.TimeEnd != ""
}

// Describe returns the one-line summary printed in the startup banner
func (c SearchCriterion) Describe() string {
	window := "all~all"
	if c.HasWindow() {
		window = *c.TimeStart + "~" + *c.TimeEnd + "h"
	}
	return fmt.Sprintf("%s->%s (%s %s) [%s]", c.DepStation, c.ArrStation, c.DepDate, window, c.SeatType.Label())
}

// Label returns the display name of a seat class
func (s SeatType) Label() string {
	switch s {
	case SeatGeneral:
		return "general"
	case SeatSpecial:
		return "special"
	default:
		return "any seat"
	}
}
