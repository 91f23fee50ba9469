package models

import "fmt"

// TrainOffer represents a single train returned by a provider search
type TrainOffer struct {
	TrainNo       string `json:"train_no"`
	TrainType     string `json:"train_type"`      // display label, e.g. "KTX-산천"
	TrainTypeCode string `json:"train_type_code"` // provider classification code
	TrainGroup    string `json:"train_group"`

	DepStation     string `json:"dep_station"`
	DepStationCode string `json:"dep_station_code"`
	ArrStation     string `json:"arr_station"`
	ArrStationCode string `json:"arr_station_code"`

	DepDate string `json:"dep_date"` // YYYYMMDD
	DepTime string `json:"dep_time"` // HHMMSS
	ArrDate string `json:"arr_date"`
	ArrTime string `json:"arr_time"`
	RunDate string `json:"run_date"`

	GeneralSeats bool `json:"general_seats"`
	SpecialSeats bool `json:"special_seats"`
}

// DepartureHour returns the two-digit departure hour, or "" when unknown
func (t TrainOffer) DepartureHour() string {
	if len(t.DepTime) < 2 {
		return ""
	}
	return t.DepTime[:2]
}

// SeatStatus summarises availability for both seat classes
func (t TrainOffer) SeatStatus() string {
	return fmt.Sprintf("special:%s, general:%s", yesNo(t.SpecialSeats), yesNo(t.GeneralSeats))
}

func (t TrainOffer) String() string {
	return fmt.Sprintf("[%s] %s, %s~%s(%s~%s) [%s]",
		t.TrainType,
		monthDay(t.DepDate),
		t.DepStation, t.ArrStation,
		clock(t.DepTime), clock(t.ArrTime),
		t.SeatStatus(),
	)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// monthDay formats YYYYMMDD as MM/DD
func monthDay(date string) string {
	if len(date) != 8 {
		return date
	}
	return date[4:6] + "/" + date[6:]
}

// clock formats HHMMSS as HH:MM
func clock(t string) string {
	if len(t) < 4 {
		return t
	}
	return t[:2] + ":" + t[2:4]
}
