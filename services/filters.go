package services

import "github.com/dhgwag/korail-reservation/models"

// InWindow reports whether a train departs inside the criterion's
// preferred-hour window [start, end). Without a complete window every train
// passes. Hours compare as two-digit strings.
func InWindow(t models.TrainOffer, c models.SearchCriterion) bool {
	if !c.HasWindow() {
		return true
	}
	h := t.DepartureHour()
	return *c.TimeStart <= h && h < *c.TimeEnd
}

// FilterWindow keeps the offers inside the preferred window, in order
func FilterWindow(offers []models.TrainOffer, c models.SearchCriterion) []models.TrainOffer {
	if !c.HasWindow() {
		return offers
	}
	kept := make([]models.TrainOffer, 0, len(offers))
	for _, t := range offers {
		if InWindow(t, c) {
			kept = append(kept, t)
		}
	}
	return kept
}

// SeatAvailable checks the seat class a criterion asks for
func SeatAvailable(t models.TrainOffer, seat models.SeatType) bool {
	switch seat {
	case models.SeatGeneral:
		return t.GeneralSeats
	case models.SeatSpecial:
		return t.SpecialSeats
	}
	return t.GeneralSeats || t.SpecialSeats
}

// ReserveOptionFor maps a seat class to the provider reserve option. The
// fallback decides the tie-break for seat class "any".
func ReserveOptionFor(seat models.SeatType, fallback models.ReserveOption) models.ReserveOption {
	switch seat {
	case models.SeatGeneral:
		return models.GeneralOnly
	case models.SeatSpecial:
		return models.SpecialOnly
	}
	if fallback == "" {
		return models.GeneralFirst
	}
	return fallback
}
