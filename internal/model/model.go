// Package model defines the core domain types for the NSC International
// events, hotels, and checkout backend.
package model

import "time"

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Date layout used for check-in/check-out and event dates on the wire.
const DateLayout = "2006-01-02"

// Nights returns the number of nights between two calendar dates.
// It returns zero when checkOut is not after checkIn.
func Nights(checkIn, checkOut time.Time) int {
	in := truncateDay(checkIn)
	out := truncateDay(checkOut)
	if !out.After(in) {
		return 0
	}
	return int(out.Sub(in).Hours() / 24)
}

// Overlaps reports whether [aIn, aOut) and [bIn, bOut) share at least one night.
func Overlaps(aIn, aOut, bIn, bOut time.Time) bool {
	return truncateDay(aIn).Before(truncateDay(bOut)) && truncateDay(bIn).Before(truncateDay(aOut))
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
