package model

import "time"

// RoomLine is the priced view of a single cart room entry.
type RoomLine struct {
	RoomID        string    `json:"room_id"`
	HotelID       string    `json:"hotel_id"`
	HotelName     string    `json:"hotel_name"`
	RoomType      string    `json:"room_type"`
	CheckIn       time.Time `json:"check_in"`
	CheckOut      time.Time `json:"check_out"`
	Nights        int       `json:"nights"`
	Guests        int       `json:"guests"`
	NightlyCents  int64     `json:"nightly_cents"`
	SubtotalCents int64     `json:"subtotal_cents"`
	TaxCents      int64     `json:"tax_cents"`
}

// Breakdown is the monetary composition of a checkout.
type Breakdown struct {
	PlayerCount       int        `json:"player_count"`
	EntryFeeCents     int64      `json:"entry_fee_cents"`
	RegistrationCents int64      `json:"registration_cents"`
	Nights            int        `json:"nights"`
	HotelCents        int64      `json:"hotel_cents"`
	HotelTaxCents     int64      `json:"hotel_tax_cents"`
	ServiceFeeCents   int64      `json:"service_fee_cents"`
	SubtotalCents     int64      `json:"subtotal_cents"`
	TotalCents        int64      `json:"total_cents"`
	Rooms             []RoomLine `json:"rooms"`
}

// PricedRoom joins a cart entry with the room and hotel it refers to.
type PricedRoom struct {
	Entry CartRoom
	Room  *HotelRoom
	Hotel *Hotel
}

// ComputeBreakdown prices a cart. Percentages are in basis points and every
// percentage-derived amount is rounded half up to the cent.
func ComputeBreakdown(entryFeeCents int64, players int, rooms []PricedRoom, serviceFeeBasisPoints int) Breakdown {
	b := Breakdown{
		PlayerCount:       players,
		EntryFeeCents:     entryFeeCents,
		RegistrationCents: entryFeeCents * int64(players),
		Rooms:             make([]RoomLine, 0, len(rooms)),
	}

	for _, pr := range rooms {
		nights := Nights(pr.Entry.CheckIn, pr.Entry.CheckOut)
		subtotal := pr.Room.PricePerNightCents * int64(nights)
		tax := ApplyBasisPoints(subtotal, pr.Hotel.TaxRateBasisPoints)

		b.Rooms = append(b.Rooms, RoomLine{
			RoomID:        pr.Room.ID,
			HotelID:       pr.Hotel.ID,
			HotelName:     pr.Hotel.Name,
			RoomType:      pr.Room.RoomType,
			CheckIn:       pr.Entry.CheckIn,
			CheckOut:      pr.Entry.CheckOut,
			Nights:        nights,
			Guests:        pr.Entry.Guests,
			NightlyCents:  pr.Room.PricePerNightCents,
			SubtotalCents: subtotal,
			TaxCents:      tax,
		})
		b.Nights += nights
		b.HotelCents += subtotal
		b.HotelTaxCents += tax
	}

	b.SubtotalCents = b.RegistrationCents + b.HotelCents
	b.ServiceFeeCents = ApplyBasisPoints(b.SubtotalCents, serviceFeeBasisPoints)
	b.TotalCents = b.SubtotalCents + b.HotelTaxCents + b.ServiceFeeCents
	return b
}

// ApplyBasisPoints returns amount * bp / 10000 rounded half up.
func ApplyBasisPoints(amount int64, bp int) int64 {
	if amount <= 0 || bp <= 0 {
		return 0
	}
	return (amount*int64(bp) + 5000) / 10000
}
