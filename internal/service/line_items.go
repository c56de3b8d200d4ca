package service

import (
	"fmt"

	"github.com/Shivanand-hulikatti/nsc-international/internal/model"
	"github.com/Shivanand-hulikatti/nsc-international/internal/payments"
)

// LineItems renders a breakdown as the rows shown on the Stripe checkout
// page. The rows always sum to b.TotalCents; zero-amount rows are omitted.
func LineItems(event *model.Event, players []model.Player, b model.Breakdown) []payments.LineItem {
	items := make([]payments.LineItem, 0, len(players)+len(b.Rooms)+2)

	if b.EntryFeeCents > 0 {
		for _, p := range players {
			items = append(items, payments.LineItem{
				Name:            "Registration: " + event.Title,
				Description:     p.FullName(),
				UnitAmountCents: b.EntryFeeCents,
				Quantity:        1,
			})
		}
	}

	for _, r := range b.Rooms {
		if r.SubtotalCents <= 0 {
			continue
		}
		desc := fmt.Sprintf("%s to %s, %d night(s), %d guest(s)",
			r.CheckIn.Format(model.DateLayout), r.CheckOut.Format(model.DateLayout), r.Nights, r.Guests)
		items = append(items, payments.LineItem{
			Name:            r.HotelName + " - " + r.RoomType,
			Description:     desc,
			UnitAmountCents: r.SubtotalCents,
			Quantity:        1,
		})
	}

	if b.HotelTaxCents > 0 {
		items = append(items, payments.LineItem{Name: "Hotel taxes", UnitAmountCents: b.HotelTaxCents, Quantity: 1})
	}
	if b.ServiceFeeCents > 0 {
		items = append(items, payments.LineItem{Name: "Service fee", UnitAmountCents: b.ServiceFeeCents, Quantity: 1})
	}
	return items
}
