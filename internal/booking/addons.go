package booking

import (
	"fmt"

	"github.com/iliyamo/hotel-reservation/internal/model"
)

// ServiceRequest is a requested add-on.  Quantity means hours, items,
// kilograms or service units depending on the service; it is never the
// guest count.
type ServiceRequest struct {
	ServiceID uint64 `json:"service_id"`
	Quantity  int    `json:"quantity"`
}

// ServiceIDs returns the distinct ids referenced by reqs.
func ServiceIDs(reqs []ServiceRequest) []uint64 {
	seen := make(map[uint64]struct{}, len(reqs))
	ids := make([]uint64, 0, len(reqs))

	for _, r := range reqs {
		if _, ok := seen[r.ServiceID]; ok {
			continue
		}
		seen[r.ServiceID] = struct{}{}
		ids = append(ids, r.ServiceID)
	}

	return ids
}

// PriceServices sums the add-ons of a booking.  Requests for the same
// service are merged before the max-quantity check.
func PriceServices(reqs []ServiceRequest, catalog map[uint64]model.Service, guests Guests) ([]ServiceLine, int64, error) {
	verr := NewValidationError()
	merged := make(map[uint64]int, len(reqs))

	for _, r := range reqs {
		if r.Quantity < 1 {
			verr.Add(fmt.Sprintf("services.%d.quantity", r.ServiceID), "must be at least 1")
			continue
		}
		merged[r.ServiceID] += r.Quantity
	}

	if err := verr.Err(); err != nil {
		return nil, 0, err
	}

	lines := make([]ServiceLine, 0, len(merged))

	var total int64

	for _, id := range ServiceIDs(reqs) {
		qty := merged[id]

		svc, ok := catalog[id]
		if !ok {
			return nil, 0, fmt.Errorf("service %d: %w", id, ErrNotFound)
		}

		if !svc.Active {
			verr.Add(fmt.Sprintf("services.%d", id), "service is not available")
			continue
		}

		if svc.MaxQuantity != nil && qty > *svc.MaxQuantity {
			return nil, 0, fmt.Errorf("service %d: requested %d, max %d: %w", id, qty, *svc.MaxQuantity, ErrQuantityExceeded)
		}

		amount := svc.Price * int64(qty)
		if svc.Unit == model.UnitPerPerson {
			amount *= int64(guests.Total())
		}

		lines = append(lines, ServiceLine{
			ServiceID: id,
			Name:      svc.Name,
			Unit:      svc.Unit,
			UnitPrice: svc.Price,
			Quantity:  qty,
			Amount:    amount,
		})
		total += amount
	}

	if err := verr.Err(); err != nil {
		return nil, 0, err
	}

	return lines, total, nil
}
