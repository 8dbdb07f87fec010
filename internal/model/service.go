package model

import "fmt"

// ServiceUnit tells the add-on aggregator how a quantity is interpreted.
type ServiceUnit string

const (
	UnitPerPerson  ServiceUnit = "per_person"
	UnitPerHour    ServiceUnit = "per_hour"
	UnitPerItem    ServiceUnit = "per_item"
	UnitPerService ServiceUnit = "per_service"
	UnitPerKg      ServiceUnit = "per_kg"
)

// IsValid reports whether u is one of the known units.
func (u ServiceUnit) IsValid() bool {
	switch u {
	case UnitPerPerson, UnitPerHour, UnitPerItem, UnitPerService, UnitPerKg:
		return true
	}
	return false
}

// ParseServiceUnit converts a stored string into a ServiceUnit.
func ParseServiceUnit(s string) (ServiceUnit, error) {
	u := ServiceUnit(s)
	if !u.IsValid() {
		return "", fmt.Errorf("invalid service unit: %s", s)
	}
	return u, nil
}

// Service is an ancillary item that can be attached to a booking
// (breakfast, airport transfer, laundry by the kilo, ...).  A nil
// MaxQuantity means the quantity is unbounded.
type Service struct {
	ID          uint64      `json:"id"`
	Name        string      `json:"name"`
	Price       int64       `json:"price"`
	Unit        ServiceUnit `json:"unit"`
	MaxQuantity *int        `json:"max_quantity,omitempty"`
	Active      bool        `json:"active"`
}
