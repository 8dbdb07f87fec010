package memory

import (
	"context"
	"fmt"

	"github.com/iliyamo/hotel-reservation/internal/model"
)

func intPtr(n int) *int { return &n }

// Seed loads a small demo catalog so the server is usable without MySQL.
func Seed(ctx context.Context, db *DB) error {
	rooms := []model.Room{
		{
			Number:       "101",
			Type:         "standard",
			MaxOccupancy: 2,
			Active:       true,
			Rates: model.RateCard{
				BasePrice: 500000,
				Hourly:    model.HourlyRate{FirstHour: 80000, AdditionalHour: 40000},
			},
		},
		{
			Number:       "204",
			Type:         "deluxe",
			MaxOccupancy: 3,
			Active:       true,
			Rates: model.RateCard{
				BasePrice: 1000000,
				Hourly:    model.HourlyRate{FirstHour: 100000, AdditionalHour: 50000},
			},
		},
		{
			Number:       "301",
			Type:         "suite",
			MaxOccupancy: 4,
			Active:       true,
			Rates: model.RateCard{
				BasePrice: 2000000,
				Hourly:    model.HourlyRate{FirstHour: 200000, AdditionalHour: 100000},
			},
		},
	}

	services := []model.Service{
		{Name: "Breakfast", Price: 50000, Unit: model.UnitPerPerson, Active: true},
		{Name: "Laundry", Price: 30000, Unit: model.UnitPerKg, MaxQuantity: intPtr(10), Active: true},
		{Name: "Airport transfer", Price: 250000, Unit: model.UnitPerService, MaxQuantity: intPtr(2), Active: true},
		{Name: "Spa", Price: 150000, Unit: model.UnitPerHour, MaxQuantity: intPtr(3), Active: true},
		{Name: "Minibar", Price: 20000, Unit: model.UnitPerItem, Active: true},
	}

	for _, r := range rooms {
		if _, err := db.AddRoom(ctx, r); err != nil {
			return fmt.Errorf("seed room %s: %w", r.Number, err)
		}
	}

	for _, s := range services {
		if _, err := db.AddService(ctx, s); err != nil {
			return fmt.Errorf("seed service %s: %w", s.Name, err)
		}
	}

	db.log.WithField("rooms", len(rooms)).Info("memory: demo catalog seeded")

	return nil
}
