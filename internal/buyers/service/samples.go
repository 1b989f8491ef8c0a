package service

import (
	"lead_broker_backend/internal/buyers/domain"
	"lead_broker_backend/internal/geo"
)

func miles(v float64) *float64 { return &v }

// SampleBuyers returns the demonstration buyer pool. Capacities correspond to
// each buyer's prepaid balance divided by its cheapest accepted tier.
func SampleBuyers() []domain.Buyer {
	austin := geo.Point{Lat: 30.2672, Lon: -97.7431}
	dallas := geo.Point{Lat: 32.7767, Lon: -96.7970}

	return []domain.Buyer{
		{
			ID:                "B001",
			CompanyName:       "Swift Local Movers",
			ContactEmail:      "contact@swiftlocal.com",
			ServiceArea:       geo.ServiceArea{Regions: []string{"Texas", "Austin"}, MaxTripMiles: miles(50)},
			AcceptedTiers:     []string{"silver", "bronze"},
			Specialties:       []string{"local", "apartments"},
			Capacity:          40,
			RemainingCapacity: 40,
			Active:            true,
			Rating:            4.6,
			ResponseTimeMins:  45,
			ConversionRate:    0.25,
		},
		{
			ID:                "B002",
			CompanyName:       "Premier Moving Services",
			ContactEmail:      "sales@premiermove.com",
			ServiceArea:       geo.ServiceArea{Regions: []string{geo.Nationwide}},
			AcceptedTiers:     []string{"platinum", "gold"},
			Specialties:       []string{"long_distance", "white_glove"},
			Capacity:          100,
			RemainingCapacity: 100,
			Active:            true,
			Rating:            4.9,
			ResponseTimeMins:  20,
			ConversionRate:    0.45,
		},
		{
			ID:                "B003",
			CompanyName:       "College Town Movers",
			ContactEmail:      "info@collegetownmovers.com",
			ServiceArea:       geo.ServiceArea{Regions: []string{"Texas", "Austin", "Dallas"}, MaxTripMiles: miles(75)},
			AcceptedTiers:     []string{"silver", "bronze"},
			Specialties:       []string{"students", "small_moves"},
			Capacity:          30,
			RemainingCapacity: 30,
			Active:            true,
			Rating:            4.5,
			ResponseTimeMins:  60,
			ConversionRate:    0.30,
		},
		{
			ID:                "B004",
			CompanyName:       "Capital City Relocation",
			ContactEmail:      "leads@capitalcityrelo.com",
			ContactPhone:      "+15125550110",
			BaseAddress:       "Austin, TX",
			ServiceArea:       geo.ServiceArea{Center: &austin, RadiusMiles: 60},
			AcceptedTiers:     []string{"gold", "platinum", "silver"},
			Specialties:       []string{"residential", "packing"},
			Capacity:          50,
			RemainingCapacity: 50,
			Active:            true,
			Rating:            4.7,
			ResponseTimeMins:  30,
			ConversionRate:    0.38,
		},
		{
			ID:                "B005",
			CompanyName:       "Metroplex Moving Co",
			ContactEmail:      "dispatch@metroplexmoving.com",
			ContactPhone:      "+12145550188",
			BaseAddress:       "Dallas, TX",
			ServiceArea:       geo.ServiceArea{Center: &dallas, RadiusMiles: 80},
			AcceptedTiers:     []string{"platinum", "gold", "silver", "bronze"},
			Specialties:       []string{"residential", "commercial"},
			Capacity:          60,
			RemainingCapacity: 60,
			Active:            true,
			Rating:            4.4,
			ResponseTimeMins:  40,
			ConversionRate:    0.28,
		},
	}
}
