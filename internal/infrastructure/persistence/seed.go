package persistence

import (
	"time"

	"github.com/trackd/backend/internal/domain/tracking"
)

// DefaultSeed returns the protected demo records written on first run.
// Seeded records are global: they survive API deletes so a fresh install
// always has something to show.
func DefaultSeed() []tracking.Package {
	createdAt := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)

	delivered := tracking.Package{
		TrackingNumber: "8000000001",
		PackageImage:   tracking.PlaceholderImage,
		IsGlobal:       true,
		CreatedAt:      createdAt,
		Events: []tracking.Event{
			{
				Description: "Package created",
				Timestamp:   createdAt.Format(time.RFC3339),
				Location:    "Origin facility",
				Completed:   true,
			},
			{
				Description: "Departed origin facility",
				Timestamp:   createdAt.Add(6 * time.Hour).Format(time.RFC3339),
				Location:    "Origin facility",
				Completed:   true,
			},
			{
				Description: "Delivered",
				Timestamp:   createdAt.Add(52 * time.Hour).Format(time.RFC3339),
				Location:    "Front door",
				Completed:   true,
			},
		},
		Extra: map[string]any{
			"status":    "delivered",
			"sender":    "Demo Warehouse",
			"recipient": "Sample Customer",
		},
	}

	inTransit := tracking.Package{
		TrackingNumber: "8000000002",
		PackageImage:   tracking.PlaceholderImage,
		IsGlobal:       true,
		CreatedAt:      createdAt.Add(24 * time.Hour),
		Events: []tracking.Event{
			{
				Description: "Package created",
				Timestamp:   createdAt.Add(24 * time.Hour).Format(time.RFC3339),
				Location:    "Origin facility",
				Completed:   true,
			},
			{
				Description: "In transit to regional hub",
				Timestamp:   createdAt.Add(30 * time.Hour).Format(time.RFC3339),
				Location:    "Regional hub",
				Completed:   false,
			},
		},
		Extra: map[string]any{
			"status":    "in_transit",
			"sender":    "Demo Warehouse",
			"recipient": "Sample Customer",
		},
	}

	return []tracking.Package{delivered, inTransit}
}
