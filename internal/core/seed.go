package core

import (
	"time"

	"agritrack/internal/infra/persistence/memory"
	"agritrack/pkg/domain"
)

// SeedSnapshot returns the built-in demonstration state applied when a
// persistence adapter finds no durable data. Stage timestamps take the
// provided instant so repeated seeding stays deterministic under test clocks.
func SeedSnapshot(now time.Time) memory.Snapshot {
	return memory.Snapshot{
		Products: []Product{
			{
				ID:           "mock-001",
				Name:         "Beras Organik",
				FarmLocation: "Subang",
				HarvestDate:  domain.NewDate(2023, time.October, 15),
				Variety:      "Pandan Wangi",
			},
			{
				ID:           "mock-002",
				Name:         "Kopi Arabica",
				FarmLocation: "Aceh",
				HarvestDate:  domain.NewDate(2023, time.September, 20),
				Variety:      "Gayo",
			},
		},
		Stages: []ProductStage{
			{
				ID:        "stage-001",
				ProductID: "mock-001",
				StageType: StageHarvest,
				Timestamp: now,
				Data:      "Panen dilakukan secara manual",
				Actor:     "petani-001",
			},
			{
				ID:        "stage-002",
				ProductID: "mock-001",
				StageType: StageProcess,
				Timestamp: now,
				Data:      "Pengeringan selama 2 hari",
				Actor:     "pengolah-001",
			},
		},
	}
}
