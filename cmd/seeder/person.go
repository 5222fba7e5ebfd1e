package main

import (
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/sanspareilsmyn/mongolens/internal/document"
)

const (
	minAge, maxAge       = 18, 65
	minHeight, maxHeight = 150, 200
	minWeight, maxWeight = 50, 120
	recentUpdateWindow   = 7 * 24 * time.Hour
)

var firstNames = []string{"Alice", "Bruno", "Chloé", "Diego", "Emma", "Farid", "Giulia", "Hugo", "Inès", "Jonas"}

// generatePerson returns a random person document. Roughly one in three
// documents has never been modified, so updatedAt equals createdAt.
func generatePerson(rng *rand.Rand, now time.Time) document.Document {
	created := now.Add(-time.Duration(rng.Int63n(int64(365 * 24 * time.Hour))))
	updated := created
	if rng.Intn(3) > 0 {
		window := min(now.Sub(created), recentUpdateWindow)
		updated = now.Add(-time.Duration(rng.Int63n(int64(window) + 1)))
	}

	return document.Document{
		"personId":  uuid.NewString(),
		"name":      firstNames[rng.Intn(len(firstNames))],
		"age":       minAge + rng.Intn(maxAge-minAge+1),
		"height":    minHeight + rng.Intn(maxHeight-minHeight+1),
		"weight":    minWeight + rng.Intn(maxWeight-minWeight+1),
		"createdAt": created.UTC(),
		"updatedAt": updated.UTC(),
	}
}
