package store

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"contactdesk-api/domain"
)

// Demo dataset generated when a collection file is absent or empty. The
// shape is fixed (counts, field coverage); the values come from rng so a
// fresh data directory never looks identical twice unless the seed is
// pinned.

const (
	seedContactCount = 25
	seedMaxTasks     = 3
)

var (
	seedFirstNames = []string{
		"Ava", "Ben", "Carla", "Diego", "Elena", "Felix", "Grace", "Hugo",
		"Iris", "Jonas", "Kira", "Leo", "Mara", "Nadia", "Omar", "Priya",
	}
	seedLastNames = []string{
		"Anderson", "Brown", "Chen", "Diaz", "Evans", "Fischer", "Garcia",
		"Hoffman", "Ito", "Jensen", "Klein", "Lopez", "Meyer", "Novak",
	}
	seedCompanies = []string{
		"Northwind", "Contoso", "Globex", "Initech", "Umbra Labs",
		"Blue Finch", "Halcyon", "Vertex Supply",
	}
	seedCities = []struct{ city, state string }{
		{"Austin", "TX"}, {"Denver", "CO"}, {"Portland", "OR"},
		{"Madison", "WI"}, {"Raleigh", "NC"}, {"Tucson", "AZ"},
		{"Boise", "ID"}, {"Savannah", "GA"},
	}
	seedTags = []string{"lead", "customer", "vendor", "vip", "newsletter", "churn-risk"}

	seedTaskTitles = []string{
		"Call about renewal", "Send proposal", "Schedule demo",
		"Follow up on invoice", "Review contract", "Prepare onboarding",
		"Check in after launch", "Share case study",
	}
	seedTaskNotes = []string{
		"", "", "Asked for pricing details.", "Prefers email over phone.",
		"Waiting on their legal team.", "",
	}
)

func seedContacts(rng *rand.Rand) []domain.Contact {
	now := time.Now().UnixMilli()
	recs := make([]domain.Contact, 0, seedContactCount)
	for i := 0; i < seedContactCount; i++ {
		first := seedFirstNames[rng.Intn(len(seedFirstNames))]
		last := seedLastNames[rng.Intn(len(seedLastNames))]
		loc := seedCities[rng.Intn(len(seedCities))]
		created := now - int64(rng.Intn(180))*millisPerDay
		rec := domain.Contact{
			ID:        fmt.Sprintf("C%05d", i+1),
			FirstName: first,
			LastName:  last,
			// The index keeps generated emails unique even when names repeat.
			Email:          fmt.Sprintf("%s.%s%d@example.com", strings.ToLower(first), strings.ToLower(last), i+1),
			Phone:          fmt.Sprintf("555-%04d", rng.Intn(10000)),
			Company:        seedCompanies[rng.Intn(len(seedCompanies))],
			City:           loc.city,
			State:          loc.state,
			Tags:           pickTags(rng),
			CreatedAt:      created,
			LastActivityAt: created + int64(rng.Intn(30))*millisPerDay,
		}
		recs = append(recs, rec)
	}
	return recs
}

func seedTasks(rng *rand.Rand, contactIDs []string) []domain.Task {
	now := time.Now().UnixMilli()
	priorities := []domain.Priority{domain.PriorityLow, domain.PriorityMedium, domain.PriorityHigh}
	recs := []domain.Task{}
	n := 1
	for _, contactID := range contactIDs {
		for i := 0; i < rng.Intn(seedMaxTasks+1); i++ {
			created := now - int64(rng.Intn(60))*millisPerDay
			rec := domain.Task{
				ID:        fmt.Sprintf("T%05d", n),
				ContactID: contactID,
				Title:     seedTaskTitles[rng.Intn(len(seedTaskTitles))],
				Notes:     seedTaskNotes[rng.Intn(len(seedTaskNotes))],
				Completed: rng.Intn(4) == 0,
				Priority:  priorities[rng.Intn(len(priorities))],
				CreatedAt: created,
				UpdatedAt: created,
			}
			if rng.Intn(2) == 0 {
				due := now + int64(rng.Intn(30)+1)*millisPerDay
				rec.DueDate = &due
			}
			recs = append(recs, rec)
			n++
		}
	}
	return recs
}

const millisPerDay = int64(24 * time.Hour / time.Millisecond)

func pickTags(rng *rand.Rand) []string {
	count := rng.Intn(3)
	if count == 0 {
		return nil
	}
	picked := make([]string, 0, count)
	for _, idx := range rng.Perm(len(seedTags))[:count] {
		picked = append(picked, seedTags[idx])
	}
	return picked
}
