package sources

import (
	"context"
	"time"

	"github.com/campusboard/announcements/backend/internal/models"
)

// Eventbrite serves a curated workshop until an API key is provisioned for
// the real Eventbrite search endpoint.
type Eventbrite struct {
	now func() time.Time
}

func NewEventbrite(now func() time.Time) *Eventbrite {
	if now == nil {
		now = time.Now
	}
	return &Eventbrite{now: now}
}

func (e *Eventbrite) Name() string { return "eventbrite" }

func (e *Eventbrite) Fetch(ctx context.Context) ([]models.Announcement, error) {
	return observe(e.Name(), func() ([]models.Announcement, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return collect(DefaultLimit, []models.Announcement{{
			ID:          "workshop-eventbrite-1",
			Type:        models.TypeWorkshop,
			Title:       "Tech Skills Workshop",
			Description: "Enhance your technical skills with hands-on learning",
			Date:        models.Today(e.now().Add(7 * 24 * time.Hour)),
			Priority:    models.PriorityMedium,
			Category:    "Workshop",
			Author:      "Tech Education Group",
			Link:        models.NoLink,
			Location:    "Online",
			Source:      "Eventbrite API",
		}}), nil
	})
}
