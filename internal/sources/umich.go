package sources

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/campusboard/announcements/backend/internal/config"
	"github.com/campusboard/announcements/backend/internal/models"
	"github.com/campusboard/announcements/backend/internal/processing"
)

const (
	collegeDescriptionLimit = 100
	collegeDescription      = "College academic event or announcement"
)

type umichEvent struct {
	ID             flexID `json:"id"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	Permalink      string `json:"permalink"`
	EventInstances []struct {
		EventInstance struct {
			StartDate string `json:"start_date"`
		} `json:"event_instance"`
	} `json:"event_instances"`
}

// UMich reads academic events from the University of Michigan events API.
type UMich struct {
	cfg    config.Upstream
	client *http.Client
	now    func() time.Time
}

func NewUMich(cfg config.Upstream, now func() time.Time) *UMich {
	if now == nil {
		now = time.Now
	}
	return &UMich{cfg: cfg, client: NewHTTPClient(cfg.Timeout), now: now}
}

func (u *UMich) Name() string { return "umich" }

// Fetch returns at most DefaultLimit events dated by their first instance, or today.
func (u *UMich) Fetch(ctx context.Context) ([]models.Announcement, error) {
	return observe(u.Name(), func() ([]models.Announcement, error) {
		var body struct {
			Data *[]umichEvent `json:"data"`
		}
		if err := getJSON(ctx, u.client, u.cfg, &body); err != nil {
			return nil, err
		}
		if body.Data == nil {
			return nil, errors.New("invalid response format: missing data")
		}

		today := models.Today(u.now())
		items := make([]models.Announcement, 0, len(*body.Data))
		for _, ev := range *body.Data {
			date := today
			if len(ev.EventInstances) > 0 {
				date = firstNonEmpty(ev.EventInstances[0].EventInstance.StartDate, today)
			}
			items = append(items, models.Announcement{
				ID:          namespaced("college", ev.ID),
				Type:        models.TypeCollege,
				Title:       ev.Title,
				Description: processing.Summarize(ev.Description, collegeDescriptionLimit, collegeDescription),
				Date:        date,
				Priority:    models.PriorityMedium,
				Category:    "Academic",
				Author:      "University Events",
				Link:        ev.Permalink,
				Source:      "University Events API",
			})
		}
		return collect(DefaultLimit, items), nil
	})
}
