package sources

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/campusboard/announcements/backend/internal/config"
	"github.com/campusboard/announcements/backend/internal/models"
	"github.com/campusboard/announcements/backend/internal/processing"
)

const (
	workshopDescriptionLimit = 120
	workshopDescription      = "Join this workshop to learn new skills!"
)

type meetupEvent struct {
	ID          flexID `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Time        int64  `json:"time"`
	Link        string `json:"link"`
	Group       *struct {
		Name string `json:"name"`
	} `json:"group"`
	Venue *struct {
		City  string `json:"city"`
		State string `json:"state"`
	} `json:"venue"`
}

// Meetup lists upcoming technology meetups.
type Meetup struct {
	cfg    config.Upstream
	client *http.Client
}

func NewMeetup(cfg config.Upstream) *Meetup {
	return &Meetup{cfg: cfg, client: NewHTTPClient(cfg.Timeout)}
}

func (m *Meetup) Name() string { return "meetup" }

// Fetch returns at most DefaultLimit workshops. An event without a start time
// fails the whole fetch so the workshop chain moves on to the next source.
func (m *Meetup) Fetch(ctx context.Context) ([]models.Announcement, error) {
	return observe(m.Name(), func() ([]models.Announcement, error) {
		var body struct {
			Events *[]meetupEvent `json:"events"`
		}
		if err := getJSON(ctx, m.client, m.cfg, &body); err != nil {
			return nil, err
		}
		if body.Events == nil {
			return nil, errors.New("invalid response format: missing events")
		}

		items := make([]models.Announcement, 0, len(*body.Events))
		for _, ev := range *body.Events {
			if ev.Time <= 0 {
				return nil, fmt.Errorf("event %q has no start time", string(ev.ID))
			}
			author := "Tech Community"
			if ev.Group != nil && ev.Group.Name != "" {
				author = ev.Group.Name
			}
			location := "Online"
			if ev.Venue != nil {
				location = ev.Venue.City + ", " + ev.Venue.State
			}
			items = append(items, models.Announcement{
				ID:          namespaced("workshop", ev.ID),
				Type:        models.TypeWorkshop,
				Title:       ev.Name,
				Description: processing.Summarize(ev.Description, workshopDescriptionLimit, workshopDescription),
				Date:        models.Today(time.UnixMilli(ev.Time)),
				Priority:    models.PriorityMedium,
				Category:    "Workshop",
				Author:      author,
				Link:        ev.Link,
				Location:    location,
				Source:      "Meetup API",
			})
		}
		return collect(DefaultLimit, items), nil
	})
}
