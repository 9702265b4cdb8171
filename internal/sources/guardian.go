package sources

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/campusboard/announcements/backend/internal/config"
	"github.com/campusboard/announcements/backend/internal/models"
)

const techDescription = "Latest technology news and updates"

type guardianArticle struct {
	ID                 string `json:"id"`
	WebTitle           string `json:"webTitle"`
	WebPublicationDate string `json:"webPublicationDate"`
	WebURL             string `json:"webUrl"`
	Fields             *struct {
		TrailText string `json:"trailText"`
		Thumbnail string `json:"thumbnail"`
	} `json:"fields"`
}

// Guardian searches the technology section of the Guardian content API.
type Guardian struct {
	cfg    config.Upstream
	client *http.Client
}

func NewGuardian(cfg config.Upstream) *Guardian {
	return &Guardian{cfg: cfg, client: NewHTTPClient(cfg.Timeout)}
}

func (g *Guardian) Name() string { return "guardian" }

// Fetch returns at most DefaultLimit articles. Trail text is passed through untouched.
func (g *Guardian) Fetch(ctx context.Context) ([]models.Announcement, error) {
	return observe(g.Name(), func() ([]models.Announcement, error) {
		var body struct {
			Response *struct {
				Results *[]guardianArticle `json:"results"`
			} `json:"response"`
		}
		if err := getJSON(ctx, g.client, g.cfg, &body); err != nil {
			return nil, err
		}
		if body.Response == nil || body.Response.Results == nil {
			return nil, errors.New("invalid response format: missing response.results")
		}

		items := make([]models.Announcement, 0, len(*body.Response.Results))
		for _, a := range *body.Response.Results {
			description, image := techDescription, ""
			if a.Fields != nil {
				description = firstNonEmpty(a.Fields.TrailText, techDescription)
				image = a.Fields.Thumbnail
			}
			date, _, _ := strings.Cut(a.WebPublicationDate, "T")
			items = append(items, models.Announcement{
				ID:          namespaced("tech", flexID(a.ID)),
				Type:        models.TypeTechnology,
				Title:       a.WebTitle,
				Description: description,
				Date:        date,
				Priority:    models.PriorityLow,
				Category:    "Technology",
				Author:      "The Guardian",
				Link:        a.WebURL,
				Image:       image,
				Source:      "Guardian API",
			})
		}
		return collect(DefaultLimit, items), nil
	})
}
