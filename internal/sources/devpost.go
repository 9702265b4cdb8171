package sources

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/campusboard/announcements/backend/internal/config"
	"github.com/campusboard/announcements/backend/internal/models"
	"github.com/campusboard/announcements/backend/internal/processing"
)

const (
	hackathonDescriptionLimit = 150
	hackathonDescription      = "Join this exciting hackathon and showcase your skills!"
	hackathonPrize            = "Exciting prizes"
)

type devpostHackathon struct {
	ID                    flexID          `json:"id"`
	Title                 string          `json:"title"`
	Description           string          `json:"description"`
	SubmissionPeriodDates string          `json:"submission_period_dates"`
	UpdatedAt             string          `json:"updated_at"`
	Organization          string          `json:"organization"`
	URL                   string          `json:"url"`
	ThumbnailURL          string          `json:"thumbnail_url"`
	PrizeAmount           json.RawMessage `json:"prize_amount"`
	RegistrationEndDate   string          `json:"registration_end_date"`
}

// Devpost lists open hackathons.
type Devpost struct {
	cfg    config.Upstream
	client *http.Client
}

func NewDevpost(cfg config.Upstream) *Devpost {
	return &Devpost{cfg: cfg, client: NewHTTPClient(cfg.Timeout)}
}

func (d *Devpost) Name() string { return "devpost" }

// Fetch returns at most HackathonLimit hackathons.
func (d *Devpost) Fetch(ctx context.Context) ([]models.Announcement, error) {
	return observe(d.Name(), func() ([]models.Announcement, error) {
		var body struct {
			Hackathons *[]devpostHackathon `json:"hackathons"`
		}
		if err := getJSON(ctx, d.client, d.cfg, &body); err != nil {
			return nil, err
		}
		if body.Hackathons == nil {
			return nil, errors.New("invalid response format: missing hackathons")
		}

		items := make([]models.Announcement, 0, len(*body.Hackathons))
		for _, h := range *body.Hackathons {
			items = append(items, models.Announcement{
				ID:                   namespaced("hackathon", h.ID),
				Type:                 models.TypeHackathon,
				Title:                h.Title,
				Description:          processing.Summarize(h.Description, hackathonDescriptionLimit, hackathonDescription),
				Date:                 firstNonEmpty(h.SubmissionPeriodDates, h.UpdatedAt),
				Priority:             models.PriorityHigh,
				Category:             "Competition",
				Author:               firstNonEmpty(h.Organization, "Devpost"),
				Link:                 h.URL,
				Image:                h.ThumbnailURL,
				Prize:                prizeText(h.PrizeAmount),
				RegistrationDeadline: h.RegistrationEndDate,
				Source:               "Devpost API",
			})
		}
		return collect(HackathonLimit, items), nil
	})
}

// prizeText formats a numeric prize amount; Devpost sometimes sends it as
// marked-up text such as "$<span>10,000</span>".
func prizeText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return hackathonPrize
	}

	var amount float64
	if err := json.Unmarshal(raw, &amount); err == nil {
		if amount == 0 {
			return hackathonPrize
		}
		return processing.FormatPrize(amount)
	}

	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return hackathonPrize
	}
	text = strings.NewReplacer("$", "", ",", "").Replace(processing.StripTags(text))
	amount, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil || amount == 0 {
		return hackathonPrize
	}
	return processing.FormatPrize(amount)
}
