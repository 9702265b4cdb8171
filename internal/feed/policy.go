package feed

import (
	"time"

	"github.com/campusboard/announcements/backend/internal/config"
	"github.com/campusboard/announcements/backend/internal/models"
	"github.com/campusboard/announcements/backend/internal/sources"
)

// Category names one announcement endpoint.
type Category string

const (
	Hackathons  Category = "hackathons"
	Workshops   Category = "workshops"
	TechNews    Category = "tech-news"
	CollegeNews Category = "college-news"
)

// Order is the contribution order of the combined feed before sorting.
var Order = []Category{Hackathons, Workshops, TechNews, CollegeNews}

// FallbackPolicy decides what a category serves once all its sources failed.
type FallbackPolicy int

const (
	// FallbackError surfaces the failure to the caller.
	FallbackError FallbackPolicy = iota
	// FallbackStatic serves the category's static records instead.
	FallbackStatic
)

func (p FallbackPolicy) String() string {
	if p == FallbackStatic {
		return "static"
	}
	return "error"
}

// DefaultPolicies keeps hackathons and college news always answering while
// workshops and tech news report outages.
func DefaultPolicies() map[Category]FallbackPolicy {
	return map[Category]FallbackPolicy{
		Hackathons:  FallbackStatic,
		Workshops:   FallbackError,
		TechNews:    FallbackError,
		CollegeNews: FallbackStatic,
	}
}

// DefaultLimits caps every category's payload.
func DefaultLimits() map[Category]int {
	return map[Category]int{
		Hackathons:  sources.HackathonLimit,
		Workshops:   sources.DefaultLimit,
		TechNews:    sources.DefaultLimit,
		CollegeNews: sources.DefaultLimit,
	}
}

// StaticRecords builds a category's fallback announcements for the given day.
type StaticRecords func(now time.Time) []models.Announcement

// DefaultFallbacks returns the static records of the categories with FallbackStatic.
func DefaultFallbacks() map[Category]StaticRecords {
	return map[Category]StaticRecords{
		Hackathons: func(now time.Time) []models.Announcement {
			return []models.Announcement{{
				ID:          "hackathon-fallback-1",
				Type:        models.TypeHackathon,
				Title:       "MLH Hackathon Season 2024",
				Description: "Participate in Major League Hacking events worldwide",
				Date:        models.Today(now),
				Priority:    models.PriorityHigh,
				Category:    "Competition",
				Author:      "Major League Hacking",
				Link:        "https://mlh.io",
				Prize:       "MLH Prizes and Swag",
				Source:      "MLH Events",
			}}
		},
		CollegeNews: func(now time.Time) []models.Announcement {
			return []models.Announcement{{
				ID:          "college-default-1",
				Type:        models.TypeCollege,
				Title:       "Academic Calendar Update",
				Description: "Important updates to the academic calendar and schedule",
				Date:        models.Today(now),
				Priority:    models.PriorityMedium,
				Category:    "Academic",
				Author:      "College Administration",
				Link:        models.NoLink,
				Source:      "College System",
			}}
		},
	}
}

// NewSources wires the production adapters for every category.
func NewSources(cfg config.Sources, now func() time.Time) map[Category]sources.Source {
	return map[Category]sources.Source{
		Hackathons:  sources.NewDevpost(cfg.Devpost),
		Workshops:   FirstSuccess(sources.NewMeetup(cfg.Meetup), sources.NewEventbrite(now)),
		TechNews:    sources.NewGuardian(cfg.Guardian),
		CollegeNews: sources.NewUMich(cfg.UMich, now),
	}
}
