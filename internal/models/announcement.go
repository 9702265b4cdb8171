package models

import (
	"errors"
	"fmt"
	"time"
)

// Type classifies an announcement for client-side filtering.
type Type string

const (
	TypeHackathon  Type = "hackathon"
	TypeWorkshop   Type = "workshop"
	TypeTechnology Type = "technology"
	TypeCollege    Type = "college"
)

// Valid reports whether t belongs to the closed set of announcement types.
func (t Type) Valid() bool {
	switch t {
	case TypeHackathon, TypeWorkshop, TypeTechnology, TypeCollege:
		return true
	}
	return false
}

// Priority is assigned per category, never derived from upstream data.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// NoLink marks an announcement without an actionable URL.
const NoLink = "#"

// DateLayout is the day-precision layout used for synthesized dates.
const DateLayout = "2006-01-02"

// Announcement is the normalized record every source adapter produces.
type Announcement struct {
	ID                   string   `json:"id"`
	Type                 Type     `json:"type"`
	Title                string   `json:"title"`
	Description          string   `json:"description"`
	Date                 string   `json:"date"`
	Priority             Priority `json:"priority"`
	Category             string   `json:"category"`
	Author               string   `json:"author"`
	Link                 string   `json:"link"`
	Source               string   `json:"source"`
	Image                string   `json:"image,omitempty"`
	Prize                string   `json:"prize,omitempty"`
	RegistrationDeadline string   `json:"registrationDeadline,omitempty"`
	Location             string   `json:"location,omitempty"`
}

// Validate checks the invariants shared by all announcements.
func (a Announcement) Validate() error {
	if a.ID == "" {
		return errors.New("announcement: empty id")
	}
	if !a.Type.Valid() {
		return fmt.Errorf("announcement %s: invalid type %q", a.ID, a.Type)
	}
	if a.Source == "" {
		return fmt.Errorf("announcement %s: empty source", a.ID)
	}
	return nil
}

// Today formats t as a day-precision UTC date.
func Today(t time.Time) string {
	return t.UTC().Format(DateLayout)
}
