package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/campusboard/announcements/backend/internal/metrics"
	"github.com/campusboard/announcements/backend/internal/models"
)

// Result caps bound the payload each adapter may return.
const (
	HackathonLimit = 10
	DefaultLimit   = 5
)

// ErrUnavailable marks any failure of an upstream to produce data.
var ErrUnavailable = errors.New("source unavailable")

// Source fetches one upstream and normalizes it into announcements.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]models.Announcement, error)
}

// SourceError names the adapter that failed; it matches ErrUnavailable.
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() []error {
	return []error{ErrUnavailable, e.Err}
}

func unavailable(source string, err error) error {
	return &SourceError{Source: source, Err: err}
}

// observe wraps an adapter fetch with metrics and error classification.
func observe(name string, fetch func() ([]models.Announcement, error)) ([]models.Announcement, error) {
	start := time.Now()
	items, err := fetch()
	metrics.ObserveUpstream(name, start, err)
	if err != nil {
		return nil, unavailable(name, err)
	}
	return items, nil
}

// collect keeps valid announcements up to limit. Invalid records are dropped
// before the cap applies, so valid records further down the upstream list
// can fill their places.
func collect(limit int, items []models.Announcement) []models.Announcement {
	out := make([]models.Announcement, 0, min(limit, len(items)))
	for _, item := range items {
		if len(out) == limit {
			break
		}
		if item.Validate() != nil {
			continue
		}
		out = append(out, item)
	}
	return out
}

// flexID accepts upstream identifiers encoded either as JSON strings or numbers.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	switch {
	case raw == "null":
		*f = ""
	case strings.HasPrefix(raw, `"`):
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(strings.TrimSpace(s))
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("id: %w", err)
		}
		*f = flexID(n.String())
	}
	return nil
}

func namespaced(prefix string, id flexID) string {
	if id == "" {
		return ""
	}
	return prefix + "-" + string(id)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
