package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/campusboard/announcements/backend/internal/metrics"
	"github.com/campusboard/announcements/backend/internal/models"
	"github.com/campusboard/announcements/backend/internal/processing"
	"github.com/campusboard/announcements/backend/internal/sources"
)

// Options configures a Feed. Zero-value maps fall back to the defaults.
type Options struct {
	Sources   map[Category]sources.Source
	Policies  map[Category]FallbackPolicy
	Fallbacks map[Category]StaticRecords
	Limits    map[Category]int
	Now       func() time.Time
	Logger    *slog.Logger
}

// Feed resolves announcement categories and the combined, date-sorted feed.
// It holds no per-request state and is safe for concurrent use.
type Feed struct {
	sources   map[Category]sources.Source
	policies  map[Category]FallbackPolicy
	fallbacks map[Category]StaticRecords
	limits    map[Category]int
	now       func() time.Time
	log       *slog.Logger
}

// New builds a Feed from opts.
func New(opts Options) *Feed {
	f := &Feed{
		sources:   opts.Sources,
		policies:  opts.Policies,
		fallbacks: opts.Fallbacks,
		limits:    opts.Limits,
		now:       opts.Now,
		log:       opts.Logger,
	}
	if f.policies == nil {
		f.policies = DefaultPolicies()
	}
	if f.fallbacks == nil {
		f.fallbacks = DefaultFallbacks()
	}
	if f.limits == nil {
		f.limits = DefaultLimits()
	}
	if f.now == nil {
		f.now = time.Now
	}
	if f.log == nil {
		f.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return f
}

// Policy reports the fallback policy configured for c.
func (f *Feed) Policy(c Category) FallbackPolicy {
	return f.policies[c]
}

// Category fetches one category. Failures are replaced by static records when
// the category's policy allows it; otherwise the error wraps ErrAllSourcesFailed.
func (f *Feed) Category(ctx context.Context, c Category) ([]models.Announcement, error) {
	src, ok := f.sources[c]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCategory, c)
	}

	items, err := src.Fetch(ctx)
	if err == nil {
		if limit, ok := f.limits[c]; ok && len(items) > limit {
			items = items[:limit]
		}
		f.log.Debug("category fetched", slog.String("category", string(c)), slog.Int("count", len(items)))
		return items, nil
	}

	if !errors.Is(err, ErrAllSourcesFailed) {
		err = fmt.Errorf("%w: %w", ErrAllSourcesFailed, err)
	}
	metrics.CategoryFailures.WithLabelValues(string(c)).Inc()

	if f.policies[c] == FallbackStatic {
		if build, ok := f.fallbacks[c]; ok {
			f.log.Warn("category sources failed, serving fallback",
				slog.String("category", string(c)),
				slog.Any("err", err),
			)
			metrics.FallbackSubstitutions.WithLabelValues(string(c)).Inc()
			return build(f.now()), nil
		}
	}

	f.log.Error("category sources failed", slog.String("category", string(c)), slog.Any("err", err))
	return nil, err
}

// All resolves every category concurrently, treats failed categories as
// empty and returns the concatenation sorted by date, newest first.
func (f *Feed) All(ctx context.Context) ([]models.Announcement, error) {
	groups := make([][]models.Announcement, len(Order))

	var wg sync.WaitGroup
	for i, c := range Order {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					f.log.Error("category panicked", slog.String("category", string(c)), slog.Any("panic", r))
				}
			}()
			items, err := f.Category(ctx, c)
			if err != nil {
				return
			}
			groups[i] = items
		}()
	}
	wg.Wait()

	merged, err := Merge(groups...)
	if err != nil {
		return nil, err
	}
	f.log.Info("announcements aggregated", slog.Int("count", len(merged)))
	return merged, nil
}

// Merge concatenates groups in order and stable-sorts the result by date
// descending. Records with unparseable dates go last in their relative order.
func Merge(groups ...[]models.Announcement) (out []models.Announcement, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("%w: %v", ErrAggregationFailed, r)
		}
	}()

	type dated struct {
		item models.Announcement
		ts   time.Time
	}

	total := 0
	for _, g := range groups {
		total += len(g)
	}
	all := make([]dated, 0, total)
	for _, g := range groups {
		for _, item := range g {
			all = append(all, dated{item: item, ts: processing.ParseDate(item.Date)})
		}
	}

	slices.SortStableFunc(all, func(a, b dated) int {
		switch {
		case a.ts.IsZero() && b.ts.IsZero():
			return 0
		case a.ts.IsZero():
			return 1
		case b.ts.IsZero():
			return -1
		}
		return b.ts.Compare(a.ts)
	})

	out = make([]models.Announcement, 0, total)
	for _, d := range all {
		out = append(out, d.item)
	}
	return out, nil
}
