package feed_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/campusboard/announcements/backend/internal/feed"
	"github.com/campusboard/announcements/backend/internal/models"
	"github.com/campusboard/announcements/backend/internal/processing"
	"github.com/campusboard/announcements/backend/internal/sources"
)

var fixedNow = time.Date(2024, 5, 10, 9, 30, 0, 0, time.UTC)

type stubSource struct {
	name  string
	items []models.Announcement
	err   error
	panic bool
	calls atomic.Int32
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Fetch(context.Context) ([]models.Announcement, error) {
	s.calls.Add(1)
	if s.panic {
		panic("boom")
	}
	if s.err != nil {
		return nil, &sources.SourceError{Source: s.name, Err: s.err}
	}
	return s.items, nil
}

func announcement(id string, typ models.Type, date string) models.Announcement {
	return models.Announcement{ID: id, Type: typ, Date: date, Source: "test"}
}

func ids(items []models.Announcement) []string {
	out := make([]string, 0, len(items))
	for _, a := range items {
		out = append(out, a.ID)
	}
	return out
}

func TestFirstSuccessFirstNonEmptyWins(t *testing.T) {
	first := &stubSource{name: "a", items: []models.Announcement{announcement("workshop-a", models.TypeWorkshop, "2024-01-01")}}
	second := &stubSource{name: "b", items: []models.Announcement{announcement("workshop-b", models.TypeWorkshop, "2024-01-02")}}

	got, err := feed.FirstSuccess(first, second).Fetch(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"workshop-a"}, ids(got))
	require.EqualValues(t, 0, second.calls.Load())
}

func TestFirstSuccessSkipsFailuresAndEmpties(t *testing.T) {
	failing := &stubSource{name: "a", err: errors.New("down")}
	empty := &stubSource{name: "b"}
	last := &stubSource{name: "c", items: []models.Announcement{announcement("workshop-c", models.TypeWorkshop, "")}}

	chain := feed.FirstSuccess(failing, empty, last)
	require.Equal(t, "a>b>c", chain.Name())

	got, err := chain.Fetch(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"workshop-c"}, ids(got))
	require.EqualValues(t, 1, failing.calls.Load())
	require.EqualValues(t, 1, empty.calls.Load())
}

func TestFirstSuccessAllEmpty(t *testing.T) {
	_, err := feed.FirstSuccess(&stubSource{name: "a"}, &stubSource{name: "b"}).Fetch(context.Background())
	require.ErrorIs(t, err, feed.ErrAllSourcesFailed)
	require.NotErrorIs(t, err, sources.ErrUnavailable)
}

func TestFirstSuccessKeepsLastError(t *testing.T) {
	_, err := feed.FirstSuccess(&stubSource{name: "a", err: errors.New("down")}, &stubSource{name: "b"}).Fetch(context.Background())
	require.ErrorIs(t, err, feed.ErrAllSourcesFailed)
	require.ErrorIs(t, err, sources.ErrUnavailable)
}

func newFeed(srcs map[feed.Category]sources.Source) *feed.Feed {
	return feed.New(feed.Options{
		Sources: srcs,
		Now:     func() time.Time { return fixedNow },
	})
}

func TestCategoryStaticFallback(t *testing.T) {
	f := newFeed(map[feed.Category]sources.Source{
		feed.Hackathons:  &stubSource{name: "devpost", err: errors.New("http 503")},
		feed.CollegeNews: &stubSource{name: "umich", err: errors.New("timeout")},
	})

	got, err := f.Category(context.Background(), feed.Hackathons)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "hackathon-fallback-1", got[0].ID)
	require.Equal(t, "2024-05-10", got[0].Date)
	require.Equal(t, "MLH Events", got[0].Source)

	got, err = f.Category(context.Background(), feed.CollegeNews)
	require.NoError(t, err)
	require.Equal(t, []string{"college-default-1"}, ids(got))
	require.Equal(t, models.NoLink, got[0].Link)
}

func TestCategoryErrorPolicy(t *testing.T) {
	f := newFeed(map[feed.Category]sources.Source{
		feed.TechNews:  &stubSource{name: "guardian", err: errors.New("http 500")},
		feed.Workshops: feed.FirstSuccess(&stubSource{name: "meetup"}, &stubSource{name: "eventbrite"}),
	})

	_, err := f.Category(context.Background(), feed.TechNews)
	require.ErrorIs(t, err, feed.ErrAllSourcesFailed)
	require.ErrorIs(t, err, sources.ErrUnavailable)

	_, err = f.Category(context.Background(), feed.Workshops)
	require.ErrorIs(t, err, feed.ErrAllSourcesFailed)
}

func TestCategoryUnknown(t *testing.T) {
	_, err := newFeed(nil).Category(context.Background(), feed.Category("games"))
	require.ErrorIs(t, err, feed.ErrUnknownCategory)
}

func TestCategoryAppliesLimit(t *testing.T) {
	var items []models.Announcement
	for i := 0; i < 8; i++ {
		items = append(items, announcement(fmt.Sprintf("tech-%d", i), models.TypeTechnology, "2024-01-01"))
	}
	f := newFeed(map[feed.Category]sources.Source{feed.TechNews: &stubSource{name: "guardian", items: items}})

	got, err := f.Category(context.Background(), feed.TechNews)
	require.NoError(t, err)
	require.Len(t, got, sources.DefaultLimit)
}

func TestDefaultPolicyTable(t *testing.T) {
	f := newFeed(nil)
	require.Equal(t, feed.FallbackStatic, f.Policy(feed.Hackathons))
	require.Equal(t, feed.FallbackError, f.Policy(feed.Workshops))
	require.Equal(t, feed.FallbackError, f.Policy(feed.TechNews))
	require.Equal(t, feed.FallbackStatic, f.Policy(feed.CollegeNews))
	require.Equal(t, "static", feed.FallbackStatic.String())
}

func TestAllToleratesOneFailingCategory(t *testing.T) {
	f := newFeed(map[feed.Category]sources.Source{
		feed.Hackathons:  &stubSource{name: "devpost", items: []models.Announcement{announcement("hackathon-1", models.TypeHackathon, "2024-03-01")}},
		feed.Workshops:   feed.FirstSuccess(&stubSource{name: "meetup", err: errors.New("down")}, &stubSource{name: "eventbrite"}),
		feed.TechNews:    &stubSource{name: "guardian", items: []models.Announcement{announcement("tech-1", models.TypeTechnology, "2024-04-01")}},
		feed.CollegeNews: &stubSource{name: "umich", items: []models.Announcement{announcement("college-1", models.TypeCollege, "2024-02-01")}},
	})

	got, err := f.All(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"tech-1", "hackathon-1", "college-1"}, ids(got))
}

func TestAllUsesFallbacks(t *testing.T) {
	f := newFeed(map[feed.Category]sources.Source{
		feed.Hackathons:  &stubSource{name: "devpost", err: errors.New("down")},
		feed.Workshops:   &stubSource{name: "meetup", err: errors.New("down")},
		feed.TechNews:    &stubSource{name: "guardian", err: errors.New("down")},
		feed.CollegeNews: &stubSource{name: "umich", err: errors.New("down")},
	})

	got, err := f.All(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"hackathon-fallback-1", "college-default-1"}, ids(got))
}

func TestAllSurvivesPanickingSource(t *testing.T) {
	f := newFeed(map[feed.Category]sources.Source{
		feed.Hackathons: &stubSource{name: "devpost", panic: true},
		feed.TechNews:   &stubSource{name: "guardian", items: []models.Announcement{announcement("tech-1", models.TypeTechnology, "2024-04-01")}},
	})

	got, err := f.All(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"tech-1"}, ids(got))
}

func TestAllIsSortedDescending(t *testing.T) {
	f := newFeed(map[feed.Category]sources.Source{
		feed.Hackathons: &stubSource{name: "devpost", items: []models.Announcement{
			announcement("hackathon-1", models.TypeHackathon, "Jan 02 - Feb 15, 2025"),
			announcement("hackathon-2", models.TypeHackathon, "2023-11-20T10:00:00Z"),
		}},
		feed.Workshops: &stubSource{name: "meetup", items: []models.Announcement{
			announcement("workshop-1", models.TypeWorkshop, "2024-06-01"),
		}},
		feed.TechNews: &stubSource{name: "guardian", items: []models.Announcement{
			announcement("tech-1", models.TypeTechnology, "2024-01-01"),
			announcement("tech-2", models.TypeTechnology, "2024-12-31"),
		}},
		feed.CollegeNews: &stubSource{name: "umich", items: []models.Announcement{
			announcement("college-1", models.TypeCollege, "2024-06-01"),
		}},
	})

	got, err := f.All(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 6)
	for i := 0; i+1 < len(got); i++ {
		a, b := processing.ParseDate(got[i].Date), processing.ParseDate(got[i+1].Date)
		require.False(t, a.Before(b), "%s before %s", got[i].ID, got[i+1].ID)
	}
	// equal dates keep contribution order
	require.Equal(t, []string{"hackathon-1", "tech-2", "workshop-1", "college-1", "tech-1", "hackathon-2"}, ids(got))
}

func TestMergeUndatedGoLast(t *testing.T) {
	got, err := feed.Merge(
		[]models.Announcement{announcement("a", models.TypeHackathon, "not a date")},
		[]models.Announcement{announcement("b", models.TypeWorkshop, "2024-01-01"), announcement("c", models.TypeWorkshop, "")},
		[]models.Announcement{announcement("d", models.TypeTechnology, "2024-02-01")},
	)
	require.NoError(t, err)
	require.Equal(t, []string{"d", "b", "a", "c"}, ids(got))
}

func TestMergeEmpty(t *testing.T) {
	got, err := feed.Merge()
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Empty(t, got)
}
