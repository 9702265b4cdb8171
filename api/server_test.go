package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/campusboard/announcements/backend/internal/config"
	"github.com/campusboard/announcements/backend/internal/elasticsearch"
	"github.com/campusboard/announcements/backend/internal/feed"
	"github.com/campusboard/announcements/backend/internal/logger"
	"github.com/campusboard/announcements/backend/internal/models"
	"github.com/campusboard/announcements/backend/internal/processing"
	"github.com/campusboard/announcements/backend/internal/publish"
	"github.com/campusboard/announcements/backend/internal/sources"
)

var fixedNow = time.Date(2024, 5, 10, 9, 30, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

type stubSource struct {
	name  string
	items []models.Announcement
	err   error
	panic bool
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Fetch(context.Context) ([]models.Announcement, error) {
	if s.panic {
		panic("adapter bug")
	}
	if s.err != nil {
		return nil, &sources.SourceError{Source: s.name, Err: s.err}
	}
	return s.items, nil
}

type stubPublisher struct {
	mu    sync.Mutex
	calls [][]models.Announcement
	err   error
}

func (p *stubPublisher) Publish(_ context.Context, items []models.Announcement) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, items)
	return "snap", p.err
}

func (p *stubPublisher) Close() error { return nil }

type stubArchive struct {
	params elasticsearch.SearchParams
	result *elasticsearch.SearchResult
	err    error
}

func (a *stubArchive) SearchAnnouncements(_ context.Context, params elasticsearch.SearchParams) (*elasticsearch.SearchResult, error) {
	a.params = params
	return a.result, a.err
}

func upstream(t *testing.T, status int, body string) config.Upstream {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return config.Upstream{URL: srv.URL, Timeout: time.Second}
}

func newServer(srcs map[feed.Category]sources.Source) *server {
	return &server{
		log:       logger.Discard(),
		cfg:       &config.API{DefaultPage: 20, MaxPage: 100, PublishTimeout: time.Second},
		feed:      feed.New(feed.Options{Sources: srcs, Now: clock}),
		publisher: publish.Noop{},
		now:       clock,
	}
}

func do(t *testing.T, s *server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func decodeItems(t *testing.T, rec *httptest.ResponseRecorder) []models.Announcement {
	t.Helper()
	var items []models.Announcement
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	return items
}

func TestHackathonsFallbackWhenDevpostDown(t *testing.T) {
	s := newServer(map[feed.Category]sources.Source{
		feed.Hackathons: sources.NewDevpost(upstream(t, http.StatusServiceUnavailable, "")),
	})

	rec := do(t, s, http.MethodGet, "/api/hackathons")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	items := decodeItems(t, rec)
	require.Len(t, items, 1)
	require.Equal(t, "hackathon-fallback-1", items[0].ID)
	require.Equal(t, models.TypeHackathon, items[0].Type)
	require.Equal(t, "2024-05-10", items[0].Date)
}

func TestCollegeNewsFallbackWhenUnreachable(t *testing.T) {
	s := newServer(map[feed.Category]sources.Source{
		feed.CollegeNews: sources.NewUMich(config.Upstream{URL: "http://127.0.0.1:1", Timeout: time.Second}, clock),
	})

	rec := do(t, s, http.MethodGet, "/api/college-news")
	require.Equal(t, http.StatusOK, rec.Code)

	items := decodeItems(t, rec)
	require.Len(t, items, 1)
	require.Equal(t, "college-default-1", items[0].ID)
	require.Equal(t, models.NoLink, items[0].Link)
}

func TestWorkshopsBothSourcesEmpty(t *testing.T) {
	s := newServer(map[feed.Category]sources.Source{
		feed.Workshops: feed.FirstSuccess(
			sources.NewMeetup(upstream(t, http.StatusOK, `{"events":[]}`)),
			&stubSource{name: "eventbrite"},
		),
	})

	rec := do(t, s, http.MethodGet, "/api/workshops")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.JSONEq(t, `{"error":"Failed to fetch workshops","message":"Workshop sources are currently unavailable"}`, rec.Body.String())
}

func TestWorkshopsSecondSourceWins(t *testing.T) {
	s := newServer(map[feed.Category]sources.Source{
		feed.Workshops: feed.FirstSuccess(
			sources.NewMeetup(upstream(t, http.StatusBadGateway, "")),
			sources.NewEventbrite(clock),
		),
	})

	rec := do(t, s, http.MethodGet, "/api/workshops")
	require.Equal(t, http.StatusOK, rec.Code)
	items := decodeItems(t, rec)
	require.Len(t, items, 1)
	require.Equal(t, "workshop-eventbrite-1", items[0].ID)
}

func TestWorkshopsUndatedMeetupFallsThrough(t *testing.T) {
	s := newServer(map[feed.Category]sources.Source{
		feed.Workshops: feed.FirstSuccess(
			sources.NewMeetup(upstream(t, http.StatusOK, `{"events":[{"id":"ev1","name":"Undated"}]}`)),
			sources.NewEventbrite(clock),
		),
	})

	rec := do(t, s, http.MethodGet, "/api/workshops")
	require.Equal(t, http.StatusOK, rec.Code)
	items := decodeItems(t, rec)
	require.Len(t, items, 1)
	require.Equal(t, "workshop-eventbrite-1", items[0].ID)
}

func TestTechNewsGuardianExample(t *testing.T) {
	s := newServer(map[feed.Category]sources.Source{
		feed.TechNews: sources.NewGuardian(upstream(t, http.StatusOK,
			`{"response":{"results":[{"id":"t1","webTitle":"X","webPublicationDate":"2024-01-01T00:00:00Z","webUrl":"https://x"}]}}`)),
	})

	rec := do(t, s, http.MethodGet, "/api/tech-news")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `[{
		"id":"tech-t1","type":"technology","title":"X",
		"description":"Latest technology news and updates","date":"2024-01-01",
		"priority":"low","category":"Technology","author":"The Guardian",
		"link":"https://x","source":"Guardian API"
	}]`, rec.Body.String())
}

func TestTechNewsFailure(t *testing.T) {
	s := newServer(map[feed.Category]sources.Source{
		feed.TechNews: sources.NewGuardian(upstream(t, http.StatusOK, `not json`)),
	})

	rec := do(t, s, http.MethodGet, "/api/tech-news")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.JSONEq(t, `{"error":"Failed to fetch tech news","message":"Tech news sources are currently unavailable"}`, rec.Body.String())
}

func TestEmptyCategoryIsArray(t *testing.T) {
	s := newServer(map[feed.Category]sources.Source{
		feed.CollegeNews: &stubSource{name: "umich", items: []models.Announcement{}},
	})

	rec := do(t, s, http.MethodGet, "/api/college-news")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestAnnouncementsMergesSortsAndPublishes(t *testing.T) {
	s := newServer(map[feed.Category]sources.Source{
		feed.Hackathons: &stubSource{name: "devpost", items: []models.Announcement{
			{ID: "hackathon-1", Type: models.TypeHackathon, Date: "2024-03-01", Source: "Devpost API"},
		}},
		feed.Workshops: &stubSource{name: "meetup", err: errors.New("down")},
		feed.TechNews: &stubSource{name: "guardian", items: []models.Announcement{
			{ID: "tech-1", Type: models.TypeTechnology, Date: "2024-04-01", Source: "Guardian API"},
			{ID: "tech-2", Type: models.TypeTechnology, Date: "2023-12-01", Source: "Guardian API"},
		}},
		feed.CollegeNews: &stubSource{name: "umich", items: []models.Announcement{
			{ID: "college-1", Type: models.TypeCollege, Date: "2024-02-01", Source: "University Events API"},
		}},
	})
	pub := &stubPublisher{}
	s.publisher = pub

	rec := do(t, s, http.MethodGet, "/api/announcements")
	require.Equal(t, http.StatusOK, rec.Code)

	items := decodeItems(t, rec)
	got := make([]string, 0, len(items))
	for _, a := range items {
		got = append(got, a.ID)
	}
	require.Equal(t, []string{"tech-1", "hackathon-1", "college-1", "tech-2"}, got)
	for i := 0; i+1 < len(items); i++ {
		require.False(t, processing.ParseDate(items[i].Date).Before(processing.ParseDate(items[i+1].Date)))
	}

	s.pending.Wait()
	pub.mu.Lock()
	defer pub.mu.Unlock()
	require.Len(t, pub.calls, 1)
	require.Len(t, pub.calls[0], 4)
}

func TestAnnouncementsIgnoresPublishFailure(t *testing.T) {
	s := newServer(map[feed.Category]sources.Source{
		feed.TechNews: &stubSource{name: "guardian", items: []models.Announcement{
			{ID: "tech-1", Type: models.TypeTechnology, Date: "2024-04-01", Source: "Guardian API"},
		}},
	})
	s.publisher = &stubPublisher{err: errors.New("broker down")}

	rec := do(t, s, http.MethodGet, "/api/announcements")
	s.pending.Wait()
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decodeItems(t, rec), 1)
}

func TestAnnouncementsAllFailingIsEmptyArray(t *testing.T) {
	s := newServer(map[feed.Category]sources.Source{
		feed.Workshops: &stubSource{name: "meetup", err: errors.New("down")},
		feed.TechNews:  &stubSource{name: "guardian", err: errors.New("down")},
	})

	rec := do(t, s, http.MethodGet, "/api/announcements")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestPanicBecomesInternalError(t *testing.T) {
	s := newServer(map[feed.Category]sources.Source{
		feed.TechNews: &stubSource{name: "guardian", panic: true},
	})

	rec := do(t, s, http.MethodGet, "/api/tech-news")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.JSONEq(t, `{"error":"Internal server error","message":"Something went wrong on our end"}`, rec.Body.String())
}

func TestUnknownRoutesAreJSON404(t *testing.T) {
	s := newServer(nil)

	cases := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/unknown"},
		{http.MethodGet, "/nope"},
		{http.MethodPost, "/api/hackathons"},
		{http.MethodDelete, "/health"},
	}

	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			rec := do(t, s, tc.method, tc.path)
			require.Equal(t, http.StatusNotFound, rec.Code)
			require.JSONEq(t, `{"error":"Endpoint not found"}`, rec.Body.String())
		})
	}
}

func TestHealth(t *testing.T) {
	rec := do(t, newServer(nil), http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"OK","timestamp":"2024-05-10T09:30:00.000Z","service":"Announcements API"}`, rec.Body.String())
}

func TestRootListsEndpoints(t *testing.T) {
	rec := do(t, newServer(nil), http.MethodGet, "/")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Message   string            `json:"message"`
		Version   string            `json:"version"`
		Endpoints map[string]string `json:"endpoints"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "Announcements API Server", body.Message)
	require.Equal(t, "1.0.0", body.Version)
	require.Equal(t, "Get hackathons only", body.Endpoints["/api/hackathons"])
	require.Equal(t, "Health check", body.Endpoints["/health"])
	require.NotContains(t, body.Endpoints, "/api/archive")
}

func TestResponsesCarryCORSAndSecurityHeaders(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://campus.example")
	rec := httptest.NewRecorder()
	newServer(nil).routes().ServeHTTP(rec, req)

	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestMetricsEndpoint(t *testing.T) {
	s := newServer(nil)
	do(t, s, http.MethodGet, "/health")

	rec := do(t, s, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "announcements_http_requests_total")
}

func TestArchiveDisabledWithoutElasticsearch(t *testing.T) {
	rec := do(t, newServer(nil), http.MethodGet, "/api/archive?q=x")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestArchiveSearch(t *testing.T) {
	archive := &stubArchive{result: &elasticsearch.SearchResult{
		Total: 1,
		Items: []models.ArchivedAnnouncement{{Announcement: models.Announcement{ID: "tech-t1", Type: models.TypeTechnology}}},
	}}
	s := newServer(nil)
	s.archive = archive

	rec := do(t, s, http.MethodGet, "/api/archive?q=quantum&type=technology&source=Guardian+API&from=10&size=500")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "quantum", archive.params.Query)
	require.Equal(t, "technology", archive.params.Type)
	require.Equal(t, "Guardian API", archive.params.Source)
	require.Equal(t, 10, archive.params.From)
	require.Equal(t, 100, archive.params.Size)

	var body struct {
		Total int64 `json:"total"`
		Items []struct {
			ID string `json:"id"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.EqualValues(t, 1, body.Total)
	require.Equal(t, "tech-t1", body.Items[0].ID)
}

func TestArchiveSearchErrors(t *testing.T) {
	s := newServer(nil)
	s.archive = &stubArchive{err: errors.New("cluster red")}

	rec := do(t, s, http.MethodGet, "/api/archive")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), "Failed to search archive")

	rec = do(t, s, http.MethodGet, "/api/archive?type=sports")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
