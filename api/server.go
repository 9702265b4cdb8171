package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/campusboard/announcements/backend/internal/config"
	"github.com/campusboard/announcements/backend/internal/elasticsearch"
	"github.com/campusboard/announcements/backend/internal/feed"
	"github.com/campusboard/announcements/backend/internal/models"
	"github.com/campusboard/announcements/backend/internal/publish"
)

const (
	serviceName = "Announcements API"
	version     = "1.0.0"
)

type archiveSearcher interface {
	SearchAnnouncements(ctx context.Context, params elasticsearch.SearchParams) (*elasticsearch.SearchResult, error)
}

type server struct {
	log       *slog.Logger
	cfg       *config.API
	feed      *feed.Feed
	publisher publish.Publisher
	archive   archiveSearcher // nil disables /api/archive
	now       func() time.Time
	pending   sync.WaitGroup
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

var (
	errNotFound = errorResponse{Error: "Endpoint not found"}
	errInternal = errorResponse{Error: "Internal server error", Message: "Something went wrong on our end"}
	errCombined = errorResponse{Error: "Failed to fetch announcements", Message: "Unable to retrieve announcements at this time"}
	errArchive  = errorResponse{Error: "Failed to search archive", Message: "The announcement archive is currently unavailable"}
)

// categoryErrors is what a category endpoint answers once its sources failed
// and no fallback applies.
var categoryErrors = map[feed.Category]errorResponse{
	feed.Hackathons:  {Error: "Failed to fetch hackathons", Message: "All hackathon sources are currently unavailable"},
	feed.Workshops:   {Error: "Failed to fetch workshops", Message: "Workshop sources are currently unavailable"},
	feed.TechNews:    {Error: "Failed to fetch tech news", Message: "Tech news sources are currently unavailable"},
	feed.CollegeNews: {Error: "Failed to fetch college news", Message: "College news sources are currently unavailable"},
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog(s.log))
	r.Use(instrument)
	r.Use(recoverJSON(s.log))
	r.Use(securityHeaders)
	r.Use(corsHandler())
	r.NotFound(s.handleNotFound)
	r.MethodNotAllowed(s.handleNotFound)

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		for _, c := range feed.Order {
			r.Get("/"+string(c), s.handleCategory(c))
		}
		r.Get("/announcements", s.handleAnnouncements)
		if s.archive != nil {
			r.Get("/archive", s.handleArchive)
		}
	})
	return r
}

func (s *server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	endpoints := map[string]string{
		"/api/announcements": "Get all announcements",
		"/api/hackathons":    "Get hackathons only",
		"/api/workshops":     "Get workshops only",
		"/api/tech-news":     "Get tech news only",
		"/api/college-news":  "Get college news only",
		"/health":            "Health check",
		"/metrics":           "Prometheus metrics",
	}
	if s.archive != nil {
		endpoints["/api/archive"] = "Search archived announcements"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":   "Announcements API Server",
		"version":   version,
		"endpoints": endpoints,
	})
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "OK",
		"timestamp": s.now().UTC().Format("2006-01-02T15:04:05.000Z"),
		"service":   serviceName,
	})
}

func (s *server) handleNotFound(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusNotFound, errNotFound)
}

func (s *server) handleCategory(c feed.Category) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := s.feed.Category(r.Context(), c)
		if err != nil {
			s.log.Error("category request failed",
				slog.String("category", string(c)),
				slog.String("request_id", middleware.GetReqID(r.Context())),
				slog.Any("err", err),
			)
			resp, ok := categoryErrors[c]
			if !ok {
				resp = errInternal
			}
			writeJSON(w, http.StatusInternalServerError, resp)
			return
		}
		writeJSON(w, http.StatusOK, nonNil(items))
	}
}

func (s *server) handleAnnouncements(w http.ResponseWriter, r *http.Request) {
	items, err := s.feed.All(r.Context())
	if err != nil {
		s.log.Error("aggregation failed",
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.Any("err", err),
		)
		writeJSON(w, http.StatusInternalServerError, errCombined)
		return
	}

	s.publishSnapshot(r.Context(), items)
	writeJSON(w, http.StatusOK, nonNil(items))
}

// publishSnapshot hands items to the publisher in the background. The
// response never waits for or reflects the outcome.
func (s *server) publishSnapshot(ctx context.Context, items []models.Announcement) {
	if len(items) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.PublishTimeout)
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		defer cancel()

		id, err := s.publisher.Publish(ctx, items)
		if err != nil {
			s.log.Warn("publish snapshot", slog.String("snapshot_id", id), slog.Any("err", err))
			return
		}
		if id != "" {
			s.log.Debug("snapshot handed off", slog.String("snapshot_id", id), slog.Int("count", len(items)))
		}
	}()
}

func (s *server) handleArchive(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	q := r.URL.Query()
	params := elasticsearch.SearchParams{
		Query:  strings.TrimSpace(q.Get("q")),
		Type:   strings.TrimSpace(q.Get("type")),
		Source: strings.TrimSpace(q.Get("source")),
		From:   clampInt(q.Get("from"), 0, 10_000),
		Size:   clampInt(q.Get("size"), s.cfg.DefaultPage, s.cfg.MaxPage),
		Start:  parseTime(q.Get("start")),
		End:    parseTime(q.Get("end")),
	}

	if params.Type != "" && !models.Type(params.Type).Valid() {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:   "Invalid type",
			Message: "type must be one of hackathon, workshop, technology, college",
		})
		return
	}

	result, err := s.archive.SearchAnnouncements(ctx, params)
	if err != nil {
		s.log.Error("archive search failed", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, errArchive)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func nonNil(items []models.Announcement) []models.Announcement {
	if items == nil {
		return []models.Announcement{}
	}
	return items
}

func parseTime(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return &ts
	}
	return nil
}

func clampInt(raw string, fallback, max int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	if value > max {
		return max
	}
	return value
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
