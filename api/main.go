package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/campusboard/announcements/backend/internal/config"
	"github.com/campusboard/announcements/backend/internal/elasticsearch"
	"github.com/campusboard/announcements/backend/internal/feed"
	"github.com/campusboard/announcements/backend/internal/logger"
	"github.com/campusboard/announcements/backend/internal/publish"
)

func main() {
	log := logger.New("api")
	cfg, err := config.LoadAPI()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	srv := &server{
		log:       log,
		cfg:       cfg,
		feed:      feed.New(feed.Options{Sources: feed.NewSources(cfg.Sources, time.Now), Logger: log}),
		publisher: publish.Noop{},
		now:       time.Now,
	}

	if len(cfg.KafkaBrokers) > 0 {
		srv.publisher = publish.NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic, log)
		log.Info("snapshot publishing enabled", slog.String("topic", cfg.KafkaTopic))
	}

	if cfg.ElasticsearchAddr != "" {
		esClient, err := elasticsearch.New(cfg.ElasticsearchAddr, cfg.ElasticsearchIndex, log)
		if err != nil {
			log.Error("init elasticsearch", slog.Any("err", err))
			os.Exit(1)
		}
		srv.archive = esClient
		log.Info("archive search enabled", slog.String("index", cfg.ElasticsearchIndex))
	}

	httpServer := &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	go func() {
		log.Info("api server starting", slog.String("addr", cfg.BindAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", slog.Any("err", err))
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", slog.Any("err", err))
	}

	srv.pending.Wait()
	if err := srv.publisher.Close(); err != nil {
		log.Error("close publisher", slog.Any("err", err))
	}
}
