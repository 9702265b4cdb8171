package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/campusboard/announcements/backend/internal/config"
	"github.com/campusboard/announcements/backend/internal/dedupe"
	"github.com/campusboard/announcements/backend/internal/elasticsearch"
	"github.com/campusboard/announcements/backend/internal/logger"
	"github.com/campusboard/announcements/backend/internal/metrics"
	"github.com/campusboard/announcements/backend/internal/models"
	"github.com/campusboard/announcements/backend/internal/processing"
)

type announcementIndexer interface {
	IndexAnnouncement(ctx context.Context, doc models.ArchivedAnnouncement) error
}

func main() {
	log := logger.New("worker")
	cfg, err := config.LoadWorker()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	esClient, err := elasticsearch.New(cfg.ElasticsearchAddr, cfg.ElasticsearchIndex, log)
	if err != nil {
		log.Error("init elasticsearch", slog.Any("err", err))
		os.Exit(1)
	}

	cache := dedupe.NewCache(cfg.ChangeCapacity, cfg.ChangeTTL)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	go func() {
		if err := metrics.Serve(ctx, log, cfg.MetricsAddr); err != nil {
			log.Error("metrics listener stopped", slog.Any("err", err))
		}
	}()

	if err := elasticsearch.WaitFor(ctx, log, "cluster health", esClient.Health, 2*time.Second); err != nil {
		if errors.Is(err, context.Canceled) {
			log.Info("shutdown signal received during startup")
			return
		}
		log.Error("elasticsearch unhealthy", slog.Any("err", err))
		os.Exit(1)
	}

	ensureCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	if err := esClient.EnsureIndex(ensureCtx); err != nil {
		log.Warn("ensure archive index", slog.Any("err", err))
	}
	cancel()

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.KafkaBrokers,
		Topic:          cfg.KafkaTopic,
		GroupID:        cfg.KafkaConsumer,
		QueueCapacity:  cfg.BatchSize,
		MinBytes:       1e3,
		MaxBytes:       10e6,
		MaxWait:        cfg.FetchMaxWait,
		CommitInterval: 0, // commits are explicit
	})
	defer reader.Close()

	dlqTopic := cfg.KafkaTopic + "_dlq"
	dlqWriter := &kafka.Writer{
		Addr:        kafka.TCP(cfg.KafkaBrokers...),
		Topic:       dlqTopic,
		MaxAttempts: 3,
	}
	defer dlqWriter.Close()

	log.Info("worker started",
		slog.String("topic", cfg.KafkaTopic),
		slog.String("group", cfg.KafkaConsumer),
		slog.String("dlq_topic", dlqTopic),
	)

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				log.Info("context canceled, stopping")
				return
			}
			log.Error("fetch message", slog.Any("err", err))
			continue
		}

		if err := processMessage(ctx, log, esClient, cache, cfg, msg); err != nil {
			metrics.ArchiveDocuments.WithLabelValues("failed").Inc()
			log.Warn("process message failed, sending to DLQ",
				slog.Any("err", err),
				slog.Int("partition", msg.Partition),
				slog.Int64("offset", msg.Offset),
			)

			if !deadLetter(ctx, log, dlqWriter, msg, err) {
				if ctx.Err() != nil {
					return
				}
				// leave the offset uncommitted so a restart retries it
				log.Error("DLQ write exhausted retries",
					slog.Int("partition", msg.Partition),
					slog.Int64("offset", msg.Offset),
				)
				continue
			}
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			log.Error("commit message", slog.Any("err", err))
		}
	}
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// deadLetter copies msg to the DLQ with error context, retrying with
// exponential backoff. It reports whether the write eventually succeeded.
func deadLetter(ctx context.Context, log *slog.Logger, w messageWriter, msg kafka.Message, cause error) bool {
	dlqMsg := kafka.Message{
		Key:   msg.Key,
		Value: msg.Value,
		Headers: append(msg.Headers,
			kafka.Header{Key: "original_partition", Value: []byte(strconv.Itoa(msg.Partition))},
			kafka.Header{Key: "original_offset", Value: []byte(strconv.FormatInt(msg.Offset, 10))},
			kafka.Header{Key: "error", Value: []byte(cause.Error())},
			kafka.Header{Key: "timestamp", Value: []byte(time.Now().UTC().Format(time.RFC3339))},
		),
	}

	for attempt := range 5 {
		dlqErr := w.WriteMessages(ctx, dlqMsg)
		if dlqErr == nil {
			log.Info("message sent to DLQ",
				slog.Int("partition", msg.Partition),
				slog.Int64("offset", msg.Offset),
				slog.Int("attempt", attempt+1),
			)
			return true
		}

		backoff := time.Duration(1<<uint(attempt)) * time.Second
		log.Warn("DLQ write failed, retrying",
			slog.Any("err", dlqErr),
			slog.Int("attempt", attempt+1),
			slog.Duration("backoff", backoff),
		)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			log.Info("context canceled during DLQ retry")
			return false
		}
	}
	return false
}

// processMessage archives one snapshot message. Unchanged announcements are
// acknowledged without touching Elasticsearch.
func processMessage(ctx context.Context, log *slog.Logger, indexer announcementIndexer, cache *dedupe.Cache, cfg *config.Worker, msg kafka.Message) error {
	doc, err := buildDocument(cfg, msg)
	if err != nil {
		return err
	}

	if !cache.Changed(doc.ID, doc.Fingerprint) {
		metrics.ArchiveDocuments.WithLabelValues("unchanged").Inc()
		log.Debug("unchanged announcement", slog.String("id", doc.ID))
		return nil
	}

	if err := indexer.IndexAnnouncement(ctx, doc); err != nil {
		return fmt.Errorf("index %s: %w", doc.ID, err)
	}

	cache.Remember(doc.ID, doc.Fingerprint)
	metrics.ArchiveDocuments.WithLabelValues("indexed").Inc()
	log.Info("archived announcement",
		slog.String("id", doc.ID),
		slog.String("type", string(doc.Type)),
		slog.String("snapshot_id", doc.SnapshotID),
	)
	return nil
}

func buildDocument(cfg *config.Worker, msg kafka.Message) (models.ArchivedAnnouncement, error) {
	var snap models.Snapshot
	if err := json.Unmarshal(msg.Value, &snap); err != nil {
		return models.ArchivedAnnouncement{}, fmt.Errorf("decode snapshot: %w", err)
	}

	a := snap.Announcement
	if err := a.Validate(); err != nil {
		return models.ArchivedAnnouncement{}, err
	}

	fetchedAt := snap.TakenAt
	if fetchedAt.IsZero() {
		fetchedAt = msg.Time
	}
	if fetchedAt.IsZero() {
		fetchedAt = time.Now()
	}

	snapshotID := snap.SnapshotID
	if snapshotID == "" {
		snapshotID = uuid.NewString()
	}

	text := a.Title + " " + a.Description
	return models.ArchivedAnnouncement{
		Announcement: a,
		SnapshotID:   snapshotID,
		FetchedAt:    fetchedAt.UTC(),
		PublishedAt:  processing.ParseDate(a.Date),
		Keywords:     processing.ExtractKeywords(text, cfg.KeywordLimit, cfg.KeywordMinLength),
		Fingerprint: processing.Fingerprint(
			string(a.Type), a.Title, a.Description, a.Date, a.Link,
			a.Image, a.Prize, a.RegistrationDeadline, a.Location,
		),
	}, nil
}
