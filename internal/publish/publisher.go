package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/campusboard/announcements/backend/internal/metrics"
	"github.com/campusboard/announcements/backend/internal/models"
)

// Publisher hands an aggregated snapshot to the archive pipeline.
type Publisher interface {
	Publish(ctx context.Context, items []models.Announcement) (string, error)
	Close() error
}

// Noop drops snapshots; used when no broker is configured.
type Noop struct{}

func (Noop) Publish(context.Context, []models.Announcement) (string, error) { return "", nil }
func (Noop) Close() error                                                  { return nil }

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka writes one message per announcement, keyed by announcement id.
type Kafka struct {
	w   messageWriter
	log *slog.Logger
	now func() time.Time
}

// NewKafka connects a writer to topic on brokers.
func NewKafka(brokers []string, topic string, log *slog.Logger) *Kafka {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		MaxAttempts:  3,
		BatchTimeout: 50 * time.Millisecond,
	}
	return newWithWriter(w, log, time.Now)
}

func newWithWriter(w messageWriter, log *slog.Logger, now func() time.Time) *Kafka {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Kafka{w: w, log: log, now: now}
}

// Publish returns the snapshot id shared by every message of the batch.
func (k *Kafka) Publish(ctx context.Context, items []models.Announcement) (string, error) {
	if len(items) == 0 {
		return "", nil
	}

	snapshotID := uuid.NewString()
	takenAt := k.now().UTC()
	msgs := make([]kafka.Message, 0, len(items))
	for _, item := range items {
		payload, err := json.Marshal(models.Snapshot{
			SnapshotID:   snapshotID,
			TakenAt:      takenAt,
			Announcement: item,
		})
		if err != nil {
			return snapshotID, fmt.Errorf("marshal snapshot: %w", err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(item.ID),
			Value: payload,
			Headers: []kafka.Header{
				{Key: "snapshot_id", Value: []byte(snapshotID)},
				{Key: "type", Value: []byte(item.Type)},
			},
		})
	}

	if err := k.w.WriteMessages(ctx, msgs...); err != nil {
		metrics.SnapshotsPublished.WithLabelValues("error").Add(float64(len(msgs)))
		return snapshotID, fmt.Errorf("write snapshot: %w", err)
	}

	metrics.SnapshotsPublished.WithLabelValues("ok").Add(float64(len(msgs)))
	k.log.Debug("snapshot published", slog.String("snapshot_id", snapshotID), slog.Int("count", len(msgs)))
	return snapshotID, nil
}

func (k *Kafka) Close() error {
	return k.w.Close()
}
