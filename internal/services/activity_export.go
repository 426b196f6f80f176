package services

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/collabflow/backend/internal/config"
	"github.com/collabflow/backend/internal/models"
	"github.com/collabflow/backend/pkg/logger"
	"github.com/segmentio/kafka-go"
)

const exportQueueSize = 256

// MessageWriter is the subset of *kafka.Writer the exporter needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ActivityEvent is the exported form of an activity.
type ActivityEvent struct {
	ID        uint                   `json:"id"`
	ProjectID uint                   `json:"project_id"`
	UserID    uint                   `json:"user_id"`
	Action    string                 `json:"action"`
	TaskID    *uint                  `json:"task_id,omitempty"`
	Metadata  map[string]interface{} `json:"metadata"`
	CreatedAt time.Time              `json:"created_at"`
}

// KafkaActivityExporter streams recorded activities to a topic keyed by
// project id. Delivery is best effort: a full queue drops the event.
type KafkaActivityExporter struct {
	writer MessageWriter
	queue  chan ActivityEvent
	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewKafkaActivityExporter(cfg *config.KafkaConfig) *KafkaActivityExporter {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}
	return newActivityExporter(writer, exportQueueSize)
}

func newActivityExporter(writer MessageWriter, queueSize int) *KafkaActivityExporter {
	e := &KafkaActivityExporter{
		writer: writer,
		queue:  make(chan ActivityEvent, queueSize),
	}
	e.wg.Add(1)
	go e.run()
	return e
}

func (e *KafkaActivityExporter) Export(activity *models.Activity) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return
	}

	event := ActivityEvent{
		ID:        activity.ID,
		ProjectID: activity.ProjectID,
		UserID:    activity.UserID,
		Action:    activity.Action,
		TaskID:    activity.TaskID,
		Metadata:  activity.Metadata,
		CreatedAt: activity.CreatedAt,
	}

	select {
	case e.queue <- event:
	default:
		logger.Warn().Uint("activity_id", activity.ID).Msg("activity export queue full, dropping event")
	}
}

func (e *KafkaActivityExporter) run() {
	defer e.wg.Done()
	for event := range e.queue {
		e.write(event)
	}
}

func (e *KafkaActivityExporter) write(event ActivityEvent) {
	value, err := json.Marshal(event)
	if err != nil {
		logger.Error().Err(err).Uint("activity_id", event.ID).Msg("failed to encode activity event")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = e.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatUint(uint64(event.ProjectID), 10)),
		Value: value,
		Time:  event.CreatedAt,
	})
	if err != nil {
		logger.Warn().Err(err).Uint("activity_id", event.ID).Msg("failed to export activity")
	}
}

// Close drains queued events and closes the writer.
func (e *KafkaActivityExporter) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	close(e.queue)
	e.mu.Unlock()

	e.wg.Wait()
	return e.writer.Close()
}
