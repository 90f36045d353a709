package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/flux-climatology/internal/config"
	"github.com/couchcryptid/flux-climatology/internal/domain"
)

const (
	kindCell     = "cell"
	kindRegional = "regional"
	regionalKey  = "regional"

	defaultMaxAttempts    = 4
	defaultInitialBackoff = 250 * time.Millisecond
	defaultMaxBackoff     = 5 * time.Second
)

// messageWriter is the subset of *kafkago.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher sends cell climatologies and the regional average to a Kafka topic.
// It implements pipeline.Publisher.
type Publisher struct {
	writer messageWriter
	logger *slog.Logger

	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

// NewPublisher creates a Kafka producer for the configured topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return newPublisher(w, logger)
}

func newPublisher(w messageWriter, logger *slog.Logger) *Publisher {
	return &Publisher{
		writer:         w,
		logger:         logger,
		maxAttempts:    defaultMaxAttempts,
		initialBackoff: defaultInitialBackoff,
		maxBackoff:     defaultMaxBackoff,
	}
}

// Publish writes one message per cell followed by the regional message, all
// in a single WriteMessages call. Failed writes are retried with exponential
// backoff until the attempts run out or ctx is done.
func (p *Publisher) Publish(ctx context.Context, cells []domain.Climatology, regional domain.RegionalAverage) error {
	processedAt := domain.Now()

	msgs := make([]kafkago.Message, 0, len(cells)+1)
	for i := range cells {
		msg, err := cellToMessage(cells[i], processedAt)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}
	msg, err := regionalToMessage(regional, processedAt)
	if err != nil {
		return err
	}
	msgs = append(msgs, msg)

	if err := p.writeWithRetry(ctx, msgs); err != nil {
		return fmt.Errorf("write %d messages: %w", len(msgs), err)
	}
	p.logger.Info("results published", "messages", len(msgs))
	return nil
}

func (p *Publisher) writeWithRetry(ctx context.Context, msgs []kafkago.Message) error {
	backoff := p.initialBackoff
	var err error
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		if err = p.writer.WriteMessages(ctx, msgs...); err == nil {
			return nil
		}
		if attempt == p.maxAttempts {
			break
		}
		p.logger.Warn("kafka write failed, retrying", "attempt", attempt, "backoff", backoff, "error", err)
		if !retry.SleepWithContext(ctx, backoff) {
			return ctx.Err()
		}
		backoff = retry.NextBackoff(backoff, p.maxBackoff)
	}
	return err
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// CellMessage is the JSON payload for one cell climatology. Months without
// data are null.
type CellMessage struct {
	Kind        string     `json:"kind"`
	Cell        string     `json:"cell"`
	Lat         float64    `json:"lat"`
	Lon         float64    `json:"lon"`
	Monthly     []*float64 `json:"monthly_mm"`
	Years       []int      `json:"years"`
	ProcessedAt time.Time  `json:"processed_at"`
}

// RegionalMessage is the JSON payload for the regional average.
type RegionalMessage struct {
	Kind         string     `json:"kind"`
	Monthly      []*float64 `json:"monthly_mm"`
	Cells        int        `json:"cells"`
	TotalAreaKM2 float64    `json:"total_area_km2"`
	ProcessedAt  time.Time  `json:"processed_at"`
}

// nullable maps months without data to nil so they encode as JSON null.
func nullable(values [12]float64, present [12]bool) []*float64 {
	out := make([]*float64, 12)
	for i := range values {
		if present[i] {
			v := values[i]
			out[i] = &v
		}
	}
	return out
}

func cellToMessage(c domain.Climatology, processedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(CellMessage{
		Kind:        kindCell,
		Cell:        c.Cell.String(),
		Lat:         c.Cell.Lat,
		Lon:         c.Cell.Lon,
		Monthly:     nullable(c.Values, c.Present),
		Years:       c.Years[:],
		ProcessedAt: processedAt,
	})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize cell %s: %w", c.Cell, err)
	}
	return newMessage(c.Cell.String(), kindCell, data, processedAt), nil
}

func regionalToMessage(r domain.RegionalAverage, processedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(RegionalMessage{
		Kind:         kindRegional,
		Monthly:      nullable(r.Values, r.Present),
		Cells:        r.Cells,
		TotalAreaKM2: r.TotalArea,
		ProcessedAt:  processedAt,
	})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize regional average: %w", err)
	}
	return newMessage(regionalKey, kindRegional, data, processedAt), nil
}

func newMessage(key, kind string, value []byte, processedAt time.Time) kafkago.Message {
	return kafkago.Message{
		Key:   []byte(key),
		Value: value,
		Headers: []kafkago.Header{
			{Key: "kind", Value: []byte(kind)},
			{Key: "processed_at", Value: []byte(processedAt.Format(time.RFC3339))},
		},
	}
}
