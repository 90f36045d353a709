//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	fsadapter "github.com/couchcryptid/flux-climatology/internal/adapter/fs"
	"github.com/couchcryptid/flux-climatology/internal/adapter/kafka"
	"github.com/couchcryptid/flux-climatology/internal/config"
	"github.com/couchcryptid/flux-climatology/internal/domain"
	"github.com/couchcryptid/flux-climatology/internal/observability"
	"github.com/couchcryptid/flux-climatology/internal/pipeline"
)

const testTopic = "test-climatology"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("fluxclim-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	ctrl, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrl.Close()

	require.NoError(t, ctrl.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

func writeFlux(t *testing.T, dir, name string, perDay float64) {
	t.Helper()
	var b strings.Builder
	for _, year := range []int{2000, 2001} {
		for m := 1; m <= 12; m++ {
			for d := 1; d <= 3; d++ {
				fmt.Fprintf(&b, "%d %d %d %.3f 0.1 0.2\n", year, m, d, perDay)
			}
		}
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(b.String()), 0o600))
}

// TestRunPublishesToKafka runs the whole pipeline against a real broker and
// reads back one message per cell plus the regional message.
func TestRunPublishesToKafka(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testTopic)

	dir := t.TempDir()
	writeFlux(t, dir, "fluxes_30.25_-100.75", 1)
	writeFlux(t, dir, "fluxes_30.75_-100.75", 2)

	cfg := &config.Config{KafkaBrokers: []string{broker}, KafkaTopic: testTopic}
	publisher := kafka.NewPublisher(cfg, discardLogger())
	t.Cleanup(func() { _ = publisher.Close() })

	metrics, _ := observability.NewMetricsForTesting()
	p := pipeline.New(
		fsadapter.NewFluxReader(dir, discardLogger()),
		fsadapter.NewClimatologyStore(filepath.Join(dir, "monthly_precipitation")),
		fsadapter.NewRegionalWriter(filepath.Join(dir, "regional")),
		domain.DefaultSphere(),
		discardLogger(),
		metrics,
		pipeline.Options{Workers: 2},
	).WithPublisher(publisher)

	report, err := p.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, report.Aggregated)

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:   []string{broker},
		Topic:     testTopic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  1 << 20,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	got := make(map[string]kafkago.Message)
	for len(got) < 3 {
		readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
		msg, err := consumer.ReadMessage(readCtx)
		readCancel()
		require.NoError(t, err, "read published message")
		got[string(msg.Key)] = msg
	}

	var cell kafka.CellMessage
	require.NoError(t, json.Unmarshal(got["30.25_-100.75"].Value, &cell))
	assert.Equal(t, "cell", cell.Kind)
	require.NotNil(t, cell.Monthly[0])
	assert.InDelta(t, 31.0, *cell.Monthly[0], 1e-9)
	assert.Equal(t, 2, cell.Years[0])

	var regional kafka.RegionalMessage
	require.NoError(t, json.Unmarshal(got["regional"].Value, &regional))
	assert.Equal(t, "regional", regional.Kind)
	assert.Equal(t, 2, regional.Cells)
	require.NotNil(t, regional.Monthly[0])
	assert.InDelta(t, report.Regional.Values[0], *regional.Monthly[0], 1e-9)
	assert.Greater(t, *regional.Monthly[0], 31.0)
	assert.Less(t, *regional.Monthly[0], 62.0)

	headers := make(map[string]string)
	for _, h := range got["regional"].Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "regional", headers["kind"])
	assert.NotEmpty(t, headers["processed_at"])
}
