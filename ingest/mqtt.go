// Package ingest feeds readings published over MQTT into the analysis
// pipeline, as an alternative to the HTTP API.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/AntoineSierzputowski/carmen"
	"github.com/AntoineSierzputowski/carmen/pipeline"
)

const (
	connectTimeout = 10 * time.Second
	maxRetries     = 5
	disconnectMs   = 250
)

// Connect establishes an MQTT connection with exponential backoff retries.
// The connection is torn down when ctx is cancelled.
func Connect(ctx context.Context, brokerURL, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL)
	opts.SetClientID(clientID)
	opts.SetCleanSession(true)

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 30 * time.Second

	var client mqtt.Client
	err := backoff.Retry(func() error {
		client = mqtt.NewClient(opts)
		if token := client.Connect(); token.WaitTimeout(connectTimeout) && token.Error() != nil {
			slog.Warn("INGEST: Failed to connect to MQTT broker, retrying", "error", token.Error())
			return token.Error()
		}
		return nil
	}, backoff.WithMaxRetries(bo, maxRetries-1))
	if err != nil {
		return nil, fmt.Errorf("could not establish MQTT connection after retries: %w", err)
	}

	slog.Info("INGEST: Connected to MQTT broker", "broker", brokerURL)

	go func() {
		<-ctx.Done()
		client.Disconnect(disconnectMs)
		slog.Info("INGEST: MQTT connection closed")
	}()

	return client, nil
}

// Source subscribes to a reading topic and runs each message through the
// pipeline. Malformed or failing messages are logged and skipped; ingestion
// never stops over one bad reading.
type Source struct {
	client mqtt.Client
	topic  string
	runner pipeline.Runner
}

func NewSource(client mqtt.Client, topic string, runner pipeline.Runner) *Source {
	return &Source{
		client: client,
		topic:  topic,
		runner: runner,
	}
}

// Start subscribes to the configured topic.
func (s *Source) Start() error {
	token := s.client.Subscribe(s.topic, 1, func(_ mqtt.Client, msg mqtt.Message) {
		s.handleMessage(context.Background(), msg.Payload())
	})
	if token.WaitTimeout(connectTimeout) && token.Error() != nil {
		return fmt.Errorf("failed to subscribe to %q: %w", s.topic, token.Error())
	}
	slog.Info("INGEST: Subscribed", "topic", s.topic)
	return nil
}

// handleMessage decodes one published reading and runs the pipeline on it.
func (s *Source) handleMessage(ctx context.Context, payload []byte) {
	var reading carmen.Reading
	if err := json.Unmarshal(payload, &reading); err != nil {
		slog.Error("INGEST: Dropping undecodable reading", "error", err)
		return
	}
	if reading.PlantID == "" || reading.PlantType == "" {
		slog.Error("INGEST: Dropping reading without plant_id or plant_type")
		return
	}

	outcome, err := s.runner.Run(ctx, reading)
	if err != nil {
		slog.Error("INGEST: Analysis failed", "plant_id", reading.PlantID, "error", err)
		return
	}

	slog.Info("INGEST: Analysis completed",
		"plant_id", reading.PlantID,
		"status", outcome.Result.Status,
		"action", outcome.Result.Action,
	)
}
