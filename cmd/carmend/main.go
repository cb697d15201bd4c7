package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"net/smtp"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/joeshaw/envdecode"

	"github.com/AntoineSierzputowski/carmen"
	"github.com/AntoineSierzputowski/carmen/catalog"
	"github.com/AntoineSierzputowski/carmen/catalog/state"
	"github.com/AntoineSierzputowski/carmen/engine/bedrock"
	"github.com/AntoineSierzputowski/carmen/engine/mock"
	"github.com/AntoineSierzputowski/carmen/engine/ollama"
	"github.com/AntoineSierzputowski/carmen/ingest"
	"github.com/AntoineSierzputowski/carmen/notify"
	"github.com/AntoineSierzputowski/carmen/pipeline"
	"github.com/AntoineSierzputowski/carmen/server"
	"github.com/AntoineSierzputowski/carmen/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var modelConfig carmen.ModelConfig
	if err := envdecode.Decode(&modelConfig); err != nil {
		log.Fatalf("SETUP: Failed to decode: %s", err)
	}

	var engineConfig carmen.EngineConfig
	if err := envdecode.Decode(&engineConfig); err != nil {
		log.Fatalf("SETUP: Failed to decode: %s", err)
	}

	var catalogConfig carmen.CatalogConfig
	if err := envdecode.Decode(&catalogConfig); err != nil {
		log.Fatalf("SETUP: Failed to decode: %s", err)
	}

	var storeConfig carmen.StoreConfig
	if err := envdecode.Decode(&storeConfig); err != nil {
		log.Fatalf("SETUP: Failed to decode: %s", err)
	}

	var serverConfig carmen.ServerConfig
	if err := envdecode.Decode(&serverConfig); err != nil {
		log.Fatalf("SETUP: Failed to decode: %s", err)
	}

	var ingestConfig carmen.IngestConfig
	if err := envdecode.Decode(&ingestConfig); err != nil {
		log.Fatalf("SETUP: Failed to decode: %s", err)
	}

	var notifyConfig carmen.NotifyConfig
	if err := envdecode.Decode(&notifyConfig); err != nil {
		log.Fatalf("SETUP: Failed to decode: %s", err)
	}

	cat, err := loadCatalog(ctx, catalogConfig)
	if err != nil {
		slog.Error("SETUP: Failed to load plant catalog", "error", err)
		return
	}
	slog.Info("SETUP: Plant catalog loaded", "species", len(cat.Species()))

	analysisStore, err := newStore(storeConfig)
	if err != nil {
		slog.Error("SETUP: Failed to open analysis store", "error", err)
		return
	}

	engine, err := newEngine(ctx, modelConfig, engineConfig)
	if err != nil {
		slog.Error("SETUP: Failed to create reasoning engine", "error", err)
		return
	}

	audit, cleanup, err := newAuditLogger(modelConfig.ModelID)
	if err != nil {
		slog.Error("SETUP: Failed to create audit logger", "error", err)
		return
	}
	defer func() {
		if err := cleanup(); err != nil {
			slog.Error("SETUP: Failed to flush audit log", "error", err)
		}
	}()

	tracerProvider, meterProvider, otelShutdown, err := carmen.InitOtel(ctx)
	if err != nil {
		slog.Error("SETUP: Failed to initialize OpenTelemetry", "error", err)
		return
	}
	defer func() {
		if err := otelShutdown(context.Background()); err != nil {
			slog.Error("SETUP: Failed to shutdown OpenTelemetry", "error", err)
		}
	}()

	tracer := tracerProvider.Tracer(carmen.TracerNamePipeline)
	meter := meterProvider.Meter(carmen.TracerNamePipeline)

	base := pipeline.New(engine, analysisStore, cat, audit,
		pipeline.WithHistoryWindow(storeConfig.HistoryWindow))
	runner := pipeline.NewInstrumentedPipeline(base, tracer, meter)

	dispatcher := newDispatcher(notifyConfig)

	if ingestConfig.BrokerURL != "" {
		client, err := ingest.Connect(ctx, ingestConfig.BrokerURL, ingestConfig.ClientID)
		if err != nil {
			slog.Error("SETUP: Failed to connect to MQTT broker", "error", err)
			return
		}
		defer client.Disconnect(250)

		source := ingest.NewSource(client, ingestConfig.Topic, runner)
		if err := source.Start(); err != nil {
			slog.Error("SETUP: Failed to subscribe to readings topic", "error", err)
			return
		}
		slog.Info("SETUP: MQTT ingestion started", "topic", ingestConfig.Topic)
	}

	srv := server.New(runner, analysisStore, dispatcher)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("SETUP: HTTP server starting", "addr", serverConfig.Addr)
		errCh <- srv.Start(serverConfig.Addr)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("FAILURE: HTTP server stopped", "error", err)
		}
	case <-ctx.Done():
		slog.Info("SHUTDOWN: Signal received, draining server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("SHUTDOWN: Failed to drain server", "error", err)
		}
	}
}

func loadCatalog(ctx context.Context, cfg carmen.CatalogConfig) (*catalog.Catalog, error) {
	var src state.State
	name := cfg.Path
	if cfg.S3Bucket != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		src = state.NewS3State(s3.NewFromConfig(awsCfg), cfg.S3Bucket, cfg.S3Key)
		name = cfg.S3Key
	} else {
		src = state.NewFileState(cfg.Path)
	}
	return catalog.Load(ctx, src, name)
}

func newStore(cfg carmen.StoreConfig) (carmen.AnalysisStore, error) {
	sqlStore, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	return store.NewBreakerStore(sqlStore, "analysis-store", cfg.BreakerFails), nil
}

func newEngine(ctx context.Context, modelCfg carmen.ModelConfig, engineCfg carmen.EngineConfig) (carmen.ReasoningEngine, error) {
	switch modelCfg.Backend {
	case "ollama":
		return ollama.NewClient(ollama.ClientOpts{
			BaseEndpoint: engineCfg.BaseOllamaEndpoint,
			ModelID:      modelCfg.ModelID,
			HTTPClient:   http.DefaultClient,
			Temperature:  float64(modelCfg.Temperature),
			TopP:         float64(modelCfg.TopP),
		})
	case "bedrock":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		return bedrock.NewClient(bedrockruntime.NewFromConfig(awsCfg), bedrock.Options{
			ModelID:     modelCfg.ModelID,
			MaxTokens:   modelCfg.MaxTokens,
			Temperature: modelCfg.Temperature,
			TopP:        modelCfg.TopP,
		}), nil
	case "mock":
		// Local development without a model server.
		return mock.NewEngine(), nil
	default:
		return nil, fmt.Errorf("unknown engine backend %q", modelCfg.Backend)
	}
}

func newAuditLogger(modelID string) (carmen.AuditLogger, func() error, error) {
	logFilePath := carmen.NewAuditLogFilePath(modelID)
	if err := os.MkdirAll(filepath.Dir(logFilePath), 0755); err != nil {
		return nil, func() error { return err }, fmt.Errorf("failed to create log directory: %w", err)
	}
	logFile, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, func() error { return err }, fmt.Errorf("failed to open log file: %w", err)
	}

	logger := carmen.NewFileAuditLogger(logFile)
	cleanup := func() error {
		return errors.Join(logger.Flush(), logFile.Close())
	}
	return logger, cleanup, nil
}

func newDispatcher(cfg carmen.NotifyConfig) *notify.Dispatcher {
	var notifiers []carmen.Notifier
	if cfg.SlackWebhookURL != "" {
		notifiers = append(notifiers, notify.NewSlackClient(cfg.SlackWebhookURL, cfg.SlackChannel, http.DefaultClient))
	}
	if cfg.DiscordWebhookURL != "" {
		notifiers = append(notifiers, notify.NewDiscordClient(cfg.DiscordWebhookURL, http.DefaultClient))
	}
	if cfg.SMTPAddr != "" && cfg.SMTPFrom != "" && cfg.SMTPTo != "" {
		var auth smtp.Auth
		to := strings.Split(cfg.SMTPTo, ",")
		notifiers = append(notifiers, notify.NewEmailClient(cfg.SMTPAddr, cfg.SMTPFrom, to, auth))
	}
	return notify.NewDispatcher(notifiers...)
}
