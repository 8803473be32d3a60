// main package for the voice-studio service
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/book-expert/logger"
	"github.com/book-expert/voice-studio/internal/codec"
	"github.com/book-expert/voice-studio/internal/config"
	"github.com/book-expert/voice-studio/internal/engine/httptts"
	"github.com/book-expert/voice-studio/internal/history"
	"github.com/book-expert/voice-studio/internal/objectstore"
	"github.com/book-expert/voice-studio/internal/orchestrator"
	"github.com/book-expert/voice-studio/internal/profile"
	"github.com/book-expert/voice-studio/internal/studio"
	"github.com/book-expert/voice-studio/internal/text"
	"github.com/book-expert/voice-studio/internal/worker"
	"github.com/nats-io/nats.go"
)

func setupLogger(logPath string) (*logger.Logger, error) {
	log, err := logger.New(logPath, "voice-studio-bootstrap.log")
	if err != nil {
		return nil, fmt.Errorf("failed to create bootstrap logger: %w", err)
	}

	return log, nil
}

func run() error {
	// 1. Create a temporary logger for the bootstrap process
	bootstrapLog, err := setupLogger(os.TempDir())
	if err != nil {
		// If bootstrap logger fails, we can only print to stderr
		fmt.Fprintf(os.Stderr, "FATAL: Failed to create bootstrap logger: %v\n", err)

		return err
	}

	bootstrapLog.Info("Bootstrap logger created.")

	// 2. Load configuration using the central configurator
	cfg, err := config.Load(bootstrapLog)
	if err != nil {
		bootstrapLog.Error("Failed to load configuration: %v", err)

		return fmt.Errorf("failed to load configuration: %w", err)
	}

	bootstrapLog.Info("Configuration loaded successfully.")

	// 3. Initialize the final logger based on the loaded configuration
	finalLog, err := setupLogger(cfg.Paths.BaseLogsDir)
	if err != nil {
		bootstrapLog.Error("Failed to create final logger: %v", err)

		return fmt.Errorf("failed to create final logger: %w", err)
	}

	defer func() {
		closeErr := finalLog.Close()
		if closeErr != nil {
			fmt.Fprintf(os.Stderr, "error closing final logger: %v\n", closeErr)
		}
	}()

	ctx, stop := signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM,
	)
	defer stop()

	return serve(ctx, cfg, finalLog)
}

// serve connects to NATS, wires the studio together and runs the worker
// until the context is cancelled.
func serve(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	natsConnection, connectErr := nats.Connect(cfg.NATS.URL)
	if connectErr != nil {
		return fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NATS.URL, connectErr)
	}
	defer natsConnection.Close()

	jetstreamContext, jetstreamErr := natsConnection.JetStream()
	if jetstreamErr != nil {
		return fmt.Errorf("failed to create JetStream context: %w", jetstreamErr)
	}

	service, buildErr := buildStudio(cfg, jetstreamContext, log)
	if buildErr != nil {
		return buildErr
	}

	store, storeErr := objectstore.New(jetstreamContext, cfg.NATS.AudioObjectStoreBucket)
	if storeErr != nil {
		return fmt.Errorf("failed to create object store: %w", storeErr)
	}

	natsWorker, workerErr := worker.NewNatsWorker(
		natsConnection,
		cfg.NATS.GenerationJobSubject,
		store,
		service,
		log,
	)
	if workerErr != nil {
		return fmt.Errorf("failed to create worker: %w", workerErr)
	}

	log.System(
		"Voice studio initialized. Listening for jobs on subject: %s",
		cfg.NATS.GenerationJobSubject,
	)

	runErr := natsWorker.Run(ctx)
	if runErr != nil {
		return fmt.Errorf("worker stopped with error: %w", runErr)
	}

	return nil
}

// buildStudio constructs the studio facade from configuration.
func buildStudio(
	cfg *config.Config,
	jetstreamContext nats.JetStreamContext,
	log *logger.Logger,
) (*studio.Service, error) {
	repo, repoErr := profile.NewNatsRepository(jetstreamContext, cfg.NATS.ProfileBucket)
	if repoErr != nil {
		return nil, fmt.Errorf("failed to create profile repository: %w", repoErr)
	}

	historyLog, historyErr := history.NewNatsLog(jetstreamContext, cfg.NATS.HistoryBucket)
	if historyErr != nil {
		return nil, fmt.Errorf("failed to create history store: %w", historyErr)
	}

	audioCodec := codec.NewWAV()
	engine := httptts.NewEngine(
		httptts.NewClient(cfg.Engine.URL, cfg.EngineTimeout()), log,
	)

	generation := orchestrator.NewGeneration(
		repo,
		engine,
		audioCodec,
		orchestrator.ParameterPolicy(cfg.Generation.ParameterPolicy),
		cfg.GenerationTimeout(),
		log,
	)
	batch := orchestrator.NewBatch(generation, text.NewSegmenter(), log)
	builder := profile.NewBuilder(audioCodec, repo, log)

	return studio.NewService(builder, repo, generation, batch, historyLog, log), nil
}

func main() {
	err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Service exited with error: %v\n", err)
		os.Exit(1)
	}
}
