// main package for the studio-cli, the command-line front-end of the voice
// studio.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/book-expert/logger"
	"github.com/book-expert/voice-studio/internal/codec"
	"github.com/book-expert/voice-studio/internal/config"
	"github.com/book-expert/voice-studio/internal/core"
	"github.com/book-expert/voice-studio/internal/engine/httptts"
	"github.com/book-expert/voice-studio/internal/history"
	"github.com/book-expert/voice-studio/internal/orchestrator"
	"github.com/book-expert/voice-studio/internal/profile"
	"github.com/book-expert/voice-studio/internal/studio"
	"github.com/book-expert/voice-studio/internal/text"
	"github.com/nats-io/nats.go"
)

// Command names.
const (
	cmdValidate     = "validate"
	cmdCreate       = "create"
	cmdList         = "list"
	cmdDelete       = "delete"
	cmdGenerate     = "generate"
	cmdBatch        = "batch"
	cmdHistory      = "history"
	cmdCapabilities = "capabilities"
	cmdHealth       = "health"
)

// Flag descriptions.
const (
	flagSamplesDesc     = "Comma-separated list of reference sample paths"
	flagNameDesc        = "Profile name"
	flagLanguageDesc    = "Language code (e.g. en, es)"
	flagRefTextDesc     = "Transcript of the reference samples"
	flagProfileDesc     = "Profile ID"
	flagTextDesc        = "Text to convert to speech"
	flagOutputDesc      = "Output file path (.wav)"
	flagOutputDirDesc   = "Output directory for batch artifacts"
	flagScriptDesc      = "Script file to process in batch"
	flagTemperatureDesc = "Sampling temperature (0 uses the engine default)"
	flagSpeedDesc       = "Speaking speed (0 uses the engine default)"
)

// Defaults.
const (
	defaultOutputFile = "output.wav"
	defaultOutputDir  = "batch-output"
	logFileName       = "studio-cli.log"
	outputFilePerm    = 0o600
)

var errUsage = errors.New(
	"usage: studio-cli <validate|create|list|delete|generate|batch|history|capabilities|health> [flags]",
)

func main() {
	err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if len(os.Args) < 2 {
		return errUsage
	}

	command := os.Args[1]
	args := os.Args[2:]

	app, cleanup, setupErr := setup()
	if setupErr != nil {
		return setupErr
	}
	defer cleanup()

	ctx := context.Background()

	switch command {
	case cmdValidate:
		return app.runValidate(args)
	case cmdCreate:
		return app.runCreate(ctx, args)
	case cmdList:
		return app.runList(ctx)
	case cmdDelete:
		return app.runDelete(ctx, args)
	case cmdGenerate:
		return app.runGenerate(ctx, args)
	case cmdBatch:
		return app.runBatch(ctx, args)
	case cmdHistory:
		return app.runHistory(ctx, args)
	case cmdCapabilities:
		return app.runCapabilities(ctx)
	case cmdHealth:
		return app.runHealth(ctx)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, command)
	}
}

// app bundles the wired studio with the pieces the CLI needs directly.
type app struct {
	service *studio.Service
	engine  *httptts.Engine
	cfg     *config.Config
	log     *logger.Logger
}

// setup loads configuration and wires the studio. The returned cleanup
// closes the logger and the NATS connection.
func setup() (*app, func(), error) {
	bootstrapLog, bootstrapErr := logger.New(os.TempDir(), logFileName)
	if bootstrapErr != nil {
		return nil, nil, fmt.Errorf("failed to create bootstrap logger: %w", bootstrapErr)
	}

	cfg, configErr := config.Load(bootstrapLog)
	if configErr != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", configErr)
	}

	log, logErr := logger.New(cfg.Paths.BaseLogsDir, logFileName)
	if logErr != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", logErr)
	}

	natsConnection, connectErr := nats.Connect(cfg.NATS.URL)
	if connectErr != nil {
		return nil, nil, fmt.Errorf(
			"failed to connect to NATS at %s: %w", cfg.NATS.URL, connectErr,
		)
	}

	cleanup := func() {
		natsConnection.Close()

		closeErr := log.Close()
		if closeErr != nil {
			fmt.Fprintf(os.Stderr, "error closing logger: %v\n", closeErr)
		}
	}

	jetstreamContext, jetstreamErr := natsConnection.JetStream()
	if jetstreamErr != nil {
		cleanup()

		return nil, nil, fmt.Errorf("failed to create JetStream context: %w", jetstreamErr)
	}

	repo, repoErr := profile.NewNatsRepository(jetstreamContext, cfg.NATS.ProfileBucket)
	if repoErr != nil {
		cleanup()

		return nil, nil, fmt.Errorf("failed to create profile repository: %w", repoErr)
	}

	historyLog, historyErr := history.NewNatsLog(jetstreamContext, cfg.NATS.HistoryBucket)
	if historyErr != nil {
		cleanup()

		return nil, nil, fmt.Errorf("failed to create history store: %w", historyErr)
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

	service := studio.NewService(builder, repo, generation, batch, historyLog, log)

	return &app{
		service: service,
		engine:  engine,
		cfg:     cfg,
		log:     log,
	}, cleanup, nil
}

func (a *app) runValidate(args []string) error {
	flags := flag.NewFlagSet(cmdValidate, flag.ExitOnError)
	samples := flags.String("samples", "", flagSamplesDesc)
	_ = flags.Parse(args)

	samplePaths := splitSamples(*samples)
	if len(samplePaths) == 0 {
		return errors.New("--samples is required")
	}

	for _, path := range samplePaths {
		if !studio.IsAudioFile(path) {
			fmt.Printf("warning: %s does not look like an audio file\n", path)
		}
	}

	report := a.service.ValidateSamples(samplePaths)
	for _, sample := range report.Samples {
		if sample.Valid {
			fmt.Printf("ok    %s (%s, %d Hz)\n",
				sample.Path,
				studio.FormatDuration(sample.DurationSeconds),
				sample.SampleRate,
			)

			continue
		}

		fmt.Printf("fail  %s: %s\n", sample.Path, strings.Join(sample.Errors, "; "))
	}

	if !report.AllValid {
		return errors.New("one or more samples failed validation")
	}

	return nil
}

func (a *app) runCreate(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet(cmdCreate, flag.ExitOnError)
	name := flags.String("name", "", flagNameDesc)
	samples := flags.String("samples", "", flagSamplesDesc)
	language := flags.String("language", "en", flagLanguageDesc)
	refText := flags.String("ref-text", "", flagRefTextDesc)
	_ = flags.Parse(args)

	created, createErr := a.service.CreateVoiceProfile(
		ctx, *name, splitSamples(*samples), *language, *refText,
	)
	if createErr != nil {
		return fmt.Errorf("failed to create profile: %w", createErr)
	}

	fmt.Printf("Created profile %s (%q): %d samples, %s total\n",
		created.ID,
		created.Name,
		len(created.ValidSamples()),
		studio.FormatDuration(created.TotalDurationSeconds),
	)

	for _, sample := range created.Samples {
		if !sample.Valid {
			fmt.Printf("  rejected %s: %s\n",
				sample.Path, strings.Join(sample.Errors, "; "))
		}
	}

	return nil
}

func (a *app) runList(ctx context.Context) error {
	summaries, listErr := a.service.ListVoiceProfiles(ctx)
	if listErr != nil {
		return fmt.Errorf("failed to list profiles: %w", listErr)
	}

	if len(summaries) == 0 {
		fmt.Println("No profiles.")

		return nil
	}

	for _, summary := range summaries {
		fmt.Printf("%s  %-20s %s  %d samples, %s\n",
			summary.ID,
			summary.Name,
			summary.Language,
			summary.SampleCount,
			studio.FormatDuration(summary.TotalDurationSeconds),
		)
	}

	return nil
}

func (a *app) runDelete(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet(cmdDelete, flag.ExitOnError)
	profileID := flags.String("profile", "", flagProfileDesc)
	_ = flags.Parse(args)

	deleteErr := a.service.DeleteVoiceProfile(ctx, *profileID)
	if deleteErr != nil {
		return fmt.Errorf("failed to delete profile: %w", deleteErr)
	}

	fmt.Printf("Deleted profile %s\n", *profileID)

	return nil
}

func (a *app) runGenerate(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet(cmdGenerate, flag.ExitOnError)
	profileID := flags.String("profile", "", flagProfileDesc)
	inputText := flags.String("text", "", flagTextDesc)
	output := flags.String("output", defaultOutputFile, flagOutputDesc)
	temperature := flags.Float64("temperature", 0, flagTemperatureDesc)
	speed := flags.Float64("speed", 0, flagSpeedDesc)
	language := flags.String("language", "", flagLanguageDesc)
	_ = flags.Parse(args)

	result, generateErr := a.service.GenerateAudio(ctx, core.GenerationRequest{
		ProfileID: *profileID,
		Text:      *inputText,
		Params: core.GenerationParams{
			Temperature: *temperature,
			Speed:       *speed,
		},
		Language: *language,
		Mode:     core.ModeClone,
	})
	if generateErr != nil {
		return fmt.Errorf("failed to generate speech: %w", generateErr)
	}

	writeErr := os.WriteFile(*output, result.Artifact.Data, outputFilePerm)
	if writeErr != nil {
		return fmt.Errorf("failed to write output file '%s': %w", *output, writeErr)
	}

	fmt.Printf("Generated %s: %s of audio in %s\n",
		*output,
		studio.FormatDuration(result.Artifact.DurationSeconds),
		result.Elapsed,
	)

	if result.QualityWarning != "" {
		fmt.Printf("warning: %s\n", result.QualityWarning)
	}

	return nil
}

func (a *app) runBatch(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet(cmdBatch, flag.ExitOnError)
	profileID := flags.String("profile", "", flagProfileDesc)
	scriptPath := flags.String("script", "", flagScriptDesc)
	outputDir := flags.String("output-dir", defaultOutputDir, flagOutputDirDesc)
	temperature := flags.Float64("temperature", 0, flagTemperatureDesc)
	speed := flags.Float64("speed", 0, flagSpeedDesc)
	language := flags.String("language", "", flagLanguageDesc)
	_ = flags.Parse(args)

	scriptData, readErr := os.ReadFile(*scriptPath)
	if readErr != nil {
		return fmt.Errorf("failed to read script '%s': %w", *scriptPath, readErr)
	}

	ensureErr := studio.EnsureDir(*outputDir)
	if ensureErr != nil {
		return ensureErr
	}

	manifest, batchErr := a.service.ProcessBatch(
		ctx,
		*profileID,
		string(scriptData),
		core.GenerationParams{Temperature: *temperature, Speed: *speed},
		*language,
		orchestrator.NewDirectorySink(*outputDir),
	)
	if batchErr != nil {
		return fmt.Errorf("failed to process batch: %w", batchErr)
	}

	fmt.Printf("Batch complete: %d succeeded, %d failed, output in %s\n",
		manifest.Succeeded, manifest.Failed, *outputDir)

	for _, outcome := range manifest.Segments {
		if outcome.Failed() {
			fmt.Printf("  segment %d failed: %s\n", outcome.Index+1, outcome.Cause)
		}
	}

	if manifest.Failed > 0 {
		return fmt.Errorf("%d of %d segments failed",
			manifest.Failed, len(manifest.Segments))
	}

	return nil
}

func (a *app) runHistory(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet(cmdHistory, flag.ExitOnError)
	profileID := flags.String("profile", "", flagProfileDesc)
	_ = flags.Parse(args)

	results, historyErr := a.service.GenerationHistory(ctx, *profileID)
	if historyErr != nil {
		return fmt.Errorf("failed to load history: %w", historyErr)
	}

	if len(results) == 0 {
		fmt.Println("No generations recorded.")

		return nil
	}

	for _, result := range results {
		artifactKey := ""
		if result.Artifact != nil {
			artifactKey = result.Artifact.Key
		}

		fmt.Printf("%s  %s  %-7s %s\n",
			result.CreatedAt.Format("2006-01-02 15:04:05"),
			result.ID,
			result.Status,
			artifactKey,
		)
	}

	return nil
}

func (a *app) runCapabilities(ctx context.Context) error {
	caps, capsErr := a.service.EngineCapabilities(ctx)
	if capsErr != nil {
		return fmt.Errorf("failed to fetch capabilities: %w", capsErr)
	}

	fmt.Printf("max text length:          %d chars\n", caps.MaxTextLength)
	fmt.Printf("recommended text length:  %d chars\n", caps.RecommendedTextLength)
	fmt.Printf("sample duration window:   %s to %s\n",
		studio.FormatDuration(caps.MinSampleDurationSeconds),
		studio.FormatDuration(caps.MaxSampleDurationSeconds),
	)
	fmt.Printf("default temperature:      %.2f\n", caps.DefaultTemperature)
	fmt.Printf("default speed:            %.2f\n", caps.DefaultSpeed)
	fmt.Printf("streaming:                %v\n", caps.SupportsStreaming)

	return nil
}

func (a *app) runHealth(ctx context.Context) error {
	healthErr := a.engine.Ready(ctx)
	if healthErr != nil {
		return fmt.Errorf("inference server is not healthy: %w", healthErr)
	}

	fmt.Println("Inference server is healthy.")

	return nil
}

// splitSamples parses the comma-separated --samples value.
func splitSamples(value string) []string {
	if value == "" {
		return nil
	}

	parts := strings.Split(value, ",")

	paths := make([]string, 0, len(parts))

	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			paths = append(paths, trimmed)
		}
	}

	return paths
}
