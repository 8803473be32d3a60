package httptts

import (
	"context"
	"fmt"
	"sync"

	"github.com/book-expert/logger"
	"github.com/book-expert/voice-studio/internal/core"
)

// Engine adapts the HTTP inference server to the core.Engine port.
//
// The server loads its neural model lazily on first use, which is expensive.
// The engine guards that warm-up so concurrent first calls cannot trigger
// duplicate loads, and serializes generation calls: the loaded model is a
// single shared resource, so no two generations run concurrently against it.
type Engine struct {
	client *Client
	log    *logger.Logger

	// warmMu guards the one-time warm-up. A failed warm-up is retried on
	// the next call; a successful one is never repeated.
	warmMu sync.Mutex
	warmed bool

	// capsMu guards the cached capability descriptor. The descriptor is
	// immutable on the server, so one successful fetch is enough.
	capsMu     sync.Mutex
	capsLoaded bool
	caps       core.CapabilityDescriptor

	// generateMu enforces exclusive access during generation.
	generateMu sync.Mutex
}

// NewEngine creates an engine backed by the given client.
func NewEngine(client *Client, log *logger.Logger) *Engine {
	return &Engine{
		client: client,
		log:    log,
	}
}

// Capabilities returns the engine's declared operating limits, fetching them
// from the server on first use and caching them afterwards.
func (e *Engine) Capabilities(ctx context.Context) (core.CapabilityDescriptor, error) {
	e.capsMu.Lock()
	defer e.capsMu.Unlock()

	if e.capsLoaded {
		return e.caps, nil
	}

	caps, fetchErr := e.client.Capabilities(ctx)
	if fetchErr != nil {
		return core.CapabilityDescriptor{}, fmt.Errorf(
			"%w: %w", core.ErrEngineFailure, fetchErr,
		)
	}

	e.caps = caps
	e.capsLoaded = true

	return e.caps, nil
}

// Generate synthesizes speech for the text, conditioned on the profile's
// valid reference samples. The call holds the engine's generation lock for
// its full duration.
func (e *Engine) Generate(
	ctx context.Context,
	text string,
	profile *core.VoiceProfile,
	params core.GenerationParams,
	language string,
) (*core.AudioArtifact, error) {
	warmErr := e.warmUp(ctx)
	if warmErr != nil {
		return nil, warmErr
	}

	e.generateMu.Lock()
	defer e.generateMu.Unlock()

	req := SpeechRequest{
		Text:            text,
		SpeakerRefPaths: samplePaths(profile),
		ReferenceText:   profile.ReferenceText,
		Language:        language,
		Temperature:     params.Temperature,
		Speed:           params.Speed,
	}

	audioData, speechErr := e.client.GenerateSpeech(ctx, req)
	if speechErr != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrEngineFailure, speechErr)
	}

	return &core.AudioArtifact{
		Key:             "",
		Format:          "wav",
		DurationSeconds: 0,
		Data:            audioData,
	}, nil
}

// Ready reports whether the inference server is reachable and healthy.
func (e *Engine) Ready(ctx context.Context) error {
	healthErr := e.client.HealthCheck(ctx)
	if healthErr != nil {
		return fmt.Errorf("%w: %w", core.ErrEngineFailure, healthErr)
	}

	return nil
}

// warmUp performs the one-time readiness check that forces the server to
// load its model. Concurrent first calls serialize on the mutex, so the
// expensive load happens at most once; a failure leaves the engine cold and
// is retried by the next call.
func (e *Engine) warmUp(ctx context.Context) error {
	e.warmMu.Lock()
	defer e.warmMu.Unlock()

	if e.warmed {
		return nil
	}

	readyErr := e.Ready(ctx)
	if readyErr != nil {
		return readyErr
	}

	e.warmed = true
	e.log.Info("Inference server warm-up complete")

	return nil
}

// samplePaths collects the handles of the profile's valid samples.
func samplePaths(profile *core.VoiceProfile) []string {
	validSamples := profile.ValidSamples()

	paths := make([]string, 0, len(validSamples))
	for _, sample := range validSamples {
		paths = append(paths, sample.Path)
	}

	return paths
}
