// Package studio exposes the voice studio's API surface: profile lifecycle,
// sample validation, single and batch generation, history and capability
// queries. Front-ends (the CLI, the NATS worker) call this package and
// nothing below it.
package studio

import (
	"context"
	"fmt"
	"sync"

	"github.com/book-expert/logger"
	"github.com/book-expert/voice-studio/internal/core"
	"github.com/book-expert/voice-studio/internal/orchestrator"
	"github.com/book-expert/voice-studio/internal/profile"
)

// Service wires the profile builder, the orchestrators and the stores into
// one facade. It also tracks in-flight generations per profile, so a profile
// cannot be deleted while a generation is using it.
type Service struct {
	builder    *profile.Builder
	repo       core.ProfileRepository
	generation *orchestrator.Generation
	batch      *orchestrator.Batch
	history    core.HistoryStore
	log        *logger.Logger

	inflightMu sync.Mutex
	inflight   map[string]int
}

// NewService creates the studio facade.
func NewService(
	builder *profile.Builder,
	repo core.ProfileRepository,
	generation *orchestrator.Generation,
	batch *orchestrator.Batch,
	historyStore core.HistoryStore,
	log *logger.Logger,
) *Service {
	return &Service{
		builder:    builder,
		repo:       repo,
		generation: generation,
		batch:      batch,
		history:    historyStore,
		log:        log,
		inflightMu: sync.Mutex{},
		inflight:   make(map[string]int),
	}
}

// ValidateSamples reports per-sample validity without creating anything.
func (s *Service) ValidateSamples(samplePaths []string) core.ValidationReport {
	return s.builder.Validate(samplePaths)
}

// CreateVoiceProfile builds a profile from the samples and persists it.
func (s *Service) CreateVoiceProfile(
	ctx context.Context,
	name string,
	samplePaths []string,
	language string,
	referenceText string,
) (*core.VoiceProfile, error) {
	built, buildErr := s.builder.Build(ctx, name, samplePaths, language, referenceText)
	if buildErr != nil {
		return nil, buildErr
	}

	saveErr := s.repo.Save(ctx, built)
	if saveErr != nil {
		return nil, fmt.Errorf("failed to persist profile '%s': %w", built.ID, saveErr)
	}

	return built, nil
}

// GetVoiceProfile loads one profile by ID.
func (s *Service) GetVoiceProfile(ctx context.Context, id string) (*core.VoiceProfile, error) {
	return s.repo.FindByID(ctx, id)
}

// ListVoiceProfiles returns summaries of all stored profiles.
func (s *Service) ListVoiceProfiles(ctx context.Context) ([]core.VoiceProfileSummary, error) {
	return s.repo.List(ctx)
}

// DeleteVoiceProfile removes a profile. A profile with an in-flight
// generation is busy and cannot be deleted.
func (s *Service) DeleteVoiceProfile(ctx context.Context, id string) error {
	s.inflightMu.Lock()

	if s.inflight[id] > 0 {
		s.inflightMu.Unlock()

		return fmt.Errorf("%w: profile '%s'", core.ErrProfileBusy, id)
	}

	s.inflightMu.Unlock()

	return s.repo.Delete(ctx, id)
}

// GenerateAudio runs a single generation and records the result in history.
// A history write failure is logged, never surfaced: the caller already
// holds the audio.
func (s *Service) GenerateAudio(
	ctx context.Context,
	request core.GenerationRequest,
) (*core.GenerationResult, error) {
	s.beginGeneration(request.ProfileID)
	defer s.endGeneration(request.ProfileID)

	result, generateErr := s.generation.Generate(ctx, request)
	if generateErr != nil {
		return nil, generateErr
	}

	s.recordHistory(ctx, result)

	return result, nil
}

// ProcessBatch runs a script through sequential batch generation. The
// profile stays busy for the whole batch. Successful segments are recorded
// in history.
func (s *Service) ProcessBatch(
	ctx context.Context,
	profileID string,
	script string,
	params core.GenerationParams,
	language string,
	sink core.ArtifactSink,
) (*core.BatchManifest, error) {
	s.beginGeneration(profileID)
	defer s.endGeneration(profileID)

	manifest, batchErr := s.batch.Process(ctx, profileID, script, params, language, sink)
	if batchErr != nil {
		return nil, batchErr
	}

	for _, outcome := range manifest.Segments {
		if !outcome.Failed() {
			s.recordHistory(ctx, outcome.Result)
		}
	}

	return manifest, nil
}

// GenerationHistory returns the recorded results for a profile, oldest
// first.
func (s *Service) GenerationHistory(
	ctx context.Context,
	profileID string,
) ([]core.GenerationResult, error) {
	return s.history.ListByProfile(ctx, profileID)
}

// EngineCapabilities returns the active engine's descriptor.
func (s *Service) EngineCapabilities(ctx context.Context) (core.CapabilityDescriptor, error) {
	return s.generation.Capabilities(ctx)
}

func (s *Service) beginGeneration(profileID string) {
	s.inflightMu.Lock()
	defer s.inflightMu.Unlock()

	s.inflight[profileID]++
}

func (s *Service) endGeneration(profileID string) {
	s.inflightMu.Lock()
	defer s.inflightMu.Unlock()

	s.inflight[profileID]--
	if s.inflight[profileID] <= 0 {
		delete(s.inflight, profileID)
	}
}

func (s *Service) recordHistory(ctx context.Context, result *core.GenerationResult) {
	appendErr := s.history.Append(ctx, result)
	if appendErr != nil {
		s.log.Warn("Failed to record generation '%s' in history: %v",
			result.ID, appendErr)
	}
}
