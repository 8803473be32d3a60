package studio_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/book-expert/logger"
	"github.com/book-expert/voice-studio/internal/core"
	"github.com/book-expert/voice-studio/internal/orchestrator"
	"github.com/book-expert/voice-studio/internal/profile"
	"github.com/book-expert/voice-studio/internal/studio"
	"github.com/book-expert/voice-studio/internal/text"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errHistoryDown = errors.New("history unavailable")

type memoryRepo struct {
	mu       sync.Mutex
	profiles map[string]*core.VoiceProfile
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		mu:       sync.Mutex{},
		profiles: make(map[string]*core.VoiceProfile),
	}
}

func (r *memoryRepo) Save(_ context.Context, p *core.VoiceProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.profiles[p.ID] = p

	return nil
}

func (r *memoryRepo) FindByID(_ context.Context, id string) (*core.VoiceProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, exists := r.profiles[id]
	if !exists {
		return nil, core.ErrProfileNotFound
	}

	return p, nil
}

func (r *memoryRepo) List(_ context.Context) ([]core.VoiceProfileSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	summaries := make([]core.VoiceProfileSummary, 0, len(r.profiles))
	for _, p := range r.profiles {
		summaries = append(summaries, p.Summary())
	}

	return summaries, nil
}

func (r *memoryRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, exists := r.profiles[id]
	if !exists {
		return core.ErrProfileNotFound
	}

	delete(r.profiles, id)

	return nil
}

type memoryHistory struct {
	mu        sync.Mutex
	results   []core.GenerationResult
	appendErr error
}

func (h *memoryHistory) Append(_ context.Context, result *core.GenerationResult) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.appendErr != nil {
		return h.appendErr
	}

	h.results = append(h.results, *result)

	return nil
}

func (h *memoryHistory) ListByProfile(
	_ context.Context,
	profileID string,
) ([]core.GenerationResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	matches := make([]core.GenerationResult, 0, len(h.results))
	for _, result := range h.results {
		if result.ProfileID == profileID {
			matches = append(matches, result)
		}
	}

	return matches, nil
}

func (h *memoryHistory) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.results)
}

type blockingEngine struct {
	entered  chan struct{}
	release  chan struct{}
	blocking bool
	failText string
}

func (e *blockingEngine) Capabilities(_ context.Context) (core.CapabilityDescriptor, error) {
	return core.CapabilityDescriptor{
		MaxTextLength:            2048,
		RecommendedTextLength:    400,
		SupportsStreaming:        false,
		MinSampleDurationSeconds: 1.0,
		MaxSampleDurationSeconds: 30.0,
		DefaultTemperature:       0.75,
		DefaultSpeed:             1.0,
	}, nil
}

func (e *blockingEngine) Generate(
	_ context.Context,
	generateText string,
	_ *core.VoiceProfile,
	_ core.GenerationParams,
	_ string,
) (*core.AudioArtifact, error) {
	if e.blocking {
		e.entered <- struct{}{}
		<-e.release
	}

	if e.failText != "" && generateText == e.failText {
		return nil, errors.New("model crashed")
	}

	return &core.AudioArtifact{
		Key:             "",
		Format:          "wav",
		DurationSeconds: 0,
		Data:            []byte("fake-wav-data"),
	}, nil
}

type passCodec struct{}

func (passCodec) Probe(_ string) (core.AudioInfo, error) {
	return core.AudioInfo{
		DurationSeconds: 5.0,
		SampleRate:      24000,
		Channels:        1,
		BitDepth:        16,
	}, nil
}

func (passCodec) ProbeBytes(_ []byte) (core.AudioInfo, error) {
	return core.AudioInfo{
		DurationSeconds: 2.5,
		SampleRate:      24000,
		Channels:        1,
		BitDepth:        16,
	}, nil
}

func (passCodec) Normalize(path string) (string, error) {
	return path, nil
}

type serviceFixture struct {
	service *studio.Service
	repo    *memoryRepo
	history *memoryHistory
	engine  *blockingEngine
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	testLogger, err := logger.New(t.TempDir(), "studio-test.log")
	require.NoError(t, err)

	repo := newMemoryRepo()
	historyStore := &memoryHistory{}
	engine := &blockingEngine{
		entered:  make(chan struct{}),
		release:  make(chan struct{}),
		blocking: false,
		failText: "",
	}

	builder := profile.NewBuilder(passCodec{}, repo, testLogger)
	generation := orchestrator.NewGeneration(
		repo, engine, passCodec{}, orchestrator.PolicyClamp, 0, testLogger,
	)
	batch := orchestrator.NewBatch(generation, text.NewSegmenter(), testLogger)

	return &serviceFixture{
		service: studio.NewService(
			builder, repo, generation, batch, historyStore, testLogger,
		),
		repo:    repo,
		history: historyStore,
		engine:  engine,
	}
}

func (fx *serviceFixture) createProfile(t *testing.T, name string) *core.VoiceProfile {
	t.Helper()

	created, err := fx.service.CreateVoiceProfile(
		context.Background(), name, []string{"/samples/a.wav"}, "en", "",
	)
	require.NoError(t, err)

	return created
}

func TestService_CreateVoiceProfile_Persists(t *testing.T) {
	t.Parallel()

	fx := newServiceFixture(t)
	created := fx.createProfile(t, "narrator")

	loaded, err := fx.service.GetVoiceProfile(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "narrator", loaded.Name)

	summaries, err := fx.service.ListVoiceProfiles(context.Background())
	require.NoError(t, err)
	assert.Len(t, summaries, 1)
}

func TestService_CreateVoiceProfile_DuplicateName(t *testing.T) {
	t.Parallel()

	fx := newServiceFixture(t)
	fx.createProfile(t, "narrator")

	_, err := fx.service.CreateVoiceProfile(
		context.Background(), "Narrator", []string{"/samples/a.wav"}, "en", "",
	)
	require.ErrorIs(t, err, core.ErrDuplicateName)
}

func TestService_GenerateAudio_RecordsHistory(t *testing.T) {
	t.Parallel()

	fx := newServiceFixture(t)
	created := fx.createProfile(t, "narrator")

	result, err := fx.service.GenerateAudio(context.Background(), core.GenerationRequest{
		ProfileID: created.ID,
		Text:      "Hello, world",
	})
	require.NoError(t, err)

	recorded, err := fx.service.GenerationHistory(context.Background(), created.ID)
	require.NoError(t, err)
	require.Len(t, recorded, 1)
	assert.Equal(t, result.ID, recorded[0].ID)
}

func TestService_GenerateAudio_HistoryFailureIsNonFatal(t *testing.T) {
	t.Parallel()

	fx := newServiceFixture(t)
	created := fx.createProfile(t, "narrator")
	fx.history.appendErr = errHistoryDown

	result, err := fx.service.GenerateAudio(context.Background(), core.GenerationRequest{
		ProfileID: created.ID,
		Text:      "Hello, world",
	})
	require.NoError(t, err, "a failed history write must not fail the generation")
	assert.NotNil(t, result.Artifact)
}

func TestService_DeleteVoiceProfile_BusyDuringGeneration(t *testing.T) {
	t.Parallel()

	fx := newServiceFixture(t)
	created := fx.createProfile(t, "narrator")
	fx.engine.blocking = true

	done := make(chan error, 1)

	go func() {
		_, generateErr := fx.service.GenerateAudio(
			context.Background(), core.GenerationRequest{
				ProfileID: created.ID,
				Text:      "Hello, world",
			},
		)
		done <- generateErr
	}()

	// Wait for the generation to reach the engine, then try to delete.
	<-fx.engine.entered

	deleteErr := fx.service.DeleteVoiceProfile(context.Background(), created.ID)
	require.ErrorIs(t, deleteErr, core.ErrProfileBusy)

	close(fx.engine.release)
	require.NoError(t, <-done)

	// With the generation finished, deletion goes through.
	require.NoError(t, fx.service.DeleteVoiceProfile(context.Background(), created.ID))
}

func TestService_DeleteVoiceProfile_NotFound(t *testing.T) {
	t.Parallel()

	fx := newServiceFixture(t)

	err := fx.service.DeleteVoiceProfile(context.Background(), "no-such-profile")
	require.ErrorIs(t, err, core.ErrProfileNotFound)
}

func TestService_ProcessBatch_RecordsOnlySuccesses(t *testing.T) {
	t.Parallel()

	fx := newServiceFixture(t)
	created := fx.createProfile(t, "narrator")
	fx.engine.failText = "Second paragraph."

	manifest, err := fx.service.ProcessBatch(
		context.Background(), created.ID,
		"First paragraph.\n\nSecond paragraph.\n\nThird paragraph.",
		core.GenerationParams{}, "",
		orchestrator.NewDirectorySink(t.TempDir()),
	)
	require.NoError(t, err)

	assert.Equal(t, 2, manifest.Succeeded)
	assert.Equal(t, 1, manifest.Failed)
	assert.Equal(t, 2, fx.history.count())
}

func TestService_ValidateSamples(t *testing.T) {
	t.Parallel()

	fx := newServiceFixture(t)

	report := fx.service.ValidateSamples([]string{"/samples/a.wav"})
	assert.True(t, report.AllValid)
	require.Len(t, report.Samples, 1)
}

func TestService_EngineCapabilities(t *testing.T) {
	t.Parallel()

	fx := newServiceFixture(t)

	caps, err := fx.service.EngineCapabilities(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2048, caps.MaxTextLength)
}
