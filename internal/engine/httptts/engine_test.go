package httptts_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/book-expert/logger"
	"github.com/book-expert/voice-studio/internal/core"
	"github.com/book-expert/voice-studio/internal/engine/httptts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const capabilitiesDocument = `{
	"max_text_length": 2048,
	"recommended_text_length": 400,
	"supports_streaming": false,
	"min_sample_duration_seconds": 1.0,
	"max_sample_duration_seconds": 30.0,
	"default_temperature": 0.75,
	"default_speed": 1.0
}`

// inferenceServerStub counts per-endpoint calls so tests can assert the
// warm-up and capability caching behavior.
type inferenceServerStub struct {
	healthCalls       atomic.Int64
	capabilitiesCalls atomic.Int64
	generateCalls     atomic.Int64
	failHealth        atomic.Bool
}

func (s *inferenceServerStub) handler(t *testing.T) http.Handler {
	t.Helper()

	return http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		switch request.URL.Path {
		case "/health":
			s.healthCalls.Add(1)

			if s.failHealth.Load() {
				responseWriter.WriteHeader(http.StatusServiceUnavailable)

				return
			}

			responseWriter.WriteHeader(http.StatusOK)
		case "/v1/capabilities":
			s.capabilitiesCalls.Add(1)
			responseWriter.Header().Set("Content-Type", "application/json")

			_, _ = responseWriter.Write([]byte(capabilitiesDocument))
		case "/v1/generate/speech":
			s.generateCalls.Add(1)
			responseWriter.Header().Set("Content-Type", "audio/wav")

			_, _ = responseWriter.Write([]byte("fake-wav-data"))
		default:
			responseWriter.WriteHeader(http.StatusNotFound)
		}
	})
}

func newTestEngine(t *testing.T, serverURL string) *httptts.Engine {
	t.Helper()

	testLogger, err := logger.New(t.TempDir(), "engine-test.log")
	require.NoError(t, err)

	return httptts.NewEngine(httptts.NewClient(serverURL, testTimeout), testLogger)
}

func cloneProfile() *core.VoiceProfile {
	return &core.VoiceProfile{
		ID:   "profile-1",
		Name: "narrator",
		Samples: []core.AudioSampleRef{
			{Path: "/normalized/a.wav", DurationSeconds: 5.0, Valid: true},
			{Path: "/rejected/b.wav", DurationSeconds: 0.1, Valid: false},
		},
	}
}

func TestEngine_Generate_WarmsUpOnce(t *testing.T) {
	t.Parallel()

	stub := &inferenceServerStub{}
	server := httptest.NewServer(stub.handler(t))
	defer server.Close()

	engine := newTestEngine(t, server.URL)
	ctx := context.Background()
	params := core.GenerationParams{Temperature: 0.75, Speed: 1.0}

	for range 3 {
		artifact, err := engine.Generate(ctx, "hello", cloneProfile(), params, "en")
		require.NoError(t, err)
		assert.Equal(t, []byte("fake-wav-data"), artifact.Data)
		assert.Equal(t, "wav", artifact.Format)
	}

	assert.Equal(t, int64(1), stub.healthCalls.Load(), "warm-up must run at most once")
	assert.Equal(t, int64(3), stub.generateCalls.Load())
}

func TestEngine_Generate_RetriesWarmUpAfterFailure(t *testing.T) {
	t.Parallel()

	stub := &inferenceServerStub{}
	stub.failHealth.Store(true)

	server := httptest.NewServer(stub.handler(t))
	defer server.Close()

	engine := newTestEngine(t, server.URL)
	ctx := context.Background()
	params := core.GenerationParams{Temperature: 0.75, Speed: 1.0}

	_, err := engine.Generate(ctx, "hello", cloneProfile(), params, "en")
	require.ErrorIs(t, err, core.ErrEngineFailure)
	assert.Equal(t, int64(0), stub.generateCalls.Load())

	// The engine stays cold after a failed warm-up and retries it.
	stub.failHealth.Store(false)

	_, err = engine.Generate(ctx, "hello", cloneProfile(), params, "en")
	require.NoError(t, err)
	assert.Equal(t, int64(2), stub.healthCalls.Load())
}

func TestEngine_Capabilities_Cached(t *testing.T) {
	t.Parallel()

	stub := &inferenceServerStub{}
	server := httptest.NewServer(stub.handler(t))
	defer server.Close()

	engine := newTestEngine(t, server.URL)
	ctx := context.Background()

	first, err := engine.Capabilities(ctx)
	require.NoError(t, err)

	second, err := engine.Capabilities(ctx)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 2048, first.MaxTextLength)
	assert.Equal(t, int64(1), stub.capabilitiesCalls.Load(), "descriptor is immutable, one fetch is enough")
}

func TestEngine_Generate_SendsOnlyValidSamplePaths(t *testing.T) {
	t.Parallel()

	var capturedPaths []string

	server := httptest.NewServer(http.HandlerFunc(
		func(responseWriter http.ResponseWriter, request *http.Request) {
			if request.URL.Path == "/health" {
				responseWriter.WriteHeader(http.StatusOK)

				return
			}

			var req httptts.SpeechRequest

			require.NoError(t, json.NewDecoder(request.Body).Decode(&req))
			capturedPaths = req.SpeakerRefPaths

			responseWriter.Header().Set("Content-Type", "audio/wav")
			_, _ = responseWriter.Write([]byte("fake-wav-data"))
		},
	))
	defer server.Close()

	engine := newTestEngine(t, server.URL)

	_, err := engine.Generate(
		context.Background(), "hello", cloneProfile(),
		core.GenerationParams{Temperature: 0.75, Speed: 1.0}, "en",
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"/normalized/a.wav"}, capturedPaths)
}
