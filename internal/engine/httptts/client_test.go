// Package httptts_test tests the HTTP adapter for the inference server.
package httptts_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/book-expert/voice-studio/internal/core"
	"github.com/book-expert/voice-studio/internal/engine/httptts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTimeout = 10 * time.Second

func standardRequest() httptts.SpeechRequest {
	return httptts.SpeechRequest{
		Text:            "Hello, world!",
		SpeakerRefPaths: []string{"/normalized/a.wav"},
		ReferenceText:   "",
		Language:        "en",
		Temperature:     0.75,
		Speed:           1.0,
	}
}

func TestClient_GenerateSpeech_Success(t *testing.T) {
	t.Parallel()

	const testAudioData = "fake-wav-data"

	server := httptest.NewServer(http.HandlerFunc(
		func(responseWriter http.ResponseWriter, request *http.Request) {
			assert.Equal(t, http.MethodPost, request.Method)
			assert.Equal(t, "/v1/generate/speech", request.URL.Path)
			assert.Equal(t, "application/json", request.Header.Get("Content-Type"))
			assert.Equal(t, "audio/wav", request.Header.Get("Accept"))

			var req httptts.SpeechRequest

			require.NoError(t, json.NewDecoder(request.Body).Decode(&req))
			assert.Equal(t, standardRequest(), req)

			responseWriter.Header().Set("Content-Type", "audio/wav")
			responseWriter.WriteHeader(http.StatusOK)

			_, writeErr := responseWriter.Write([]byte(testAudioData))
			require.NoError(t, writeErr)
		},
	))
	defer server.Close()

	client := httptts.NewClient(server.URL, testTimeout)

	audioData, err := client.GenerateSpeech(context.Background(), standardRequest())
	require.NoError(t, err)
	assert.Equal(t, testAudioData, string(audioData))
}

func TestClient_GenerateSpeech_EmptyText(t *testing.T) {
	t.Parallel()

	client := httptts.NewClient("http://localhost:8000", testTimeout)

	req := standardRequest()
	req.Text = ""

	_, err := client.GenerateSpeech(context.Background(), req)
	require.ErrorIs(t, err, httptts.ErrTextEmpty)
}

func TestClient_GenerateSpeech_StructuredError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(
		func(responseWriter http.ResponseWriter, _ *http.Request) {
			responseWriter.Header().Set("Content-Type", "application/json")
			responseWriter.WriteHeader(http.StatusServiceUnavailable)

			_, writeErr := responseWriter.Write(
				[]byte(`{"detail":"model is loading","error_code":"MODEL_LOADING"}`),
			)
			require.NoError(t, writeErr)
		},
	))
	defer server.Close()

	client := httptts.NewClient(server.URL, testTimeout)

	_, err := client.GenerateSpeech(context.Background(), standardRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model is loading")
	assert.Contains(t, err.Error(), "MODEL_LOADING")
}

func TestClient_GenerateSpeech_EmptyAudio(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(
		func(responseWriter http.ResponseWriter, _ *http.Request) {
			responseWriter.Header().Set("Content-Type", "audio/wav")
			responseWriter.WriteHeader(http.StatusOK)
		},
	))
	defer server.Close()

	client := httptts.NewClient(server.URL, testTimeout)

	_, err := client.GenerateSpeech(context.Background(), standardRequest())
	require.ErrorIs(t, err, httptts.ErrEmptyAudioResponse)
}

func TestClient_GenerateSpeech_WrongContentType(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(
		func(responseWriter http.ResponseWriter, _ *http.Request) {
			responseWriter.Header().Set("Content-Type", "text/plain")
			responseWriter.WriteHeader(http.StatusOK)

			_, writeErr := responseWriter.Write([]byte("not audio"))
			require.NoError(t, writeErr)
		},
	))
	defer server.Close()

	client := httptts.NewClient(server.URL, testTimeout)

	_, err := client.GenerateSpeech(context.Background(), standardRequest())
	require.ErrorIs(t, err, httptts.ErrUnexpectedMediaType)
}

func TestClient_Capabilities(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(
		func(responseWriter http.ResponseWriter, request *http.Request) {
			assert.Equal(t, http.MethodGet, request.Method)
			assert.Equal(t, "/v1/capabilities", request.URL.Path)

			responseWriter.Header().Set("Content-Type", "application/json")
			responseWriter.WriteHeader(http.StatusOK)

			_, writeErr := responseWriter.Write([]byte(`{
				"max_text_length": 2048,
				"recommended_text_length": 400,
				"supports_streaming": false,
				"min_sample_duration_seconds": 1.0,
				"max_sample_duration_seconds": 30.0,
				"default_temperature": 0.75,
				"default_speed": 1.0
			}`))
			require.NoError(t, writeErr)
		},
	))
	defer server.Close()

	client := httptts.NewClient(server.URL, testTimeout)

	caps, err := client.Capabilities(context.Background())
	require.NoError(t, err)

	expected := core.CapabilityDescriptor{
		MaxTextLength:            2048,
		RecommendedTextLength:    400,
		SupportsStreaming:        false,
		MinSampleDurationSeconds: 1.0,
		MaxSampleDurationSeconds: 30.0,
		DefaultTemperature:       0.75,
		DefaultSpeed:             1.0,
	}
	assert.Equal(t, expected, caps)
}

func TestClient_HealthCheck(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(
		func(responseWriter http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "/health", request.URL.Path)
			responseWriter.WriteHeader(http.StatusOK)
		},
	))
	defer server.Close()

	client := httptts.NewClient(server.URL, testTimeout)
	require.NoError(t, client.HealthCheck(context.Background()))
}

func TestClient_HealthCheck_Unhealthy(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(
		func(responseWriter http.ResponseWriter, _ *http.Request) {
			responseWriter.WriteHeader(http.StatusServiceUnavailable)
		},
	))
	defer server.Close()

	client := httptts.NewClient(server.URL, testTimeout)
	require.Error(t, client.HealthCheck(context.Background()))
}
