// Package httptts provides the HTTP adapter for a standalone TTS inference
// server. It implements the core.Engine port: capability discovery, voice
// cloning generation and health monitoring over a small JSON API.
package httptts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/book-expert/voice-studio/internal/core"
)

// API endpoints and paths.
const (
	apiGenerateSpeech = "/v1/generate/speech"
	apiCapabilities   = "/v1/capabilities"
	apiHealth         = "/health"
)

// HTTP headers.
const (
	headerContentType = "Content-Type"
	headerAccept      = "Accept"
	contentTypeJSON   = "application/json"
	contentTypeWAV    = "audio/wav"
)

// Static errors.
var (
	ErrTextEmpty           = errors.New("text cannot be empty")
	ErrEmptyAudioResponse  = errors.New("received empty audio data")
	ErrUnexpectedMediaType = errors.New("unexpected content type")
)

// Error formats.
const (
	errFmtServiceErrorWithCode = "inference server error (%s): %s (code: %s)"
	errFmtServiceNonOKStatus   = "inference server returned non-OK status: %s, body: %s"
)

// Client talks to the inference server over HTTP. It encapsulates the HTTP
// configuration and provides methods for capability discovery, speech
// generation and health monitoring.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// SpeechRequest defines the JSON payload for a generation request.
type SpeechRequest struct {
	// Text contains the input text to convert to speech.
	Text string `json:"text"`

	// SpeakerRefPaths lists server-side handles of the reference samples
	// that condition the cloned voice.
	SpeakerRefPaths []string `json:"speaker_ref_paths,omitempty"`

	// ReferenceText optionally transcribes the reference samples.
	ReferenceText string `json:"reference_text,omitempty"`

	// Language specifies the target language code (e.g., "en", "es").
	Language string `json:"language"`

	// Temperature controls randomness in speech generation.
	Temperature float64 `json:"temperature"`

	// Speed scales the speaking rate.
	Speed float64 `json:"speed"`
}

// errorResponse represents a structured error from the inference server.
type errorResponse struct {
	// Detail contains a human-readable error description.
	Detail string `json:"detail"`

	// ErrorCode provides a machine-readable error classification.
	ErrorCode string `json:"error_code,omitempty"`
}

// NewClient creates and configures an HTTP client for the inference server.
// The baseURL should include the protocol and port (e.g.,
// "http://localhost:8000"). The timeout applies to all HTTP requests made by
// this client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// GenerateSpeech sends a generation request and returns the raw WAV audio.
// The method validates input at the boundary, constructs the request
// according to the API contract, and handles both successful responses and
// structured error conditions.
func (c *Client) GenerateSpeech(ctx context.Context, req SpeechRequest) ([]byte, error) {
	if req.Text == "" {
		return nil, ErrTextEmpty
	}

	requestBody, marshalErr := json.Marshal(req)
	if marshalErr != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", marshalErr)
	}

	url := c.baseURL + apiGenerateSpeech

	httpReq, reqErr := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		url,
		bytes.NewBuffer(requestBody),
	)
	if reqErr != nil {
		return nil, fmt.Errorf("failed to create request: %w", reqErr)
	}

	httpReq.Header.Set(headerContentType, contentTypeJSON)
	httpReq.Header.Set(headerAccept, contentTypeWAV)

	resp, doErr := c.httpClient.Do(httpReq)
	if doErr != nil {
		return nil, fmt.Errorf(
			"failed to send request to inference server at %s: %w",
			c.baseURL,
			doErr,
		)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}

	contentType := resp.Header.Get(headerContentType)
	if contentType != contentTypeWAV {
		return nil, fmt.Errorf(
			"%w: expected %s, got %s",
			ErrUnexpectedMediaType, contentTypeWAV, contentType,
		)
	}

	audioData, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return nil, fmt.Errorf("failed to read audio data: %w", readErr)
	}

	if len(audioData) == 0 {
		return nil, ErrEmptyAudioResponse
	}

	return audioData, nil
}

// Capabilities fetches the server's capability document. The JSON document
// maps field-for-field onto core.CapabilityDescriptor.
func (c *Client) Capabilities(ctx context.Context) (core.CapabilityDescriptor, error) {
	url := c.baseURL + apiCapabilities

	httpReq, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if reqErr != nil {
		return core.CapabilityDescriptor{}, fmt.Errorf(
			"failed to create capabilities request: %w", reqErr,
		)
	}

	resp, doErr := c.httpClient.Do(httpReq)
	if doErr != nil {
		return core.CapabilityDescriptor{}, fmt.Errorf(
			"failed to fetch capabilities from %s: %w", c.baseURL, doErr,
		)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return core.CapabilityDescriptor{}, c.parseErrorResponse(resp)
	}

	var caps core.CapabilityDescriptor

	decodeErr := json.NewDecoder(resp.Body).Decode(&caps)
	if decodeErr != nil {
		return core.CapabilityDescriptor{}, fmt.Errorf(
			"failed to decode capabilities: %w", decodeErr,
		)
	}

	return caps, nil
}

// HealthCheck verifies that the inference server is running and operational.
// Health checks are performed before generation workloads to fail fast and
// provide clear diagnostics when the server is unavailable.
func (c *Client) HealthCheck(ctx context.Context) error {
	url := c.baseURL + apiHealth

	req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if reqErr != nil {
		return fmt.Errorf("failed to create health check request: %w", reqErr)
	}

	resp, doErr := c.httpClient.Do(req)
	if doErr != nil {
		return fmt.Errorf(
			"health check failed for server at %s: %w",
			c.baseURL,
			doErr,
		)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed with status: %s", resp.Status)
	}

	return nil
}

// parseErrorResponse attempts to decode a structured JSON error from the
// server. If structured parsing fails, it falls back to returning the raw
// response body so diagnostic information is preserved.
func (c *Client) parseErrorResponse(resp *http.Response) error {
	var errorResp errorResponse

	decodeErr := json.NewDecoder(resp.Body).Decode(&errorResp)
	if decodeErr == nil && errorResp.Detail != "" {
		return fmt.Errorf(errFmtServiceErrorWithCode,
			resp.Status, errorResp.Detail, errorResp.ErrorCode)
	}

	body, _ := io.ReadAll(resp.Body)

	return fmt.Errorf(
		errFmtServiceNonOKStatus,
		resp.Status,
		string(body),
	)
}
