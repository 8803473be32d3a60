// Package orchestrator implements the generation core: single-request
// dispatch with capability enforcement, and sequential batch processing with
// partial-failure semantics.
//
// The orchestrator is the final authority on engine limits. Front-ends may
// run the same checks proactively for UX, but nothing they do is relied upon
// for correctness: every request is re-verified here before dispatch.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/book-expert/logger"
	"github.com/book-expert/voice-studio/internal/core"
	"github.com/google/uuid"
)

// ParameterPolicy selects how out-of-range generation parameters are
// handled. Clamping favors usability (a slightly wrong slider still
// produces audio); rejecting favors strictness. The policy applies
// identically to single and batch generation.
type ParameterPolicy string

// Supported parameter policies.
const (
	PolicyClamp  ParameterPolicy = "clamp"
	PolicyReject ParameterPolicy = "reject"
)

// Log and warning formats.
const (
	warnFmtSoftLimit = "text length %d exceeds recommended %d; audio quality may degrade"
	logFmtDispatched = "Dispatching generation for profile %s (%d chars)"
	logFmtCompleted  = "Generation %s completed in %s (%.1fs audio)"
)

// Generation validates and dispatches single synthesis requests.
type Generation struct {
	repo    core.ProfileRepository
	engine  core.Engine
	codec   core.AudioCodec
	policy  ParameterPolicy
	timeout time.Duration
	log     *logger.Logger
}

// NewGeneration creates a generation orchestrator. A zero timeout disables
// the per-request deadline.
func NewGeneration(
	repo core.ProfileRepository,
	engine core.Engine,
	audioCodec core.AudioCodec,
	policy ParameterPolicy,
	timeout time.Duration,
	log *logger.Logger,
) *Generation {
	return &Generation{
		repo:    repo,
		engine:  engine,
		codec:   audioCodec,
		policy:  policy,
		timeout: timeout,
		log:     log,
	}
}

// Generate runs the full validation-and-dispatch pipeline for one request.
//
// Hard-limit violations block dispatch outright; soft-limit violations
// proceed and attach a quality warning to the result. Failures are terminal
// for the request: synthesis is expensive and idempotent-but-costly, so
// retries are the caller's decision, never automatic.
func (g *Generation) Generate(
	ctx context.Context,
	request core.GenerationRequest,
) (*core.GenerationResult, error) {
	profile, resolveErr := g.resolveProfile(ctx, request.ProfileID)
	if resolveErr != nil {
		return nil, resolveErr
	}

	caps, capsErr := g.engine.Capabilities(ctx)
	if capsErr != nil {
		return nil, fmt.Errorf("failed to read engine capabilities: %w", capsErr)
	}

	qualityWarning, textErr := checkTextLimits(request.Text, caps)
	if textErr != nil {
		return nil, textErr
	}

	sampleErr := checkSampleBounds(profile, caps)
	if sampleErr != nil {
		return nil, sampleErr
	}

	params, paramsErr := g.applyParameterPolicy(request.Params, caps)
	if paramsErr != nil {
		return nil, paramsErr
	}

	artifact, elapsed, dispatchErr := g.dispatch(ctx, request, profile, params)
	if dispatchErr != nil {
		return nil, dispatchErr
	}

	g.measureArtifactDuration(artifact)

	result := &core.GenerationResult{
		ID:             uuid.NewString(),
		ProfileID:      profile.ID,
		Text:           request.Text,
		Params:         params,
		Artifact:       artifact,
		Elapsed:        elapsed,
		QualityWarning: qualityWarning,
		Status:         core.StatusSuccess,
		CreatedAt:      time.Now().UTC(),
	}

	g.log.Info(logFmtCompleted, result.ID, elapsed, artifact.DurationSeconds)

	return result, nil
}

// Capabilities exposes the engine's descriptor to the API surface.
func (g *Generation) Capabilities(ctx context.Context) (core.CapabilityDescriptor, error) {
	caps, capsErr := g.engine.Capabilities(ctx)
	if capsErr != nil {
		return core.CapabilityDescriptor{}, fmt.Errorf(
			"failed to read engine capabilities: %w", capsErr,
		)
	}

	return caps, nil
}

// resolveProfile loads the profile or reports ProfileNotFound.
func (g *Generation) resolveProfile(
	ctx context.Context,
	profileID string,
) (*core.VoiceProfile, error) {
	profile, findErr := g.repo.FindByID(ctx, profileID)
	if findErr != nil {
		if errors.Is(findErr, core.ErrProfileNotFound) {
			return nil, findErr
		}

		return nil, fmt.Errorf("failed to resolve profile '%s': %w", profileID, findErr)
	}

	return profile, nil
}

// checkTextLimits enforces the hard text-length limit and computes the soft
// limit warning. Lengths are counted in characters, not bytes, so multibyte
// scripts are not penalized.
func checkTextLimits(text string, caps core.CapabilityDescriptor) (string, error) {
	if text == "" {
		return "", core.ErrTextEmpty
	}

	length := utf8.RuneCountInString(text)

	if caps.MaxTextLength > 0 && length > caps.MaxTextLength {
		return "", &core.TextTooLongError{
			Actual: length,
			Max:    caps.MaxTextLength,
		}
	}

	if caps.RecommendedTextLength > 0 && length > caps.RecommendedTextLength {
		return fmt.Sprintf(warnFmtSoftLimit, length, caps.RecommendedTextLength), nil
	}

	return "", nil
}

// checkSampleBounds verifies the profile's valid samples against the
// engine's declared sample-duration window. Profiles are engine-agnostic,
// so this check belongs at generation time, not at profile creation.
func checkSampleBounds(profile *core.VoiceProfile, caps core.CapabilityDescriptor) error {
	for _, sample := range profile.ValidSamples() {
		if caps.MinSampleDurationSeconds > 0 &&
			sample.DurationSeconds < caps.MinSampleDurationSeconds {
			return &core.SampleDurationError{
				Path:            sample.Path,
				DurationSeconds: sample.DurationSeconds,
				MinSeconds:      caps.MinSampleDurationSeconds,
				MaxSeconds:      caps.MaxSampleDurationSeconds,
			}
		}

		if caps.MaxSampleDurationSeconds > 0 &&
			sample.DurationSeconds > caps.MaxSampleDurationSeconds {
			return &core.SampleDurationError{
				Path:            sample.Path,
				DurationSeconds: sample.DurationSeconds,
				MinSeconds:      caps.MinSampleDurationSeconds,
				MaxSeconds:      caps.MaxSampleDurationSeconds,
			}
		}
	}

	return nil
}

// applyParameterPolicy fills engine defaults into unset parameters and then
// clamps or rejects out-of-range values according to the configured policy.
func (g *Generation) applyParameterPolicy(
	params core.GenerationParams,
	caps core.CapabilityDescriptor,
) (core.GenerationParams, error) {
	if params.Temperature == 0 {
		params.Temperature = caps.DefaultTemperature
	}

	if params.Speed == 0 {
		params.Speed = caps.DefaultSpeed
	}

	temperature, temperatureErr := g.boundParameter(
		"temperature", params.Temperature, core.TemperatureMin, core.TemperatureMax,
	)
	if temperatureErr != nil {
		return core.GenerationParams{}, temperatureErr
	}

	speed, speedErr := g.boundParameter(
		"speed", params.Speed, core.SpeedMin, core.SpeedMax,
	)
	if speedErr != nil {
		return core.GenerationParams{}, speedErr
	}

	return core.GenerationParams{
		Temperature: temperature,
		Speed:       speed,
	}, nil
}

// boundParameter applies the parameter policy to a single value.
func (g *Generation) boundParameter(
	name string,
	value, minValue, maxValue float64,
) (float64, error) {
	if value >= minValue && value <= maxValue {
		return value, nil
	}

	if g.policy == PolicyReject {
		return 0, &core.ParameterRangeError{
			Name:  name,
			Value: value,
			Min:   minValue,
			Max:   maxValue,
		}
	}

	clamped := value
	if clamped < minValue {
		clamped = minValue
	}

	if clamped > maxValue {
		clamped = maxValue
	}

	g.log.Warn("Parameter %s=%.2f clamped to %.2f", name, value, clamped)

	return clamped, nil
}

// dispatch sends the request to the engine under the configured timeout and
// measures wall-clock elapsed time.
func (g *Generation) dispatch(
	ctx context.Context,
	request core.GenerationRequest,
	profile *core.VoiceProfile,
	params core.GenerationParams,
) (*core.AudioArtifact, time.Duration, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	language := request.Language
	if language == "" {
		language = profile.Language
	}

	g.log.Info(logFmtDispatched, profile.ID, utf8.RuneCountInString(request.Text))

	started := time.Now()

	artifact, engineErr := g.engine.Generate(ctx, request.Text, profile, params, language)

	elapsed := time.Since(started)

	if engineErr != nil {
		if errors.Is(engineErr, context.DeadlineExceeded) {
			return nil, elapsed, fmt.Errorf(
				"%w: exceeded %s", core.ErrGenerationTimeout, g.timeout,
			)
		}

		if errors.Is(engineErr, core.ErrEngineFailure) {
			return nil, elapsed, engineErr
		}

		return nil, elapsed, fmt.Errorf("%w: %w", core.ErrEngineFailure, engineErr)
	}

	return artifact, elapsed, nil
}

// measureArtifactDuration probes the generated audio for its duration.
// A probe failure is logged but never fails an otherwise successful
// generation.
func (g *Generation) measureArtifactDuration(artifact *core.AudioArtifact) {
	if artifact == nil || len(artifact.Data) == 0 {
		return
	}

	info, probeErr := g.codec.ProbeBytes(artifact.Data)
	if probeErr != nil {
		g.log.Warn("Failed to measure generated audio duration: %v", probeErr)

		return
	}

	artifact.DurationSeconds = info.DurationSeconds
}
