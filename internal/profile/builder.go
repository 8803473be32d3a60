// Package profile provides voice profile construction, validation and
// persistence.
package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/book-expert/logger"
	"github.com/book-expert/voice-studio/internal/core"
	"github.com/google/uuid"
)

// ErrNameEmpty indicates a blank profile name.
var ErrNameEmpty = errors.New("profile name cannot be empty")

// Profile-agnostic plausibility window for reference samples. Engine-specific
// bounds are enforced later, at generation time, against the capability
// descriptor of whichever engine consumes the profile.
const (
	minPlausibleSeconds = 0.5
	maxPlausibleSeconds = 600.0
)

// Validation error messages attached to sample refs.
const (
	msgFmtDecodeFailed  = "decode failed: %v"
	msgZeroDuration     = "sample has zero duration"
	msgFmtTooShort      = "too short: %.2fs, minimum is %.2fs"
	msgFmtTooLong       = "too long: %.2fs, maximum is %.2fs"
	msgFmtNormalization = "normalization failed: %v"
)

// Builder validates candidate reference samples and constructs voice
// profiles. It never persists: the caller saves the returned profile through
// the repository, which keeps construction pure and testable.
type Builder struct {
	codec core.AudioCodec
	repo  core.ProfileRepository
	log   *logger.Logger
}

// NewBuilder creates a profile builder.
func NewBuilder(
	audioCodec core.AudioCodec,
	repo core.ProfileRepository,
	log *logger.Logger,
) *Builder {
	return &Builder{
		codec: audioCodec,
		repo:  repo,
		log:   log,
	}
}

// Validate inspects every candidate sample independently and reports its
// individual validity. The only side effect is read-only codec probing.
func (b *Builder) Validate(samplePaths []string) core.ValidationReport {
	report := core.ValidationReport{
		Samples:  make([]core.AudioSampleRef, 0, len(samplePaths)),
		AllValid: len(samplePaths) > 0,
	}

	for _, path := range samplePaths {
		ref := b.inspectSample(path)
		if !ref.Valid {
			report.AllValid = false
		}

		report.Samples = append(report.Samples, ref)
	}

	return report
}

// Build re-validates the samples and constructs a VoiceProfile. It fails
// when no sample passes validation or when the name is already taken.
// Invalid samples are retained in the profile, flagged, so the caller can
// surface them; only valid samples contribute to the aggregate duration.
func (b *Builder) Build(
	ctx context.Context,
	name string,
	samplePaths []string,
	language string,
	referenceText string,
) (*core.VoiceProfile, error) {
	trimmedName := strings.TrimSpace(name)
	if trimmedName == "" {
		return nil, ErrNameEmpty
	}

	duplicateErr := b.checkDuplicateName(ctx, trimmedName)
	if duplicateErr != nil {
		return nil, duplicateErr
	}

	samples := b.normalizeSamples(samplePaths)

	totalDuration, validCount := aggregateDuration(samples)
	if validCount == 0 {
		return nil, fmt.Errorf(
			"%w: %d of %d samples rejected",
			core.ErrNoValidSamples, len(samples), len(samples),
		)
	}

	now := time.Now().UTC()

	profile := &core.VoiceProfile{
		ID:                   uuid.NewString(),
		Name:                 trimmedName,
		Language:             language,
		ReferenceText:        referenceText,
		Samples:              samples,
		TotalDurationSeconds: totalDuration,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	b.log.Info(
		"Built voice profile %s (%q): %d valid samples, %.1fs total",
		profile.ID, profile.Name, validCount, totalDuration,
	)

	return profile, nil
}

// inspectSample probes one candidate sample and applies the plausibility
// window.
func (b *Builder) inspectSample(path string) core.AudioSampleRef {
	ref := core.AudioSampleRef{
		Path:            path,
		DurationSeconds: 0,
		SampleRate:      0,
		Channels:        0,
		BitDepth:        0,
		Valid:           false,
		Errors:          nil,
	}

	info, probeErr := b.codec.Probe(path)
	if probeErr != nil {
		ref.Errors = append(ref.Errors, fmt.Sprintf(msgFmtDecodeFailed, probeErr))

		return ref
	}

	ref.DurationSeconds = info.DurationSeconds
	ref.SampleRate = info.SampleRate
	ref.Channels = info.Channels
	ref.BitDepth = info.BitDepth

	switch {
	case info.DurationSeconds <= 0:
		ref.Errors = append(ref.Errors, msgZeroDuration)
	case info.DurationSeconds < minPlausibleSeconds:
		ref.Errors = append(ref.Errors, fmt.Sprintf(
			msgFmtTooShort, info.DurationSeconds, minPlausibleSeconds,
		))
	case info.DurationSeconds > maxPlausibleSeconds:
		ref.Errors = append(ref.Errors, fmt.Sprintf(
			msgFmtTooLong, info.DurationSeconds, maxPlausibleSeconds,
		))
	default:
		ref.Valid = true
	}

	return ref
}

// normalizeSamples validates all samples and converts the valid ones to
// their canonical handles. A sample whose normalization fails is demoted to
// invalid rather than aborting the whole build.
func (b *Builder) normalizeSamples(samplePaths []string) []core.AudioSampleRef {
	samples := make([]core.AudioSampleRef, 0, len(samplePaths))

	for _, path := range samplePaths {
		ref := b.inspectSample(path)
		if ref.Valid {
			handle, normalizeErr := b.codec.Normalize(path)
			if normalizeErr != nil {
				ref.Valid = false
				ref.Errors = append(ref.Errors, fmt.Sprintf(
					msgFmtNormalization, normalizeErr,
				))
			} else {
				ref.Path = handle
			}
		}

		samples = append(samples, ref)
	}

	return samples
}

// checkDuplicateName rejects names already present in the repository.
// Comparison is case-insensitive so "Narrator" and "narrator" cannot
// coexist and confuse a listing.
func (b *Builder) checkDuplicateName(ctx context.Context, name string) error {
	summaries, listErr := b.repo.List(ctx)
	if listErr != nil {
		return fmt.Errorf("failed to check for duplicate name: %w", listErr)
	}

	for _, summary := range summaries {
		if strings.EqualFold(summary.Name, name) {
			return fmt.Errorf("%w: %q", core.ErrDuplicateName, name)
		}
	}

	return nil
}

// aggregateDuration sums the durations of valid samples.
func aggregateDuration(samples []core.AudioSampleRef) (total float64, validCount int) {
	for _, sample := range samples {
		if sample.Valid {
			total += sample.DurationSeconds
			validCount++
		}
	}

	return total, validCount
}
