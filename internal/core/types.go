// Package core defines the domain model and ports for the voice studio.
//
// The types in this package are engine-agnostic: a VoiceProfile knows nothing
// about the backend that will eventually synthesize speech from it, and all
// engine-specific behavior is expressed through the CapabilityDescriptor the
// engine publishes.
package core

import "time"

// Parameter bounds shared by every generation path. Values outside these
// ranges are clamped or rejected according to the configured policy.
const (
	TemperatureMin = 0.5
	TemperatureMax = 1.0
	SpeedMin       = 0.8
	SpeedMax       = 1.2
)

// GenerationMode tags the kind of synthesis a request asks for.
type GenerationMode string

// Supported generation modes.
const (
	ModeClone  GenerationMode = "clone"
	ModeCustom GenerationMode = "custom"
	ModeDesign GenerationMode = "design"
)

// GenerationStatus reports the terminal state of a generation.
type GenerationStatus string

// Terminal generation states.
const (
	StatusSuccess GenerationStatus = "success"
	StatusError   GenerationStatus = "error"
)

// AudioSampleRef describes one reference audio sample attached to a profile.
// Invalid samples are kept in the profile with their validation errors so a
// front-end can show the user exactly what was rejected and why.
type AudioSampleRef struct {
	// Path is the storage handle of the sample after normalization.
	Path string `json:"path"`

	// DurationSeconds is the decoded duration of the sample.
	DurationSeconds float64 `json:"duration_seconds"`

	// SampleRate is the sample rate in Hz reported by the codec.
	SampleRate int `json:"sample_rate"`

	// Channels is the channel count reported by the codec.
	Channels int `json:"channels"`

	// BitDepth is the bits-per-sample reported by the codec.
	BitDepth int `json:"bit_depth"`

	// Valid is true only if the sample decoded cleanly and its duration
	// passed the plausibility checks.
	Valid bool `json:"valid"`

	// Errors lists every validation failure for this sample.
	Errors []string `json:"errors,omitempty"`
}

// VoiceProfile is a named, persisted collection of validated reference audio
// samples plus metadata, used to condition synthesis. Profiles are immutable
// once persisted except for metadata edits.
type VoiceProfile struct {
	ID                   string           `json:"id"`
	Name                 string           `json:"name"`
	Language             string           `json:"language"`
	ReferenceText        string           `json:"reference_text,omitempty"`
	Samples              []AudioSampleRef `json:"samples"`
	TotalDurationSeconds float64          `json:"total_duration_seconds"`
	CreatedAt            time.Time        `json:"created_at"`
	UpdatedAt            time.Time        `json:"updated_at"`
}

// ValidSamples returns the subset of samples that passed validation.
func (p *VoiceProfile) ValidSamples() []AudioSampleRef {
	valid := make([]AudioSampleRef, 0, len(p.Samples))

	for _, sample := range p.Samples {
		if sample.Valid {
			valid = append(valid, sample)
		}
	}

	return valid
}

// Summary reduces the profile to the fields a listing needs.
func (p *VoiceProfile) Summary() VoiceProfileSummary {
	return VoiceProfileSummary{
		ID:                   p.ID,
		Name:                 p.Name,
		Language:             p.Language,
		SampleCount:          len(p.Samples),
		TotalDurationSeconds: p.TotalDurationSeconds,
		CreatedAt:            p.CreatedAt,
	}
}

// VoiceProfileSummary is the listing view of a profile.
type VoiceProfileSummary struct {
	ID                   string    `json:"id"`
	Name                 string    `json:"name"`
	Language             string    `json:"language"`
	SampleCount          int       `json:"sample_count"`
	TotalDurationSeconds float64   `json:"total_duration_seconds"`
	CreatedAt            time.Time `json:"created_at"`
}

// CapabilityDescriptor records the operating limits an engine declares.
// It is immutable and owned by the engine; the orchestration core queries
// it but never mutates it.
type CapabilityDescriptor struct {
	// MaxTextLength is the hard ceiling in characters. Requests above it
	// are rejected before dispatch.
	MaxTextLength int `json:"max_text_length"`

	// RecommendedTextLength is the soft ceiling. Requests above it but
	// within the hard limit proceed with a quality warning.
	RecommendedTextLength int `json:"recommended_text_length"`

	// SupportsStreaming reports whether the engine can stream audio.
	SupportsStreaming bool `json:"supports_streaming"`

	// MinSampleDurationSeconds and MaxSampleDurationSeconds bound the
	// reference samples the engine accepts. Checked at generation time,
	// since profiles are engine-agnostic.
	MinSampleDurationSeconds float64 `json:"min_sample_duration_seconds"`
	MaxSampleDurationSeconds float64 `json:"max_sample_duration_seconds"`

	// DefaultTemperature and DefaultSpeed fill unset request parameters.
	DefaultTemperature float64 `json:"default_temperature"`
	DefaultSpeed       float64 `json:"default_speed"`
}

// GenerationParams holds the numeric synthesis parameters.
// Zero values mean "use the engine default".
type GenerationParams struct {
	Temperature float64 `json:"temperature"`
	Speed       float64 `json:"speed"`
}

// GenerationRequest is the value object describing one synthesis call.
// It is validated before dispatch and consumed exactly once.
type GenerationRequest struct {
	ProfileID string           `json:"profile_id"`
	Text      string           `json:"text"`
	Params    GenerationParams `json:"params"`
	Language  string           `json:"language,omitempty"`
	Mode      GenerationMode   `json:"mode,omitempty"`
}

// AudioArtifact is a synthesized audio payload plus its handle.
// Data is never serialized: persisted records carry only the key.
type AudioArtifact struct {
	Key             string  `json:"key"`
	Format          string  `json:"format"`
	DurationSeconds float64 `json:"duration_seconds"`
	Data            []byte  `json:"-"`
}

// GenerationResult is the append-only record of a completed generation.
// It is created by the orchestrator and never mutated afterward.
type GenerationResult struct {
	ID             string           `json:"id"`
	ProfileID      string           `json:"profile_id"`
	Text           string           `json:"text"`
	Params         GenerationParams `json:"params"`
	Artifact       *AudioArtifact   `json:"artifact,omitempty"`
	Elapsed        time.Duration    `json:"elapsed_ns"`
	QualityWarning string           `json:"quality_warning,omitempty"`
	Status         GenerationStatus `json:"status"`
	CreatedAt      time.Time        `json:"created_at"`
}

// SegmentOutcome records the result of one batch segment: either a
// GenerationResult or a structured failure cause, never both.
type SegmentOutcome struct {
	// Index is the zero-based position of the segment in the script.
	Index int `json:"index"`

	// Text is the source text of the segment.
	Text string `json:"text"`

	// Result is set when the segment succeeded.
	Result *GenerationResult `json:"result,omitempty"`

	// Cause is the failure description when the segment failed.
	Cause string `json:"cause,omitempty"`
}

// Failed reports whether the segment produced no artifact.
func (s SegmentOutcome) Failed() bool {
	return s.Result == nil
}

// BatchManifest is the ordered record of per-segment outcomes for a
// multi-segment generation job. Read-only once batch processing completes.
type BatchManifest struct {
	ProfileID string           `json:"profile_id"`
	Segments  []SegmentOutcome `json:"segments"`
	Succeeded int              `json:"succeeded"`
	Failed    int              `json:"failed"`
}

// AudioInfo is the codec's description of a decoded audio stream.
type AudioInfo struct {
	DurationSeconds float64
	SampleRate      int
	Channels        int
	BitDepth        int
}

// ValidationReport lists the per-sample validation outcome for a set of
// candidate reference samples.
type ValidationReport struct {
	Samples  []AudioSampleRef `json:"samples"`
	AllValid bool             `json:"all_valid"`
}
