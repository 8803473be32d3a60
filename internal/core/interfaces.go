package core

import "context"

// Engine is the opaque TTS inference backend. Any concrete engine must
// implement exactly this contract; the orchestration core never branches on
// engine identity, only on the descriptor's numeric fields.
type Engine interface {
	// Capabilities returns the engine's declared operating limits.
	Capabilities(ctx context.Context) (CapabilityDescriptor, error)

	// Generate synthesizes speech for the given text, conditioned on the
	// profile's reference samples. Implementations must serialize access
	// to the underlying model: no two generations run concurrently.
	Generate(
		ctx context.Context,
		text string,
		profile *VoiceProfile,
		params GenerationParams,
		language string,
	) (*AudioArtifact, error)
}

// AudioCodec decodes and validates raw audio inputs.
type AudioCodec interface {
	// Probe inspects the file at path without modifying it.
	Probe(path string) (AudioInfo, error)

	// ProbeBytes inspects an in-memory audio payload.
	ProbeBytes(data []byte) (AudioInfo, error)

	// Normalize converts the file at path into the canonical PCM
	// representation and returns the handle of the normalized audio.
	Normalize(path string) (string, error)
}

// ProfileRepository persists voice profiles by identity.
type ProfileRepository interface {
	Save(ctx context.Context, profile *VoiceProfile) error
	FindByID(ctx context.Context, id string) (*VoiceProfile, error)
	List(ctx context.Context) ([]VoiceProfileSummary, error)
	Delete(ctx context.Context, id string) error
}

// HistoryStore is the append-only log of generation results.
type HistoryStore interface {
	Append(ctx context.Context, result *GenerationResult) error
	ListByProfile(ctx context.Context, profileID string) ([]GenerationResult, error)
}

// ObjectStore is a key-value blob store for audio payloads.
type ObjectStore interface {
	Download(ctx context.Context, key string) ([]byte, error)
	Upload(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

// ArtifactSink receives the audio output of successful generations.
// Implementations write to a local directory or an object store bucket.
type ArtifactSink interface {
	Write(ctx context.Context, name string, data []byte) (handle string, err error)
}
