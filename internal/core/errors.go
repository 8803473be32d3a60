package core

import (
	"errors"
	"fmt"
)

// Profile errors.
var (
	// ErrNoValidSamples indicates that no sample in the candidate set
	// passed validation.
	ErrNoValidSamples = errors.New("no valid samples")
	// ErrDuplicateName indicates that a profile with the same name exists.
	ErrDuplicateName = errors.New("profile name already in use")
	// ErrProfileNotFound indicates that no profile matches the identity.
	ErrProfileNotFound = errors.New("profile not found")
	// ErrProfileBusy indicates that the profile is used by an in-flight
	// generation and cannot be deleted.
	ErrProfileBusy = errors.New("profile is busy with an in-flight generation")
	// ErrStorageFailure indicates a repository-level failure.
	ErrStorageFailure = errors.New("profile storage failure")
)

// Generation errors.
var (
	// ErrTextEmpty indicates an empty text payload.
	ErrTextEmpty = errors.New("text cannot be empty")
	// ErrTextTooLong indicates that the text exceeds the engine's hard
	// text-length limit.
	ErrTextTooLong = errors.New("text exceeds maximum length")
	// ErrInvalidParameter indicates an out-of-range generation parameter
	// under the reject policy.
	ErrInvalidParameter = errors.New("invalid generation parameter")
	// ErrEngineFailure indicates that the engine failed to synthesize.
	ErrEngineFailure = errors.New("engine failure")
	// ErrGenerationTimeout indicates that the generation call expired.
	ErrGenerationTimeout = errors.New("generation timed out")
	// ErrScriptEmpty indicates a batch script with no segments.
	ErrScriptEmpty = errors.New("script contains no segments")
)

// Codec errors.
var (
	// ErrUnsupportedFormat indicates audio in a format the codec cannot
	// decode.
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	// ErrCorruptAudio indicates audio that fails to decode.
	ErrCorruptAudio = errors.New("corrupt audio data")
	// ErrCodecIO indicates an I/O failure while reading audio.
	ErrCodecIO = errors.New("audio i/o failure")
)

// TextTooLongError carries the actual and maximum lengths of a rejected text
// so front-ends can render an actionable message.
type TextTooLongError struct {
	Actual int
	Max    int
}

// Error implements the error interface.
func (e *TextTooLongError) Error() string {
	return fmt.Sprintf("%v: %d characters, maximum is %d", ErrTextTooLong, e.Actual, e.Max)
}

// Unwrap makes the error match ErrTextTooLong under errors.Is.
func (e *TextTooLongError) Unwrap() error {
	return ErrTextTooLong
}

// ParameterRangeError carries the offending parameter and its declared range.
type ParameterRangeError struct {
	Name  string
	Value float64
	Min   float64
	Max   float64
}

// Error implements the error interface.
func (e *ParameterRangeError) Error() string {
	return fmt.Sprintf(
		"%v: %s=%.2f outside [%.2f, %.2f]",
		ErrInvalidParameter, e.Name, e.Value, e.Min, e.Max,
	)
}

// Unwrap makes the error match ErrInvalidParameter under errors.Is.
func (e *ParameterRangeError) Unwrap() error {
	return ErrInvalidParameter
}

// SampleDurationError reports a profile sample whose duration falls outside
// the bounds declared by the engine handling the request.
type SampleDurationError struct {
	Path            string
	DurationSeconds float64
	MinSeconds      float64
	MaxSeconds      float64
}

// Error implements the error interface.
func (e *SampleDurationError) Error() string {
	return fmt.Sprintf(
		"%v: sample %s is %.2fs, engine accepts [%.2fs, %.2fs]",
		ErrInvalidParameter, e.Path, e.DurationSeconds, e.MinSeconds, e.MaxSeconds,
	)
}

// Unwrap makes the error match ErrInvalidParameter under errors.Is.
func (e *SampleDurationError) Unwrap() error {
	return ErrInvalidParameter
}
