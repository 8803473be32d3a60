// Package codec provides the audio codec adapter for the voice studio.
//
// The shipped codec handles the WAV/PCM format every supported engine emits
// and consumes. It reads container headers only: signal-level processing
// (resampling, filtering) belongs to the inference engine, not the
// orchestration core.
package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/book-expert/voice-studio/internal/core"
)

// RIFF container identifiers.
const (
	riffChunkID = "RIFF"
	waveFormat  = "WAVE"
	fmtChunkID  = "fmt "
	dataChunkID = "data"
)

// WAV format constraints.
const (
	formatTagPCM    = 1
	fmtChunkMinSize = 16
	chunkHeaderSize = 8
	riffHeaderSize  = 12
	maxSampleRate   = 192000
	maxChannels     = 8
	extensionWAV    = ".wav"
	extensionMP3    = ".mp3"
	extensionFLAC   = ".flac"
	extensionOGG    = ".ogg"
)

// WAV implements core.AudioCodec for RIFF/WAVE PCM audio.
type WAV struct{}

// NewWAV creates a WAV codec.
func NewWAV() *WAV {
	return &WAV{}
}

// Probe inspects the WAV file at path and reports its stream properties.
// The file is opened read-only and never modified.
func (c *WAV) Probe(path string) (core.AudioInfo, error) {
	file, openErr := os.Open(path)
	if openErr != nil {
		return core.AudioInfo{}, fmt.Errorf("%w: open %s: %w", core.ErrCodecIO, path, openErr)
	}

	defer func() {
		_ = file.Close()
	}()

	info, parseErr := parseWAVHeader(file)
	if parseErr != nil {
		return core.AudioInfo{}, fmt.Errorf("probe %s: %w", path, parseErr)
	}

	return info, nil
}

// ProbeBytes inspects an in-memory WAV payload.
func (c *WAV) ProbeBytes(data []byte) (core.AudioInfo, error) {
	info, parseErr := parseWAVHeader(bytes.NewReader(data))
	if parseErr != nil {
		return core.AudioInfo{}, parseErr
	}

	return info, nil
}

// Normalize validates that the file at path is decodable PCM within the
// supported parameter bounds and returns its absolute path as the canonical
// handle. Sample-rate and channel conversion are delegated to the engine,
// which conditions on reference audio in its own internal representation.
func (c *WAV) Normalize(path string) (string, error) {
	info, probeErr := c.Probe(path)
	if probeErr != nil {
		return "", probeErr
	}

	boundsErr := validateStreamBounds(info)
	if boundsErr != nil {
		return "", fmt.Errorf("normalize %s: %w", path, boundsErr)
	}

	absPath, absErr := filepath.Abs(path)
	if absErr != nil {
		return "", fmt.Errorf("%w: resolve %s: %w", core.ErrCodecIO, path, absErr)
	}

	return absPath, nil
}

// IsSupportedFile reports whether the filename carries an audio extension
// the studio accepts as profile input.
func IsSupportedFile(filename string) bool {
	switch filepath.Ext(filename) {
	case extensionWAV, extensionMP3, extensionFLAC, extensionOGG:
		return true
	default:
		return false
	}
}

// parseWAVHeader walks the RIFF chunk list and extracts the fmt and data
// chunks. It reads only chunk headers and the fmt payload, so probing a long
// recording costs the same as probing a short one.
func parseWAVHeader(reader io.Reader) (core.AudioInfo, error) {
	containerErr := readRIFFContainer(reader)
	if containerErr != nil {
		return core.AudioInfo{}, containerErr
	}

	var (
		info     core.AudioInfo
		byteRate uint32
		dataSize uint32
		haveFmt  bool
		haveData bool
	)

	for !haveFmt || !haveData {
		chunkID, chunkSize, headerErr := readChunkHeader(reader)
		if headerErr != nil {
			return core.AudioInfo{}, headerErr
		}

		switch chunkID {
		case fmtChunkID:
			fmtInfo, rate, fmtErr := readFmtChunk(reader, chunkSize)
			if fmtErr != nil {
				return core.AudioInfo{}, fmtErr
			}

			info = fmtInfo
			byteRate = rate
			haveFmt = true
		case dataChunkID:
			dataSize = chunkSize
			haveData = true

			skipErr := skipChunk(reader, chunkSize)
			if skipErr != nil && !haveFmt {
				return core.AudioInfo{}, skipErr
			}
		default:
			skipErr := skipChunk(reader, chunkSize)
			if skipErr != nil {
				return core.AudioInfo{}, skipErr
			}
		}
	}

	if byteRate == 0 {
		return core.AudioInfo{}, fmt.Errorf("%w: zero byte rate", core.ErrCorruptAudio)
	}

	info.DurationSeconds = float64(dataSize) / float64(byteRate)

	return info, nil
}

// readRIFFContainer validates the 12-byte RIFF/WAVE preamble.
func readRIFFContainer(reader io.Reader) error {
	header := make([]byte, riffHeaderSize)

	_, readErr := io.ReadFull(reader, header)
	if readErr != nil {
		return fmt.Errorf("%w: short RIFF header: %w", core.ErrCorruptAudio, readErr)
	}

	if string(header[0:4]) != riffChunkID {
		return fmt.Errorf("%w: missing RIFF marker", core.ErrUnsupportedFormat)
	}

	if string(header[8:12]) != waveFormat {
		return fmt.Errorf("%w: not a WAVE container", core.ErrUnsupportedFormat)
	}

	return nil
}

// readChunkHeader reads one 8-byte chunk header.
func readChunkHeader(reader io.Reader) (string, uint32, error) {
	header := make([]byte, chunkHeaderSize)

	_, readErr := io.ReadFull(reader, header)
	if readErr != nil {
		return "", 0, fmt.Errorf(
			"%w: truncated chunk list: %w", core.ErrCorruptAudio, readErr,
		)
	}

	chunkID := string(header[0:4])
	chunkSize := binary.LittleEndian.Uint32(header[4:8])

	return chunkID, chunkSize, nil
}

// readFmtChunk decodes the format chunk and rejects non-PCM encodings.
func readFmtChunk(reader io.Reader, chunkSize uint32) (core.AudioInfo, uint32, error) {
	if chunkSize < fmtChunkMinSize {
		return core.AudioInfo{}, 0, fmt.Errorf(
			"%w: fmt chunk too small (%d bytes)", core.ErrCorruptAudio, chunkSize,
		)
	}

	payload := make([]byte, chunkSize)

	_, readErr := io.ReadFull(reader, payload)
	if readErr != nil {
		return core.AudioInfo{}, 0, fmt.Errorf(
			"%w: truncated fmt chunk: %w", core.ErrCorruptAudio, readErr,
		)
	}

	formatTag := binary.LittleEndian.Uint16(payload[0:2])
	if formatTag != formatTagPCM {
		return core.AudioInfo{}, 0, fmt.Errorf(
			"%w: format tag %d is not PCM", core.ErrUnsupportedFormat, formatTag,
		)
	}

	info := core.AudioInfo{
		DurationSeconds: 0,
		SampleRate:      int(binary.LittleEndian.Uint32(payload[4:8])),
		Channels:        int(binary.LittleEndian.Uint16(payload[2:4])),
		BitDepth:        int(binary.LittleEndian.Uint16(payload[14:16])),
	}
	byteRate := binary.LittleEndian.Uint32(payload[8:12])

	// Odd-sized chunks carry a padding byte.
	if chunkSize%2 == 1 {
		padErr := skipChunk(reader, 1)
		if padErr != nil {
			return core.AudioInfo{}, 0, padErr
		}
	}

	return info, byteRate, nil
}

// skipChunk discards a chunk payload, including RIFF even-byte padding.
func skipChunk(reader io.Reader, chunkSize uint32) error {
	toSkip := int64(chunkSize)
	if chunkSize%2 == 1 {
		toSkip++
	}

	_, copyErr := io.CopyN(io.Discard, reader, toSkip)
	if copyErr != nil && !errors.Is(copyErr, io.EOF) {
		return fmt.Errorf("%w: skip chunk: %w", core.ErrCorruptAudio, copyErr)
	}

	return nil
}

// validateStreamBounds rejects streams outside the parameter ranges any
// supported engine can consume.
func validateStreamBounds(info core.AudioInfo) error {
	if info.SampleRate <= 0 || info.SampleRate > maxSampleRate {
		return fmt.Errorf(
			"%w: sample rate %d Hz outside (0, %d]",
			core.ErrUnsupportedFormat, info.SampleRate, maxSampleRate,
		)
	}

	if info.Channels <= 0 || info.Channels > maxChannels {
		return fmt.Errorf(
			"%w: %d channels outside [1, %d]",
			core.ErrUnsupportedFormat, info.Channels, maxChannels,
		)
	}

	switch info.BitDepth {
	case 8, 16, 24, 32:
		return nil
	default:
		return fmt.Errorf(
			"%w: bit depth %d must be 8, 16, 24 or 32",
			core.ErrUnsupportedFormat, info.BitDepth,
		)
	}
}
