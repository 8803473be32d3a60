package orchestrator

import (
	"context"
	"fmt"

	"github.com/book-expert/logger"
	"github.com/book-expert/voice-studio/internal/core"
	"github.com/book-expert/voice-studio/internal/text"
)

// Artifact naming and batch messages.
const (
	segmentFileFormat  = "segment_%04d.wav"
	causeCancelled     = "batch cancelled before segment was processed"
	logFmtBatchStarted = "Batch started for profile %s: %d segments"
	logFmtBatchDone    = "Batch finished for profile %s: %d succeeded, %d failed"
	logFmtSegmentFail  = "Segment %d failed: %v"
)

// Batch runs a script through generation one segment at a time.
//
// Segments are processed strictly in order and the engine only ever sees one
// request at a time. A failing segment is recorded and skipped; it never
// aborts the batch and is never retried.
type Batch struct {
	generation *Generation
	segmenter  *text.Segmenter
	log        *logger.Logger
}

// NewBatch creates a batch processor on top of the generation orchestrator.
func NewBatch(generation *Generation, segmenter *text.Segmenter, log *logger.Logger) *Batch {
	return &Batch{
		generation: generation,
		segmenter:  segmenter,
		log:        log,
	}
}

// Process splits the script into segments and generates each sequentially,
// writing successful artifacts to the sink. The returned manifest has one
// outcome per segment, in script order, regardless of how many failed.
//
// Cancelling the context stops processing after the current segment; the
// remaining segments are recorded as failed so the manifest stays complete.
func (b *Batch) Process(
	ctx context.Context,
	profileID string,
	script string,
	params core.GenerationParams,
	language string,
	sink core.ArtifactSink,
) (*core.BatchManifest, error) {
	segments := b.segmenter.Segments(script)
	if len(segments) == 0 {
		return nil, core.ErrScriptEmpty
	}

	b.log.Info(logFmtBatchStarted, profileID, len(segments))

	manifest := &core.BatchManifest{
		ProfileID: profileID,
		Segments:  make([]core.SegmentOutcome, 0, len(segments)),
		Succeeded: 0,
		Failed:    0,
	}

	for index, segment := range segments {
		if ctx.Err() != nil {
			b.recordCancelled(manifest, segments, index)

			break
		}

		outcome := b.processSegment(ctx, profileID, index, segment, params, language, sink)

		manifest.Segments = append(manifest.Segments, outcome)

		if outcome.Failed() {
			manifest.Failed++

			b.log.Error(logFmtSegmentFail, index, outcome.Cause)
		} else {
			manifest.Succeeded++
		}
	}

	b.log.Info(logFmtBatchDone, profileID, manifest.Succeeded, manifest.Failed)

	return manifest, nil
}

// processSegment generates one segment and stores its artifact.
func (b *Batch) processSegment(
	ctx context.Context,
	profileID string,
	index int,
	segment string,
	params core.GenerationParams,
	language string,
	sink core.ArtifactSink,
) core.SegmentOutcome {
	outcome := core.SegmentOutcome{
		Index:  index,
		Text:   segment,
		Result: nil,
		Cause:  "",
	}

	result, generateErr := b.generation.Generate(ctx, core.GenerationRequest{
		ProfileID: profileID,
		Text:      segment,
		Params:    params,
		Language:  language,
		Mode:      core.ModeClone,
	})
	if generateErr != nil {
		outcome.Cause = generateErr.Error()

		return outcome
	}

	artifactName := fmt.Sprintf(segmentFileFormat, index+1)

	handle, writeErr := sink.Write(ctx, artifactName, result.Artifact.Data)
	if writeErr != nil {
		outcome.Cause = fmt.Sprintf("failed to store artifact: %v", writeErr)

		return outcome
	}

	result.Artifact.Key = handle
	outcome.Result = result

	return outcome
}

// recordCancelled marks every unprocessed segment as failed so the manifest
// keeps one entry per segment.
func (b *Batch) recordCancelled(
	manifest *core.BatchManifest,
	segments []string,
	from int,
) {
	for index := from; index < len(segments); index++ {
		manifest.Segments = append(manifest.Segments, core.SegmentOutcome{
			Index:  index,
			Text:   segments[index],
			Result: nil,
			Cause:  causeCancelled,
		})
		manifest.Failed++
	}
}
