// Package worker provides a NATS worker that processes batch generation jobs.
//
// A job event names a voice profile and the object-store key of a script.
// The worker downloads the script, runs it through sequential batch
// generation, stores every artifact and the manifest in the object store,
// and replies with the completed-batch event.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/book-expert/events"
	"github.com/book-expert/logger"
	"github.com/book-expert/voice-studio/internal/core"
	"github.com/book-expert/voice-studio/internal/orchestrator"
	"github.com/nats-io/nats.go"
)

// A batch synthesizes one segment at a time against a single shared model,
// so the per-message budget is generous.
const handleMessageTimeout = 10 * time.Minute

// Object-store layout for batch output.
const (
	batchKeyPrefixFormat = "batches/%s/"
	manifestObjectName   = "manifest.json"
)

// GenerationJobEvent is the NATS payload that requests a batch generation.
type GenerationJobEvent struct {
	Header events.EventHeader `json:"header"`

	// ProfileID names the voice profile to synthesize with.
	ProfileID string `json:"profile_id"`

	// ScriptKey is the object-store key of the script text.
	ScriptKey string `json:"script_key"`

	// Temperature and Speed override the engine defaults when non-zero.
	Temperature float64 `json:"temperature"`
	Speed       float64 `json:"speed"`

	// Language overrides the profile's language when non-empty.
	Language string `json:"language,omitempty"`
}

// BatchCompletedEvent is the reply published when a batch finishes.
type BatchCompletedEvent struct {
	Header events.EventHeader `json:"header"`

	// ProfileID echoes the job's profile.
	ProfileID string `json:"profile_id"`

	// ManifestKey is the object-store key of the full manifest.
	ManifestKey string `json:"manifest_key"`

	// ArtifactKeys lists the keys of the successful segments, in order.
	ArtifactKeys []string `json:"artifact_keys"`

	// Succeeded and Failed are the manifest's outcome counts.
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// BatchProcessor is the slice of the studio the worker needs.
type BatchProcessor interface {
	ProcessBatch(
		ctx context.Context,
		profileID string,
		script string,
		params core.GenerationParams,
		language string,
		sink core.ArtifactSink,
	) (*core.BatchManifest, error)
}

// NatsWorker listens for batch jobs on a NATS subject and processes them.
type NatsWorker struct {
	natsConnection *nats.Conn
	subject        string
	store          core.ObjectStore
	processor      BatchProcessor
	log            *logger.Logger
}

// NewNatsWorker creates a new instance of a NATS worker.
func NewNatsWorker(
	natsConnection *nats.Conn,
	subject string,
	store core.ObjectStore,
	processor BatchProcessor,
	log *logger.Logger,
) (*NatsWorker, error) {
	return &NatsWorker{
		natsConnection: natsConnection,
		subject:        subject,
		store:          store,
		processor:      processor,
		log:            log,
	}, nil
}

// Run starts the worker and begins listening for messages.
func (w *NatsWorker) Run(ctx context.Context) error {
	sub, err := w.natsConnection.Subscribe(w.subject, w.handleMessage)
	if err != nil {
		return fmt.Errorf("failed to subscribe to subject %s: %w", w.subject, err)
	}

	<-ctx.Done()

	drainErr := sub.Drain()
	if drainErr != nil {
		return fmt.Errorf("failed to drain subscription: %w", drainErr)
	}

	return nil
}

func (w *NatsWorker) handleMessage(msg *nats.Msg) {
	ctx, cancel := context.WithTimeout(context.Background(), handleMessageTimeout)
	defer cancel()

	event, parseErr := parseJobEvent(msg)
	if parseErr != nil {
		w.log.Error("Failed to parse job event: %v", parseErr)

		return
	}

	replyEvent, processErr := w.processBatchJob(ctx, event)
	if processErr != nil {
		w.log.Error("Failed to process batch job for workflow %s: %v",
			event.Header.WorkflowID, processErr)

		return
	}

	publishErr := w.publishReplyEvent(msg, replyEvent)
	if publishErr != nil {
		w.log.Error("Failed to publish reply event for workflow %s: %v",
			event.Header.WorkflowID, publishErr)
	}
}

// processBatchJob downloads the script, runs the batch and stores the
// manifest next to the artifacts.
func (w *NatsWorker) processBatchJob(
	ctx context.Context,
	event *GenerationJobEvent,
) (*BatchCompletedEvent, error) {
	scriptData, downloadErr := w.store.Download(ctx, event.ScriptKey)
	if downloadErr != nil {
		return nil, fmt.Errorf("failed to download script for key '%s': %w",
			event.ScriptKey, downloadErr)
	}

	keyPrefix := fmt.Sprintf(batchKeyPrefixFormat, event.Header.WorkflowID)
	sink := orchestrator.NewObjectSink(w.store, keyPrefix)

	manifest, processErr := w.processor.ProcessBatch(
		ctx,
		event.ProfileID,
		string(scriptData),
		core.GenerationParams{
			Temperature: event.Temperature,
			Speed:       event.Speed,
		},
		event.Language,
		sink,
	)
	if processErr != nil {
		return nil, fmt.Errorf("failed to process batch: %w", processErr)
	}

	manifestKey, uploadErr := w.uploadManifest(ctx, keyPrefix, manifest)
	if uploadErr != nil {
		return nil, uploadErr
	}

	return &BatchCompletedEvent{
		Header:       event.Header,
		ProfileID:    event.ProfileID,
		ManifestKey:  manifestKey,
		ArtifactKeys: successfulKeys(manifest),
		Succeeded:    manifest.Succeeded,
		Failed:       manifest.Failed,
	}, nil
}

// uploadManifest stores the manifest JSON under the batch's key prefix.
func (w *NatsWorker) uploadManifest(
	ctx context.Context,
	keyPrefix string,
	manifest *core.BatchManifest,
) (string, error) {
	manifestData, marshalErr := json.Marshal(manifest)
	if marshalErr != nil {
		return "", fmt.Errorf("failed to marshal manifest: %w", marshalErr)
	}

	manifestKey := keyPrefix + manifestObjectName

	uploadErr := w.store.Upload(ctx, manifestKey, manifestData)
	if uploadErr != nil {
		return "", fmt.Errorf("failed to upload manifest for key '%s': %w",
			manifestKey, uploadErr)
	}

	return manifestKey, nil
}

// publishReplyEvent marshals and responds with the BatchCompletedEvent.
func (w *NatsWorker) publishReplyEvent(msg *nats.Msg, replyEvent *BatchCompletedEvent) error {
	replyData, err := json.Marshal(replyEvent)
	if err != nil {
		return fmt.Errorf("failed to marshal reply event: %w", err)
	}

	err = msg.Respond(replyData)
	if err != nil {
		return fmt.Errorf("failed to publish reply event: %w", err)
	}

	return nil
}

func parseJobEvent(msg *nats.Msg) (*GenerationJobEvent, error) {
	var event GenerationJobEvent

	err := json.Unmarshal(msg.Data, &event)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}

	return &event, nil
}

// successfulKeys collects artifact keys of the successful segments, in
// segment order.
func successfulKeys(manifest *core.BatchManifest) []string {
	keys := make([]string, 0, manifest.Succeeded)

	for _, outcome := range manifest.Segments {
		if !outcome.Failed() {
			keys = append(keys, outcome.Result.Artifact.Key)
		}
	}

	return keys
}
