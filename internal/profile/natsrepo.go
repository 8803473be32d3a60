package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/book-expert/voice-studio/internal/core"
	"github.com/nats-io/nats.go"
)

// NatsRepository implements core.ProfileRepository on a NATS JetStream
// key-value bucket. Profiles are stored as JSON under their ID.
type NatsRepository struct {
	keyValue nats.KeyValue
	bucket   string
}

// NewNatsRepository creates or binds to the profile bucket.
func NewNatsRepository(
	jetstreamContext nats.JetStreamContext,
	bucketName string,
) (*NatsRepository, error) {
	// Use a "create-first" approach; bind when the bucket already exists.
	keyValue, createErr := jetstreamContext.CreateKeyValue(&nats.KeyValueConfig{
		Bucket:      bucketName,
		Description: fmt.Sprintf("Voice profiles for the %s bucket.", bucketName),
		History:     1,
		Storage:     nats.FileStorage,
		Replicas:    1,
	})
	if createErr != nil {
		var bindErr error

		keyValue, bindErr = jetstreamContext.KeyValue(bucketName)
		if bindErr != nil {
			return nil, fmt.Errorf(
				"failed to create or bind profile bucket '%s': %w",
				bucketName, createErr,
			)
		}
	}

	return &NatsRepository{
		keyValue: keyValue,
		bucket:   bucketName,
	}, nil
}

// Save persists the profile under its ID.
func (r *NatsRepository) Save(_ context.Context, profile *core.VoiceProfile) error {
	data, marshalErr := json.Marshal(profile)
	if marshalErr != nil {
		return fmt.Errorf("%w: marshal profile '%s': %w",
			core.ErrStorageFailure, profile.ID, marshalErr)
	}

	_, putErr := r.keyValue.Put(profile.ID, data)
	if putErr != nil {
		return fmt.Errorf("%w: put profile '%s' to bucket '%s': %w",
			core.ErrStorageFailure, profile.ID, r.bucket, putErr)
	}

	return nil
}

// FindByID retrieves a profile by its ID.
func (r *NatsRepository) FindByID(_ context.Context, id string) (*core.VoiceProfile, error) {
	entry, getErr := r.keyValue.Get(id)
	if getErr != nil {
		if errors.Is(getErr, nats.ErrKeyNotFound) {
			return nil, fmt.Errorf("%w: id '%s'", core.ErrProfileNotFound, id)
		}

		return nil, fmt.Errorf("%w: get profile '%s' from bucket '%s': %w",
			core.ErrStorageFailure, id, r.bucket, getErr)
	}

	var profile core.VoiceProfile

	unmarshalErr := json.Unmarshal(entry.Value(), &profile)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("%w: decode profile '%s': %w",
			core.ErrStorageFailure, id, unmarshalErr)
	}

	return &profile, nil
}

// List returns summaries of every stored profile, sorted by name.
func (r *NatsRepository) List(ctx context.Context) ([]core.VoiceProfileSummary, error) {
	keys, keysErr := r.keyValue.Keys()
	if keysErr != nil {
		if errors.Is(keysErr, nats.ErrNoKeysFound) {
			return []core.VoiceProfileSummary{}, nil
		}

		return nil, fmt.Errorf("%w: list bucket '%s': %w",
			core.ErrStorageFailure, r.bucket, keysErr)
	}

	summaries := make([]core.VoiceProfileSummary, 0, len(keys))

	for _, key := range keys {
		profile, findErr := r.FindByID(ctx, key)
		if findErr != nil {
			// A key deleted between Keys and Get is not a failure.
			if errors.Is(findErr, core.ErrProfileNotFound) {
				continue
			}

			return nil, findErr
		}

		summaries = append(summaries, profile.Summary())
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Name < summaries[j].Name
	})

	return summaries, nil
}

// Delete removes a profile by its ID. Deleting an absent profile reports
// ErrProfileNotFound so front-ends can distinguish it from storage failures.
func (r *NatsRepository) Delete(ctx context.Context, id string) error {
	_, findErr := r.FindByID(ctx, id)
	if findErr != nil {
		return findErr
	}

	deleteErr := r.keyValue.Delete(id)
	if deleteErr != nil {
		return fmt.Errorf("%w: delete profile '%s' from bucket '%s': %w",
			core.ErrStorageFailure, id, r.bucket, deleteErr)
	}

	return nil
}
