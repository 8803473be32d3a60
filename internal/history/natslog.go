// Package history persists the append-only log of generation results.
//
// Results are stored as JSON in a NATS JetStream key-value bucket, keyed by
// result ID. Records are written once and never mutated; the audio payload
// itself is not stored here, only the artifact's storage key.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/book-expert/voice-studio/internal/core"
	"github.com/nats-io/nats.go"
)

// NatsLog implements core.HistoryStore on a NATS JetStream key-value bucket.
type NatsLog struct {
	keyValue nats.KeyValue
	bucket   string
}

// NewNatsLog creates or binds to the history bucket.
func NewNatsLog(
	jetstreamContext nats.JetStreamContext,
	bucketName string,
) (*NatsLog, error) {
	// Use a "create-first" approach; bind when the bucket already exists.
	keyValue, createErr := jetstreamContext.CreateKeyValue(&nats.KeyValueConfig{
		Bucket:      bucketName,
		Description: fmt.Sprintf("Generation history for the %s bucket.", bucketName),
		History:     1,
		Storage:     nats.FileStorage,
		Replicas:    1,
	})
	if createErr != nil {
		var bindErr error

		keyValue, bindErr = jetstreamContext.KeyValue(bucketName)
		if bindErr != nil {
			return nil, fmt.Errorf(
				"failed to create or bind history bucket '%s': %w",
				bucketName, createErr,
			)
		}
	}

	return &NatsLog{
		keyValue: keyValue,
		bucket:   bucketName,
	}, nil
}

// Append records a completed generation under its result ID.
func (l *NatsLog) Append(_ context.Context, result *core.GenerationResult) error {
	data, marshalErr := json.Marshal(result)
	if marshalErr != nil {
		return fmt.Errorf("%w: marshal result '%s': %w",
			core.ErrStorageFailure, result.ID, marshalErr)
	}

	_, createErr := l.keyValue.Create(result.ID, data)
	if createErr != nil {
		return fmt.Errorf("%w: append result '%s' to bucket '%s': %w",
			core.ErrStorageFailure, result.ID, l.bucket, createErr)
	}

	return nil
}

// ListByProfile returns every recorded result for the profile, oldest first.
func (l *NatsLog) ListByProfile(
	_ context.Context,
	profileID string,
) ([]core.GenerationResult, error) {
	keys, keysErr := l.keyValue.Keys()
	if keysErr != nil {
		if errors.Is(keysErr, nats.ErrNoKeysFound) {
			return []core.GenerationResult{}, nil
		}

		return nil, fmt.Errorf("%w: list bucket '%s': %w",
			core.ErrStorageFailure, l.bucket, keysErr)
	}

	results := make([]core.GenerationResult, 0, len(keys))

	for _, key := range keys {
		entry, getErr := l.keyValue.Get(key)
		if getErr != nil {
			// A key deleted between Keys and Get is not a failure.
			if errors.Is(getErr, nats.ErrKeyNotFound) {
				continue
			}

			return nil, fmt.Errorf("%w: get result '%s' from bucket '%s': %w",
				core.ErrStorageFailure, key, l.bucket, getErr)
		}

		var result core.GenerationResult

		unmarshalErr := json.Unmarshal(entry.Value(), &result)
		if unmarshalErr != nil {
			return nil, fmt.Errorf("%w: decode result '%s': %w",
				core.ErrStorageFailure, key, unmarshalErr)
		}

		if result.ProfileID != profileID {
			continue
		}

		results = append(results, result)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].CreatedAt.Before(results[j].CreatedAt)
	})

	return results, nil
}
