package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/book-expert/voice-studio/internal/core"
)

// Filesystem permissions for batch output.
const (
	outputDirPerm  = 0o750
	outputFilePerm = 0o600
)

// DirectorySink writes artifacts as files under a base directory. The handle
// it returns is the absolute file path.
type DirectorySink struct {
	dir string
}

// NewDirectorySink creates a sink rooted at the given directory. The
// directory is created on first write, not here, so constructing a sink is
// side-effect free.
func NewDirectorySink(dir string) *DirectorySink {
	return &DirectorySink{dir: dir}
}

// Write stores the artifact bytes under the sink's directory.
func (s *DirectorySink) Write(_ context.Context, name string, data []byte) (string, error) {
	mkdirErr := os.MkdirAll(s.dir, outputDirPerm)
	if mkdirErr != nil {
		return "", fmt.Errorf("failed to create output directory '%s': %w", s.dir, mkdirErr)
	}

	path := filepath.Join(s.dir, name)

	writeErr := os.WriteFile(path, data, outputFilePerm)
	if writeErr != nil {
		return "", fmt.Errorf("failed to write artifact '%s': %w", path, writeErr)
	}

	absPath, absErr := filepath.Abs(path)
	if absErr != nil {
		return path, nil
	}

	return absPath, nil
}

// ObjectSink writes artifacts to an object store under a key prefix. The
// handle it returns is the object key.
type ObjectSink struct {
	store  core.ObjectStore
	prefix string
}

// NewObjectSink creates a sink that uploads artifacts under prefix.
func NewObjectSink(store core.ObjectStore, prefix string) *ObjectSink {
	return &ObjectSink{
		store:  store,
		prefix: prefix,
	}
}

// Write uploads the artifact bytes and returns the object key.
func (s *ObjectSink) Write(ctx context.Context, name string, data []byte) (string, error) {
	key := s.prefix + name

	uploadErr := s.store.Upload(ctx, key, data)
	if uploadErr != nil {
		return "", fmt.Errorf("failed to upload artifact '%s': %w", key, uploadErr)
	}

	return key, nil
}
