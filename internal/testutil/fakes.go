package testutil

import (
	"context"
	"fmt"
	"sync"

	"binswap/internal/graph"
)

// MapResolver resolves artifact paths from an in-memory map keyed by
// target name. Unknown targets resolve with an error, mimicking "not
// built yet."
type MapResolver struct {
	Paths map[string]string
}

// ResolveArtifactPath implements engine.ArtifactResolver.
func (r MapResolver) ResolveArtifactPath(_ context.Context, target, _ string) (string, error) {
	path, ok := r.Paths[target]
	if !ok {
		return "", fmt.Errorf("no artifact built for %s", target)
	}
	return path, nil
}

// RecordingBackup counts Backup calls without copying anything.
type RecordingBackup struct {
	mu    sync.Mutex
	Calls []string // kinds, in call order
	Fail  error    // returned from Backup when non-nil
}

// Backup implements engine.BackupService.
func (b *RecordingBackup) Backup(_ *graph.Graph, kind string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Fail != nil {
		return b.Fail
	}
	b.Calls = append(b.Calls, kind)
	return nil
}

// RecordingLinker records which targets were prepared for binary
// linkage.
type RecordingLinker struct {
	mu       sync.Mutex
	Prepared [][]string
	Fail     error
}

// Patch implements engine.LinkagePatcher.
func (l *RecordingLinker) Patch(targets map[string]*graph.Target) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.Fail != nil {
		return l.Fail
	}
	var names []string
	for name := range targets {
		names = append(names, name)
	}
	l.Prepared = append(l.Prepared, names)
	return nil
}

// RecordingReporter captures stage events in order.
type RecordingReporter struct {
	mu     sync.Mutex
	Stages []string
}

// Event implements engine.Reporter.
func (r *RecordingReporter) Event(stage string, _ any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Stages = append(r.Stages, stage)
}

// Seen reports whether a stage event was emitted.
func (r *RecordingReporter) Seen(stage string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.Stages {
		if s == stage {
			return true
		}
	}
	return false
}
