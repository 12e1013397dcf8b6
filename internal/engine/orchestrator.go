package engine

import (
	"context"
	"fmt"
	"runtime"

	"binswap/internal/graph"
	"binswap/internal/patcher"
)

// BackupService snapshots the persisted project state before mutation.
// Restoration is caller policy; the engine only takes the snapshot.
type BackupService interface {
	Backup(g *graph.Graph, kind string) error
}

// LinkagePatcher prepares each target's build settings so that, once
// substituted, it is consumable as a binary. Invoked before hashing so
// the prepared settings are part of the hashed state.
type LinkagePatcher interface {
	Patch(targets map[string]*graph.Target) error
}

// nopLinker stands in when no linkage preparation is wanted.
type nopLinker struct{}

func (nopLinker) Patch(map[string]*graph.Target) error { return nil }

// Options control a substitution run.
type Options struct {
	// TryMode reports the resolved target set and stops: no backup, no
	// mutation, no error even for an empty set.
	TryMode bool

	// BuildFlags is the external build-flag list folded into every
	// cache key, verbatim and in order.
	BuildFlags []string

	// DeleteSources removes substituted source targets from the graph.
	// When false, consumers are still repointed at binary products but
	// the source targets remain.
	DeleteSources bool

	// KeepGroups leaves cosmetic groups referencing deleted targets in
	// place instead of pruning them.
	KeepGroups bool

	// Limit bounds per-stage parallelism. Zero means NumCPU.
	Limit int
}

// Orchestrator sequences a substitution run:
//
//	select -> backup -> link-prepare -> hash -> analyze -> patch-files -> mutate-graph -> persist
//
// It owns no policy beyond ordering; every collaborator is an
// interface so the engine stays testable against fakes.
type Orchestrator struct {
	graph    *graph.Graph
	resolver ArtifactResolver
	backup   BackupService
	linker   LinkagePatcher
	files    patcher.ReplacementSource
	reporter Reporter
}

// New creates an Orchestrator over g. Nil linker, files, or reporter
// default to no-op implementations; graph, resolver, and backup are
// required.
func New(g *graph.Graph, resolver ArtifactResolver, backup BackupService, linker LinkagePatcher, files patcher.ReplacementSource, reporter Reporter) *Orchestrator {
	if linker == nil {
		linker = nopLinker{}
	}
	if files == nil {
		files = patcher.SearchPathSource{}
	}
	if reporter == nil {
		reporter = NopReporter{}
	}
	return &Orchestrator{
		graph:    g,
		resolver: resolver,
		backup:   backup,
		linker:   linker,
		files:    files,
		reporter: reporter,
	}
}

// Substitute resolves scope and, unless in try mode, replaces the
// resolved targets with cached binary artifacts.
//
// Try mode reports the resolved set and returns nil - always, even on
// an already-substituted project. An empty resolved set is a successful
// no-op: zero graph mutations, zero file writes. A second substitution
// on the same project fails up front with ALREADY_SUBSTITUTED and
// performs no mutation.
func (o *Orchestrator) Substitute(ctx context.Context, scope Scope, opts Options) error {
	resolved := ResolveScope(o.graph, scope)
	o.reporter.Event(StageSelect, sortedNames(resolved))

	if opts.TryMode {
		return nil
	}
	if o.graph.IsAlreadySubstituted() {
		return NewAlreadySubstitutedError(o.graph.Path())
	}
	if len(resolved) == 0 {
		return nil
	}

	if err := o.backup.Backup(o.graph, "original"); err != nil {
		return fmt.Errorf("backup project: %w", err)
	}
	o.reporter.Event(StageBackup, len(resolved))

	if err := o.linker.Patch(resolved); err != nil {
		return fmt.Errorf("prepare binary linkage: %w", err)
	}
	o.reporter.Event(StageLink, len(resolved))

	runCtx := NewContext()
	hasher := NewHasher(o.graph, opts.BuildFlags)
	if err := hasher.HashTargets(ctx, resolved, runCtx, limitOf(opts)); err != nil {
		return err
	}
	o.reporter.Event(StageHash, len(resolved))

	deleted, err := o.mutate(ctx, resolved, runCtx, opts)
	if err != nil {
		return err
	}
	o.reporter.Event(StageMutate, deleted)

	o.graph.MarkAsSubstituted()
	if err := o.graph.Save(); err != nil {
		return &SubstitutionError{
			Code:    ErrCodePersist,
			Message: "save substituted project",
			Stage:   StagePersist,
			Err:     err,
		}
	}
	o.reporter.Event(StagePersist, o.graph.Path())
	return nil
}

// Mutate is the graph/file-level primitive: analysis plus patching over
// an already-resolved target mapping, without hashing or backup. Cache
// keys are not required - the artifact resolver falls back to the
// latest artifact recorded per target when a key is absent.
//
// Returns the number of deleted targets.
func (o *Orchestrator) Mutate(ctx context.Context, targets map[string]*graph.Target, keepGroups bool) (int, error) {
	return o.mutate(ctx, targets, NewContext(), Options{
		DeleteSources: true,
		KeepGroups:    keepGroups,
	})
}

// mutate runs analyze -> patch-files -> mutate-graph over candidates.
func (o *Orchestrator) mutate(ctx context.Context, candidates map[string]*graph.Target, runCtx *Context, opts Options) (int, error) {
	binarizable, err := Analyze(ctx, o.graph, candidates, o.resolver, runCtx)
	if err != nil {
		return 0, err
	}
	o.reporter.Event(StageAnalyze, sortedNames(binarizable))

	plans := runCtx.Plans()

	var reps []patcher.FileReplacement
	for _, plan := range plans {
		user, ok := o.graph.Target(plan.User)
		if !ok {
			continue
		}
		planReps, err := o.files.PrepareReplacements(plan.User, user.Settings, plan)
		if err != nil {
			return 0, &SubstitutionError{
				Code:    ErrCodePatchFile,
				Message: "prepare file replacements",
				Target:  plan.User,
				Stage:   StagePatch,
				Err:     err,
			}
		}
		reps = append(reps, planReps...)
	}
	if err := patcher.ApplyFileReplacements(ctx, reps, limitOf(opts)); err != nil {
		return 0, &SubstitutionError{
			Code:    ErrCodePatchFile,
			Message: "apply file replacements",
			Stage:   StagePatch,
			Err:     err,
		}
	}
	o.reporter.Event(StagePatch, len(reps))

	deleted, err := patcher.MutateGraph(o.graph, plans, binarizable, opts.KeepGroups, opts.DeleteSources)
	if err != nil {
		return 0, &SubstitutionError{
			Code:    ErrCodePatchGraph,
			Message: "mutate project graph",
			Stage:   StageMutate,
			Err:     err,
		}
	}
	return deleted, nil
}

func limitOf(opts Options) int {
	if opts.Limit > 0 {
		return opts.Limit
	}
	return runtime.NumCPU()
}
