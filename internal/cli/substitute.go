package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"binswap/internal/backup"
	"binswap/internal/engine"
	"binswap/internal/graph"
	"binswap/internal/patcher"
	"binswap/internal/store"
)

// SubstituteOptions holds flags for the substitute command.
type SubstituteOptions struct {
	*RootOptions
	Targets     []string
	Include     string
	Exclude     string
	BuildFlags  []string
	Try         bool
	KeepSources bool
	KeepGroups  bool
	StoreDir    string
	BackupDir   string
	Jobs        int
}

// NewSubstituteCommand creates the substitute command.
func NewSubstituteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SubstituteOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "substitute <project.yml>",
		Short: "Replace source targets with cached binary artifacts",
		Long: `Replace the selected source targets with cached binary artifacts and
rewrite every consumer to link against the binaries instead.

The scope is either an explicit target list (--targets) or an inclusion
regular expression (--include) with an optional exclusion (--exclude).
Targets whose resource bundles are needed at build time by a binarized
dynamic framework stay source-built automatically.

A backup of the project file is taken before any mutation; restore it
with 'binswap restore' if a run fails partway.

Example:
  binswap substitute ./project.yml --targets Core,Networking --store ./.binswap/store
  binswap substitute ./project.yml --include '^Lib' --exclude 'Tests$' --try`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubstitute(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Targets, "targets", nil, "explicit target names")
	cmd.Flags().StringVar(&opts.Include, "include", "", "inclusion pattern over target names")
	cmd.Flags().StringVar(&opts.Exclude, "exclude", "", "exclusion pattern over target names")
	cmd.Flags().StringArrayVar(&opts.BuildFlags, "flag", nil, "external build flag folded into cache keys (repeatable)")
	cmd.Flags().BoolVar(&opts.Try, "try", false, "report the resolved target set without mutating anything")
	cmd.Flags().BoolVar(&opts.KeepSources, "keep-sources", false, "repoint consumers but keep substituted source targets in the graph")
	cmd.Flags().BoolVar(&opts.KeepGroups, "keep-groups", false, "keep cosmetic groups that referenced deleted targets")
	cmd.Flags().StringVar(&opts.StoreDir, "store", "", "binary store directory (required)")
	cmd.Flags().IntVar(&opts.Jobs, "jobs", 0, "max parallel workers per stage (0 = NumCPU)")
	cmd.Flags().StringVar(&opts.BackupDir, "backup-dir", "", "backup directory (default <project dir>/.binswap/backups)")
	_ = cmd.MarkFlagRequired("store")

	return cmd
}

func runSubstitute(opts *SubstituteOptions, projectPath string, cmd *cobra.Command) error {
	configureLogging(opts.Verbose)
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

	scope, err := buildScope(opts.Targets, opts.Include, opts.Exclude)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid scope", err)
	}

	slog.Info("loading project", "path", projectPath)
	g, err := graph.Load(projectPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load project", err)
	}

	resolver, closeStore, err := openStore(opts.StoreDir)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open binary store", err)
	}
	defer closeStore()

	backupDir := opts.BackupDir
	if backupDir == "" {
		backupDir = filepath.Join(filepath.Dir(projectPath), ".binswap", "backups")
	}

	orch := engine.New(
		g,
		resolver,
		backup.NewCoordinator(backupDir),
		patcher.LinkagePreparer{},
		patcher.SearchPathSource{},
		engine.LogReporter{},
	)

	if opts.Try {
		resolved := engine.ResolveScope(g, scope)
		names := make([]string, 0, len(resolved))
		for name := range resolved {
			names = append(names, name)
		}
		sort.Strings(names)
		if opts.Format == "json" {
			return out.Success(map[string]any{"targets": names})
		}
		if len(names) == 0 {
			return out.Success("no targets matched")
		}
		return out.Success("would substitute:\n  " + strings.Join(names, "\n  "))
	}

	err = orch.Substitute(cmd.Context(), scope, engine.Options{
		BuildFlags:    opts.BuildFlags,
		DeleteSources: !opts.KeepSources,
		KeepGroups:    opts.KeepGroups,
		Limit:         opts.Jobs,
	})
	if err != nil {
		if engine.IsPersistError(err) {
			slog.Error("save failed after mutation; restore the backup before building", "backup_dir", backupDir)
		}
		return WrapExitError(ExitFailure, "substitution failed", err)
	}

	return out.Success("project substituted")
}

// buildScope converts the scope flags into an engine.Scope. Explicit
// names win over patterns; supplying both is an error.
func buildScope(names []string, include, exclude string) (engine.Scope, error) {
	if len(names) > 0 {
		if include != "" || exclude != "" {
			return engine.Scope{}, fmt.Errorf("--targets cannot be combined with --include/--exclude")
		}
		return engine.ScopeFromNames(names...), nil
	}
	if include == "" {
		return engine.Scope{}, fmt.Errorf("either --targets or --include is required")
	}
	return engine.ScopeFromPatterns(include, exclude)
}

// openStore opens the local store and, when remote credentials are
// present in the environment, layers the remote store over it.
//
// Remote settings come from BINSWAP_S3_ENDPOINT, BINSWAP_S3_ACCESS_KEY,
// BINSWAP_S3_SECRET_KEY, BINSWAP_S3_BUCKET, BINSWAP_S3_REGION, and
// BINSWAP_S3_USE_SSL.
func openStore(dir string) (engine.ArtifactResolver, func(), error) {
	local, err := store.Open(dir)
	if err != nil {
		return nil, nil, err
	}
	closeStore := func() {
		if err := local.Close(); err != nil {
			slog.Error("error closing binary store", "error", err)
		}
	}

	endpoint := os.Getenv("BINSWAP_S3_ENDPOINT")
	if endpoint == "" {
		return local, closeStore, nil
	}
	remote, err := store.NewRemoteStore(store.RemoteConfig{
		Endpoint:  endpoint,
		Region:    os.Getenv("BINSWAP_S3_REGION"),
		AccessKey: os.Getenv("BINSWAP_S3_ACCESS_KEY"),
		SecretKey: os.Getenv("BINSWAP_S3_SECRET_KEY"),
		Bucket:    os.Getenv("BINSWAP_S3_BUCKET"),
		UseSSL:    os.Getenv("BINSWAP_S3_USE_SSL") == "true",
	}, local)
	if err != nil {
		closeStore()
		return nil, nil, err
	}
	return remote, closeStore, nil
}

// configureLogging switches slog to debug when verbose is set.
func configureLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}
