package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"binswap/internal/engine"
	"binswap/internal/graph"
)

// HashOptions holds flags for the hash command.
type HashOptions struct {
	*RootOptions
	Targets    []string
	Include    string
	Exclude    string
	BuildFlags []string
	Jobs       int
}

// NewHashCommand creates the hash command.
//
// The external build step that produces binary artifacts is keyed by
// the same cache keys substitution resolves against; this command
// prints them so that step can name its outputs.
func NewHashCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HashOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "hash <project.yml>",
		Short: "Print cache keys for the selected targets",
		Long: `Compute and print the deterministic cache key of each selected target.

Keys cover the target's source content, its transitive dependency keys,
and the supplied build flags, so the same logical graph always hashes
identically.

Example:
  binswap hash ./project.yml --targets Core --flag '-O2'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHash(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Targets, "targets", nil, "explicit target names")
	cmd.Flags().StringVar(&opts.Include, "include", "", "inclusion pattern over target names")
	cmd.Flags().StringVar(&opts.Exclude, "exclude", "", "exclusion pattern over target names")
	cmd.Flags().StringArrayVar(&opts.BuildFlags, "flag", nil, "external build flag folded into cache keys (repeatable)")
	cmd.Flags().IntVar(&opts.Jobs, "jobs", 0, "max parallel workers (0 = NumCPU)")

	return cmd
}

func runHash(opts *HashOptions, projectPath string, cmd *cobra.Command) error {
	configureLogging(opts.Verbose)
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

	scope, err := buildScope(opts.Targets, opts.Include, opts.Exclude)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid scope", err)
	}

	g, err := graph.Load(projectPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load project", err)
	}

	resolved := engine.ResolveScope(g, scope)
	runCtx := engine.NewContext()
	hasher := engine.NewHasher(g, opts.BuildFlags)
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = 1
	}
	if err := hasher.HashTargets(cmd.Context(), resolved, runCtx, jobs); err != nil {
		return WrapExitError(ExitFailure, "hashing failed", err)
	}

	names := make([]string, 0, len(resolved))
	for name := range resolved {
		names = append(names, name)
	}
	sort.Strings(names)

	if opts.Format == "json" {
		keys := make(map[string]string, len(names))
		for _, name := range names {
			key, _ := runCtx.CacheKey(name)
			keys[name] = key
		}
		return out.Success(map[string]any{"keys": keys})
	}

	var b strings.Builder
	for _, name := range names {
		key, _ := runCtx.CacheKey(name)
		fmt.Fprintf(&b, "%s  %s\n", key, name)
	}
	return out.Success(strings.TrimRight(b.String(), "\n"))
}
