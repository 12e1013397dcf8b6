package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"binswap/internal/graph"
)

// TargetsOptions holds flags for the targets command.
type TargetsOptions struct {
	*RootOptions
}

// targetInfo is the JSON shape of one listed target.
type targetInfo struct {
	Name         string   `json:"name"`
	ProductKind  string   `json:"product_kind,omitempty"`
	ProductName  string   `json:"product_name,omitempty"`
	Dependencies []string `json:"dependencies,omitempty"`
	Binaries     []string `json:"binaries,omitempty"`
}

// NewTargetsCommand creates the targets command.
func NewTargetsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TargetsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "targets <project.yml>",
		Short:         "List the project's targets",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTargets(opts, args[0], cmd)
		},
	}

	return cmd
}

func runTargets(opts *TargetsOptions, projectPath string, cmd *cobra.Command) error {
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

	g, err := graph.Load(projectPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load project", err)
	}

	var infos []targetInfo
	for _, name := range g.TargetNames() {
		t, _ := g.Target(name)
		info := targetInfo{
			Name:         t.Name,
			Dependencies: t.Dependencies,
			Binaries:     t.Binaries,
		}
		if t.Product != nil {
			info.ProductKind = string(t.Product.Kind)
			info.ProductName = t.Product.Name
		}
		infos = append(infos, info)
	}

	if opts.Format == "json" {
		return out.Success(map[string]any{"targets": infos, "substituted": g.IsAlreadySubstituted()})
	}

	var b strings.Builder
	for _, info := range infos {
		fmt.Fprintf(&b, "%s", info.Name)
		if info.ProductKind != "" {
			fmt.Fprintf(&b, " (%s %s)", info.ProductKind, info.ProductName)
		}
		if len(info.Dependencies) > 0 {
			fmt.Fprintf(&b, " -> %s", strings.Join(info.Dependencies, ", "))
		}
		b.WriteByte('\n')
	}
	if g.IsAlreadySubstituted() {
		b.WriteString("(project already substituted)\n")
	}
	return out.Success(strings.TrimRight(b.String(), "\n"))
}
