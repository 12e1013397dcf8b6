package patcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"golang.org/x/sync/errgroup"
)

// SearchPathSource is the default ReplacementSource. It rewrites
// build-settings references of the form $(TARGET_BUILD_DIR)/<target>
// to the directory holding the resolved binary artifact.
type SearchPathSource struct{}

// PrepareReplacements derives one replacement per (settings file,
// binarized dependency) pair. Files that end up containing no matching
// reference are left untouched when the replacement is applied; a
// non-match is not an error.
func (SearchPathSource) PrepareReplacements(user string, settings []string, plan *Plan) ([]FileReplacement, error) {
	var reps []FileReplacement
	for _, file := range settings {
		for _, product := range plan.Products {
			pattern, err := regexp.Compile(
				`\$\(TARGET_BUILD_DIR\)/` + regexp.QuoteMeta(product.Target) + `\b`)
			if err != nil {
				return nil, fmt.Errorf("build replacement for %s in %s: %w", product.Target, file, err)
			}
			reps = append(reps, FileReplacement{
				Path:        file,
				Pattern:     pattern,
				Replacement: filepath.Dir(product.Path),
			})
		}
	}
	return reps, nil
}

// ApplyFileReplacements applies replacements grouped by file with
// bounded parallelism. Files are independent, so each is rewritten by
// its own unit; replacements within one file are applied sequentially
// in a stable order. The first failure cancels the remaining units and
// is returned; nothing is silently skipped.
//
// A file is rewritten only if at least one pattern matched, so
// untouched files keep their modification time.
func ApplyFileReplacements(ctx context.Context, reps []FileReplacement, limit int) error {
	byFile := make(map[string][]FileReplacement)
	for _, rep := range reps {
		byFile[rep.Path] = append(byFile[rep.Path], rep)
	}

	paths := make([]string, 0, len(byFile))
	for path := range byFile {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	grp, gctx := errgroup.WithContext(ctx)
	grp.SetLimit(limit)
	for _, path := range paths {
		path := path
		fileReps := byFile[path]
		grp.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return patchFile(path, fileReps)
		})
	}
	return grp.Wait()
}

// patchFile applies all replacements for one file.
func patchFile(path string, reps []FileReplacement) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	content := string(data)
	patched := content
	for _, rep := range reps {
		patched = rep.Pattern.ReplaceAllLiteralString(patched, rep.Replacement)
	}
	if patched == content {
		return nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(patched), info.Mode().Perm()); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
