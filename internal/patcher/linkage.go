package patcher

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"binswap/internal/graph"
)

// linkageSetting is appended to a target's build-settings files so the
// target's product is consumable as a prebuilt binary by its consumers.
const linkageSetting = "LINK_AGAINST_BINARY = YES"

// LinkagePreparer rewrites each substitution candidate's build-settings
// files ahead of hashing, so the prepared settings are part of the
// hashed state and a binary built from them matches the key.
type LinkagePreparer struct{}

// Patch appends the binary-linkage setting to every settings file of
// every target, skipping files that already carry it. Targets are
// processed in name order so repeated runs touch files in the same
// sequence.
func (LinkagePreparer) Patch(targets map[string]*graph.Target) error {
	names := make([]string, 0, len(targets))
	for name := range targets {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		for _, file := range targets[name].Settings {
			if err := ensureSetting(file); err != nil {
				return fmt.Errorf("prepare linkage for %s: %w", name, err)
			}
		}
	}
	return nil
}

func ensureSetting(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read settings %s: %w", path, err)
	}
	content := string(data)
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == linkageSetting {
			return nil
		}
	}
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	content += linkageSetting + "\n"

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat settings %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(content), info.Mode().Perm()); err != nil {
		return fmt.Errorf("write settings %s: %w", path, err)
	}
	return nil
}
