package patcher

import "regexp"

// BinaryProduct is a resolved binding of a binarized target to its
// cached artifact. Consumers link against Path directly instead of
// building the source target.
type BinaryProduct struct {
	Target      string // binarized target name
	ProductName string // its product name
	Path        string // resolved artifact location
}

// Plan is the substitution plan for one binary user: the subset of its
// dependencies being binarized and the binary products it must now
// link against.
//
// Plans are derived per run and transient; they are never persisted.
type Plan struct {
	User       string
	BinaryDeps []string
	Products   []BinaryProduct
}

// FileReplacement is one textual rewrite: apply Pattern over the
// content of Path, substituting Replacement for every match.
// Replacement is inserted literally; a $ in an artifact path is never
// expanded as a group reference.
type FileReplacement struct {
	Path        string
	Pattern     *regexp.Regexp
	Replacement string
}

// ReplacementSource derives the file replacements one binary user
// needs: wherever its support files reference a dependency about to be
// removed, the reference must be rewritten to point at the binary
// artifact instead.
type ReplacementSource interface {
	PrepareReplacements(user string, settings []string, plan *Plan) ([]FileReplacement, error)
}
