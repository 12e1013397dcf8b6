package engine

import (
	"errors"
	"fmt"
)

// SubstitutionError represents a failure detected during a substitution
// run.
//
// Substitution errors include:
//   - Already substituted: project carries the substitution marker
//   - Hash computation: a target's source content could not be read
//   - Artifact not found: a target slated for substitution has no binary
//   - Patch failure: a text replacement or graph edit failed
//   - Persist failure: the final save failed after mutation
//
// SubstitutionError includes structured fields for diagnostics: the
// affected target (when one is identifiable) and the stage that failed.
type SubstitutionError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Target identifies the affected target, if any.
	Target string

	// Stage names the pipeline stage that failed.
	Stage string

	// Err is the underlying cause, if any.
	Err error
}

// ErrorCode categorizes substitution errors.
type ErrorCode string

const (
	// ErrCodeAlreadySubstituted indicates the project was already patched.
	ErrCodeAlreadySubstituted ErrorCode = "ALREADY_SUBSTITUTED"

	// ErrCodeHashComputation indicates a target's sources were unreadable.
	ErrCodeHashComputation ErrorCode = "HASH_COMPUTATION"

	// ErrCodeArtifactNotFound indicates no binary exists for a cache key.
	ErrCodeArtifactNotFound ErrorCode = "ARTIFACT_NOT_FOUND"

	// ErrCodePatchFile indicates a text replacement failed.
	ErrCodePatchFile ErrorCode = "PATCH_FILE"

	// ErrCodePatchGraph indicates a graph edit failed.
	ErrCodePatchGraph ErrorCode = "PATCH_GRAPH"

	// ErrCodePersist indicates the final project save failed. The
	// in-memory graph is already mutated when this is returned; callers
	// must restore from backup to avoid a half-mutated on-disk state.
	ErrCodePersist ErrorCode = "PERSIST"
)

// Error implements the error interface.
func (e *SubstitutionError) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if e.Target != "" {
		return fmt.Sprintf("%s: %s (target=%s, stage=%s)", e.Code, msg, e.Target, e.Stage)
	}
	if e.Stage != "" {
		return fmt.Sprintf("%s: %s (stage=%s)", e.Code, msg, e.Stage)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

// Unwrap returns the underlying cause.
func (e *SubstitutionError) Unwrap() error {
	return e.Err
}

// hasCode reports whether err is a SubstitutionError with the given
// code. Uses errors.As to handle wrapped errors.
func hasCode(err error, code ErrorCode) bool {
	var se *SubstitutionError
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}

// IsAlreadySubstituted returns true if the error means the project
// already carries the substitution marker.
func IsAlreadySubstituted(err error) bool {
	return hasCode(err, ErrCodeAlreadySubstituted)
}

// IsArtifactNotFound returns true if the error means a target had no
// resolvable binary artifact.
func IsArtifactNotFound(err error) bool {
	return hasCode(err, ErrCodeArtifactNotFound)
}

// IsHashError returns true if the error came from the hashing stage.
func IsHashError(err error) bool {
	return hasCode(err, ErrCodeHashComputation)
}

// IsPatchError returns true if the error came from file or graph
// patching.
func IsPatchError(err error) bool {
	return hasCode(err, ErrCodePatchFile) || hasCode(err, ErrCodePatchGraph)
}

// IsPersistError returns true if the final save failed after mutation.
func IsPersistError(err error) bool {
	return hasCode(err, ErrCodePersist)
}

// NewAlreadySubstitutedError creates the error returned when a run is
// attempted on an already-patched project.
func NewAlreadySubstitutedError(projectPath string) *SubstitutionError {
	return &SubstitutionError{
		Code:    ErrCodeAlreadySubstituted,
		Message: fmt.Sprintf("project %s already carries the substitution marker", projectPath),
	}
}

// NewHashError creates a SubstitutionError for unreadable source
// content.
func NewHashError(target string, err error) *SubstitutionError {
	return &SubstitutionError{
		Code:    ErrCodeHashComputation,
		Message: "cannot hash target sources",
		Target:  target,
		Stage:   StageHash,
		Err:     err,
	}
}

// NewArtifactNotFoundError creates a SubstitutionError for a target
// with no resolvable binary.
func NewArtifactNotFoundError(target, cacheKey string, err error) *SubstitutionError {
	return &SubstitutionError{
		Code:    ErrCodeArtifactNotFound,
		Message: fmt.Sprintf("no binary artifact for cache key %s", cacheKey),
		Target:  target,
		Stage:   StageResolve,
		Err:     err,
	}
}
