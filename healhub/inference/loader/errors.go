package loader

import "fmt"

// ErrKind classifies load failures. All of them are fatal to service startup.
type ErrKind string

const (
	ErrPathNotFound         ErrKind = "path_not_found"
	ErrMissingArtifact      ErrKind = "missing_artifact"
	ErrTokenizerUnavailable ErrKind = "tokenizer_unavailable"
)

// LoadError reports why a model bundle could not be resolved.
type LoadError struct {
	Kind     ErrKind
	Path     string
	Artifact string
	Reason   string
	Err      error
}

func (e *LoadError) Error() string {
	msg := fmt.Sprintf("model load failed (%s)", e.Kind)
	if e.Path != "" {
		msg += ": " + e.Path
	}
	if e.Artifact != "" {
		msg += fmt.Sprintf(" [artifact %s]", e.Artifact)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *LoadError) Unwrap() error { return e.Err }
