// ABOUTME: Typed errors for configuration, ingestion and chat-turn failures
// ABOUTME: Each type matches a sentinel through errors.Is for simple checks
package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrConfiguration     = errors.New("configuration error")
	ErrMissingSourcePath = errors.New("corpus path missing")
	ErrEmptyCorpus       = errors.New("corpus is empty")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	ErrRetrieval         = errors.New("retrieval failed")
	ErrGeneration        = errors.New("generation failed")
)

// ConfigurationError lists every problem found while validating configuration.
// Fatal at startup.
type ConfigurationError struct {
	Problems []string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + strings.Join(e.Problems, "; ")
}

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// MissingSourcePathError reports a corpus directory that did not exist.
// Created is true when the directory has since been created.
type MissingSourcePathError struct {
	Path    string
	Created bool
}

func (e *MissingSourcePathError) Error() string {
	if e.Created {
		return fmt.Sprintf("corpus path %s did not exist and was created", e.Path)
	}
	return fmt.Sprintf("corpus path %s does not exist", e.Path)
}

func (e *MissingSourcePathError) Is(target error) bool { return target == ErrMissingSourcePath }

// EmptyCorpusError reports a corpus directory with no eligible documents
type EmptyCorpusError struct {
	Path string
}

func (e *EmptyCorpusError) Error() string {
	return fmt.Sprintf("no eligible documents found in %s", e.Path)
}

func (e *EmptyCorpusError) Is(target error) bool { return target == ErrEmptyCorpus }

// DimensionMismatchError reports vectors that do not fit the index
type DimensionMismatchError struct {
	Expected int
	Actual   int
	Where    string
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("%s: embedding dimension %d does not match index dimension %d", e.Where, e.Actual, e.Expected)
}

func (e *DimensionMismatchError) Is(target error) bool { return target == ErrDimensionMismatch }

// RetrievalFailure wraps an embedding or index error raised during a chat turn
type RetrievalFailure struct {
	Stage string
	Err   error
}

func (e *RetrievalFailure) Error() string {
	return fmt.Sprintf("retrieval failed during %s: %v", e.Stage, e.Err)
}

func (e *RetrievalFailure) Unwrap() error        { return e.Err }
func (e *RetrievalFailure) Is(target error) bool { return target == ErrRetrieval }

// GenerationFailure wraps a language model error raised during a chat turn
type GenerationFailure struct {
	Err error
}

func (e *GenerationFailure) Error() string {
	return fmt.Sprintf("generation failed: %v", e.Err)
}

func (e *GenerationFailure) Unwrap() error        { return e.Err }
func (e *GenerationFailure) Is(target error) bool { return target == ErrGeneration }

// IsIngestWarning reports errors that ingestion callers log and move past
func IsIngestWarning(err error) bool {
	return errors.Is(err, ErrMissingSourcePath) || errors.Is(err, ErrEmptyCorpus)
}
