// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"errors"
	"fmt"
)

// ErrIndexUnavailable reports that the session's index could not be
// queried at all. This is terminal for the run.
var ErrIndexUnavailable = errors.New("document index unavailable")

// GenerationError wraps a terminal failure from the final generation
// call, including quota exhaustion across all credentials.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("answer generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }
