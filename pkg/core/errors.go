package core

import (
	"errors"
	"fmt"
)

var (
	// ErrEngineUnavailable means no engine instance could be created for a scene
	// (engine library missing or no container to render into).
	ErrEngineUnavailable = errors.New("engine unavailable")

	// ErrInvalidCoordinates means the engine returned a malformed pointer-to-coords result.
	ErrInvalidCoordinates = errors.New("invalid coordinates")

	// ErrDanglingSceneReference means a navigation target or hotspot sceneId names no scene.
	ErrDanglingSceneReference = errors.New("dangling scene reference")

	// ErrEngineOperation wraps failures of individual engine calls.
	ErrEngineOperation = errors.New("engine operation failed")
)

// ParseError is returned when an imported tour document cannot be accepted.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse tour document: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("parse tour document: %s", e.Reason)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// NavigationError is returned when a navigation request cannot be honored.
type NavigationError struct {
	SceneID string
	Err     error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("navigate to scene %q: %v", e.SceneID, e.Err)
}

func (e *NavigationError) Unwrap() error {
	return e.Err
}
