package player

import (
	"errors"
	"fmt"
)

// ErrReleased is returned by engine calls made after Release.
var ErrReleased = errors.New("engine released")

// RendererInitializationError reports that the engine could not accept the source.
type RendererInitializationError struct {
	Err error
}

func (e *RendererInitializationError) Error() string {
	return fmt.Sprintf("renderer initialization: %v", e.Err)
}

func (e *RendererInitializationError) Unwrap() error {
	return e.Err
}

// EngineError is an error reported by the engine while playing.
// Op names what the engine was doing, e.g. "load" or "decode".
type EngineError struct {
	Op  string
	Err error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("engine %s: %v", e.Op, e.Err)
}

func (e *EngineError) Unwrap() error {
	return e.Err
}
