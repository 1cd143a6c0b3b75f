package capture

import (
	"errors"
	"fmt"
)

var (
	// ErrNoCamera means an offscreen capture found nothing to render. It is
	// a no-op rather than a failure.
	ErrNoCamera = errors.New("no camera available for offscreen capture")

	ErrInvalidSettings       = errors.New("invalid capture settings")
	ErrDirectoryCreateFailed = errors.New("create capture directory failed")
	ErrEncodeFailed          = errors.New("encode capture failed")
	ErrWriteFailed           = errors.New("write capture failed")
)

// Error reports the step of a capture attempt that failed.
type Error struct {
	Kind TriggerKind
	Step error
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s capture: %v (%s): %v", e.Kind, e.Step, e.Path, e.Err)
	}
	return fmt.Sprintf("%s capture: %v: %v", e.Kind, e.Step, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return target == e.Step }
