package fiber

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidHookCall is raised when a state declaration runs outside the
	// render of the component that owns the Hooks value.
	ErrInvalidHookCall = errors.New("state declaration outside of a component render")
	// ErrHookMismatch is raised when a component declares a different number
	// or order of state cells than on its previous render.
	ErrHookMismatch = errors.New("state declarations changed between renders")
	// ErrRootInconsistent marks a root whose commit failed half way through.
	ErrRootInconsistent = errors.New("root is inconsistent after a failed commit")
	// ErrUnmountedDispatch is reported when a dispatch targets a node that is
	// no longer mounted.
	ErrUnmountedDispatch = errors.New("dispatch on an unmounted component")
	// ErrNestedUpdateLimit is reported when sync renders of one root keep
	// scheduling further sync renders, usually a component that dispatches
	// while rendering.
	ErrNestedUpdateLimit = errors.New("too many nested sync updates")
)

// RenderPanicError wraps a non-error value recovered from a render pass.
type RenderPanicError struct {
	Value any
}

func (e *RenderPanicError) Error() string {
	return fmt.Sprintf("render panicked: %v", e.Value)
}

func recoveredError(v any) error {
	if err, ok := v.(error); ok {
		return err
	}
	return &RenderPanicError{Value: v}
}
