package media

import (
	"fmt"
)

// outcome is the result of one independent media sub-task: a relative path or an error.
type outcome struct {
	path string
	err  error
}

// errString returns the recorded error text, or "" on success.
func (o outcome) errString() string {
	if o.err == nil {
		return ""
	}
	return o.err.Error()
}

// attempt runs fn in isolation. Errors and panics are captured and formatted
// as "<kind> generation failed: <cause>" so no sub-task can abort its siblings.
func attempt(kind string, fn func() (string, error)) (res outcome) {
	defer func() {
		if r := recover(); r != nil {
			res = outcome{err: fmt.Errorf("%s generation failed: panic: %v", kind, r)}
		}
	}()

	path, err := fn()
	if err != nil {
		return outcome{err: fmt.Errorf("%s generation failed: %w", kind, err)}
	}
	return outcome{path: path}
}
