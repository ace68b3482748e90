package state

import "errors"

// LockFileName is the run lock kept at the project root.
const LockFileName = ".epic-postinstall.lock"

// ErrLocked means another run already holds the project lock.
var ErrLocked = errors.New("another epic-postinstall run holds the project lock")

// Lock is held for the duration of a run. Release is safe to call more than once.
type Lock interface {
	Release() error
}
