package process

import "time"

// Stoppable represents a process that can be stopped and have its resources closed.
type Stoppable interface {
	Stop(timeout time.Duration) error
	Close()
}

// StopCloseAndNil stops, closes, and nils a Stoppable pointer in one cleanup
// step. Safe to call with a nil p or when *p is nil; returns nil immediately
// in both cases.
//
// P is constrained to both *E and Stoppable, so only pointer types that
// implement Stoppable can be passed and *p is directly comparable to nil
// without reflection. Close and the nil-out always run even when Stop
// returns an error: a failed Stop leaves the process in an unknown state,
// but file handles must still be released and stale references cleared.
//
//	var t *minikube.Tunnel
//	// ... start t ...
//	err := process.StopCloseAndNil(&t, 10*time.Second)
func StopCloseAndNil[P interface {
	*E
	Stoppable
}, E any](p *P, timeout time.Duration) error {
	if p == nil || *p == nil {
		return nil
	}
	defer func() {
		(*p).Close()
		*p = nil
	}()
	return (*p).Stop(timeout)
}
