package network

import (
	"lottery/pkg/apperror"
)

// FatalError is returned by the solver core for conditions that indicate a
// bug: out of range access, a malformed encoding, a negative cycle or a
// conservation failure. It carries the diagnostic snapshot taken at the
// moment of failure; writing it anywhere is left to the caller.
type FatalError struct {
	Err      *apperror.Error
	Snapshot *Snapshot
}

// NewFatal builds a critical error with the given code and snapshots net.
// A nil network yields an error without snapshot.
func NewFatal(code apperror.ErrorCode, message string, net *Network) *FatalError {
	fe := &FatalError{
		Err: apperror.NewCritical(code, message),
	}
	if net != nil {
		fe.Snapshot = net.Snapshot()
	}
	return fe
}

func (e *FatalError) Error() string {
	return e.Err.Error()
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// Code returns the error code.
func (e *FatalError) Code() apperror.ErrorCode {
	return e.Err.Code
}

// WithDetails adds a detail to the underlying error.
func (e *FatalError) WithDetails(key string, value any) *FatalError {
	e.Err.WithDetails(key, value)
	return e
}

// FromPanic converts a recovered *OutOfRangeError into a fatal error.
// Any other panic value is re-raised. Use it from a deferred closure:
//
//	defer func() {
//		if r := recover(); r != nil {
//			err = network.FromPanic(r, net)
//		}
//	}()
func FromPanic(r any, net *Network) error {
	oor, ok := r.(*OutOfRangeError)
	if !ok {
		panic(r)
	}
	return NewFatal(apperror.CodeOutOfRangeNodeAccess, oor.Error(), net).
		WithDetails("op", oor.Op)
}
