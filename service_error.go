package main

import (
	"errors"
	"fmt"
)

// ServiceError carries the service and operation an error came from.
type ServiceError struct {
	Service   string
	Operation string
	Err       error
}

// Error formats the message as [Service.Operation] error message.
func (e *ServiceError) Error() string {
	return fmt.Sprintf("[%s.%s] %v", e.Service, e.Operation, e.Err)
}

// Unwrap returns the original error so errors.Is/errors.As keep working.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// WrapError creates an error with service context. Returns nil if err is nil.
func WrapError(service, operation string, err error) error {
	if err == nil {
		return nil
	}
	return &ServiceError{Service: service, Operation: operation, Err: err}
}

// Sentinel errors for the session store.
var (
	// ErrSessionNotFound is returned when an operation references a
	// session id that is not in the store.
	ErrSessionNotFound = errors.New("session not found")

	// ErrNoActiveSession is returned by ActiveSession when every session
	// has been deleted.
	ErrNoActiveSession = errors.New("no active session")
)
