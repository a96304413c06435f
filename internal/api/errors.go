package api

import "fmt"

// NetworkError reports a transport or decoding failure. The request may or
// may not have reached the service.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ServiceError reports an {"error": ...} body sent back by the service.
type ServiceError struct {
	Op      string
	Status  int
	Message string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: service error (%d): %s", e.Op, e.Status, e.Message)
}
