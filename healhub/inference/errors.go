package inference

import "errors"

var (
	// ErrServiceNotReady is returned by inference operations before a
	// successful Initialize.
	ErrServiceNotReady = errors.New("inference service not ready")

	// ErrServiceFailed is returned when initialization has failed
	// permanently. The service must be rebuilt to retry.
	ErrServiceFailed = errors.New("inference service failed to initialize")

	// ErrServiceClosed is returned after Close.
	ErrServiceClosed = errors.New("inference service closed")
)
