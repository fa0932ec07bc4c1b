// internal/identify/identifier.go
package identify

import (
	"context"
	"errors"
	"fmt"
)

// Identifier reads a hardware MAC from the device behind a serial port.
// Implementations must honor ctx cancellation and deadlines; the engine
// relies on that to bound attempts and to abort when a port disappears
// mid-read. No two calls are ever made concurrently for the same port.
type Identifier interface {
	Identify(ctx context.Context, portID string) (string, error)
}

// Attempt failure taxonomy. Every error returned by an Identifier should
// wrap one of these so the worker pool can classify it; anything else is
// treated as a protocol error.
var (
	ErrTimeout      = errors.New("identification timed out")
	ErrAccessDenied = errors.New("port access denied")
	ErrProtocol     = errors.New("protocol error")
	ErrDisconnected = errors.New("device disconnected")
)

// Classify maps an attempt error onto the taxonomy. Context cancellation
// from the port-removal path is reported as ErrDisconnected; a deadline is
// a timeout.
func Classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrTimeout),
		errors.Is(err, ErrAccessDenied),
		errors.Is(err, ErrProtocol),
		errors.Is(err, ErrDisconnected):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return ErrTimeout
	case errors.Is(err, context.Canceled):
		return ErrDisconnected
	default:
		return fmt.Errorf("%w: %v", ErrProtocol, err)
	}
}
