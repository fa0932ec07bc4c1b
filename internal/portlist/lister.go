// internal/portlist/lister.go
package portlist

import (
	"context"
	"fmt"
	"regexp"
	"sort"

	"go.bug.st/serial"
	"go.uber.org/zap"
)

// Lister enumerates the serial ports currently attached to the machine.
// A failed enumeration is transient: the scheduler logs it and tries again
// on the next tick.
type Lister interface {
	List(ctx context.Context) ([]string, error)
}

// SerialLister lists OS serial ports with optional include/exclude
// filtering, so virtual terminals and modem devices can be kept out of the
// scan set.
type SerialLister struct {
	include []*regexp.Regexp
	exclude []*regexp.Regexp
	logger  *zap.Logger
}

// NewSerialLister compiles the filter patterns and returns a lister.
func NewSerialLister(includePatterns, excludePatterns []string, logger *zap.Logger) (*SerialLister, error) {
	l := &SerialLister{
		logger: logger.With(zap.String("component", "portlist")),
	}

	for _, pattern := range includePatterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid include pattern %q: %w", pattern, err)
		}
		l.include = append(l.include, re)
	}
	for _, pattern := range excludePatterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", pattern, err)
		}
		l.exclude = append(l.exclude, re)
	}

	return l, nil
}

// List returns the filtered, sorted set of attached serial port names.
func (l *SerialLister) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to get serial ports: %w", err)
	}

	result := make([]string, 0, len(ports))
	for _, port := range ports {
		if !l.accepts(port) {
			continue
		}
		result = append(result, port)
	}

	sort.Strings(result)
	return result, nil
}

func (l *SerialLister) accepts(port string) bool {
	if len(l.include) > 0 {
		matched := false
		for _, re := range l.include {
			if re.MatchString(port) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	for _, re := range l.exclude {
		if re.MatchString(port) {
			return false
		}
	}

	return true
}
