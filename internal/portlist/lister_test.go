// internal/portlist/lister_test.go
package portlist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewSerialListerRejectsBadPatterns(t *testing.T) {
	_, err := NewSerialLister([]string{"["}, nil, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid include pattern")

	_, err = NewSerialLister(nil, []string{"("}, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid exclude pattern")
}

func TestAcceptsWithoutFiltersTakesEverything(t *testing.T) {
	l, err := NewSerialLister(nil, nil, zap.NewNop())
	require.NoError(t, err)

	assert.True(t, l.accepts("/dev/ttyUSB0"))
	assert.True(t, l.accepts("COM3"))
}

func TestAcceptsIncludeFilter(t *testing.T) {
	l, err := NewSerialLister([]string{`ttyUSB`, `ttyACM`}, nil, zap.NewNop())
	require.NoError(t, err)

	assert.True(t, l.accepts("/dev/ttyUSB0"))
	assert.True(t, l.accepts("/dev/ttyACM1"))
	assert.False(t, l.accepts("/dev/ttyS0"))
}

func TestAcceptsExcludeFilter(t *testing.T) {
	l, err := NewSerialLister(nil, []string{`ttyS\d+`}, zap.NewNop())
	require.NoError(t, err)

	assert.True(t, l.accepts("/dev/ttyUSB0"))
	assert.False(t, l.accepts("/dev/ttyS0"))
	assert.False(t, l.accepts("/dev/ttyS12"))
}

func TestAcceptsExcludeWinsOverInclude(t *testing.T) {
	l, err := NewSerialLister([]string{`tty`}, []string{`ttyS`}, zap.NewNop())
	require.NoError(t, err)

	assert.True(t, l.accepts("/dev/ttyUSB0"))
	assert.False(t, l.accepts("/dev/ttyS0"))
}
