// internal/engine/diff_test.go
package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func active(ports ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(ports))
	for _, p := range ports {
		m[p] = struct{}{}
	}
	return m
}

func TestDiffEmptyBothSides(t *testing.T) {
	appeared, disappeared := Diff(nil, nil)
	assert.Empty(t, appeared)
	assert.Empty(t, disappeared)
}

func TestDiffAllNew(t *testing.T) {
	appeared, disappeared := Diff([]string{"/dev/ttyUSB1", "/dev/ttyUSB0"}, nil)
	assert.Equal(t, []string{"/dev/ttyUSB0", "/dev/ttyUSB1"}, appeared)
	assert.Empty(t, disappeared)
}

func TestDiffAllGone(t *testing.T) {
	appeared, disappeared := Diff(nil, active("/dev/ttyUSB0", "/dev/ttyUSB1"))
	assert.Empty(t, appeared)
	assert.Equal(t, []string{"/dev/ttyUSB0", "/dev/ttyUSB1"}, disappeared)
}

func TestDiffMixed(t *testing.T) {
	snapshot := []string{"/dev/ttyUSB0", "/dev/ttyUSB2"}
	appeared, disappeared := Diff(snapshot, active("/dev/ttyUSB0", "/dev/ttyUSB1"))

	assert.Equal(t, []string{"/dev/ttyUSB2"}, appeared)
	assert.Equal(t, []string{"/dev/ttyUSB1"}, disappeared)
}

func TestDiffUnchangedSnapshotIsNoOp(t *testing.T) {
	snapshot := []string{"/dev/ttyUSB0", "/dev/ttyUSB1"}
	known := active(snapshot...)

	for i := 0; i < 2; i++ {
		appeared, disappeared := Diff(snapshot, known)
		assert.Empty(t, appeared)
		assert.Empty(t, disappeared)
	}
}
