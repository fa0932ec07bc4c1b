// internal/engine/scheduler_test.go
package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"macscan/internal/model"
	"macscan/internal/registry"
)

// fakeLister serves a swappable port snapshot.
type fakeLister struct {
	mu    sync.Mutex
	ports []string
	err   error
}

func (f *fakeLister) List(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return append([]string(nil), f.ports...), nil
}

func (f *fakeLister) set(ports ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ports = ports
	f.err = nil
}

func (f *fakeLister) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func newTestScheduler(t *testing.T, identifier *scriptedIdentifier) (*Scheduler, *fakeLister, *registry.Registry) {
	t.Helper()

	reg := registry.New(zap.NewNop())
	pool := NewPool(testPoolConfig(), reg, identifier, zap.NewNop())
	pool.Start()
	t.Cleanup(func() {
		pool.Stop(time.Second)
		reg.Close()
	})

	lister := &fakeLister{}
	sched := NewScheduler(time.Second, lister, reg, pool, zap.NewNop())
	return sched, lister, reg
}

func TestSchedulerIdentifiesAppearedPort(t *testing.T) {
	identifier := newScriptedIdentifier(identifyResult{mac: "aa:bb:cc:dd:ee:ff"})
	sched, lister, reg := newTestScheduler(t, identifier)

	lister.set("/dev/ttyUSB0")
	sched.Tick(context.Background())

	require.Eventually(t, func() bool {
		rec := reg.Get("/dev/ttyUSB0")
		return rec != nil && rec.Status == model.StatusSuccess
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, "aa:bb:cc:dd:ee:ff", reg.Get("/dev/ttyUSB0").MAC)
}

func TestSchedulerTickIsIdempotentForSettledPorts(t *testing.T) {
	identifier := newScriptedIdentifier(identifyResult{mac: "aa:bb:cc:dd:ee:ff"})
	sched, lister, reg := newTestScheduler(t, identifier)

	lister.set("/dev/ttyUSB0")
	sched.Tick(context.Background())

	require.Eventually(t, func() bool {
		rec := reg.Get("/dev/ttyUSB0")
		return rec != nil && rec.Status == model.StatusSuccess
	}, 2*time.Second, 5*time.Millisecond)

	// The port stays listed; later ticks must not re-identify it.
	sched.Tick(context.Background())
	sched.Tick(context.Background())
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, identifier.callCount("/dev/ttyUSB0"))
}

func TestSchedulerRemovalMidReadDiscardsResult(t *testing.T) {
	identifier := newScriptedIdentifier(identifyResult{mac: "aa:bb:cc:dd:ee:ff"})
	identifier.block = true
	sched, lister, reg := newTestScheduler(t, identifier)

	lister.set("/dev/ttyUSB0")
	sched.Tick(context.Background())

	select {
	case <-identifier.started:
	case <-time.After(2 * time.Second):
		t.Fatal("attempt never started")
	}

	// Port vanishes while its attempt is in flight.
	lister.set()
	sched.Tick(context.Background())

	require.Eventually(t, func() bool {
		rec := reg.Get("/dev/ttyUSB0")
		return rec != nil && rec.Status == model.StatusRemoved
	}, 2*time.Second, 5*time.Millisecond)

	rec := reg.Get("/dev/ttyUSB0")
	assert.Empty(t, rec.MAC)
	assert.Zero(t, rec.AttemptCount)
}

func TestSchedulerEnumerationErrorKeepsState(t *testing.T) {
	identifier := newScriptedIdentifier(identifyResult{mac: "aa:bb:cc:dd:ee:ff"})
	sched, lister, reg := newTestScheduler(t, identifier)

	lister.set("/dev/ttyUSB0")
	sched.Tick(context.Background())

	require.Eventually(t, func() bool {
		rec := reg.Get("/dev/ttyUSB0")
		return rec != nil && rec.Status == model.StatusSuccess
	}, 2*time.Second, 5*time.Millisecond)

	// A failed enumeration pass must not mark anything removed.
	lister.fail(errors.New("enumeration unavailable"))
	sched.Tick(context.Background())

	rec := reg.Get("/dev/ttyUSB0")
	assert.Equal(t, model.StatusSuccess, rec.Status)
	assert.Equal(t, "aa:bb:cc:dd:ee:ff", rec.MAC)
}

func TestSchedulerReappearanceRestoresConfirmedMAC(t *testing.T) {
	identifier := newScriptedIdentifier(identifyResult{mac: "aa:bb:cc:dd:ee:ff"})
	sched, lister, reg := newTestScheduler(t, identifier)

	lister.set("/dev/ttyUSB0")
	sched.Tick(context.Background())

	require.Eventually(t, func() bool {
		rec := reg.Get("/dev/ttyUSB0")
		return rec != nil && rec.Status == model.StatusSuccess
	}, 2*time.Second, 5*time.Millisecond)

	lister.set()
	sched.Tick(context.Background())
	require.Equal(t, model.StatusRemoved, reg.Get("/dev/ttyUSB0").Status)

	// Replug the same port: the record is restored without another attempt.
	lister.set("/dev/ttyUSB0")
	sched.Tick(context.Background())

	rec := reg.Get("/dev/ttyUSB0")
	assert.Equal(t, model.StatusSuccess, rec.Status)
	assert.Equal(t, "aa:bb:cc:dd:ee:ff", rec.MAC)
	assert.Equal(t, 1, identifier.callCount("/dev/ttyUSB0"))
}

func TestSchedulerStartStop(t *testing.T) {
	identifier := newScriptedIdentifier(identifyResult{mac: "aa:bb:cc:dd:ee:ff"})
	sched, lister, reg := newTestScheduler(t, identifier)
	lister.set("/dev/ttyUSB0")

	assert.False(t, sched.IsScanning())
	require.True(t, sched.StartScanning())
	assert.False(t, sched.StartScanning())
	assert.True(t, sched.IsScanning())

	// The loop ticks immediately, before the first interval elapses.
	require.Eventually(t, func() bool {
		rec := reg.Get("/dev/ttyUSB0")
		return rec != nil && rec.Status == model.StatusSuccess
	}, 2*time.Second, 5*time.Millisecond)

	require.True(t, sched.StopScanning())
	assert.False(t, sched.StopScanning())
	assert.False(t, sched.IsScanning())
}
