// internal/service/monitor_service_test.go
package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"macscan/internal/config"
	"macscan/internal/engine"
	"macscan/internal/model"
)

// staticLister serves a swappable port snapshot.
type staticLister struct {
	mu    sync.Mutex
	ports []string
}

func (l *staticLister) List(_ context.Context) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.ports...), nil
}

func (l *staticLister) set(ports ...string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ports = ports
}

// fixedIdentifier answers every port with the same MAC, or an error.
type fixedIdentifier struct {
	mac string
	err error
}

func (f *fixedIdentifier) Identify(_ context.Context, _ string) (string, error) {
	return f.mac, f.err
}

func testConfig() *config.Config {
	return &config.Config{
		Scan: config.ScanConfig{
			PollInterval:  50 * time.Millisecond,
			Workers:       2,
			MaxAttempts:   3,
			RetryDelay:    10 * time.Millisecond,
			BackoffMax:    40 * time.Millisecond,
			AutoStart:     true,
			ShutdownGrace: time.Second,
		},
		Identify: config.IdentifyConfig{Timeout: time.Second},
	}
}

func newTestMonitor(t *testing.T, identifier *fixedIdentifier) (*MonitorService, *staticLister, *engine.Engine) {
	t.Helper()

	lister := &staticLister{}
	eng := engine.New(testConfig(), lister, identifier, zap.NewNop())
	eng.Start()
	t.Cleanup(eng.Stop)

	svc := NewMonitorService(eng, nil, testConfig(), zap.NewNop())
	return svc, lister, eng
}

func waitForStatus(t *testing.T, eng *engine.Engine, portID string, status model.RecordStatus) {
	t.Helper()
	require.Eventually(t, func() bool {
		rec := eng.Registry().Get(portID)
		return rec != nil && rec.Status == status
	}, 3*time.Second, 5*time.Millisecond)
}

func TestListRecordsStatusFilter(t *testing.T) {
	svc, lister, eng := newTestMonitor(t, &fixedIdentifier{mac: "aa:bb:cc:dd:ee:ff"})

	lister.set("/dev/ttyUSB0", "/dev/ttyUSB1")
	waitForStatus(t, eng, "/dev/ttyUSB0", model.StatusSuccess)
	waitForStatus(t, eng, "/dev/ttyUSB1", model.StatusSuccess)

	lister.set("/dev/ttyUSB0")
	waitForStatus(t, eng, "/dev/ttyUSB1", model.StatusRemoved)

	all, err := svc.ListRecords("", "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	// Lowercase and padded labels are accepted.
	active, err := svc.ListRecords(" success ", "")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "/dev/ttyUSB0", active[0].PortID)

	both, err := svc.ListRecords("success,removed", "")
	require.NoError(t, err)
	assert.Len(t, both, 2)
}

func TestListRecordsRejectsUnknownStatus(t *testing.T) {
	svc, _, _ := newTestMonitor(t, &fixedIdentifier{mac: "aa:bb:cc:dd:ee:ff"})

	_, err := svc.ListRecords("bogus", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown status "bogus"`)
}

func TestGetRecord(t *testing.T) {
	svc, lister, eng := newTestMonitor(t, &fixedIdentifier{mac: "aa:bb:cc:dd:ee:ff"})

	assert.Nil(t, svc.GetRecord("/dev/ttyUSB0"))

	lister.set("/dev/ttyUSB0")
	waitForStatus(t, eng, "/dev/ttyUSB0", model.StatusSuccess)

	rec := svc.GetRecord("/dev/ttyUSB0")
	require.NotNil(t, rec)
	assert.Equal(t, "aa:bb:cc:dd:ee:ff", rec.MAC)
}

func TestResetRecordForcesFreshCycle(t *testing.T) {
	svc, lister, eng := newTestMonitor(t, &fixedIdentifier{mac: "aa:bb:cc:dd:ee:ff"})

	lister.set("/dev/ttyUSB0")
	waitForStatus(t, eng, "/dev/ttyUSB0", model.StatusSuccess)

	rec, err := svc.ResetRecord("/dev/ttyUSB0")
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, rec.Status)
	assert.Empty(t, rec.MAC)

	// The port is still listed, so the loop re-identifies it.
	waitForStatus(t, eng, "/dev/ttyUSB0", model.StatusSuccess)

	_, err = svc.ResetRecord("/dev/ttyUSB9")
	assert.Error(t, err)
}

func TestClearFailedKeepsConfirmedRecords(t *testing.T) {
	svc, lister, eng := newTestMonitor(t, &fixedIdentifier{mac: "aa:bb:cc:dd:ee:ff"})

	lister.set("/dev/ttyUSB0")
	waitForStatus(t, eng, "/dev/ttyUSB0", model.StatusSuccess)
	lister.set()
	waitForStatus(t, eng, "/dev/ttyUSB0", model.StatusRemoved)

	// A record with a confirmed MAC survives the failed-rows clear,
	// even after removal.
	assert.Zero(t, svc.ClearFailed(context.Background()))
	assert.NotNil(t, svc.GetRecord("/dev/ttyUSB0"))

	assert.Equal(t, 1, svc.ClearAll(context.Background()))
	assert.Nil(t, svc.GetRecord("/dev/ttyUSB0"))
}

func TestScanControlAndStatus(t *testing.T) {
	svc, lister, eng := newTestMonitor(t, &fixedIdentifier{mac: "aa:bb:cc:dd:ee:ff"})

	lister.set("/dev/ttyUSB0")
	waitForStatus(t, eng, "/dev/ttyUSB0", model.StatusSuccess)

	status := svc.Status()
	assert.True(t, status.Scanning)
	assert.Equal(t, 1, status.Records)

	require.True(t, svc.StopScanning())
	assert.False(t, svc.StopScanning())
	assert.False(t, svc.Status().Scanning)

	require.True(t, svc.StartScanning())
	assert.True(t, svc.Status().Scanning)
}

func TestSubscribeStreamsChanges(t *testing.T) {
	svc, lister, _ := newTestMonitor(t, &fixedIdentifier{mac: "aa:bb:cc:dd:ee:ff"})

	events, cancel := svc.Subscribe()
	defer cancel()

	lister.set("/dev/ttyUSB0")

	timeout := time.After(3 * time.Second)
	for {
		select {
		case ev := <-events:
			if ev.Type == model.EventStatusChanged && ev.Record.Status == model.StatusSuccess {
				assert.Equal(t, "/dev/ttyUSB0", ev.PortID)
				assert.Equal(t, "aa:bb:cc:dd:ee:ff", ev.Record.MAC)
				return
			}
		case <-timeout:
			t.Fatal("no success event observed")
		}
	}
}
