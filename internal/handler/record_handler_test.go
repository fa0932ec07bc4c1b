// internal/handler/record_handler_test.go
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"macscan/internal/config"
	"macscan/internal/engine"
	"macscan/internal/model"
	"macscan/internal/service"
	"macscan/internal/utils"
)

type swappableLister struct {
	mu    sync.Mutex
	ports []string
}

func (l *swappableLister) List(_ context.Context) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.ports...), nil
}

func (l *swappableLister) set(ports ...string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ports = ports
}

type cannedIdentifier struct {
	mac string
}

func (f *cannedIdentifier) Identify(_ context.Context, _ string) (string, error) {
	return f.mac, nil
}

type recordFixture struct {
	router *gin.Engine
	lister *swappableLister
	engine *engine.Engine
}

func newRecordFixture(t *testing.T) *recordFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
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

	lister := &swappableLister{}
	eng := engine.New(cfg, lister, &cannedIdentifier{mac: "aa:bb:cc:dd:ee:ff"}, zap.NewNop())
	eng.Start()
	t.Cleanup(eng.Stop)

	monitor := service.NewMonitorService(eng, nil, cfg, zap.NewNop())
	h := NewRecordHandler(monitor, zap.NewNop())

	router := gin.New()
	router.GET("/records", h.ListRecords)
	router.DELETE("/records", h.ClearRecords)
	router.DELETE("/records/failed", h.ClearFailedRecords)
	router.GET("/records/:port_id", h.GetRecord)
	router.POST("/records/:port_id/reset", h.ResetRecord)

	return &recordFixture{router: router, lister: lister, engine: eng}
}

func (f *recordFixture) waitForStatus(t *testing.T, portID string, status model.RecordStatus) {
	t.Helper()
	require.Eventually(t, func() bool {
		rec := f.engine.Registry().Get(portID)
		return rec != nil && rec.Status == status
	}, 3*time.Second, 5*time.Millisecond)
}

func (f *recordFixture) do(method, path string) (*httptest.ResponseRecorder, utils.APIResponse) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	f.router.ServeHTTP(w, req)

	var body utils.APIResponse
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func TestListRecordsEndpoint(t *testing.T) {
	f := newRecordFixture(t)

	f.lister.set("/dev/ttyUSB0")
	f.waitForStatus(t, "/dev/ttyUSB0", model.StatusSuccess)

	w, body := f.do(http.MethodGet, "/records")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, body.Success)

	records, ok := body.Data.([]interface{})
	require.True(t, ok)
	require.Len(t, records, 1)
	rec := records[0].(map[string]interface{})
	assert.Equal(t, "/dev/ttyUSB0", rec["port_id"])
	assert.Equal(t, "SUCCESS", rec["status"])
	assert.Equal(t, "aa:bb:cc:dd:ee:ff", rec["mac"])
}

func TestListRecordsEndpointRejectsBadStatus(t *testing.T) {
	f := newRecordFixture(t)

	w, body := f.do(http.MethodGet, "/records?status=bogus")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, body.Success)
	require.NotNil(t, body.Error)
	assert.Equal(t, "Invalid filter", body.Error.Message)
}

func TestGetRecordEndpoint(t *testing.T) {
	f := newRecordFixture(t)

	w, _ := f.do(http.MethodGet, "/records/unknown")
	assert.Equal(t, http.StatusNotFound, w.Code)

	f.lister.set("COM3")
	f.waitForStatus(t, "COM3", model.StatusSuccess)

	w, body := f.do(http.MethodGet, "/records/COM3")
	assert.Equal(t, http.StatusOK, w.Code)
	rec := body.Data.(map[string]interface{})
	assert.Equal(t, "COM3", rec["port_id"])
}

func TestResetRecordEndpoint(t *testing.T) {
	f := newRecordFixture(t)

	f.lister.set("COM3")
	f.waitForStatus(t, "COM3", model.StatusSuccess)

	w, body := f.do(http.MethodPost, "/records/COM3/reset")
	assert.Equal(t, http.StatusOK, w.Code)
	rec := body.Data.(map[string]interface{})
	assert.Equal(t, "PENDING", rec["status"])
	assert.Nil(t, rec["mac"])

	// The port is still listed, so it gets identified again.
	f.waitForStatus(t, "COM3", model.StatusSuccess)

	w, _ = f.do(http.MethodPost, "/records/unknown/reset")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestClearRecordsEndpoint(t *testing.T) {
	f := newRecordFixture(t)

	f.lister.set("COM3")
	f.waitForStatus(t, "COM3", model.StatusSuccess)
	f.lister.set()
	f.waitForStatus(t, "COM3", model.StatusRemoved)

	// The confirmed record survives the failed-rows clear.
	w, body := f.do(http.MethodDelete, "/records/failed")
	assert.Equal(t, http.StatusOK, w.Code)
	counts := body.Data.(map[string]interface{})
	assert.Equal(t, float64(0), counts["removed"])

	w, body = f.do(http.MethodDelete, "/records")
	assert.Equal(t, http.StatusOK, w.Code)
	counts = body.Data.(map[string]interface{})
	assert.Equal(t, float64(1), counts["removed"])

	_, body = f.do(http.MethodGet, "/records")
	records := body.Data.([]interface{})
	assert.Empty(t, records)
}
