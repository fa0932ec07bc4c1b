// internal/service/export_service_test.go
package service

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"macscan/internal/model"
	"macscan/internal/registry"
)

// fakeSnapshotter serves a fixed record slice and remembers the filter it saw.
type fakeSnapshotter struct {
	records []*model.Record
	filter  *registry.Filter
}

func (f *fakeSnapshotter) Snapshot(filter *registry.Filter) []*model.Record {
	f.filter = filter
	return f.records
}

func TestExportRowsUseLastAttemptWhenPresent(t *testing.T) {
	firstSeen := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	lastAttempt := firstSeen.Add(3 * time.Second)

	source := &fakeSnapshotter{records: []*model.Record{
		{
			PortID:      "/dev/ttyUSB0",
			Status:      model.StatusSuccess,
			MAC:         "aa:bb:cc:dd:ee:ff",
			FirstSeen:   firstSeen,
			LastAttempt: &lastAttempt,
		},
		{
			PortID:    "/dev/ttyUSB1",
			Status:    model.StatusReading,
			FirstSeen: firstSeen.Add(time.Second),
		},
	}}

	svc := NewExportService(source, zap.NewNop())
	rows := svc.Rows(nil)

	require.Len(t, rows, 2)
	assert.Equal(t, lastAttempt, rows[0].Timestamp)
	assert.Equal(t, "/dev/ttyUSB0", rows[0].PortID)
	assert.Equal(t, "aa:bb:cc:dd:ee:ff", rows[0].MAC)
	assert.Equal(t, "SUCCESS", rows[0].Status)

	// No attempt yet: the row carries the first-seen time and an empty MAC.
	assert.Equal(t, firstSeen.Add(time.Second), rows[1].Timestamp)
	assert.Empty(t, rows[1].MAC)
	assert.Equal(t, "READING", rows[1].Status)
}

func TestExportRowsForwardFilter(t *testing.T) {
	source := &fakeSnapshotter{}
	svc := NewExportService(source, zap.NewNop())

	filter := &registry.Filter{Query: "usb0"}
	svc.Rows(filter)
	assert.Same(t, filter, source.filter)
}

func TestWriteCSV(t *testing.T) {
	svc := NewExportService(&fakeSnapshotter{}, zap.NewNop())

	ts := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	rows := []model.ExportRow{
		{Timestamp: ts, PortID: "/dev/ttyUSB0", MAC: "aa:bb:cc:dd:ee:ff", Status: "SUCCESS"},
		{Timestamp: ts.Add(time.Second), PortID: "COM3", Status: "FAILED"},
	}

	var buf bytes.Buffer
	require.NoError(t, svc.WriteCSV(&buf, rows))

	want := "time,port,mac,status\n" +
		"2026-08-28T10:00:00Z,/dev/ttyUSB0,aa:bb:cc:dd:ee:ff,SUCCESS\n" +
		"2026-08-28T10:00:01Z,COM3,,FAILED\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteCSVEmptyRowsStillWritesHeader(t *testing.T) {
	svc := NewExportService(&fakeSnapshotter{}, zap.NewNop())

	var buf bytes.Buffer
	require.NoError(t, svc.WriteCSV(&buf, nil))
	assert.Equal(t, "time,port,mac,status\n", buf.String())
}
