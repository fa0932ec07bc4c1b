// internal/identify/mac_test.go
package identify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatMAC(t *testing.T) {
	mac := FormatMAC([]byte{0x24, 0x0A, 0xC4, 0x12, 0x34, 0x56})
	assert.Equal(t, "24:0a:c4:12:34:56", mac)
}

func TestNormalizeMAC(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"AABBCCDDEEFF", "aa:bb:cc:dd:ee:ff"},
		{"240ac4123456", "24:0a:c4:12:34:56"},
		{"24:0A:C4:12:34:56", "24:0a:c4:12:34:56"},
		{"24-0A-C4-12-34-56", "24:0a:c4:12:34:56"},
		{"  aa:bb:cc:dd:ee:ff  ", "aa:bb:cc:dd:ee:ff"},
		{"not-a-mac", "not:a:mac"},
		{"", ""},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizeMAC(tc.in), "input %q", tc.in)
	}
}

func TestClassify(t *testing.T) {
	assert.ErrorIs(t, Classify(context.DeadlineExceeded), ErrTimeout)
	assert.ErrorIs(t, Classify(context.Canceled), ErrDisconnected)
	assert.ErrorIs(t, Classify(errors.New("bad sync reply")), ErrProtocol)

	// Already classified errors pass through unchanged.
	assert.ErrorIs(t, Classify(ErrAccessDenied), ErrAccessDenied)
	assert.ErrorIs(t, Classify(ErrTimeout), ErrTimeout)
}
