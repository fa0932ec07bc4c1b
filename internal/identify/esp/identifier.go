// internal/identify/esp/identifier.go
package esp

import (
	"context"
	"encoding/binary"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"
	"go.uber.org/zap"

	"macscan/internal/identify"
)

// ROM loader opcodes and efuse registers. The MAC lives in efuse block 0;
// two READ_REG round-trips give the full 48 bits.
const (
	opSync    = 0x08
	opReadReg = 0x0A

	efuseMACLowReg  = 0x3ff5a004
	efuseMACHighReg = 0x3ff5a008
)

// Config for the ESP bootloader identifier
type Config struct {
	BaudRate int           `json:"baud_rate"`
	Timeout  time.Duration `json:"timeout"`
	SyncMax  int           `json:"sync_max"`
}

// Identifier reads the factory MAC of an ESP-class device by resetting it
// into the ROM serial bootloader and issuing READ_REG commands against the
// efuse block. It implements identify.Identifier.
type Identifier struct {
	config *Config
	logger *zap.Logger
}

// NewIdentifier creates an ESP bootloader identifier.
func NewIdentifier(config *Config, logger *zap.Logger) *Identifier {
	if config == nil {
		config = &Config{}
	}
	if config.BaudRate == 0 {
		config.BaudRate = 115200
	}
	if config.Timeout == 0 {
		config.Timeout = 5 * time.Second
	}
	if config.SyncMax == 0 {
		config.SyncMax = 7
	}

	return &Identifier{
		config: config,
		logger: logger.With(zap.String("identifier", "esp")),
	}
}

// Identify opens the port, enters the bootloader and reads the MAC.
func (i *Identifier) Identify(ctx context.Context, portID string) (string, error) {
	mode := &serial.Mode{
		BaudRate: i.config.BaudRate,
		DataBits: 8,
		StopBits: serial.OneStopBit,
		Parity:   serial.NoParity,
	}

	port, err := serial.Open(portID, mode)
	if err != nil {
		return "", classifyOpenError(portID, err)
	}

	conn := &conversation{
		port:   port,
		logger: i.logger.With(zap.String("port_id", portID)),
	}
	defer conn.close()

	// Closing the port from a watcher goroutine is the only reliable way to
	// unblock an in-progress read when the port disappears mid-attempt.
	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case <-ctx.Done():
			conn.close()
		case <-watchDone:
		}
	}()

	if err := conn.enterBootloader(); err != nil {
		return "", wrapCtx(ctx, err)
	}

	if err := conn.sync(ctx, i.config.SyncMax); err != nil {
		return "", wrapCtx(ctx, err)
	}

	low, err := conn.readReg(efuseMACLowReg)
	if err != nil {
		return "", wrapCtx(ctx, err)
	}
	high, err := conn.readReg(efuseMACHighReg)
	if err != nil {
		return "", wrapCtx(ctx, err)
	}

	mac := macFromEfuse(low, high)
	if mac == "" {
		return "", fmt.Errorf("%w: efuse MAC block empty", identify.ErrProtocol)
	}

	return mac, nil
}

// macFromEfuse assembles the six MAC bytes from the two efuse words,
// most significant byte first.
func macFromEfuse(low, high uint32) string {
	raw := []byte{
		byte(high >> 8), byte(high),
		byte(low >> 24), byte(low >> 16), byte(low >> 8), byte(low),
	}

	allZero := true
	for _, b := range raw {
		if b != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		return ""
	}

	return identify.FormatMAC(raw)
}

// conversation is one open bootloader session on a serial port.
type conversation struct {
	port    serial.Port
	logger  *zap.Logger
	mu      sync.Mutex
	closed  bool
}

func (c *conversation) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.port.Close()
}

// enterBootloader performs the classic DTR/RTS auto-reset dance: hold the
// chip in reset with IO0 released, then release reset with IO0 pulled low.
func (c *conversation) enterBootloader() error {
	if err := c.port.SetDTR(false); err != nil {
		return fmt.Errorf("%w: set DTR: %v", identify.ErrDisconnected, err)
	}
	if err := c.port.SetRTS(true); err != nil {
		return fmt.Errorf("%w: set RTS: %v", identify.ErrDisconnected, err)
	}
	time.Sleep(100 * time.Millisecond)

	if err := c.port.SetDTR(true); err != nil {
		return fmt.Errorf("%w: set DTR: %v", identify.ErrDisconnected, err)
	}
	if err := c.port.SetRTS(false); err != nil {
		return fmt.Errorf("%w: set RTS: %v", identify.ErrDisconnected, err)
	}
	time.Sleep(50 * time.Millisecond)

	if err := c.port.SetDTR(false); err != nil {
		return fmt.Errorf("%w: set DTR: %v", identify.ErrDisconnected, err)
	}

	c.port.ResetInputBuffer()
	return nil
}

// sync sends SYNC frames until the ROM answers or attempts run out.
func (c *conversation) sync(ctx context.Context, attempts int) error {
	payload := make([]byte, 36)
	copy(payload, []byte{0x07, 0x07, 0x12, 0x20})
	for i := 4; i < len(payload); i++ {
		payload[i] = 0x55
	}

	var lastErr error
	for n := 0; n < attempts; n++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		if _, err := c.command(opSync, payload, 500*time.Millisecond); err != nil {
			lastErr = err
			continue
		}
		c.port.ResetInputBuffer()
		return nil
	}

	return fmt.Errorf("%w: no sync reply after %d attempts: %v", identify.ErrTimeout, attempts, lastErr)
}

// readReg issues a READ_REG for addr and returns the register value.
func (c *conversation) readReg(addr uint32) (uint32, error) {
	payload := make([]byte, 4)
	binary.LittleEndian.PutUint32(payload, addr)

	value, err := c.command(opReadReg, payload, 3*time.Second)
	if err != nil {
		return 0, err
	}
	return value, nil
}

// command sends one SLIP-framed request and waits for the matching reply.
// The returned value is the 32-bit "value" field of the response header.
func (c *conversation) command(op byte, payload []byte, timeout time.Duration) (uint32, error) {
	req := make([]byte, 8+len(payload))
	req[0] = 0x00 // host → device
	req[1] = op
	binary.LittleEndian.PutUint16(req[2:], uint16(len(payload)))
	// Checksum field is only meaningful for data commands; zero here.
	copy(req[8:], payload)

	if _, err := c.port.Write(slipEncode(req)); err != nil {
		return 0, fmt.Errorf("%w: write: %v", identify.ErrDisconnected, err)
	}

	if err := c.port.SetReadTimeout(timeout); err != nil {
		return 0, fmt.Errorf("%w: set read timeout: %v", identify.ErrDisconnected, err)
	}

	deadline := time.Now().Add(timeout)
	for {
		if time.Now().After(deadline) {
			return 0, fmt.Errorf("%w: no reply to opcode 0x%02x", identify.ErrTimeout, op)
		}

		frame, err := c.readFrame(deadline)
		if err != nil {
			return 0, err
		}
		if len(frame) < 8 || frame[0] != 0x01 || frame[1] != op {
			// Boot chatter or a stale reply; keep reading.
			continue
		}

		value := binary.LittleEndian.Uint32(frame[4:8])

		// Trailing status bytes: first non-zero byte means failure.
		body := frame[8:]
		if len(body) >= 2 && body[len(body)-2] != 0 {
			return 0, fmt.Errorf("%w: opcode 0x%02x failed with status 0x%02x",
				identify.ErrProtocol, op, body[len(body)-1])
		}

		return value, nil
	}
}

// readFrame reads one SLIP frame (0xC0 ... 0xC0) from the port.
func (c *conversation) readFrame(deadline time.Time) ([]byte, error) {
	var (
		buf     []byte
		inFrame bool
		escaped bool
		one     = make([]byte, 1)
	)

	for {
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: frame read deadline exceeded", identify.ErrTimeout)
		}

		n, err := c.port.Read(one)
		if err != nil {
			return nil, fmt.Errorf("%w: read: %v", identify.ErrDisconnected, err)
		}
		if n == 0 {
			// Read timeout elapsed with no data.
			return nil, fmt.Errorf("%w: no data on port", identify.ErrTimeout)
		}

		b := one[0]
		switch {
		case b == 0xC0:
			if inFrame && len(buf) > 0 {
				return buf, nil
			}
			inFrame = true
			buf = buf[:0]
		case !inFrame:
			// Noise before frame start.
		case escaped:
			switch b {
			case 0xDC:
				buf = append(buf, 0xC0)
			case 0xDD:
				buf = append(buf, 0xDB)
			default:
				return nil, fmt.Errorf("%w: invalid SLIP escape 0x%02x", identify.ErrProtocol, b)
			}
			escaped = false
		case b == 0xDB:
			escaped = true
		default:
			buf = append(buf, b)
		}
	}
}

// slipEncode wraps a packet in SLIP framing with the two escape sequences.
func slipEncode(packet []byte) []byte {
	out := make([]byte, 0, len(packet)+2)
	out = append(out, 0xC0)
	for _, b := range packet {
		switch b {
		case 0xC0:
			out = append(out, 0xDB, 0xDC)
		case 0xDB:
			out = append(out, 0xDB, 0xDD)
		default:
			out = append(out, b)
		}
	}
	return append(out, 0xC0)
}

// classifyOpenError maps serial open failures onto the attempt taxonomy.
func classifyOpenError(portID string, err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "permission") || strings.Contains(msg, "denied") || strings.Contains(msg, "busy"):
		return fmt.Errorf("%w: open %s: %v", identify.ErrAccessDenied, portID, err)
	case strings.Contains(msg, "no such") || strings.Contains(msg, "not found") || strings.Contains(msg, "invalid"):
		return fmt.Errorf("%w: open %s: %v", identify.ErrDisconnected, portID, err)
	default:
		return fmt.Errorf("%w: open %s: %v", identify.ErrProtocol, portID, err)
	}
}

// wrapCtx prefers the cancellation cause over the I/O symptom it provoked.
func wrapCtx(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}
