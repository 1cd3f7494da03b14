package led

import (
	"encoding/binary"
	"hash/crc32"
	"io"

	"github.com/pkg/errors"
	"go.bug.st/serial"
)

// Serial wire format, little-endian: preamble byte, packet type, uint16
// pixel count, payload, crc32(payload). The microcontroller on the far
// end resynchronizes on the preamble after a bad checksum.
const (
	serialPreamble byte = 0xA5

	packetInit  byte = 0x01
	packetFrame byte = 0x02
)

var serialEndian = binary.LittleEndian

// Serial streams frames to a microcontroller-attached strip over a
// serial port. The device owns the WS281x timing; this side only frames
// bytes.
type Serial struct {
	w     io.WriteCloser
	count int
}

var _ Driver = (*Serial)(nil)

// NewSerial opens device at the given baud rate and sends the init
// packet announcing the pixel count.
func NewSerial(device string, baud, count int) (*Serial, error) {
	if count <= 0 || count > 0xFFFF {
		return nil, errors.Errorf("led: invalid pixel count %d", count)
	}
	port, err := serial.Open(device, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, errors.Wrapf(err, "led: open serial port %s", device)
	}
	s := &Serial{w: port, count: count}
	if err := s.writePacket(packetInit, nil); err != nil {
		_ = port.Close()
		return nil, errors.Wrap(err, "led: initialize strip")
	}
	return s, nil
}

// newSerialWriter wires the protocol onto any writer; tests use a
// buffer here.
func newSerialWriter(w io.WriteCloser, count int) *Serial {
	return &Serial{w: w, count: count}
}

// Write implements Driver.
func (s *Serial) Write(rgb []byte) error {
	if len(rgb) != s.count*3 {
		return errors.Errorf("led: frame size %d, want %d", len(rgb), s.count*3)
	}
	return s.writePacket(packetFrame, rgb)
}

// Close implements Driver.
func (s *Serial) Close() error { return s.w.Close() }

func (s *Serial) writePacket(typ byte, payload []byte) error {
	buf := make([]byte, 0, 8+len(payload))
	buf = append(buf, serialPreamble, typ)
	buf = serialEndian.AppendUint16(buf, uint16(s.count))
	buf = append(buf, payload...)
	buf = serialEndian.AppendUint32(buf, crc32.ChecksumIEEE(payload))
	_, err := s.w.Write(buf)
	return errors.Wrap(err, "led: serial write")
}
