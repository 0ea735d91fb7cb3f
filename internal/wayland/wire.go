package wayland

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	// HeaderLen is the size of the fixed message header: sender id, then size<<16|opcode.
	HeaderLen = 8
	// MaxMessageLen is the largest message the protocol can describe (16-bit size).
	MaxMessageLen = 4096
)

var (
	ErrShortMessage    = errors.New("wayland: short message")
	ErrMessageTooLarge = errors.New("wayland: message too large")
	ErrBadSize         = errors.New("wayland: invalid message size")
	ErrTruncated       = errors.New("wayland: truncated argument")
)

// Wayland uses the host byte order on the wire.
var order = binary.NativeEndian

// ObjectID identifies a protocol object on one connection. 0 is the null object.
type ObjectID uint32

// firstServerID is the start of the id range allocated by the compositor.
const firstServerID ObjectID = 0xff000000

// IsServer reports whether id was allocated by the compositor.
func (id ObjectID) IsServer() bool {
	return id >= firstServerID
}

// Message is one complete wire message.
type Message struct {
	Sender ObjectID
	Opcode uint16
	Args   []byte
}

// Decoder returns a Decoder over the message arguments.
func (m Message) Decoder() *Decoder {
	return &Decoder{buf: m.Args}
}

func ReadMessage(r io.Reader) (Message, error) {
	var hdr [HeaderLen]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return Message{}, ErrShortMessage
		}
		return Message{}, err
	}

	sender := ObjectID(order.Uint32(hdr[0:4]))
	word := order.Uint32(hdr[4:8])
	size := int(word >> 16)
	opcode := uint16(word & 0xffff)

	if size < HeaderLen || size%4 != 0 {
		return Message{}, fmt.Errorf("%w: %d", ErrBadSize, size)
	}

	args := make([]byte, size-HeaderLen)
	if len(args) > 0 {
		if _, err := io.ReadFull(r, args); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return Message{}, ErrShortMessage
			}
			return Message{}, err
		}
	}

	return Message{Sender: sender, Opcode: opcode, Args: args}, nil
}

func WriteMessage(w io.Writer, m Message) error {
	size := HeaderLen + len(m.Args)
	if size > MaxMessageLen {
		return ErrMessageTooLarge
	}
	if len(m.Args)%4 != 0 {
		return fmt.Errorf("%w: unaligned arguments (%d bytes)", ErrBadSize, len(m.Args))
	}

	buf := make([]byte, size)
	order.PutUint32(buf[0:4], uint32(m.Sender))
	order.PutUint32(buf[4:8], uint32(size)<<16|uint32(m.Opcode))
	copy(buf[HeaderLen:], m.Args)
	_, err := w.Write(buf)
	return err
}

// Encoder appends request arguments in wire format.
type Encoder struct {
	buf []byte
}

func (e *Encoder) Bytes() []byte {
	return e.buf
}

func (e *Encoder) Uint(v uint32) *Encoder {
	e.buf = order.AppendUint32(e.buf, v)
	return e
}

func (e *Encoder) Object(id ObjectID) *Encoder {
	return e.Uint(uint32(id))
}

// NewID is an alias of Object kept for readability at call sites.
func (e *Encoder) NewID(id ObjectID) *Encoder {
	return e.Uint(uint32(id))
}

func (e *Encoder) String(s string) *Encoder {
	e.Uint(uint32(len(s) + 1))
	e.buf = append(e.buf, s...)
	e.buf = append(e.buf, 0)
	e.pad()
	return e
}

// NullString writes the null string.
func (e *Encoder) NullString() *Encoder {
	return e.Uint(0)
}

func (e *Encoder) Array(b []byte) *Encoder {
	e.Uint(uint32(len(b)))
	e.buf = append(e.buf, b...)
	e.pad()
	return e
}

// Uint32Array writes a wl_array of 32-bit words.
func (e *Encoder) Uint32Array(words []uint32) *Encoder {
	b := make([]byte, 0, 4*len(words))
	for _, w := range words {
		b = order.AppendUint32(b, w)
	}
	return e.Array(b)
}

func (e *Encoder) pad() {
	for len(e.buf)%4 != 0 {
		e.buf = append(e.buf, 0)
	}
}

// Decoder reads event arguments. The first error sticks; later reads return zero values.
type Decoder struct {
	buf []byte
	off int
	err error
}

func (d *Decoder) Err() error {
	return d.err
}

func (d *Decoder) take(n int) []byte {
	if d.err != nil {
		return nil
	}
	if n < 0 || len(d.buf)-d.off < n {
		d.err = ErrTruncated
		return nil
	}
	b := d.buf[d.off : d.off+n]
	d.off += n
	return b
}

func (d *Decoder) Uint() uint32 {
	b := d.take(4)
	if b == nil {
		return 0
	}
	return order.Uint32(b)
}

func (d *Decoder) Object() ObjectID {
	return ObjectID(d.Uint())
}

func (d *Decoder) NewID() ObjectID {
	return ObjectID(d.Uint())
}

// String reads a string argument; ok is false for the null string.
func (d *Decoder) String() (s string, ok bool) {
	n := int(d.Uint())
	if d.err != nil || n == 0 {
		return "", false
	}
	b := d.take(padded(n))
	if b == nil {
		return "", false
	}
	if b[n-1] != 0 {
		d.err = fmt.Errorf("%w: string not NUL terminated", ErrTruncated)
		return "", false
	}
	return string(b[:n-1]), true
}

// OptString reads a nullable string argument.
func (d *Decoder) OptString() *string {
	s, ok := d.String()
	if !ok {
		return nil
	}
	return &s
}

func (d *Decoder) Array() []byte {
	n := int(d.Uint())
	if d.err != nil {
		return nil
	}
	b := d.take(padded(n))
	if b == nil {
		return nil
	}
	return b[:n]
}

// Uint32Array reads a wl_array of 32-bit words.
func (d *Decoder) Uint32Array() []uint32 {
	b := d.Array()
	out := make([]uint32, 0, len(b)/4)
	for i := 0; i+4 <= len(b); i += 4 {
		out = append(out, order.Uint32(b[i:i+4]))
	}
	return out
}

func padded(n int) int {
	return (n + 3) &^ 3
}
