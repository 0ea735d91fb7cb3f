package wayland

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadWriteMessage(t *testing.T) {
	args := new(Encoder).Uint(7).String("org.gtk.Menus").NullString().Uint32Array([]uint32{0, 2})
	in := Message{Sender: 0xff000001, Opcode: 9, Args: args.Bytes()}

	var buf bytes.Buffer
	require.NoError(t, WriteMessage(&buf, in))
	assert.Equal(t, HeaderLen+len(args.Bytes()), buf.Len())

	out, err := ReadMessage(&buf)
	require.NoError(t, err)
	assert.Equal(t, in.Sender, out.Sender)
	assert.Equal(t, in.Opcode, out.Opcode)

	d := out.Decoder()
	assert.Equal(t, uint32(7), d.Uint())
	s, ok := d.String()
	assert.True(t, ok)
	assert.Equal(t, "org.gtk.Menus", s)
	assert.Nil(t, d.OptString())
	assert.Equal(t, []uint32{0, 2}, d.Uint32Array())
	assert.NoError(t, d.Err())
}

func TestStringPadding(t *testing.T) {
	tests := []struct {
		in   string
		size int
	}{
		{"", 8},      // length word + NUL padded to 4
		{"abc", 8},   // 3 + NUL fits exactly
		{"abcd", 12}, // 4 + NUL needs a second word
		{"/menu", 12},
	}
	for _, tt := range tests {
		e := new(Encoder).String(tt.in)
		assert.Len(t, e.Bytes(), tt.size, "string %q", tt.in)

		d := &Decoder{buf: e.Bytes()}
		got, ok := d.String()
		assert.True(t, ok)
		assert.Equal(t, tt.in, got)
		assert.NoError(t, d.Err())
	}
}

func TestEmptyStringIsNotNull(t *testing.T) {
	d := &Decoder{buf: new(Encoder).String("").Bytes()}
	s := d.OptString()
	require.NotNil(t, s)
	assert.Equal(t, "", *s)
}

func TestReadMessageShortHeader(t *testing.T) {
	_, err := ReadMessage(bytes.NewReader([]byte{1, 2, 3}))
	assert.ErrorIs(t, err, ErrShortMessage)
}

func TestReadMessageBadSize(t *testing.T) {
	hdr := make([]byte, HeaderLen)
	order.PutUint32(hdr[0:4], 1)
	order.PutUint32(hdr[4:8], 4<<16)
	_, err := ReadMessage(bytes.NewReader(hdr))
	assert.ErrorIs(t, err, ErrBadSize)

	order.PutUint32(hdr[4:8], 10<<16)
	_, err = ReadMessage(bytes.NewReader(hdr))
	assert.ErrorIs(t, err, ErrBadSize)
}

func TestReadMessageTruncatedBody(t *testing.T) {
	hdr := make([]byte, HeaderLen)
	order.PutUint32(hdr[0:4], 1)
	order.PutUint32(hdr[4:8], 16<<16)
	_, err := ReadMessage(bytes.NewReader(append(hdr, 0, 0, 0, 0)))
	assert.ErrorIs(t, err, ErrShortMessage)
}

func TestWriteMessageTooLarge(t *testing.T) {
	err := WriteMessage(&bytes.Buffer{}, Message{Sender: 1, Args: make([]byte, MaxMessageLen)})
	assert.ErrorIs(t, err, ErrMessageTooLarge)
}

func TestDecoderTruncated(t *testing.T) {
	d := &Decoder{buf: []byte{1, 0}}
	assert.Equal(t, uint32(0), d.Uint())
	assert.ErrorIs(t, d.Err(), ErrTruncated)

	// string claims more bytes than present
	d = &Decoder{buf: new(Encoder).Uint(32).Bytes()}
	_, ok := d.String()
	assert.False(t, ok)
	assert.ErrorIs(t, d.Err(), ErrTruncated)
}

func TestDecoderRejectsUnterminatedString(t *testing.T) {
	b := new(Encoder).Uint(4).Bytes()
	b = append(b, 'a', 'b', 'c', 'd')
	d := &Decoder{buf: b}
	_, ok := d.String()
	assert.False(t, ok)
	assert.Error(t, d.Err())
}

func TestObjectIDRanges(t *testing.T) {
	assert.False(t, ObjectID(2).IsServer())
	assert.True(t, ObjectID(0xff000000).IsServer())
}
