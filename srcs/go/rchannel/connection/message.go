package connection

import (
	"errors"
	"fmt"
	"io"
)

// A frame on a connection is
//
//	nameLength uint32 | name | flags uint32 | length uint32 | data
//
// integers are little endian. The name of a collective message is the slot of its call.

const NoFlag uint32 = 0

// MaxNameLength bounds the name of a message.
const MaxNameLength = 1 << 10

var (
	errNameTooLong             = errors.New("message name too long")
	errUnexpectedMessageLength = errors.New("unexpected message length")
)

type MessageHeader struct {
	NameLength uint32
	Name       []byte
	Flags      uint32
}

func (h *MessageHeader) HasFlag(flag uint32) bool {
	return h.Flags&flag == flag
}

func (h *MessageHeader) appendTo(b []byte) []byte {
	b = endian.AppendUint32(b, h.NameLength)
	b = append(b, h.Name...)
	return endian.AppendUint32(b, h.Flags)
}

func (h *MessageHeader) WriteTo(w io.Writer) error {
	_, err := w.Write(h.appendTo(nil))
	return err
}

// ReadFrom reads the header into a new name buffer.
func (h *MessageHeader) ReadFrom(r io.Reader) error {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return err
	}
	h.NameLength = endian.Uint32(b[:])
	if h.NameLength > MaxNameLength {
		return fmt.Errorf("%w: %d", errNameTooLong, h.NameLength)
	}
	rest := make([]byte, h.NameLength+4)
	if _, err := io.ReadFull(r, rest); err != nil {
		return unexpectedEOF(err)
	}
	h.Name = rest[:h.NameLength]
	h.Flags = endian.Uint32(rest[h.NameLength:])
	return nil
}

func (h MessageHeader) String() string {
	return fmt.Sprintf("messageHeader{length=%d,name=%s}", h.NameLength, h.Name)
}

// Message is the payload that follows a MessageHeader.
type Message struct {
	Length uint32
	Data   []byte
}

func NewMessage(bs []byte) Message {
	return Message{Length: uint32(len(bs)), Data: bs}
}

func (m Message) WriteTo(w io.Writer) error {
	if _, err := w.Write(endian.AppendUint32(nil, m.Length)); err != nil {
		return err
	}
	return writeData(w, m.Data)
}

// writeData skips empty writes, they block on synchronous pipes.
func writeData(w io.Writer, bs []byte) error {
	if len(bs) == 0 {
		return nil
	}
	_, err := w.Write(bs)
	return err
}

func readLength(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, unexpectedEOF(err)
	}
	return endian.Uint32(b[:]), nil
}

// ReadFrom reads the message into a new buffer. The length comes from the stream,
// if limit > 0 longer messages are rejected before allocating.
func (m *Message) ReadFrom(r io.Reader, limit uint32) error {
	n, err := readLength(r)
	if err != nil {
		return err
	}
	if limit > 0 && n > limit {
		return fmt.Errorf("%w: %d > %d", errUnexpectedMessageLength, n, limit)
	}
	m.Length = n
	m.Data = make([]byte, n)
	_, err = io.ReadFull(r, m.Data)
	return unexpectedEOF(err)
}

// ReadInto reads the message into m.Data, the length on the stream must be m.Length.
func (m *Message) ReadInto(r io.Reader) error {
	n, err := readLength(r)
	if err != nil {
		return err
	}
	if n != m.Length {
		return fmt.Errorf("%w: got %d, want %d", errUnexpectedMessageLength, n, m.Length)
	}
	_, err = io.ReadFull(r, m.Data)
	return unexpectedEOF(err)
}

func (m Message) String() string {
	return fmt.Sprintf("message{length=%d}", m.Length)
}

// WriteFrame writes a named message, the header and length go out in a single write.
func WriteFrame(w io.Writer, name string, flags uint32, m Message) error {
	h := MessageHeader{NameLength: uint32(len(name)), Name: []byte(name), Flags: flags}
	b := h.appendTo(make([]byte, 0, len(name)+12))
	if _, err := w.Write(endian.AppendUint32(b, m.Length)); err != nil {
		return err
	}
	return writeData(w, m.Data)
}

// unexpectedEOF reports a stream closed in the middle of a frame.
func unexpectedEOF(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
