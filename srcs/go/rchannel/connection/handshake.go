package connection

import (
	"encoding/binary"
	"io"
)

var endian = binary.LittleEndian

// connectionHeader is sent by the client once per connection.
type connectionHeader struct {
	Type    uint16
	SrcPort uint16
	SrcIPv4 uint32
	Token   uint32
}

const connectionHeaderSize = 12

func (h connectionHeader) WriteTo(w io.Writer) error {
	var b [connectionHeaderSize]byte
	endian.PutUint16(b[0:], h.Type)
	endian.PutUint16(b[2:], h.SrcPort)
	endian.PutUint32(b[4:], h.SrcIPv4)
	endian.PutUint32(b[8:], h.Token)
	_, err := w.Write(b[:])
	return err
}

func (h *connectionHeader) ReadFrom(r io.Reader) error {
	var b [connectionHeaderSize]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return err
	}
	h.Type = endian.Uint16(b[0:])
	h.SrcPort = endian.Uint16(b[2:])
	h.SrcIPv4 = endian.Uint32(b[4:])
	h.Token = endian.Uint32(b[8:])
	return nil
}

// connectionACK is the reply of the server, it carries the token of the server's group.
type connectionACK struct {
	Token uint32
}

func (a connectionACK) WriteTo(w io.Writer) error {
	var b [4]byte
	endian.PutUint32(b[:], a.Token)
	_, err := w.Write(b[:])
	return err
}

func (a *connectionACK) ReadFrom(r io.Reader) error {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return err
	}
	a.Token = endian.Uint32(b[:])
	return nil
}
