package connection

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

func Test_connectionHeader(t *testing.T) {
	ch := connectionHeader{
		Type:    uint16(ConnCollective),
		SrcPort: 9999,
		SrcIPv4: 0x7f080808,
		Token:   GroupToken("group"),
	}
	b := &bytes.Buffer{}
	if err := ch.WriteTo(b); err != nil {
		t.Errorf("failed to write connection header: %v", err)
	}
	if b.Len() != connectionHeaderSize {
		t.Errorf("connection header takes %d bytes", b.Len())
	}
	if b.Bytes()[0] != byte(ConnCollective) || b.Bytes()[2] != 0x0f || b.Bytes()[3] != 0x27 {
		t.Errorf("connection header is not little endian: %x", b.Bytes())
	}
	var ch2 connectionHeader
	if err := ch2.ReadFrom(b); err != nil {
		t.Errorf("failed to read connection header: %v", err)
	}
	if ch != ch2 {
		t.Errorf("connection header content not match: %#v", ch2)
	}
}

func Test_connectionACK(t *testing.T) {
	b := &bytes.Buffer{}
	connectionACK{Token: 0xdeadbeef}.WriteTo(b)
	var ack connectionACK
	if err := ack.ReadFrom(b); err != nil || ack.Token != 0xdeadbeef {
		t.Errorf("unexpected ack %x: %v", ack.Token, err)
	}
	if err := ack.ReadFrom(bytes.NewReader([]byte{1, 2})); err == nil {
		t.Errorf("short ack should fail")
	}
}

func Test_WriteFrame(t *testing.T) {
	b := &bytes.Buffer{}
	if err := WriteFrame(b, "gather#7", 3, NewMessage([]byte("123456"))); err != nil {
		t.Fatalf("WriteFrame failed: %v", err)
	}
	if want := 4 + 8 + 4 + 4 + 6; b.Len() != want {
		t.Errorf("frame takes %d bytes, want %d", b.Len(), want)
	}
	var mh MessageHeader
	if err := mh.ReadFrom(b); err != nil {
		t.Fatalf("MessageHeader::ReadFrom failed: %v", err)
	}
	if string(mh.Name) != "gather#7" || !mh.HasFlag(3) {
		t.Errorf("unexpected header %s flags=%d", mh, mh.Flags)
	}
	var m Message
	if err := m.ReadFrom(b, 0); err != nil {
		t.Fatalf("Message::ReadFrom failed: %v", err)
	}
	if m.Length != 6 || string(m.Data) != "123456" {
		t.Errorf("unexpected message %s: %q", m, m.Data)
	}
}

func Test_Message_limit(t *testing.T) {
	b := &bytes.Buffer{}
	NewMessage(make([]byte, 100)).WriteTo(b)
	var m Message
	if err := m.ReadFrom(b, 10); !errors.Is(err, errUnexpectedMessageLength) {
		t.Errorf("expect %v, got %v", errUnexpectedMessageLength, err)
	}
}

func Test_Message_ReadInto(t *testing.T) {
	b := &bytes.Buffer{}
	NewMessage([]byte("abcd")).WriteTo(b)
	NewMessage([]byte("abc")).WriteTo(b)

	m := NewMessage(make([]byte, 4))
	if err := m.ReadInto(b); err != nil {
		t.Errorf("Message::ReadInto failed: %v", err)
	}
	if string(m.Data) != "abcd" {
		t.Errorf("Message::ReadInto unexpected data %q", m.Data)
	}
	if err := m.ReadInto(b); !errors.Is(err, errUnexpectedMessageLength) {
		t.Errorf("expect %v, got %v", errUnexpectedMessageLength, err)
	}
}

func Test_Message_truncated(t *testing.T) {
	b := &bytes.Buffer{}
	NewMessage([]byte("abcd")).WriteTo(b)
	r := bytes.NewReader(b.Bytes()[:6])
	var m Message
	if err := m.ReadFrom(r, 0); err != io.ErrUnexpectedEOF {
		t.Errorf("expect %v, got %v", io.ErrUnexpectedEOF, err)
	}
}

func Test_long_Message(t *testing.T) {
	b := &bytes.Buffer{}
	payload := strings.Repeat("01234567", 2<<20)
	if err := NewMessage([]byte(payload)).WriteTo(b); err != nil {
		t.Errorf("Message::WriteTo failed: %v", err)
	}
	var m Message
	if err := m.ReadFrom(b, 0); err != nil {
		t.Errorf("Message::ReadFrom failed: %v", err)
	}
	if int(m.Length) != len(payload) {
		t.Errorf("Message::ReadFrom unexpected data")
	}
}

func Test_messageHeader_name_too_long(t *testing.T) {
	b := &bytes.Buffer{}
	bs := make([]byte, MaxNameLength+1)
	h := MessageHeader{NameLength: uint32(len(bs)), Name: bs}
	h.WriteTo(b)
	var h2 MessageHeader
	if err := h2.ReadFrom(b); !errors.Is(err, errNameTooLong) {
		t.Errorf("expect %v, got %v", errNameTooLong, err)
	}
}

func Test_ConnType(t *testing.T) {
	if ConnCollective.String() != "Collective" || ConnType(9).String() != "ConnType(9)" {
		t.Errorf("unexpected names %s %s", ConnCollective, ConnType(9))
	}
}

func Test_GroupToken(t *testing.T) {
	if GroupToken("a") != GroupToken("a") {
		t.Errorf("GroupToken is not deterministic")
	}
	if GroupToken("a") == GroupToken("b") {
		t.Errorf("GroupToken collides on different groups")
	}
}
