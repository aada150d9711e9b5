package connection

import (
	"encoding/binary"

	"golang.org/x/crypto/blake2b"
)

// GroupToken derives the handshake token of a group, peers of different groups refuse each other.
func GroupToken(group string) uint32 {
	sum := blake2b.Sum256([]byte(group))
	return binary.LittleEndian.Uint32(sum[:4])
}
