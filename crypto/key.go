package crypto

import (
	"crypto/rand"
	"fmt"
	"io"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/blake2b"
)

// NewKey generates a random 32-byte secret key.
func NewKey() (*[32]byte, error) {
	key := new([32]byte)
	if _, err := io.ReadFull(rand.Reader, key[:]); err != nil {
		return nil, fmt.Errorf("failed generating key: %w", err)
	}
	return key, nil
}

// EncodeKey returns the base58 representation of key.
func EncodeKey(key *[32]byte) string {
	return base58.Encode(key[:])
}

// DecodeKey decodes and validates a base58 encoded encryption key.
func DecodeKey(keyEnc string) (*[32]byte, error) {
	keyDec, err := base58.Decode(keyEnc)
	if err != nil {
		return nil, err
	}
	if len(keyDec) != 32 {
		return nil, fmt.Errorf("expected key length of 32; got %d", len(keyDec))
	}

	var key [32]byte
	copy(key[:], keyDec)

	return &key, nil
}

// Hash returns the BLAKE2b-256 digest of data, domain separated by context.
func Hash(context string, data []byte) []byte {
	h, _ := blake2b.New256(nil)
	h.Write([]byte(context))
	h.Write([]byte{0})
	h.Write(data)
	return h.Sum(nil)
}
