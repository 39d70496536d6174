package kv

import "encoding"

// Value is a typed value that can be saved in a Store. Its storage key must
// be stable and unique per type, and its encoding deterministic.
type Value interface {
	StorageKey() string
	encoding.BinaryMarshaler
}

// Pointer constrains PT to be *T, where *T can be both saved and decoded.
type Pointer[T any] interface {
	*T
	Value
	encoding.BinaryUnmarshaler
}

// Blob is a raw value stored under an arbitrary key.
type Blob struct {
	Key  string
	Data []byte
}

var (
	_ Value                      = Blob{}
	_ encoding.BinaryUnmarshaler = &Blob{}
)

func (b Blob) StorageKey() string {
	return b.Key
}

func (b Blob) MarshalBinary() ([]byte, error) {
	return b.Data, nil
}

func (b *Blob) UnmarshalBinary(data []byte) error {
	b.Data = append(b.Data[:0], data...)
	return nil
}
