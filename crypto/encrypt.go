package crypto

import (
	"bytes"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
)

const (
	// Maximum size of each encrypted chunk of data. NaCl is recommended for
	// encrypting "small" messages, so large payloads are split into 16KB chunks.
	chunkSize = 16 * 1024 // 16KB
	nonceSize = 24
)

// ErrDecrypt is returned when a ciphertext can't be authenticated, either
// because the key is wrong or the data was modified.
var ErrDecrypt = errors.New("failed decrypting data")

// EncryptSym performs symmetric encryption of the plaintext data using NaCl
// secretbox (XSalsa20 and Poly1305). Each chunk is prefixed by its random nonce.
func EncryptSym(plaintext io.Reader, secretKey *[32]byte) (io.Reader, error) {
	var (
		buf = make([]byte, chunkSize)
		out = &bytes.Buffer{}
	)

	for {
		n, err := io.ReadFull(plaintext, buf)
		if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
			return nil, err
		}
		if n == 0 {
			break
		}

		nonce, err := generateNonce()
		if err != nil {
			return nil, fmt.Errorf("failed generating nonce: %w", err)
		}

		out.Write(secretbox.Seal(nonce[:], buf[:n], nonce, secretKey))

		if n < chunkSize {
			break
		}
	}

	return out, nil
}

// DecryptSym reverses EncryptSym.
func DecryptSym(ciphertext io.Reader, secretKey *[32]byte) (io.Reader, error) {
	var (
		buf = make([]byte, nonceSize+chunkSize+secretbox.Overhead)
		out = &bytes.Buffer{}
	)

	for {
		n, err := io.ReadFull(ciphertext, buf)
		if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("failed reading payload from buffer: %w", err)
		}
		if n == 0 {
			break
		}
		if n < nonceSize+secretbox.Overhead {
			return nil, fmt.Errorf("%w: truncated chunk", ErrDecrypt)
		}

		var nonce [nonceSize]byte
		copy(nonce[:], buf[:nonceSize])

		decrypted, ok := secretbox.Open(nil, buf[nonceSize:n], &nonce, secretKey)
		if !ok {
			return nil, ErrDecrypt
		}
		out.Write(decrypted)

		if n < len(buf) {
			break
		}
	}

	return out, nil
}

// EncryptSymInMemory is a convenience wrapper of EncryptSym for byte slices.
func EncryptSymInMemory(plaintext []byte, secretKey *[32]byte) ([]byte, error) {
	r, err := EncryptSym(bytes.NewReader(plaintext), secretKey)
	if err != nil {
		return nil, err
	}
	return io.ReadAll(r)
}

// DecryptSymInMemory is a convenience wrapper of DecryptSym for byte slices.
func DecryptSymInMemory(ciphertext []byte, secretKey *[32]byte) ([]byte, error) {
	r, err := DecryptSym(bytes.NewReader(ciphertext), secretKey)
	if err != nil {
		return nil, err
	}
	return io.ReadAll(r)
}

func generateNonce() (*[nonceSize]byte, error) {
	nonce := new([nonceSize]byte)
	_, err := io.ReadFull(rand.Reader, nonce[:])
	if err != nil {
		return nil, err
	}

	return nonce, nil
}
