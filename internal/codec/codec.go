// Package codec implements the on-disk obfuscation used for the bank
// snapshot and settings files: a keyed repeating-xor over the plaintext
// followed by base64 encoding. The transformation is deliberately
// reversible and NOT cryptographically secure; it only keeps the stored
// form from being casually readable.
package codec

import (
	"encoding/base64"
	"fmt"
)

// derivedKeyLen is the fixed length of the xor key derived from a passphrase.
const derivedKeyLen = 32

// deriveKey repeats the passphrase until it covers derivedKeyLen bytes,
// then truncates. The passphrase must be non-empty.
func deriveKey(passphrase string) []byte {
	key := make([]byte, 0, derivedKeyLen)
	for len(key) < derivedKeyLen {
		key = append(key, passphrase...)
	}
	return key[:derivedKeyLen]
}

// xorBytes xors data in place against the derived key, cycling.
func xorBytes(data, key []byte) {
	for i := range data {
		data[i] ^= key[i%len(key)]
	}
}

// Encrypt obfuscates plaintext with the given passphrase and returns the
// base64-encoded result. Deterministic: the same input always yields the
// same output.
func Encrypt(plaintext []byte, passphrase string) (string, error) {
	if passphrase == "" {
		return "", ErrEmptyKey
	}

	buf := make([]byte, len(plaintext))
	copy(buf, plaintext)
	xorBytes(buf, deriveKey(passphrase))

	return base64.StdEncoding.EncodeToString(buf), nil
}

// Decrypt reverses Encrypt. An empty ciphertext decodes to an empty
// plaintext without error.
func Decrypt(ciphertext string, passphrase string) ([]byte, error) {
	if passphrase == "" {
		return nil, ErrEmptyKey
	}

	buf, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("codec: invalid base64 payload: %w", err)
	}

	xorBytes(buf, deriveKey(passphrase))
	return buf, nil
}
