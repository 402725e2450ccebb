package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
)

// blockLength is the AES block size used throughout the chained mode.
const blockLength = 16

const (
	integrationKeyLength = 12
	derivedKeyLength     = 24
	keyPadding           = 0x20
)

// Cipher encrypts and decrypts PDUs with Satel's chained block mode.
//
// The mode is not a standard CBC/CFB: full blocks are XORed with a chain
// value and block-encrypted, with the resulting ciphertext becoming the
// next chain value; a trailing short block instead advances the chain
// value by encrypting it and XORs the plaintext against it, stream-cipher
// style. The initial chain value is the encryption of an all-zero block.
type Cipher struct {
	block cipher.Block
}

// NewCipher derives the AES key from the integration passphrase and
// returns a ready cipher.
func NewCipher(integrationKey string) (*Cipher, error) {
	block, err := aes.NewCipher(DeriveKey(integrationKey))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cipher: %w", err)
	}
	return &Cipher{block: block}, nil
}

// DeriveKey converts an integration passphrase into 24 bytes of AES key
// material: the ASCII passphrase space-padded to 12 bytes, duplicated.
func DeriveKey(integrationKey string) []byte {
	raw := []byte(integrationKey)
	key := make([]byte, derivedKeyLength)
	for i := 0; i < integrationKeyLength; i++ {
		b := byte(keyPadding)
		if i < len(raw) {
			b = raw[i]
		}
		key[i] = b
		key[i+integrationKeyLength] = b
	}
	return key
}

// Encrypt applies the chained block mode to data. Input shorter than one
// block is zero-padded to a full block first; longer input keeps its
// exact length, with any trailing partial block encrypted in the
// stream-cipher branch.
func (c *Cipher) Encrypt(data []byte) []byte {
	if len(data) < blockLength {
		padded := make([]byte, blockLength)
		copy(padded, data)
		data = padded
	}

	out := make([]byte, 0, len(data))
	cv := make([]byte, blockLength)
	c.block.Encrypt(cv, cv)

	for off := 0; off < len(data); off += blockLength {
		end := off + blockLength
		if end > len(data) {
			end = len(data)
		}
		chunk := data[off:end]

		if len(chunk) == blockLength {
			p := make([]byte, blockLength)
			xorBytes(p, chunk, cv)
			c.block.Encrypt(p, p)
			cv = p
			out = append(out, p...)
		} else {
			c.block.Encrypt(cv, cv)
			p := make([]byte, len(chunk))
			xorBytes(p, chunk, cv)
			out = append(out, p...)
		}
	}
	return out
}

// Decrypt is the inverse of Encrypt.
func (c *Cipher) Decrypt(data []byte) []byte {
	out := make([]byte, 0, len(data))
	cv := make([]byte, blockLength)
	c.block.Encrypt(cv, cv)

	for off := 0; off < len(data); off += blockLength {
		end := off + blockLength
		if end > len(data) {
			end = len(data)
		}
		chunk := data[off:end]

		if len(chunk) == blockLength {
			p := make([]byte, blockLength)
			c.block.Decrypt(p, chunk)
			xorBytes(p, p, cv)
			cv = append([]byte(nil), chunk...)
			out = append(out, p...)
		} else {
			c.block.Encrypt(cv, cv)
			p := make([]byte, len(chunk))
			xorBytes(p, chunk, cv)
			out = append(out, p...)
		}
	}
	return out
}

func xorBytes(dst, a, b []byte) {
	for i := range dst {
		dst[i] = a[i] ^ b[i]
	}
}
