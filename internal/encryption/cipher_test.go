package encryption

import (
	"bytes"
	"encoding/hex"
	"testing"
)

func TestDeriveKey(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want string
	}{
		{
			name: "short passphrase space padded and duplicated",
			key:  "some_key",
			want: "736f6d655f6b657920202020736f6d655f6b657920202020",
		},
		{
			name: "empty passphrase",
			key:  "",
			want: "202020202020202020202020202020202020202020202020",
		},
		{
			name: "passphrase truncated at 12 bytes",
			key:  "0123456789abcdef",
			want: "303132333435363738396162303132333435363738396162",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := hex.EncodeToString(DeriveKey(tt.key)); got != tt.want {
				t.Errorf("DeriveKey(%q) = %s, want %s", tt.key, got, tt.want)
			}
		})
	}
}

// Reference vector from the Satel integration manual: an encrypted
// START_MONITORING PDU under the key "some_key".
func TestEncryptReferenceVector(t *testing.T) {
	c, err := NewCipher("some_key")
	if err != nil {
		t.Fatalf("NewCipher() error = %v", err)
	}

	plaintext := []byte{
		0x52, 0x3D, 0x00, 0x03, 0x00, 0x54, // PDU header
		0xFE, 0xFE, 0x7F, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF,
		0xFE, 0xF0, 0x8A, 0xFE, 0x0D,
	}
	want := []byte{
		0x43, 0xD8, 0x64, 0x30, 0x7E, 0x6B, 0x84, 0x31, 0xCD, 0x75,
		0x59, 0xCE, 0x2E, 0xF9, 0xD4, 0x1F, 0x26, 0x61, 0x5C, 0x2F,
	}

	got := c.Encrypt(plaintext)
	if !bytes.Equal(got, want) {
		t.Errorf("Encrypt() = %x, want %x", got, want)
	}

	back := c.Decrypt(got)
	if !bytes.Equal(back, plaintext) {
		t.Errorf("Decrypt(Encrypt()) = %x, want %x", back, plaintext)
	}
}

func TestCipherRoundTrip(t *testing.T) {
	c, err := NewCipher("integration")
	if err != nil {
		t.Fatalf("NewCipher() error = %v", err)
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"shorter than one block", []byte{0x01, 0x02, 0x03}},
		{"exactly one block", bytes.Repeat([]byte{0xAB}, 16)},
		{"one block plus partial", bytes.Repeat([]byte{0xCD}, 20)},
		{"two blocks plus partial", bytes.Repeat([]byte{0x5A}, 33)},
		{"empty input", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encrypted := c.Encrypt(tt.data)
			if len(encrypted) < blockLength {
				t.Fatalf("ciphertext length = %d, want at least %d", len(encrypted), blockLength)
			}

			decrypted := c.Decrypt(encrypted)

			// Input below one block is zero padded before encryption.
			want := tt.data
			if len(want) < blockLength {
				padded := make([]byte, blockLength)
				copy(padded, want)
				want = padded
			}
			if !bytes.Equal(decrypted, want) {
				t.Errorf("round trip = %x, want %x", decrypted, want)
			}
		})
	}
}
