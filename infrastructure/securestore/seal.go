package securestore

import (
	"crypto/rand"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/nacl/secretbox"
)

// sealSalt is the fixed application salt for key derivation. Uniqueness of
// ciphertexts comes from the per-value nonce, not the salt.
var sealSalt = []byte("citypulse.securestore.v1")

// sealer encrypts values before they reach disk using a secretbox key
// derived from the configured secret.
type sealer struct {
	key [32]byte
}

func newSealer(secret string) *sealer {
	s := &sealer{}
	derived := argon2.IDKey([]byte(secret), sealSalt, 1, 64*1024, 4, 32)
	copy(s.key[:], derived)
	return s
}

// seal encrypts plaintext, prepending the random nonce.
func (s *sealer) seal(plaintext []byte) ([]byte, error) {
	var nonce [24]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return secretbox.Seal(nonce[:], plaintext, &nonce, &s.key), nil
}

// open decrypts a sealed value produced by seal.
func (s *sealer) open(sealed []byte) ([]byte, error) {
	if len(sealed) < 24 {
		return nil, fmt.Errorf("sealed value too short")
	}
	var nonce [24]byte
	copy(nonce[:], sealed[:24])
	plaintext, ok := secretbox.Open(nil, sealed[24:], &nonce, &s.key)
	if !ok {
		return nil, fmt.Errorf("sealed value failed to open")
	}
	return plaintext, nil
}
