package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"errors"

	"golang.org/x/crypto/chacha20poly1305"
)

var ErrKeyTooShort = errors.New("secret key too short")

// Seal encrypts plaintext with XChaCha20-Poly1305 under the 32-byte key and
// returns base64(nonce||ciphertext). Used for IC numbers at rest.
func Seal(key []byte, plaintext string) (string, error) {
	if len(key) < chacha20poly1305.KeySize {
		return "", ErrKeyTooShort
	}
	aead, err := chacha20poly1305.NewX(key[:chacha20poly1305.KeySize])
	if err != nil {
		return "", err
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	ct := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.RawStdEncoding.EncodeToString(ct), nil
}

// Open reverses Seal.
func Open(key []byte, b64 string) (string, error) {
	if len(key) < chacha20poly1305.KeySize {
		return "", ErrKeyTooShort
	}
	aead, err := chacha20poly1305.NewX(key[:chacha20poly1305.KeySize])
	if err != nil {
		return "", err
	}
	blob, err := base64.RawStdEncoding.DecodeString(b64)
	if err != nil {
		return "", err
	}
	if len(blob) < chacha20poly1305.NonceSizeX {
		return "", errors.New("ciphertext too short")
	}
	nonce, ct := blob[:chacha20poly1305.NonceSizeX], blob[chacha20poly1305.NonceSizeX:]
	pt, err := aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return "", err
	}
	return string(pt), nil
}
