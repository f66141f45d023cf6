// Package cryptox holds the server's symmetric crypto: per-user key
// derivation and the AES-GCM field cipher used for messages at rest.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"errors"
	"io"
	"strconv"

	"github.com/dmitrijs2005/webmail/internal/common"
	"golang.org/x/crypto/hkdf"
)

// KeySize is the length of derived per-user keys (AES-256).
const KeySize = 32

const keyInfoPrefix = "webmail-field-key/"

var errShortCiphertext = errors.New("ciphertext too short")

// DeriveUserKey derives the per-user field key from the server secret.
// The same secret and user id always produce the same key.
func DeriveUserKey(secret []byte, userID int64) ([]byte, error) {
	info := []byte(keyInfoPrefix + strconv.FormatInt(userID, 10))
	r := hkdf.New(sha256.New, secret, nil, info)

	key := make([]byte, KeySize)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, err
	}
	return key, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// seal encrypts plaintext and returns nonce || ciphertext.
func seal(aead cipher.AEAD, plaintext []byte) []byte {
	nonce := common.GenerateRandByteArray(aead.NonceSize())
	return aead.Seal(nonce, nonce, plaintext, nil)
}

// open reverses seal.
func open(aead cipher.AEAD, data []byte) ([]byte, error) {
	ns := aead.NonceSize()
	if len(data) < ns+aead.Overhead() {
		return nil, errShortCiphertext
	}
	return aead.Open(nil, data[:ns], data[ns:], nil)
}
