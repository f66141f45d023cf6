package cryptox

import (
	"crypto/cipher"
	"encoding/base64"
	"errors"
	"sync"

	"github.com/dmitrijs2005/webmail/internal/common"
)

// Minimum decoded length of a field ciphertext: 12-byte nonce, 16-byte tag
// and at least one byte of payload (empty strings are never encrypted).
const minCiphertextLen = 12 + 16 + 1

// FallbackFunc is told about ciphertexts that looked valid but failed to
// open under the user's key.
type FallbackFunc func(userID int64, err error)

type FieldCipherOption func(*FieldCipher)

// WithFallbackObserver registers fn for decrypt fallbacks.
func WithFallbackObserver(fn FallbackFunc) FieldCipherOption {
	return func(c *FieldCipher) { c.onFallback = fn }
}

// FieldCipher encrypts individual text fields with a key derived from the
// server secret and the owning user's id. Output is base64(nonce||sealed).
type FieldCipher struct {
	secret     []byte
	onFallback FallbackFunc

	mu    sync.RWMutex
	aeads map[int64]cipher.AEAD
}

func NewFieldCipher(secret []byte, opts ...FieldCipherOption) (*FieldCipher, error) {
	if len(secret) == 0 {
		return nil, errors.New("field cipher secret is empty")
	}
	c := &FieldCipher{
		secret: append([]byte(nil), secret...),
		aeads:  make(map[int64]cipher.AEAD),
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

func (c *FieldCipher) aead(userID int64) (cipher.AEAD, error) {
	c.mu.RLock()
	a, ok := c.aeads[userID]
	c.mu.RUnlock()
	if ok {
		return a, nil
	}

	key, err := DeriveUserKey(c.secret, userID)
	if err != nil {
		return nil, err
	}
	// the cipher keeps its own expanded copy
	defer common.WipeByteArray(key)
	a, err = newGCM(key)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.aeads[userID] = a
	c.mu.Unlock()
	return a, nil
}

// Encrypt returns the ciphertext of plaintext for userID. Empty input stays
// empty.
func (c *FieldCipher) Encrypt(plaintext string, userID int64) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	a, err := c.aead(userID)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(seal(a, []byte(plaintext))), nil
}

// Decrypt never fails: values that are not ciphertext are returned as they
// are, and so are ciphertexts that do not open under the user's key.
func (c *FieldCipher) Decrypt(ciphertext string, userID int64) string {
	pt, _ := c.TryDecrypt(ciphertext, userID)
	return pt
}

// TryDecrypt is Decrypt that also reports whether s really was a ciphertext
// for userID.
func (c *FieldCipher) TryDecrypt(s string, userID int64) (string, bool) {
	raw, ok := decodeCandidate(s)
	if !ok {
		return s, false
	}

	a, err := c.aead(userID)
	if err == nil {
		var pt []byte
		if pt, err = open(a, raw); err == nil {
			return string(pt), true
		}
	}

	if c.onFallback != nil {
		c.onFallback(userID, err)
	}
	return s, false
}

// LooksEncrypted reports whether s has the shape of a field ciphertext.
func LooksEncrypted(s string) bool {
	_, ok := decodeCandidate(s)
	return ok
}

func decodeCandidate(s string) ([]byte, bool) {
	if base64.StdEncoding.EncodedLen(minCiphertextLen) > len(s) {
		return nil, false
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil || len(raw) < minCiphertextLen {
		return nil, false
	}
	return raw, true
}
