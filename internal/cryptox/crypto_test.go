package cryptox

import (
	"bytes"
	"testing"
)

func TestDeriveUserKey_Deterministic(t *testing.T) {
	secret := []byte("server-secret")

	key1, err := DeriveUserKey(secret, 42)
	if err != nil {
		t.Fatalf("DeriveUserKey error: %v", err)
	}
	key2, _ := DeriveUserKey(secret, 42)

	if !bytes.Equal(key1, key2) {
		t.Errorf("expected same key for same inputs")
	}
	if len(key1) != KeySize {
		t.Errorf("expected %d byte key, got %d", KeySize, len(key1))
	}
}

func TestDeriveUserKey_DifferentInputs(t *testing.T) {
	k1, _ := DeriveUserKey([]byte("server-secret"), 1)
	k2, _ := DeriveUserKey([]byte("server-secret"), 2)
	k3, _ := DeriveUserKey([]byte("other-secret"), 1)

	if bytes.Equal(k1, k2) {
		t.Errorf("different users must get different keys")
	}
	if bytes.Equal(k1, k3) {
		t.Errorf("different secrets must give different keys")
	}
}

func TestSealOpen_RoundTripAndTamper(t *testing.T) {
	key, _ := DeriveUserKey([]byte("s"), 1)
	a, err := newGCM(key)
	if err != nil {
		t.Fatalf("newGCM error: %v", err)
	}

	data := seal(a, []byte("payload"))
	got, err := open(a, data)
	if err != nil || string(got) != "payload" {
		t.Fatalf("round trip failed: %q, %v", got, err)
	}

	data[len(data)-1] ^= 0xff
	if _, err := open(a, data); err == nil {
		t.Fatalf("expected authentication failure on tampered data")
	}

	if _, err := open(a, []byte{1, 2, 3}); err != errShortCiphertext {
		t.Fatalf("expected errShortCiphertext, got %v", err)
	}
}
