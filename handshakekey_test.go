package ws

import (
	"encoding/base64"
	"testing"
)

func TestNewHandshakeKeyShape(t *testing.T) {
	key, err := newHandshakeKey()
	if err != nil {
		t.Fatalf("newHandshakeKey: %v", err)
	}
	raw, err := base64.StdEncoding.DecodeString(key)
	if err != nil {
		t.Fatalf("key %q is not valid base64: %v", key, err)
	}
	if len(raw) != nonceKeySize {
		t.Fatalf("decoded key length = %d; want %d", len(raw), nonceKeySize)
	}
}

// TestExpectedAccept checks the RFC6455 §1.3 worked example: the key
// "dGhlIHNhbXBsZSBub25jZQ==" must hash to
// "s3pPLMBiTxaQ9kYGzzhZRbK+xOo=".
func TestExpectedAccept(t *testing.T) {
	const key = "dGhlIHNhbXBsZSBub25jZQ=="
	const want = "s3pPLMBiTxaQ9kYGzzhZRbK+xOo="

	if got := expectedAccept(key); got != want {
		t.Fatalf("expectedAccept(%q) = %q; want %q", key, got, want)
	}
}

func TestCheckAccept(t *testing.T) {
	const key = "dGhlIHNhbXBsZSBub25jZQ=="

	if !checkAccept("s3pPLMBiTxaQ9kYGzzhZRbK+xOo=", key) {
		t.Fatal("checkAccept rejected the correct accept value")
	}
	if checkAccept("not-the-right-value", key) {
		t.Fatal("checkAccept accepted a wrong value")
	}
}
