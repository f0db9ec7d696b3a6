package ws

import "crypto/rand"

// Cipher applies the RFC6455 §5.3 XOR masking algorithm to payload in
// place, using mask. The same algorithm both masks and unmasks, since XOR
// is its own inverse.
func Cipher(payload, mask []byte, offset int) {
	if len(mask) != 4 {
		return
	}
	for i := range payload {
		payload[i] ^= mask[(offset+i)%4]
	}
}

// NewMask draws a fresh 4-byte masking key from a cryptographically secure
// random source.
//
// RFC6455 §10.3 requires clients to choose a new masking key per frame using
// an algorithm that cannot be predicted by applications; math/rand (the
// teacher's original source) does not meet that bar, so this reads from
// crypto/rand instead.
func NewMask() (mask [4]byte) {
	if _, err := rand.Read(mask[:]); err != nil {
		panic("ws: failed to read from crypto/rand: " + err.Error())
	}
	return mask
}
