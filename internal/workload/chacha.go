package workload

import (
	"bytes"
	"fmt"

	"golang.org/x/crypto/chacha20"
)

// ChaCha20 is the IETF ChaCha20 stream cipher (96-bit nonce) with a fixed key
// and nonce. The nonce is reused across rounds; this is a benchmark, not a
// confidentiality scheme.
type ChaCha20 struct {
	Key   []byte
	Nonce []byte
}

// NewChaCha20 returns a ChaCha20 workload with key 0x22.. and nonce 0x33...
func NewChaCha20() *ChaCha20 {
	return &ChaCha20{
		Key:   bytes.Repeat([]byte{0x22}, chacha20.KeySize),
		Nonce: bytes.Repeat([]byte{0x33}, chacha20.NonceSize),
	}
}

func (*ChaCha20) Name() string { return "chacha20" }

func (w *ChaCha20) Prepare(sizeBytes int) (RoundRunner, error) {
	if _, err := chacha20.NewUnauthenticatedCipher(w.Key, w.Nonce); err != nil {
		return nil, fmt.Errorf("chacha20 key: %w", err)
	}

	plain := Plaintext(sizeBytes)

	xor := func(dst, src []byte) error {
		c, err := chacha20.NewUnauthenticatedCipher(w.Key, w.Nonce)
		if err != nil {
			return err
		}
		c.XORKeyStream(dst, src)
		return nil
	}

	return warmUp(func(int) (RoundSample, error) {
		ct := make([]byte, len(plain))
		pt := make([]byte, len(plain))

		encNs, err := timed(func() error { return xor(ct, plain) })
		if err != nil {
			return RoundSample{}, fmt.Errorf("encrypt: %w", err)
		}
		decNs, err := timed(func() error { return xor(pt, ct) })
		if err != nil {
			return RoundSample{}, fmt.Errorf("decrypt: %w", err)
		}
		if !bytes.Equal(pt, plain) {
			return RoundSample{}, ErrRoundTrip
		}

		return RoundSample{EncryptNs: encNs, DecryptNs: decNs}, nil
	})
}
