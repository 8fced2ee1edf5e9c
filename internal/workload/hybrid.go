package workload

import (
	"bytes"
	"crypto/aes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"errors"
	"fmt"
	"math/big"

	"golang.org/x/crypto/openpgp/elgamal" //nolint:staticcheck // ElGamal is only available from the deprecated openpgp tree
)

const (
	sessionKeyBytes = 32
	sessionIVBytes  = aes.BlockSize
)

// keyWrapper encrypts the small key+IV blob of a hybrid scheme.
type keyWrapper interface {
	Wrap(secret []byte) ([]byte, error)
	Unwrap(wrapped []byte) ([]byte, error)
}

// hybrid encrypts the bulk plaintext with AES-256-CBC under a fresh session
// key per round and wraps key+IV with an asymmetric scheme. Both halves are
// timed together.
type hybrid struct {
	name       string
	newWrapper func() (keyWrapper, error)
}

func (h *hybrid) Name() string { return h.name }

// Prepare generates one asymmetric key pair per size so key generation does
// not dominate the round timings.
func (h *hybrid) Prepare(sizeBytes int) (RoundRunner, error) {
	wrapper, err := h.newWrapper()
	if err != nil {
		return nil, fmt.Errorf("%s key pair: %w", h.name, err)
	}

	plain := Plaintext(sizeBytes)

	return warmUp(func(int) (RoundSample, error) {
		secret := make([]byte, sessionKeyBytes+sessionIVBytes)
		if _, err := rand.Read(secret); err != nil {
			return RoundSample{}, fmt.Errorf("session key: %w", err)
		}

		var ct, wrapped, pt []byte

		encNs, err := timed(func() error {
			block, err := aes.NewCipher(secret[:sessionKeyBytes])
			if err != nil {
				return err
			}
			ct = cbcEncrypt(block, secret[sessionKeyBytes:], plain)
			wrapped, err = wrapper.Wrap(secret)
			return err
		})
		if err != nil {
			return RoundSample{}, fmt.Errorf("encrypt: %w", err)
		}

		decNs, err := timed(func() error {
			unwrapped, err := wrapper.Unwrap(wrapped)
			if err != nil {
				return err
			}
			if len(unwrapped) != len(secret) {
				return fmt.Errorf("unwrapped %d bytes, want %d", len(unwrapped), len(secret))
			}
			block, err := aes.NewCipher(unwrapped[:sessionKeyBytes])
			if err != nil {
				return err
			}
			pt, err = cbcDecrypt(block, unwrapped[sessionKeyBytes:], ct)
			return err
		})
		if err != nil {
			return RoundSample{}, fmt.Errorf("decrypt: %w", err)
		}
		if !bytes.Equal(pt, plain) {
			return RoundSample{}, ErrRoundTrip
		}

		return RoundSample{EncryptNs: encNs, DecryptNs: decNs}, nil
	})
}

// NewRSAHybrid returns AES-CBC bulk encryption with an RSA-OAEP-SHA256 key
// wrap using a fresh key of the given size per input size.
func NewRSAHybrid(bits int) Workload {
	return &hybrid{
		name: "rsa-hybrid",
		newWrapper: func() (keyWrapper, error) {
			priv, err := rsa.GenerateKey(rand.Reader, bits)
			if err != nil {
				return nil, err
			}
			return rsaWrapper{priv: priv}, nil
		},
	}
}

type rsaWrapper struct {
	priv *rsa.PrivateKey
}

func (w rsaWrapper) Wrap(secret []byte) ([]byte, error) {
	return rsa.EncryptOAEP(sha256.New(), rand.Reader, &w.priv.PublicKey, secret, nil)
}

func (w rsaWrapper) Unwrap(wrapped []byte) ([]byte, error) {
	return rsa.DecryptOAEP(sha256.New(), rand.Reader, w.priv, wrapped, nil)
}

// RFC 3526 group 14: 2048-bit MODP prime, generator 2.
const modp2048Hex = "FFFFFFFFFFFFFFFFC90FDAA22168C234C4C6628B80DC1CD1" +
	"29024E088A67CC74020BBEA63B139B22514A08798E3404DD" +
	"EF9519B3CD3A431B302B0A6DF25F14374FE1356D6D51C245" +
	"E485B576625E7EC6F44C42E9A637ED6B0BFF5CB6F406B7ED" +
	"EE386BFB5A899FA5AE9F24117C4B1FE649286651ECE45B3D" +
	"C2007CB8A163BF0598DA48361C55D39A69163FA8FD24CF5F" +
	"83655D23DCA3AD961C62F356208552BB9ED529077096966D" +
	"670C354E4ABC9804F1746C08CA18217C32905E462E36CE3B" +
	"E39E772C180E86039B2783A2EC07A28FB5C55DF06F4C52C9" +
	"DE2BCBF6955817183995497CEA956AE515D2261898FA0510" +
	"15728E5A8AACAA68FFFFFFFFFFFFFFFF"

var (
	modp2048P = mustHex(modp2048Hex)
	modp2048G = big.NewInt(2)
)

func mustHex(s string) *big.Int {
	n, ok := new(big.Int).SetString(s, 16)
	if !ok {
		panic("workload: bad hex constant")
	}
	return n
}

// NewElGamalHybrid returns AES-CBC bulk encryption with an ElGamal key wrap
// over the fixed RFC 3526 2048-bit group, one private exponent per size.
func NewElGamalHybrid() Workload {
	return &hybrid{
		name: "elgamal-hybrid",
		newWrapper: func() (keyWrapper, error) {
			// x in [1, p-2]
			limit := new(big.Int).Sub(modp2048P, big.NewInt(2))
			x, err := rand.Int(rand.Reader, limit)
			if err != nil {
				return nil, err
			}
			x.Add(x, big.NewInt(1))

			priv := &elgamal.PrivateKey{
				PublicKey: elgamal.PublicKey{
					G: modp2048G,
					P: modp2048P,
					Y: new(big.Int).Exp(modp2048G, x, modp2048P),
				},
				X: x,
			}
			return elgamalWrapper{priv: priv}, nil
		},
	}
}

var errShortElGamal = errors.New("elgamal ciphertext too short")

type elgamalWrapper struct {
	priv *elgamal.PrivateKey
}

// Wrap encodes (c1, c2) as two fixed-width big-endian integers.
func (w elgamalWrapper) Wrap(secret []byte) ([]byte, error) {
	c1, c2, err := elgamal.Encrypt(rand.Reader, &w.priv.PublicKey, secret)
	if err != nil {
		return nil, err
	}

	width := (w.priv.P.BitLen() + 7) / 8
	out := make([]byte, 2*width)
	c1.FillBytes(out[:width])
	c2.FillBytes(out[width:])
	return out, nil
}

func (w elgamalWrapper) Unwrap(wrapped []byte) ([]byte, error) {
	width := (w.priv.P.BitLen() + 7) / 8
	if len(wrapped) != 2*width {
		return nil, errShortElGamal
	}

	c1 := new(big.Int).SetBytes(wrapped[:width])
	c2 := new(big.Int).SetBytes(wrapped[width:])
	return elgamal.Decrypt(w.priv, c1, c2)
}
