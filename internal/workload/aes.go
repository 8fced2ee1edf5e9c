package workload

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

var errBadPadding = errors.New("invalid PKCS#7 padding")

// AESCBC is AES-256-CBC with PKCS#7 padding and a blank IV. The key is
// derived once per size with PBKDF2-HMAC-SHA256.
type AESCBC struct {
	Password   string
	Iterations int
	KeyBytes   int
}

// NewAESCBC returns an AES-CBC workload with a 256-bit key and 1000 PBKDF2 iterations.
func NewAESCBC() *AESCBC {
	return &AESCBC{
		Password:   "test-password",
		Iterations: 1000,
		KeyBytes:   32,
	}
}

func (*AESCBC) Name() string { return "aes-cbc" }

func (w *AESCBC) Prepare(sizeBytes int) (RoundRunner, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}

	key := pbkdf2.Key([]byte(w.Password), salt, w.Iterations, w.KeyBytes, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes key: %w", err)
	}

	plain := Plaintext(sizeBytes)
	iv := make([]byte, aes.BlockSize)

	return warmUp(func(int) (RoundSample, error) {
		var ct, pt []byte

		encNs, _ := timed(func() error {
			ct = cbcEncrypt(block, iv, plain)
			return nil
		})
		decNs, err := timed(func() (err error) {
			pt, err = cbcDecrypt(block, iv, ct)
			return err
		})
		if err != nil {
			return RoundSample{}, err
		}
		if !bytes.Equal(pt, plain) {
			return RoundSample{}, ErrRoundTrip
		}

		return RoundSample{EncryptNs: encNs, DecryptNs: decNs}, nil
	})
}

// AESGCM is AES-256-GCM with a fixed key and a random nonce per encryption,
// prefixed to the ciphertext.
type AESGCM struct {
	Key []byte
}

// NewAESGCM returns an AES-GCM workload keyed with 32 bytes of 0x11.
func NewAESGCM() *AESGCM {
	return &AESGCM{Key: bytes.Repeat([]byte{0x11}, 32)}
}

func (*AESGCM) Name() string { return "aes-gcm" }

func (w *AESGCM) Prepare(sizeBytes int) (RoundRunner, error) {
	block, err := aes.NewCipher(w.Key)
	if err != nil {
		return nil, fmt.Errorf("aes key: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("gcm: %w", err)
	}

	plain := Plaintext(sizeBytes)
	ns := aead.NonceSize()

	return warmUp(func(int) (RoundSample, error) {
		var ct, pt []byte

		encNs, err := timed(func() error {
			nonce := make([]byte, ns, ns+len(plain)+aead.Overhead())
			if _, err := rand.Read(nonce); err != nil {
				return err
			}
			ct = aead.Seal(nonce, nonce, plain, nil)
			return nil
		})
		if err != nil {
			return RoundSample{}, fmt.Errorf("encrypt: %w", err)
		}

		decNs, err := timed(func() (err error) {
			pt, err = aead.Open(nil, ct[:ns], ct[ns:], nil)
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

func cbcEncrypt(block cipher.Block, iv, plain []byte) []byte {
	padded := pkcs7Pad(plain, block.BlockSize())
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
	return out
}

func cbcDecrypt(block cipher.Block, iv, ct []byte) ([]byte, error) {
	if len(ct) == 0 || len(ct)%block.BlockSize() != 0 {
		return nil, fmt.Errorf("ciphertext length %d is not a multiple of the block size", len(ct))
	}
	out := make([]byte, len(ct))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, ct)
	return pkcs7Unpad(out, block.BlockSize())
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	out := make([]byte, len(data), len(data)+n)
	copy(out, data)
	return append(out, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 {
		return nil, errBadPadding
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, errBadPadding
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, errBadPadding
		}
	}
	return data[:len(data)-n], nil
}
