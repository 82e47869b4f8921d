package session

import (
	"crypto/cipher"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
)

// Codec names accepted by NewCodec.
const (
	CodecXOR  = "xor"
	CodecAEAD = "aead"
)

// Codec encodes credential fields before they reach durable storage.
type Codec interface {
	Encode(plain string) (string, error)
	Decode(encoded string) (string, error)
}

// NewCodec builds the named codec around the hex key kept in the volatile
// namespace.
func NewCodec(name, hexKey string, random io.Reader) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", CodecXOR:
		return XORCodec{Key: hexKey}, nil
	case CodecAEAD:
		return NewAEADCodec(hexKey, random)
	default:
		return nil, fmt.Errorf("unsupported credential codec: %s", name)
	}
}

// XORCodec XORs the value with a repeating key and base64-encodes the result.
//
// This is obfuscation only. Anyone holding both namespaces can reverse it, and
// it provides no integrity. Use AEADCodec when confidentiality matters.
type XORCodec struct {
	Key string
}

func (c XORCodec) Encode(plain string) (string, error) {
	return base64.StdEncoding.EncodeToString(xorBytes([]byte(plain), []byte(c.Key))), nil
}

func (c XORCodec) Decode(encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decode credential: %w", err)
	}
	return string(xorBytes(raw, []byte(c.Key))), nil
}

func xorBytes(data, key []byte) []byte {
	out := make([]byte, len(data))
	if len(key) == 0 {
		copy(out, data)
		return out
	}
	for i := range data {
		out[i] = data[i] ^ key[i%len(key)]
	}
	return out
}

// AEADCodec seals values with XChaCha20-Poly1305. The nonce is prepended to
// the ciphertext before base64 encoding.
type AEADCodec struct {
	aead   cipher.AEAD
	random io.Reader
}

// NewAEADCodec derives the cipher from a 64-character hex key.
func NewAEADCodec(hexKey string, random io.Reader) (*AEADCodec, error) {
	key, err := hex.DecodeString(strings.TrimSpace(hexKey))
	if err != nil {
		return nil, fmt.Errorf("decode codec key: %w", err)
	}
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("codec key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("init codec: %w", err)
	}
	return &AEADCodec{aead: aead, random: random}, nil
}

func (c *AEADCodec) Encode(plain string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(plain)+c.aead.Overhead())
	if _, err := io.ReadFull(c.reader(), nonce); err != nil {
		return "", fmt.Errorf("read nonce: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plain), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (c *AEADCodec) Decode(encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decode credential: %w", err)
	}
	if len(raw) < c.aead.NonceSize() {
		return "", errors.New("decode credential: ciphertext too short")
	}
	nonce, ciphertext := raw[:c.aead.NonceSize()], raw[c.aead.NonceSize():]
	plain, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("open credential: %w", err)
	}
	return string(plain), nil
}

func (c *AEADCodec) reader() io.Reader {
	if c.random != nil {
		return c.random
	}
	return cryptoReader
}
