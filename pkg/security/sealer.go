package security

import (
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/talentbridge/talentbridge-backend/pkg/config"
)

// sealVersion prefixes every sealed blob so the format can be rotated.
const sealVersion byte = 1

// ErrInvalidSealed signals a blob that was not produced by Seal or was tampered with.
var ErrInvalidSealed = errors.New("invalid sealed payload")

// ArgonParams captures the Argon2id parameters used to derive the sealing key.
type ArgonParams struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
}

// Sealer encrypts small secrets (withdrawal payment details) at rest with
// XChaCha20-Poly1305 under a key derived from the configured secret.
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer derives the key once; derivation is deliberately slow.
func NewSealer(cfg config.SealingConfig) (*Sealer, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("sealing secret cannot be empty")
	}
	params := paramsFromConfig(cfg)
	key := argon2.IDKey([]byte(cfg.Secret), []byte(cfg.Salt), params.Time, params.Memory, params.Parallelism, chacha20poly1305.KeySize)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("init aead: %w", err)
	}
	return &Sealer{aead: aead}, nil
}

// Seal returns version || nonce || ciphertext. Empty input seals to nil.
func (s *Sealer) Seal(plaintext []byte) ([]byte, error) {
	if len(plaintext) == 0 {
		return nil, nil
	}
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	out := make([]byte, 0, 1+len(nonce)+len(plaintext)+s.aead.Overhead())
	out = append(out, sealVersion)
	out = append(out, nonce...)
	return s.aead.Seal(out, nonce, plaintext, []byte{sealVersion}), nil
}

// Open reverses Seal.
func (s *Sealer) Open(sealed []byte) ([]byte, error) {
	if len(sealed) == 0 {
		return nil, nil
	}
	nonceSize := s.aead.NonceSize()
	if len(sealed) < 1+nonceSize+s.aead.Overhead() || sealed[0] != sealVersion {
		return nil, ErrInvalidSealed
	}
	nonce := sealed[1 : 1+nonceSize]
	plaintext, err := s.aead.Open(nil, nonce, sealed[1+nonceSize:], []byte{sealVersion})
	if err != nil {
		return nil, ErrInvalidSealed
	}
	return plaintext, nil
}

func paramsFromConfig(cfg config.SealingConfig) ArgonParams {
	threads := clampInt(cfg.ArgonParallelism, 1, 255)
	return ArgonParams{
		Memory:      clampUint32(cfg.ArgonMemoryKB, 8, 512*1024),
		Time:        clampUint32(cfg.ArgonTime, 1, 10),
		Parallelism: uint8(threads),
	}
}

func clampInt(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

func clampUint32(value, min, max int) uint32 {
	return uint32(clampInt(value, min, max))
}
