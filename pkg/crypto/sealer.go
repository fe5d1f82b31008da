package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

var (
	ErrPassphraseRequired = errors.New("passphrase is required")
	ErrInvalidSealed      = errors.New("invalid sealed value")
	ErrUnsealFailed       = errors.New("unseal failed: wrong passphrase or tampered value")
)

// KDFParams are the argon2id key-derivation costs.
//
// @ref https://cheatsheetseries.owasp.org/cheatsheets/Password_Storage_Cheat_Sheet.html
type KDFParams struct {
	Memory      uint32 // KiB
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
}

func DefaultKDFParams() KDFParams {
	return KDFParams{
		Memory:      64 * 1024, // 64 MB
		Iterations:  3,
		Parallelism: 2,
		SaltLength:  16,
	}
}

// Sealer encrypts small values (the persisted credential) at rest with a
// key derived from a passphrase.
//
// Sealed format:
//
//	$argon2id$v=19$m=65536,t=3,p=2$<salt>$<nonce+ciphertext>
//
// The KDF parameters travel with the value so they can be raised without
// breaking older files.
type Sealer struct {
	passphrase []byte
	params     KDFParams
}

func NewSealer(passphrase string, params KDFParams) (*Sealer, error) {
	if passphrase == "" {
		return nil, ErrPassphraseRequired
	}
	if params == (KDFParams{}) {
		params = DefaultKDFParams()
	}
	return &Sealer{passphrase: []byte(passphrase), params: params}, nil
}

func (s *Sealer) deriveKey(salt []byte, p KDFParams) []byte {
	return argon2.IDKey(s.passphrase, salt, p.Iterations, p.Memory, p.Parallelism, chacha20poly1305.KeySize)
}

func (s *Sealer) Seal(plaintext string) (string, error) {
	salt := make([]byte, s.params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	aead, err := chacha20poly1305.New(s.deriveKey(salt, s.params))
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	box := aead.Seal(nonce, nonce, []byte(plaintext), nil)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		s.params.Memory,
		s.params.Iterations,
		s.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(box)), nil
}

func (s *Sealer) Unseal(sealed string) (string, error) {
	params, salt, box, err := decodeSealed(sealed)
	if err != nil {
		return "", err
	}

	aead, err := chacha20poly1305.New(s.deriveKey(salt, params))
	if err != nil {
		return "", err
	}
	if len(box) < aead.NonceSize()+aead.Overhead() {
		return "", ErrInvalidSealed
	}

	nonce, ciphertext := box[:aead.NonceSize()], box[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrUnsealFailed
	}
	return string(plaintext), nil
}

// IsSealed reports whether v looks like Seal output.
func IsSealed(v string) bool {
	return strings.HasPrefix(v, "$argon2id$")
}

func decodeSealed(sealed string) (KDFParams, []byte, []byte, error) {
	var params KDFParams

	parts := strings.Split(sealed, "$")
	if len(parts) != 6 || parts[0] != "" {
		return params, nil, nil, ErrInvalidSealed
	}
	if parts[1] != "argon2id" {
		return params, nil, nil, fmt.Errorf("%w: unsupported algorithm %q", ErrInvalidSealed, parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return params, nil, nil, fmt.Errorf("%w: version: %v", ErrInvalidSealed, err)
	}
	if version != argon2.Version {
		return params, nil, nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidSealed, version)
	}

	var p int
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.Memory, &params.Iterations, &p); err != nil {
		return params, nil, nil, fmt.Errorf("%w: parameters: %v", ErrInvalidSealed, err)
	}
	if p <= 0 || p > 255 || params.Iterations == 0 {
		return params, nil, nil, fmt.Errorf("%w: parameters out of range", ErrInvalidSealed)
	}
	params.Parallelism = uint8(p)

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return params, nil, nil, fmt.Errorf("%w: salt: %v", ErrInvalidSealed, err)
	}
	params.SaltLength = uint32(len(salt))

	box, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return params, nil, nil, fmt.Errorf("%w: payload: %v", ErrInvalidSealed, err)
	}

	return params, salt, box, nil
}
