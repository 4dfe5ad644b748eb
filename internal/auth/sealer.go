// internal/auth/sealer.go
package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"runtime"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// ErrInvalidSealed indicates that a sealed value is not in the expected format.
var ErrInvalidSealed = errors.New("the sealed value is not in the correct format")

// ErrIncompatibleVersion indicates that the Argon2 version is incompatible.
var ErrIncompatibleVersion = errors.New("incompatible version of argon2")

// ErrWrongKey indicates the value was sealed with a different passphrase or was tampered with.
var ErrWrongKey = errors.New("sealed value could not be opened with this key")

// Params holds the Argon2id key derivation parameters.
type Params struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
}

// DefaultParams is the key derivation cost used for newly sealed values.
var DefaultParams = Params{
	Memory:      64 * 1024,
	Iterations:  3,
	Parallelism: uint8(max(1, runtime.NumCPU()/2)),
	SaltLength:  16,
}

// Sealer encrypts small secrets (session tokens) at rest under a passphrase.
//
// Every value gets its own salt, so the key is derived on each Seal and Open.
// The output is self-describing:
//
//	$argon2id$v=19$m=65536,t=3,p=4$<salt>$<nonce||ciphertext>
type Sealer struct {
	passphrase []byte
	params     Params
}

func NewSealer(passphrase string, p Params) (*Sealer, error) {
	if passphrase == "" {
		return nil, errors.New("sealer passphrase must not be empty")
	}
	if p.Memory == 0 || p.Iterations == 0 || p.Parallelism == 0 || p.SaltLength == 0 {
		return nil, fmt.Errorf("invalid argon2 params %+v", p)
	}
	return &Sealer{passphrase: []byte(passphrase), params: p}, nil
}

func generateRandomBytes(n uint32) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	return b, err
}

func (s *Sealer) key(salt []byte, p Params) []byte {
	return argon2.IDKey(s.passphrase, salt, p.Iterations, p.Memory, p.Parallelism, chacha20poly1305.KeySize)
}

// Seal encrypts plaintext and returns the encoded form.
func (s *Sealer) Seal(plaintext string) (string, error) {
	salt, err := generateRandomBytes(s.params.SaltLength)
	if err != nil {
		return "", err
	}
	aead, err := chacha20poly1305.NewX(s.key(salt, s.params))
	if err != nil {
		return "", err
	}
	nonce, err := generateRandomBytes(chacha20poly1305.NonceSizeX)
	if err != nil {
		return "", err
	}
	sealed := aead.Seal(nonce, nonce, []byte(plaintext), nil)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, s.params.Memory, s.params.Iterations, s.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(sealed)), nil
}

// Open reverses Seal. The parameters recorded in the value are used, so
// values sealed under older params still open.
func (s *Sealer) Open(encoded string) (string, error) {
	p, salt, sealed, err := decodeSealed(encoded)
	if err != nil {
		return "", err
	}
	if len(sealed) < chacha20poly1305.NonceSizeX+chacha20poly1305.Overhead {
		return "", ErrInvalidSealed
	}
	aead, err := chacha20poly1305.NewX(s.key(salt, *p))
	if err != nil {
		return "", err
	}
	nonce, ct := sealed[:chacha20poly1305.NonceSizeX], sealed[chacha20poly1305.NonceSizeX:]
	plain, err := aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return "", ErrWrongKey
	}
	return string(plain), nil
}

// IsSealed reports whether v looks like the output of Seal.
func IsSealed(v string) bool {
	return strings.HasPrefix(v, "$argon2id$")
}

func decodeSealed(encoded string) (*Params, []byte, []byte, error) {
	vals := strings.Split(encoded, "$")
	if len(vals) != 6 || vals[1] != "argon2id" {
		return nil, nil, nil, ErrInvalidSealed
	}

	var version int
	if _, err := fmt.Sscanf(vals[2], "v=%d", &version); err != nil {
		return nil, nil, nil, ErrInvalidSealed
	}
	if version != argon2.Version {
		return nil, nil, nil, ErrIncompatibleVersion
	}

	p := &Params{}
	if _, err := fmt.Sscanf(vals[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Iterations, &p.Parallelism); err != nil {
		return nil, nil, nil, ErrInvalidSealed
	}

	salt, err := base64.RawStdEncoding.Strict().DecodeString(vals[4])
	if err != nil {
		return nil, nil, nil, ErrInvalidSealed
	}
	p.SaltLength = uint32(len(salt))

	sealed, err := base64.RawStdEncoding.Strict().DecodeString(vals[5])
	if err != nil {
		return nil, nil, nil, ErrInvalidSealed
	}
	return p, salt, sealed, nil
}
