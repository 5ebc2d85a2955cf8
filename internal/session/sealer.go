package session

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"
)

const sealedPrefix = "sealed:v1:"

const (
	saltSize  = 16
	nonceSize = 24
	keySize   = 32
)

var ErrSealedEntry = errors.New("session: cannot open sealed entry")

// Sealer protects entry values at rest.
type Sealer interface {
	Seal(plain string) (string, error)
	Open(stored string) (string, error)
}

// PlainSealer stores values unchanged.
type PlainSealer struct{}

func (PlainSealer) Seal(plain string) (string, error) { return plain, nil }

func (PlainSealer) Open(stored string) (string, error) {
	if strings.HasPrefix(stored, sealedPrefix) {
		return "", fmt.Errorf("%w: no passphrase configured", ErrSealedEntry)
	}
	return stored, nil
}

// PassphraseSealer encrypts values with NaCl secretbox under a key derived
// from the passphrase with scrypt. Each value gets its own salt and nonce.
// Values written before a passphrase was configured are read back as-is.
type PassphraseSealer struct {
	passphrase []byte
}

func NewPassphraseSealer(passphrase string) *PassphraseSealer {
	return &PassphraseSealer{passphrase: []byte(passphrase)}
}

// NewSealer picks PassphraseSealer when a passphrase is set.
func NewSealer(passphrase string) Sealer {
	if passphrase == "" {
		return PlainSealer{}
	}
	return NewPassphraseSealer(passphrase)
}

func (s *PassphraseSealer) key(salt []byte) (*[keySize]byte, error) {
	derived, err := scrypt.Key(s.passphrase, salt, 1<<15, 8, 1, keySize)
	if err != nil {
		return nil, err
	}
	var key [keySize]byte
	copy(key[:], derived)
	return &key, nil
}

func (s *PassphraseSealer) Seal(plain string) (string, error) {
	buf := make([]byte, saltSize+nonceSize)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", err
	}
	salt := buf[:saltSize]
	var nonce [nonceSize]byte
	copy(nonce[:], buf[saltSize:])

	key, err := s.key(salt)
	if err != nil {
		return "", err
	}

	out := secretbox.Seal(buf, []byte(plain), &nonce, key)
	return sealedPrefix + base64.RawStdEncoding.EncodeToString(out), nil
}

func (s *PassphraseSealer) Open(stored string) (string, error) {
	if !strings.HasPrefix(stored, sealedPrefix) {
		return stored, nil
	}
	raw, err := base64.RawStdEncoding.DecodeString(strings.TrimPrefix(stored, sealedPrefix))
	if err != nil || len(raw) < saltSize+nonceSize+secretbox.Overhead {
		return "", ErrSealedEntry
	}

	salt := raw[:saltSize]
	var nonce [nonceSize]byte
	copy(nonce[:], raw[saltSize:saltSize+nonceSize])

	key, err := s.key(salt)
	if err != nil {
		return "", err
	}

	plain, ok := secretbox.Open(nil, raw[saltSize+nonceSize:], &nonce, key)
	if !ok {
		return "", ErrSealedEntry
	}
	return string(plain), nil
}
