// Copyright 2026 The Warble Authors
// SPDX-License-Identifier: Apache-2.0

package keyvault

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"golang.org/x/crypto/ssh"

	"github.com/warble-foundation/warble/lib/atomicfile"
	"github.com/warble-foundation/warble/lib/secret"
)

// MinimumBits is the smallest RSA modulus LoadOrCreate will generate.
const MinimumBits = 2048

const (
	pemTypePKCS1 = "RSA PRIVATE KEY"
	pemTypePKCS8 = "PRIVATE KEY"
)

// State is the lifecycle state of a key path.
type State int

const (
	// Unkeyed means no key file exists yet.
	Unkeyed State = iota
	// Keyed means a key file exists. Whether it parses is only known
	// once it is loaded.
	Keyed
)

func (s State) String() string {
	switch s {
	case Unkeyed:
		return "unkeyed"
	case Keyed:
		return "keyed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// KeyPair is a loaded or freshly generated node key.
type KeyPair struct {
	// Private is the RSA private key. Its public half is Private.PublicKey.
	Private *rsa.PrivateKey

	// Path is the file the key was loaded from or written to.
	Path string

	// Generated is true when this call created the key file.
	Generated bool

	// Fingerprint is the OpenSSH SHA256 fingerprint of the public key.
	Fingerprint string
}

// Public returns the public half of the key pair.
func (k *KeyPair) Public() *rsa.PublicKey {
	return &k.Private.PublicKey
}

// Bits returns the modulus size in bits.
func (k *KeyPair) Bits() int {
	return k.Private.N.BitLen()
}

// Probe reports the state of path. A path that cannot be examined
// (for example a parent directory without search permission) yields an
// ErrKeyUnreadable error.
func Probe(path string) (State, error) {
	_, err := os.Stat(path)
	switch {
	case err == nil:
		return Keyed, nil
	case errors.Is(err, fs.ErrNotExist):
		return Unkeyed, nil
	default:
		return Unkeyed, keyError(path, ErrKeyUnreadable, err)
	}
}

// LoadOrCreate returns the key stored at path, generating and storing a
// new bits-sized key when the file does not exist.
//
// An existing file is never modified. Generation happens under an
// exclusive lock on the key's directory; if another process created the
// key while this one waited for the lock, that key is loaded instead.
func LoadOrCreate(path string, bits int) (*KeyPair, error) {
	if bits < MinimumBits {
		return nil, fmt.Errorf("RSA key size %d is below the minimum of %d bits", bits, MinimumBits)
	}

	state, err := Probe(path)
	if err != nil {
		return nil, err
	}
	if state == Keyed {
		return load(path)
	}
	return create(path, bits)
}

// readKey is a variable so tests can fail the locked-memory step.
var readKey = secret.ReadFile

func load(path string) (*KeyPair, error) {
	buffer, err := readKey(path)
	if err != nil {
		var pathErr *fs.PathError
		switch {
		case errors.Is(err, secret.ErrEmpty):
			return nil, keyError(path, ErrKeyCorrupt, err)
		case errors.As(err, &pathErr):
			return nil, keyError(path, ErrKeyUnreadable, err)
		default:
			return nil, keyError(path, ErrKeyMemory, err)
		}
	}
	defer buffer.Close()

	key, err := ParsePrivateKey(buffer.Bytes())
	if err != nil {
		return nil, keyError(path, ErrKeyCorrupt, err)
	}
	return newKeyPair(path, key, false)
}

func create(path string, bits int) (*KeyPair, error) {
	lock, err := atomicfile.Acquire(path)
	if err != nil {
		return nil, keyError(path, ErrKeyWriteError, err)
	}
	defer lock.Release()

	// Another first start may have stored a key while we waited.
	state, err := Probe(path)
	if err != nil {
		return nil, err
	}
	if state == Keyed {
		return load(path)
	}

	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, keyError(path, ErrKeyWriteError, fmt.Errorf("generating RSA key: %w", err))
	}

	encoded := EncodePrivateKey(key)
	defer secret.Zero(encoded)
	if err := atomicfile.WriteFile(path, encoded, 0600); err != nil {
		return nil, keyError(path, ErrKeyWriteError, err)
	}
	return newKeyPair(path, key, true)
}

func newKeyPair(path string, key *rsa.PrivateKey, generated bool) (*KeyPair, error) {
	fingerprint, err := Fingerprint(&key.PublicKey)
	if err != nil {
		return nil, keyError(path, ErrKeyCorrupt, err)
	}
	return &KeyPair{
		Private:     key,
		Path:        path,
		Generated:   generated,
		Fingerprint: fingerprint,
	}, nil
}

// EncodePrivateKey returns key as a PKCS#1 "RSA PRIVATE KEY" PEM block.
// The caller should zero the result once it has been written.
func EncodePrivateKey(key *rsa.PrivateKey) []byte {
	der := x509.MarshalPKCS1PrivateKey(key)
	defer secret.Zero(der)
	return pem.EncodeToMemory(&pem.Block{Type: pemTypePKCS1, Bytes: der})
}

// ParsePrivateKey parses a PEM-encoded RSA private key in PKCS#1 or
// PKCS#8 form. Encrypted PEM blocks and non-RSA keys are rejected.
func ParsePrivateKey(data []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("no PEM block found")
	}
	defer secret.Zero(block.Bytes)

	if _, encrypted := block.Headers["Proc-Type"]; encrypted {
		return nil, errors.New("encrypted PEM keys are not supported")
	}

	var key *rsa.PrivateKey
	switch block.Type {
	case pemTypePKCS1:
		parsed, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parsing PKCS#1 key: %w", err)
		}
		key = parsed
	case pemTypePKCS8:
		parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parsing PKCS#8 key: %w", err)
		}
		rsaKey, ok := parsed.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("PKCS#8 key is %T, not RSA", parsed)
		}
		key = rsaKey
	default:
		return nil, fmt.Errorf("unexpected PEM block type %q", block.Type)
	}

	if err := key.Validate(); err != nil {
		return nil, fmt.Errorf("invalid RSA key: %w", err)
	}
	return key, nil
}

// Fingerprint returns the OpenSSH "SHA256:" fingerprint of public.
func Fingerprint(public crypto.PublicKey) (string, error) {
	sshKey, err := ssh.NewPublicKey(public)
	if err != nil {
		return "", fmt.Errorf("fingerprinting public key: %w", err)
	}
	return ssh.FingerprintSHA256(sshKey), nil
}
