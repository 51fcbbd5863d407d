// Copyright 2026 The Warble Authors
// SPDX-License-Identifier: Apache-2.0

package keyvault

import (
	"bytes"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"errors"
	"fmt"
)

// SelfTest exercises the crypto backend with an ephemeral bits-sized
// key: a PSS signature round trip, an OAEP encryption round trip and a
// PEM encode/parse round trip. It returns nil when every step works.
// Nothing is written to disk.
func SelfTest(bits int) error {
	if bits < MinimumBits {
		return fmt.Errorf("self-test: RSA key size %d is below the minimum of %d bits", bits, MinimumBits)
	}

	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return fmt.Errorf("self-test: generating key: %w", err)
	}

	message := []byte("warble crypto self-test")
	digest := sha256.Sum256(message)

	signature, err := rsa.SignPSS(rand.Reader, key, crypto.SHA256, digest[:], nil)
	if err != nil {
		return fmt.Errorf("self-test: signing: %w", err)
	}
	if err := rsa.VerifyPSS(&key.PublicKey, crypto.SHA256, digest[:], signature, nil); err != nil {
		return fmt.Errorf("self-test: verifying signature: %w", err)
	}
	tampered := sha256.Sum256(append(message, '!'))
	if rsa.VerifyPSS(&key.PublicKey, crypto.SHA256, tampered[:], signature, nil) == nil {
		return errors.New("self-test: signature verified over a different message")
	}

	ciphertext, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, &key.PublicKey, message, nil)
	if err != nil {
		return fmt.Errorf("self-test: encrypting: %w", err)
	}
	plaintext, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, key, ciphertext, nil)
	if err != nil {
		return fmt.Errorf("self-test: decrypting: %w", err)
	}
	if !bytes.Equal(plaintext, message) {
		return errors.New("self-test: decrypted text does not match")
	}

	encoded := EncodePrivateKey(key)
	parsed, err := ParsePrivateKey(encoded)
	if err != nil {
		return fmt.Errorf("self-test: PEM round trip: %w", err)
	}
	if !parsed.Equal(key) {
		return errors.New("self-test: PEM round trip changed the key")
	}
	return nil
}
