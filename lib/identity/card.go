// Copyright 2026 The Warble Authors
// SPDX-License-Identifier: Apache-2.0

// Package identity builds and checks the node's calling card: a signed,
// timestamped statement binding the node's application ID to its public
// key, presented to a master on first contact.
//
// A card is self-certifying. It carries the public key that signed it,
// so verification proves possession of the private key; whether that
// key belongs to a known node is for the verifier to decide from the
// fingerprint.
package identity

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"errors"
	"fmt"
	"time"

	"github.com/warble-foundation/warble/lib/codec"
	"github.com/warble-foundation/warble/lib/keyvault"
)

// signingContext is prepended to the payload in the signature input.
const signingContext = "warble.calling-card.v1\x00"

var (
	// ErrMalformedCard means the card bytes or its fields do not parse.
	ErrMalformedCard = errors.New("malformed calling card")

	// ErrBadSignature means the signature does not match the payload
	// and the enclosed public key.
	ErrBadSignature = errors.New("calling card signature is invalid")

	// ErrClockSkew means the card's issue time is too far from the
	// verifier's clock.
	ErrClockSkew = errors.New("calling card issue time outside allowed skew")
)

// Card is the content of a calling card.
type Card struct {
	AppID       string    `cbor:"appid"`
	PublicKey   []byte    `cbor:"public_key"`
	Fingerprint string    `cbor:"fingerprint"`
	Version     string    `cbor:"version"`
	IssuedAt    time.Time `cbor:"issued_at"`
}

// SignedCard is a CBOR-encoded [Card] and its RSA-PSS signature.
type SignedCard struct {
	Payload   []byte `cbor:"payload"`
	Signature []byte `cbor:"signature"`
}

// NewCard builds a card for appID and public, stamped with issuedAt.
// The caller supplies an authority-corrected time when one is known.
func NewCard(appID string, public *rsa.PublicKey, version string, issuedAt time.Time) (Card, error) {
	der, err := x509.MarshalPKIXPublicKey(public)
	if err != nil {
		return Card{}, fmt.Errorf("encoding public key: %w", err)
	}
	fingerprint, err := keyvault.Fingerprint(public)
	if err != nil {
		return Card{}, err
	}
	return Card{
		AppID:       appID,
		PublicKey:   der,
		Fingerprint: fingerprint,
		Version:     version,
		IssuedAt:    issuedAt.UTC(),
	}, nil
}

// RSAPublicKey parses the card's public key.
func (c Card) RSAPublicKey() (*rsa.PublicKey, error) {
	parsed, err := x509.ParsePKIXPublicKey(c.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: public key: %w", ErrMalformedCard, err)
	}
	public, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: public key is %T, not RSA", ErrMalformedCard, parsed)
	}
	return public, nil
}

// Sign encodes card and signs it with key, which must be the private
// half of card.PublicKey.
func Sign(card Card, key *rsa.PrivateKey) (*SignedCard, error) {
	enclosed, err := card.RSAPublicKey()
	if err != nil {
		return nil, err
	}
	if !enclosed.Equal(&key.PublicKey) {
		return nil, errors.New("signing key does not match the card's public key")
	}

	payload, err := codec.Marshal(card)
	if err != nil {
		return nil, fmt.Errorf("encoding calling card: %w", err)
	}
	digest := signatureDigest(payload)
	signature, err := rsa.SignPSS(rand.Reader, key, crypto.SHA256, digest, nil)
	if err != nil {
		return nil, fmt.Errorf("signing calling card: %w", err)
	}
	return &SignedCard{Payload: payload, Signature: signature}, nil
}

// Verify checks the signature of signed against its enclosed key and
// fingerprint, and that the issue time is within maxSkew of now. It
// returns the verified card.
func Verify(signed *SignedCard, now time.Time, maxSkew time.Duration) (Card, error) {
	var card Card
	if err := codec.UnmarshalStrict(signed.Payload, &card); err != nil {
		return Card{}, fmt.Errorf("%w: %w", ErrMalformedCard, err)
	}
	public, err := card.RSAPublicKey()
	if err != nil {
		return Card{}, err
	}
	fingerprint, err := keyvault.Fingerprint(public)
	if err != nil {
		return Card{}, fmt.Errorf("%w: %w", ErrMalformedCard, err)
	}
	if fingerprint != card.Fingerprint {
		return Card{}, fmt.Errorf("%w: fingerprint %s does not match the enclosed key (%s)",
			ErrMalformedCard, card.Fingerprint, fingerprint)
	}

	if err := rsa.VerifyPSS(public, crypto.SHA256, signatureDigest(signed.Payload), signed.Signature, nil); err != nil {
		return Card{}, fmt.Errorf("%w: %w", ErrBadSignature, err)
	}

	skew := now.Sub(card.IssuedAt)
	if skew < 0 {
		skew = -skew
	}
	if skew > maxSkew {
		return Card{}, fmt.Errorf("%w: issued %s, %s from now (limit %s)",
			ErrClockSkew, card.IssuedAt.Format(time.RFC3339), skew, maxSkew)
	}
	return card, nil
}

// Marshal encodes signed for transport.
func Marshal(signed *SignedCard) ([]byte, error) {
	return codec.Marshal(signed)
}

// Unmarshal decodes a signed card produced by [Marshal]. The payload is
// not verified.
func Unmarshal(data []byte) (*SignedCard, error) {
	var signed SignedCard
	if err := codec.UnmarshalStrict(data, &signed); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedCard, err)
	}
	return &signed, nil
}

func signatureDigest(payload []byte) []byte {
	hash := sha256.New()
	hash.Write([]byte(signingContext))
	hash.Write(payload)
	return hash.Sum(nil)
}
