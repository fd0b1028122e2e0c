package kem

import (
	"fmt"
	"io"

	"github.com/cloudflare/circl/kem"
	"github.com/cloudflare/circl/kem/schemes"
)

// Kyber implements the KEM interface over one of the three ML-KEM
// (formerly Kyber) parameter sets, parameterized by scheme name so the
// named-group registry's three Kyber entries (and their P-256, P-384,
// P-521 hybrids) share one implementation instead of three
// near-identical copies.
type Kyber struct {
	name   string
	scheme kem.Scheme
}

func newKyber(name, circlName string) *Kyber {
	return &Kyber{name: name, scheme: schemes.ByName(circlName)}
}

// NewKyber512 creates a Kyber512 (ML-KEM-512) instance.
func NewKyber512() *Kyber { return newKyber("kyber512", "Kyber512") }

// NewKyber768 creates a Kyber768 (ML-KEM-768) instance.
func NewKyber768() *Kyber { return newKyber("kyber768", "Kyber768") }

// NewKyber1024 creates a Kyber1024 (ML-KEM-1024) instance.
func NewKyber1024() *Kyber { return newKyber("kyber1024", "Kyber1024") }

func (k *Kyber) Name() string {
	return k.name
}

func (k *Kyber) PublicKeySize() int {
	return k.scheme.PublicKeySize()
}

func (k *Kyber) SecretKeySize() int {
	return k.scheme.PrivateKeySize()
}

func (k *Kyber) CiphertextSize() int {
	return k.scheme.CiphertextSize()
}

func (k *Kyber) SharedSecretSize() int {
	return k.scheme.SharedKeySize()
}

func (k *Kyber) GenerateKey(rng io.Reader) (publicKey, secretKey []byte, err error) {
	pk, sk, err := k.scheme.GenerateKeyPair()
	if err != nil {
		return nil, nil, fmt.Errorf("%s key generation failed: %w", k.name, err)
	}

	publicKey, err = pk.MarshalBinary()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal public key: %w", err)
	}

	secretKey, err = sk.MarshalBinary()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal secret key: %w", err)
	}

	return publicKey, secretKey, nil
}

func (k *Kyber) Encapsulate(publicKey []byte, rng io.Reader) (ciphertext, sharedSecret []byte, err error) {
	if len(publicKey) != k.PublicKeySize() {
		return nil, nil, fmt.Errorf("invalid public key size: got %d, want %d", len(publicKey), k.PublicKeySize())
	}

	pk, err := k.scheme.UnmarshalBinaryPublicKey(publicKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to unmarshal public key: %w", err)
	}

	ct, ss, err := k.scheme.Encapsulate(pk)
	if err != nil {
		return nil, nil, fmt.Errorf("encapsulation failed: %w", err)
	}

	return ct, ss, nil
}

func (k *Kyber) Decapsulate(ciphertext, secretKey []byte) (sharedSecret []byte, err error) {
	if len(ciphertext) != k.CiphertextSize() {
		return nil, fmt.Errorf("invalid ciphertext size: got %d, want %d", len(ciphertext), k.CiphertextSize())
	}
	if len(secretKey) != k.SecretKeySize() {
		return nil, fmt.Errorf("invalid secret key size: got %d, want %d", len(secretKey), k.SecretKeySize())
	}

	sk, err := k.scheme.UnmarshalBinaryPrivateKey(secretKey)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal secret key: %w", err)
	}

	ss, err := k.scheme.Decapsulate(sk, ciphertext)
	if err != nil {
		return nil, fmt.Errorf("decapsulation failed: %w", err)
	}

	return ss, nil
}

func (k *Kyber) ValidatePublicKey(publicKey []byte) error {
	if len(publicKey) != k.PublicKeySize() {
		return fmt.Errorf("invalid public key size: got %d, want %d", len(publicKey), k.PublicKeySize())
	}

	_, err := k.scheme.UnmarshalBinaryPublicKey(publicKey)
	if err != nil {
		return fmt.Errorf("invalid public key: %w", err)
	}

	return nil
}
