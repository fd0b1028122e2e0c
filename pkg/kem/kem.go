package kem

import "io"

// KEM is the interface for Key Encapsulation Mechanisms
type KEM interface {
	Name() string
	PublicKeySize() int
	SecretKeySize() int
	CiphertextSize() int
	SharedSecretSize() int
	GenerateKey(rng io.Reader) (publicKey, secretKey []byte, err error)
	Encapsulate(publicKey []byte, rng io.Reader) (ciphertext, sharedSecret []byte, err error)
	Decapsulate(ciphertext, secretKey []byte) (sharedSecret []byte, err error)
	ValidatePublicKey(publicKey []byte) error
}

// Get returns a KEM implementation by name
func Get(name string) KEM {
	switch name {
	case "kyber512":
		return NewKyber512()
	case "kyber768", "mlkem768":
		// mlkem768 kept as an alias for kyber768.
		return NewKyber768()
	case "kyber1024":
		return NewKyber1024()
	case "xwing":
		return NewXWing()
	case "sntrup761":
		return NewSntrup761()
	default:
		return nil
	}
}

// List returns a list of available KEM algorithm names
func List() []string {
	return []string{
		"kyber512",
		"kyber768",
		"kyber1024",
		"xwing",
		"sntrup761",
	}
}
