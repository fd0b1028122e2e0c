package keyshare

import (
	"bytes"
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/cryptobyte"

	"github.com/pqtls/kexdispatch/pkg/kem"
)

// ErrSerializationUnsupported is returned by Serialize/Deserialize on
// KeyShare variants with no resumption support: every non-DH variant
// (pure KEM and hybrid).
var ErrSerializationUnsupported = errors.New("keyshare: serialization not supported for this group")

// oqsKeyShare implements KeyShare over a post-quantum KEM, wrapping the
// kem.KEM surface (Kyber family via circl, X-Wing, sntrup761). Unlike
// the DH-shaped shares, it
// overrides Accept directly instead of embedding offerThenFinish: the
// responder encapsulates under the initiator's public key rather than
// performing a symmetric Diffie-Hellman step. This is the asymmetry the
// polymorphic interface exists to paper over.
type oqsKeyShare struct {
	groupID uint16
	scheme  kem.KEM
	secret  []byte
	armed   bool
}

func newOQSKeyShare(groupID uint16, scheme kem.KEM) *oqsKeyShare {
	return &oqsKeyShare{groupID: groupID, scheme: scheme}
}

func (s *oqsKeyShare) GroupID() uint16 { return s.groupID }

func (s *oqsKeyShare) Offer(out *bytes.Buffer) error {
	if s.armed {
		panic("keyshare: Offer called twice on the same instance")
	}
	pub, secret, err := s.scheme.GenerateKey(rand.Reader)
	if err != nil {
		return fmt.Errorf("oqs keyshare %s: generate key: %w", s.scheme.Name(), err)
	}
	s.secret = secret
	s.armed = true
	out.Write(pub)
	return nil
}

func (s *oqsKeyShare) Accept(outPub *bytes.Buffer, peerKey []byte) ([]byte, Alert, error) {
	if len(peerKey) != s.scheme.PublicKeySize() {
		return nil, AlertDecodeError, fmt.Errorf("oqs keyshare %s: peer public key must be %d bytes, got %d",
			s.scheme.Name(), s.scheme.PublicKeySize(), len(peerKey))
	}
	if err := s.scheme.ValidatePublicKey(peerKey); err != nil {
		return nil, AlertDecodeError, fmt.Errorf("oqs keyshare %s: invalid peer public key: %w", s.scheme.Name(), err)
	}
	ciphertext, secret, err := s.scheme.Encapsulate(peerKey, rand.Reader)
	if err != nil {
		return nil, AlertInternalError, fmt.Errorf("oqs keyshare %s: encapsulate: %w", s.scheme.Name(), err)
	}
	outPub.Write(ciphertext)
	return secret, AlertNone, nil
}

func (s *oqsKeyShare) Finish(peerKey []byte) ([]byte, Alert, error) {
	if !s.armed {
		panic("keyshare: Finish called before the instance was armed")
	}
	if len(peerKey) != s.scheme.CiphertextSize() {
		return nil, AlertDecodeError, fmt.Errorf("oqs keyshare %s: ciphertext must be %d bytes, got %d",
			s.scheme.Name(), s.scheme.CiphertextSize(), len(peerKey))
	}
	secret, err := s.scheme.Decapsulate(peerKey, s.secret)
	if err != nil {
		return nil, AlertDecodeError, fmt.Errorf("oqs keyshare %s: decapsulate: %w", s.scheme.Name(), err)
	}
	return secret, AlertNone, nil
}

func (s *oqsKeyShare) Serialize(out *bytes.Buffer) error {
	return ErrSerializationUnsupported
}

func (s *oqsKeyShare) Deserialize(in *cryptobyte.String) error {
	return ErrSerializationUnsupported
}

// Destroy zeros the armed decapsulation secret.
func (s *oqsKeyShare) Destroy() {
	zeroBytes(s.secret)
	s.secret = nil
	s.armed = false
}
