package keyshare

import (
	"bytes"
	"crypto/ecdh"
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"
)

// ecKeyShare implements KeyShare over a NIST curve via crypto/ecdh, the
// stdlib's constant-time implementation of SEC1 point encoding and scalar
// multiplication. No third-party library in the corpus implements generic
// NIST curve arithmetic; crypto/ecdh is the idiomatic choice every Go TLS
// stack reaches for here, the same way the sibling named-group example
// (41Baloo-TLState) wraps ecdh.P256()/X25519() directly.
type ecKeyShare struct {
	offerThenFinish

	groupID uint16
	curve   ecdh.Curve
	priv    *ecdh.PrivateKey
	armed   bool
}

func newECKeyShare(groupID uint16, curve ecdh.Curve) *ecKeyShare {
	s := &ecKeyShare{groupID: groupID, curve: curve}
	s.offerThenFinish = offerThenFinish{self: s}
	return s
}

func (s *ecKeyShare) GroupID() uint16 { return s.groupID }

func (s *ecKeyShare) Offer(out *bytes.Buffer) error {
	if s.armed {
		panic("keyshare: Offer called twice on the same instance")
	}
	priv, err := s.curve.GenerateKey(rand.Reader)
	if err != nil {
		return fmt.Errorf("ec keyshare: generate key: %w", err)
	}
	s.priv = priv
	s.armed = true
	out.Write(priv.PublicKey().Bytes())
	return nil
}

func (s *ecKeyShare) Finish(peerKey []byte) ([]byte, Alert, error) {
	if !s.armed {
		panic("keyshare: Finish called before the instance was armed")
	}
	if len(peerKey) == 0 || peerKey[0] != 0x04 {
		return nil, AlertDecodeError, fmt.Errorf("ec keyshare: peer key is not SEC1 uncompressed")
	}
	pub, err := s.curve.NewPublicKey(peerKey)
	if err != nil {
		return nil, AlertDecodeError, fmt.Errorf("ec keyshare: invalid peer point: %w", err)
	}
	secret, err := s.priv.ECDH(pub)
	if err != nil {
		zeroBytes(secret)
		return nil, AlertDecodeError, fmt.Errorf("ec keyshare: ecdh failed: %w", err)
	}
	// crypto/ecdh.(*PrivateKey).ECDH already returns the left-padded
	// big-endian x-coordinate at curve bit-size precision, satisfying
	// the fixed-length shared-secret requirement with no manual padding.
	return secret, AlertNone, nil
}

func (s *ecKeyShare) Serialize(out *bytes.Buffer) error {
	if !s.armed {
		panic("keyshare: Serialize called on an unarmed instance")
	}
	scalar := s.priv.Bytes()
	padded := leftPad(scalar, curveOrderBytes(s.curve))

	var b cryptobyte.Builder
	b.AddASN1Int64(int64(s.groupID))
	b.AddASN1OctetString(padded)
	bs, err := b.Bytes()
	if err != nil {
		return fmt.Errorf("ec keyshare: serialize: %w", err)
	}
	out.Write(bs)
	return nil
}

func (s *ecKeyShare) Deserialize(in *cryptobyte.String) error {
	if s.armed {
		panic("keyshare: Deserialize called on an already-armed instance")
	}
	var octets cryptobyte.String
	if !in.ReadASN1(&octets, cbasn1.OCTET_STRING) {
		return fmt.Errorf("ec keyshare: malformed private material")
	}
	priv, err := s.curve.NewPrivateKey(octets)
	if err != nil {
		return fmt.Errorf("ec keyshare: invalid serialized scalar: %w", err)
	}
	s.priv = priv
	s.armed = true
	return nil
}

func leftPad(b []byte, size int) []byte {
	if len(b) >= size {
		return b
	}
	out := make([]byte, size)
	copy(out[size-len(b):], b)
	return out
}

// Destroy drops the armed private key. crypto/ecdh.PrivateKey keeps its
// scalar in an unexported field this package cannot reach to zero
// directly; clearing the reference is the best this side can do and
// leaves the scalar for the garbage collector instead of lingering in
// s for the rest of the process's life.
func (s *ecKeyShare) Destroy() {
	s.priv = nil
	s.armed = false
}

func curveOrderBytes(curve ecdh.Curve) int {
	switch curve {
	case ecdh.P224():
		return 28
	case ecdh.P384():
		return 48
	case ecdh.P521():
		return 66
	default:
		return 32 // P-256
	}
}
