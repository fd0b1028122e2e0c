package keyshare

import (
	"bytes"
	"crypto/ecdh"
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"
)

// x25519KeyShare implements KeyShare over RFC 7748 X25519, again via
// crypto/ecdh so the low-order-point rejection and clamping rules live in
// one well-reviewed place instead of being reimplemented here.
type x25519KeyShare struct {
	offerThenFinish

	groupID uint16
	priv    *ecdh.PrivateKey
	armed   bool
}

func newX25519KeyShare(groupID uint16) *x25519KeyShare {
	s := &x25519KeyShare{groupID: groupID}
	s.offerThenFinish = offerThenFinish{self: s}
	return s
}

func (s *x25519KeyShare) GroupID() uint16 { return s.groupID }

func (s *x25519KeyShare) Offer(out *bytes.Buffer) error {
	if s.armed {
		panic("keyshare: Offer called twice on the same instance")
	}
	priv, err := ecdh.X25519().GenerateKey(rand.Reader)
	if err != nil {
		return fmt.Errorf("x25519 keyshare: generate key: %w", err)
	}
	s.priv = priv
	s.armed = true
	out.Write(priv.PublicKey().Bytes())
	return nil
}

func (s *x25519KeyShare) Finish(peerKey []byte) ([]byte, Alert, error) {
	if !s.armed {
		panic("keyshare: Finish called before the instance was armed")
	}
	if len(peerKey) != 32 {
		return nil, AlertDecodeError, fmt.Errorf("x25519 keyshare: peer key must be 32 bytes, got %d", len(peerKey))
	}
	pub, err := ecdh.X25519().NewPublicKey(peerKey)
	if err != nil {
		return nil, AlertDecodeError, fmt.Errorf("x25519 keyshare: invalid peer key: %w", err)
	}
	secret, err := s.priv.ECDH(pub)
	if err != nil {
		zeroBytes(secret)
		return nil, AlertDecodeError, fmt.Errorf("x25519 keyshare: ecdh failed: %w", err)
	}
	// crypto/ecdh already rejects low-order points, but the all-zero
	// output is checked explicitly here too: the contributory-behavior
	// check documents the invariant at the call site, the same way
	// BoringSSL's X25519() return-value check does, rather than trusting
	// it silently to the collaborator.
	if allZero(secret) {
		zeroBytes(secret)
		return nil, AlertDecodeError, fmt.Errorf("x25519 keyshare: shared secret is all-zero")
	}
	return secret, AlertNone, nil
}

func (s *x25519KeyShare) Serialize(out *bytes.Buffer) error {
	if !s.armed {
		panic("keyshare: Serialize called on an unarmed instance")
	}
	var b cryptobyte.Builder
	b.AddASN1Int64(int64(s.groupID))
	b.AddASN1OctetString(s.priv.Bytes())
	bs, err := b.Bytes()
	if err != nil {
		return fmt.Errorf("x25519 keyshare: serialize: %w", err)
	}
	out.Write(bs)
	return nil
}

func (s *x25519KeyShare) Deserialize(in *cryptobyte.String) error {
	if s.armed {
		panic("keyshare: Deserialize called on an already-armed instance")
	}
	var octets cryptobyte.String
	if !in.ReadASN1(&octets, cbasn1.OCTET_STRING) {
		return fmt.Errorf("x25519 keyshare: malformed private material")
	}
	priv, err := ecdh.X25519().NewPrivateKey(octets)
	if err != nil {
		return fmt.Errorf("x25519 keyshare: invalid serialized key: %w", err)
	}
	s.priv = priv
	s.armed = true
	return nil
}

// Destroy drops the armed private key, for the same reason documented
// on ecKeyShare.Destroy: crypto/ecdh.PrivateKey offers no way to zero
// its scalar in place.
func (s *x25519KeyShare) Destroy() {
	s.priv = nil
	s.armed = false
}

func allZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}
