// Package keyshare implements the polymorphic key-exchange dispatch layer:
// a single KeyShare interface spanning classical Diffie-Hellman curves,
// raw X25519, post-quantum KEMs, and classical+PQ hybrids. Ask a
// registry for a concrete implementation by name/id, then drive it
// through a small, uniform interface that covers both DH-shaped and
// KEM-shaped algorithms through one polymorphic Accept operation.
package keyshare

import (
	"bytes"

	"golang.org/x/crypto/cryptobyte"
)

// Alert is the small error-signalling enum surfaced by Accept/Finish.
// It mirrors the two-bucket alert taxonomy from the TLS handshake layer
// this package plugs into: failures attributable to the peer versus
// failures local to this side.
type Alert int

const (
	AlertNone Alert = iota
	AlertDecodeError
	AlertInternalError
)

func (a Alert) String() string {
	switch a {
	case AlertNone:
		return "none"
	case AlertDecodeError:
		return "decode_error"
	case AlertInternalError:
		return "internal_error"
	default:
		return "unknown_alert"
	}
}

// KeyShare is the polymorphic key-exchange dispatch interface. A single
// instance is used once: on the initiator side Offer (or Deserialize)
// arms it and Finish completes it; on the responder side Accept is called
// once on a fresh instance. Calling Offer twice, or Finish before arming,
// is a programmer error and panics rather than returning an error.
type KeyShare interface {
	// GroupID returns the wire group identifier this share was
	// constructed for.
	GroupID() uint16

	// Offer emits this side's public contribution and arms the
	// instance. Must be called at most once, and only on a fresh
	// instance.
	Offer(out *bytes.Buffer) error

	// Accept is the responder-side combined operation: it generates
	// this side's own public contribution into outPub, and derives the
	// shared secret from peerKey. For DH-shaped algorithms the default
	// behavior (embedded via offerThenFinish) is Offer followed by
	// Finish; KEM-shaped algorithms override it to encapsulate under
	// peerKey instead.
	Accept(outPub *bytes.Buffer, peerKey []byte) (secret []byte, alert Alert, err error)

	// Finish is the initiator-side completion: it derives the shared
	// secret from peerKey and this instance's armed private state.
	Finish(peerKey []byte) (secret []byte, alert Alert, err error)

	// Serialize writes group-tagged private material for session
	// resumption. Not every KeyShare supports this; unsupported
	// variants return an error.
	Serialize(out *bytes.Buffer) error

	// Deserialize restores private material written by Serialize and
	// arms the instance. The factory has already consumed the group
	// tag by the time this is called.
	Deserialize(in *cryptobyte.String) error

	// Destroy releases any private state still held by the instance,
	// zeroing it where the variant holds it in a buffer of its own (the
	// crypto/ecdh-backed variants can only drop the key reference). Call
	// it once the shared secret returned by Accept/Finish has been
	// consumed; the instance must not be used afterward.
	Destroy()
}

// offerThenFinish provides the default Accept behavior for DH-shaped
// algorithms: generate our own contribution, then derive the secret from
// the peer's. oqsKeyShare and hybridKeyShare override Accept instead of
// embedding this type, since a KEM encapsulates under the peer's key
// rather than performing a symmetric DH step.
type offerThenFinish struct {
	self interface {
		Offer(out *bytes.Buffer) error
		Finish(peerKey []byte) (secret []byte, alert Alert, err error)
	}
}

func (o offerThenFinish) Accept(outPub *bytes.Buffer, peerKey []byte) ([]byte, Alert, error) {
	if err := o.self.Offer(outPub); err != nil {
		return nil, AlertInternalError, err
	}
	return o.self.Finish(peerKey)
}

// zeroBytes securely zeros a byte slice so sensitive material does not
// linger in memory beyond its useful lifetime.
func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
