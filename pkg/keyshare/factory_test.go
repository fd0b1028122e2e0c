package keyshare

import (
	"bytes"
	"testing"

	"github.com/pqtls/kexdispatch/pkg/namedgroup"
)

func TestCreateDispatchesByGroupKind(t *testing.T) {
	tests := []struct {
		name      string
		groupName string
		wantType  string
	}{
		{"classical NIST curve", "P-256", "*keyshare.ecKeyShare"},
		{"X25519", "X25519", "*keyshare.x25519KeyShare"},
		{"pure KEM", "kyber512", "*keyshare.oqsKeyShare"},
		{"x-wing pure KEM", "x25519_kyber768_xwing", "*keyshare.oqsKeyShare"},
		{"hybrid", "p256_kyber512", "*keyshare.hybridKeyShare"},
		{"sntrup hybrid", "sntrup761x25519", "*keyshare.hybridKeyShare"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			groupID, ok := namedgroup.NameToGroupID(tt.groupName)
			if !ok {
				t.Fatalf("namedgroup has no entry for %q", tt.groupName)
			}
			share, ok := Create(groupID)
			if !ok {
				t.Fatalf("Create(%#x) not ok for %q", groupID, tt.groupName)
			}
			if share.GroupID() != groupID {
				t.Fatalf("GroupID() = %#x, want %#x", share.GroupID(), groupID)
			}

			switch tt.wantType {
			case "*keyshare.ecKeyShare":
				if _, ok := share.(*ecKeyShare); !ok {
					t.Fatalf("got %T, want *ecKeyShare", share)
				}
			case "*keyshare.x25519KeyShare":
				if _, ok := share.(*x25519KeyShare); !ok {
					t.Fatalf("got %T, want *x25519KeyShare", share)
				}
			case "*keyshare.oqsKeyShare":
				if _, ok := share.(*oqsKeyShare); !ok {
					t.Fatalf("got %T, want *oqsKeyShare", share)
				}
			case "*keyshare.hybridKeyShare":
				if _, ok := share.(*hybridKeyShare); !ok {
					t.Fatalf("got %T, want *hybridKeyShare", share)
				}
			}
		})
	}
}

func TestCreateRejectsUnknownGroupID(t *testing.T) {
	if _, ok := Create(0xbeef); ok {
		t.Fatalf("Create(0xbeef) = ok, want not ok for unregistered group id")
	}
}

func TestCreateRejectsUnavailableGroup(t *testing.T) {
	groupID, ok := namedgroup.NameToGroupID("CECPQ2")
	if !ok {
		t.Fatalf("namedgroup has no entry for CECPQ2")
	}
	if namedgroup.Available(groupID) {
		t.Fatalf("CECPQ2 unexpectedly reports available; test assumption stale")
	}
	if _, ok := Create(groupID); ok {
		t.Fatalf("Create(%#x) = ok, want not ok for an unavailable group", groupID)
	}
}

func TestCreateFromSerializedRoundTripsECAndX25519(t *testing.T) {
	tests := []string{"P-256", "X25519"}

	for _, name := range tests {
		t.Run(name, func(t *testing.T) {
			groupID, ok := namedgroup.NameToGroupID(name)
			if !ok {
				t.Fatalf("namedgroup has no entry for %q", name)
			}

			orig, ok := Create(groupID)
			if !ok {
				t.Fatalf("Create(%#x) not ok", groupID)
			}
			var offer bytes.Buffer
			if err := orig.Offer(&offer); err != nil {
				t.Fatalf("Offer: %v", err)
			}

			peer, ok := Create(groupID)
			if !ok {
				t.Fatalf("Create(%#x) not ok (peer)", groupID)
			}
			var peerOffer bytes.Buffer
			peerSecret, _, err := peer.Accept(&peerOffer, offer.Bytes())
			if err != nil {
				t.Fatalf("peer Accept: %v", err)
			}

			var serialized bytes.Buffer
			if err := orig.Serialize(&serialized); err != nil {
				t.Fatalf("Serialize: %v", err)
			}

			restored, ok := CreateFromSerialized(ptrString(serialized.Bytes()))
			if !ok {
				t.Fatalf("CreateFromSerialized: not ok")
			}
			if restored.GroupID() != groupID {
				t.Fatalf("GroupID() = %#x, want %#x", restored.GroupID(), groupID)
			}

			restoredSecret, alert, err := restored.Finish(peerOffer.Bytes())
			if err != nil {
				t.Fatalf("Finish: %v (alert %s)", err, alert)
			}
			if !bytes.Equal(restoredSecret, peerSecret) {
				t.Fatalf("secret after deserialize = %x, want %x", restoredSecret, peerSecret)
			}

			orig.Destroy()
			peer.Destroy()
			restored.Destroy()
		})
	}
}

func TestCreateFromSerializedRejectsGarbage(t *testing.T) {
	if _, ok := CreateFromSerialized(ptrString([]byte{0xff, 0xff, 0xff})); ok {
		t.Fatalf("CreateFromSerialized(garbage) = ok, want not ok")
	}
}

func TestCreateFromSerializedRejectsOutOfRangeGroupID(t *testing.T) {
	// ASN.1 INTEGER encoding of a value larger than uint16 max (0x10000).
	oversized := []byte{0x02, 0x03, 0x01, 0x00, 0x00}
	in := ptrString(oversized)
	if _, ok := CreateFromSerialized(in); ok {
		t.Fatalf("CreateFromSerialized(oversized group id) = ok, want not ok")
	}
}
