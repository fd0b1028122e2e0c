package keyshare

import (
	"bytes"
	"testing"

	"github.com/pqtls/kexdispatch/pkg/namedgroup"
)

func TestHybridKeyShareRoundTrip(t *testing.T) {
	tests := []string{
		"p256_kyber512",
		"p384_kyber768",
		"p521_kyber1024",
		"sntrup761x25519",
	}

	for _, name := range tests {
		t.Run(name, func(t *testing.T) {
			groupID, ok := namedgroup.NameToGroupID(name)
			if !ok {
				t.Fatalf("namedgroup has no entry for %q", name)
			}

			initiator, ok := Create(groupID)
			if !ok {
				t.Fatalf("Create(%#x) not ok for %q", groupID, name)
			}
			responder, ok := Create(groupID)
			if !ok {
				t.Fatalf("Create(%#x) not ok for %q (responder)", groupID, name)
			}

			var initiatorOffer bytes.Buffer
			if err := initiator.Offer(&initiatorOffer); err != nil {
				t.Fatalf("initiator Offer: %v", err)
			}

			var responderOffer bytes.Buffer
			responderSecret, alert, err := responder.Accept(&responderOffer, initiatorOffer.Bytes())
			if err != nil {
				t.Fatalf("responder Accept: %v (alert %s)", err, alert)
			}

			initiatorSecret, alert, err := initiator.Finish(responderOffer.Bytes())
			if err != nil {
				t.Fatalf("initiator Finish: %v (alert %s)", err, alert)
			}

			if !bytes.Equal(initiatorSecret, responderSecret) {
				t.Fatalf("secrets differ: initiator %x, responder %x", initiatorSecret, responderSecret)
			}

			initiator.Destroy()
			responder.Destroy()
		})
	}
}

func TestHybridKeyShareSerializeUnsupported(t *testing.T) {
	groupID, ok := namedgroup.NameToGroupID("p256_kyber512")
	if !ok {
		t.Fatalf("namedgroup has no entry for p256_kyber512")
	}
	share, ok := Create(groupID)
	if !ok {
		t.Fatalf("Create(%#x) not ok", groupID)
	}

	var out bytes.Buffer
	if err := share.Serialize(&out); err != ErrSerializationUnsupported {
		t.Fatalf("Serialize error = %v, want %v", err, ErrSerializationUnsupported)
	}
}

func TestSplitHybridFrameLengthMismatch(t *testing.T) {
	tests := []struct {
		name  string
		frame []byte
	}{
		{
			name:  "too short to hold any length prefix",
			frame: []byte{0x00},
		},
		{
			name: "classical segment overruns frame",
			// declares a 10-byte classical segment but supplies only two bytes
			frame: []byte{0x00, 0x0a, 0xaa, 0xbb},
		},
		{
			name: "declared total exceeds actual length",
			// lenC=1, one classical byte, lenQ=5 but no pq bytes follow
			frame: []byte{0x00, 0x01, 0xaa, 0x00, 0x05},
		},
		{
			name: "declared total is shorter than actual length",
			// lenC=1, one classical byte, lenQ=1 but two trailing bytes follow
			frame: []byte{0x00, 0x01, 0xaa, 0x00, 0x01, 0xbb, 0xcc},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, alert, err := splitHybridFrame(tt.frame)
			if err == nil {
				t.Fatalf("expected decode error for frame %x", tt.frame)
			}
			if alert != AlertDecodeError {
				t.Fatalf("alert = %s, want %s", alert, AlertDecodeError)
			}
		})
	}
}

func TestSplitHybridFrameRoundTrip(t *testing.T) {
	classical := []byte{1, 2, 3, 4}
	pq := []byte{5, 6, 7}

	var framed bytes.Buffer
	writeHybridFrame(&framed, classical, pq)

	gotClassical, gotPQ, alert, err := splitHybridFrame(framed.Bytes())
	if err != nil {
		t.Fatalf("splitHybridFrame: %v (alert %s)", err, alert)
	}
	if !bytes.Equal(gotClassical, classical) {
		t.Fatalf("classical = %x, want %x", gotClassical, classical)
	}
	if !bytes.Equal(gotPQ, pq) {
		t.Fatalf("pq = %x, want %x", gotPQ, pq)
	}
}
