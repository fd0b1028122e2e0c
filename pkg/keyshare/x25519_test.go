package keyshare

import (
	"bytes"
	"testing"
)

func TestX25519KeyShareRoundTrip(t *testing.T) {
	const groupID = 0x1d

	initiator := newX25519KeyShare(groupID)
	responder := newX25519KeyShare(groupID)

	var initiatorOffer bytes.Buffer
	if err := initiator.Offer(&initiatorOffer); err != nil {
		t.Fatalf("initiator Offer: %v", err)
	}
	if initiatorOffer.Len() != 32 {
		t.Fatalf("offer length = %d, want 32", initiatorOffer.Len())
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
}

func TestX25519KeyShareSerializeDeserializeRoundTrip(t *testing.T) {
	const groupID = 0x1d
	orig := newX25519KeyShare(groupID)

	var offer bytes.Buffer
	if err := orig.Offer(&offer); err != nil {
		t.Fatalf("Offer: %v", err)
	}
	peer := newX25519KeyShare(groupID)
	var peerOffer bytes.Buffer
	peerSecret, _, err := peer.Accept(&peerOffer, offer.Bytes())
	if err != nil {
		t.Fatalf("peer Accept: %v", err)
	}

	var serialized bytes.Buffer
	if err := orig.Serialize(&serialized); err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	share, ok := CreateFromSerialized(ptrString(serialized.Bytes()))
	if !ok {
		t.Fatalf("CreateFromSerialized: not ok")
	}
	if share.GroupID() != groupID {
		t.Fatalf("GroupID = %#x, want %#x", share.GroupID(), groupID)
	}

	restoredSecret, alert, err := share.Finish(peerOffer.Bytes())
	if err != nil {
		t.Fatalf("Finish: %v (alert %s)", err, alert)
	}
	if !bytes.Equal(restoredSecret, peerSecret) {
		t.Fatalf("secret after deserialize = %x, want %x", restoredSecret, peerSecret)
	}

	share.Destroy()
	peer.Destroy()
}

func TestX25519KeyShareFinishRejectsWrongLength(t *testing.T) {
	s := newX25519KeyShare(0x1d)
	var offer bytes.Buffer
	if err := s.Offer(&offer); err != nil {
		t.Fatalf("Offer: %v", err)
	}

	_, alert, err := s.Finish(make([]byte, 31))
	if err == nil {
		t.Fatalf("expected error for short peer key")
	}
	if alert != AlertDecodeError {
		t.Fatalf("alert = %s, want %s", alert, AlertDecodeError)
	}
}

func TestX25519KeyShareFinishRejectsAllZeroSecret(t *testing.T) {
	s := newX25519KeyShare(0x1d)
	var offer bytes.Buffer
	if err := s.Offer(&offer); err != nil {
		t.Fatalf("Offer: %v", err)
	}

	// The all-zero public key is a known low-order point; crypto/ecdh
	// rejects it outright, which already prevents the all-zero-secret
	// case from reaching the explicit check in Finish.
	_, alert, err := s.Finish(make([]byte, 32))
	if err == nil {
		t.Fatalf("expected error for low-order peer key")
	}
	if alert != AlertDecodeError {
		t.Fatalf("alert = %s, want %s", alert, AlertDecodeError)
	}
}

func TestX25519KeyShareDestroyClearsState(t *testing.T) {
	s := newX25519KeyShare(0x1d)
	var buf bytes.Buffer
	if err := s.Offer(&buf); err != nil {
		t.Fatalf("Offer: %v", err)
	}
	s.Destroy()
	if s.armed {
		t.Fatalf("armed still true after Destroy")
	}
	if s.priv != nil {
		t.Fatalf("priv not cleared after Destroy")
	}
}
