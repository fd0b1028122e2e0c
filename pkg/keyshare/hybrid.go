package keyshare

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/cryptobyte"
)

// hybridKeyShare composes a classical KeyShare and a pure-KEM KeyShare,
// concatenating their public shares and shared secrets on the wire. The
// factory builds its classical sub-share through Create again; no
// classical group_id is ever mapped to a hybrid constructor, so that
// recursion cannot loop back into itself.
type hybridKeyShare struct {
	groupID   uint16
	classical KeyShare
	pq        KeyShare
}

func newHybridKeyShare(groupID uint16, classical, pq KeyShare) *hybridKeyShare {
	return &hybridKeyShare{groupID: groupID, classical: classical, pq: pq}
}

func (s *hybridKeyShare) GroupID() uint16 { return s.groupID }

func (s *hybridKeyShare) Offer(out *bytes.Buffer) error {
	var classicalBuf, pqBuf bytes.Buffer
	if err := s.classical.Offer(&classicalBuf); err != nil {
		return fmt.Errorf("hybrid keyshare: classical offer: %w", err)
	}
	if err := s.pq.Offer(&pqBuf); err != nil {
		return fmt.Errorf("hybrid keyshare: pq offer: %w", err)
	}
	writeHybridFrame(out, classicalBuf.Bytes(), pqBuf.Bytes())
	return nil
}

func (s *hybridKeyShare) Accept(outPub *bytes.Buffer, peerKey []byte) ([]byte, Alert, error) {
	classicalPeer, pqPeer, alert, err := splitHybridFrame(peerKey)
	if err != nil {
		return nil, alert, err
	}

	var classicalBuf, pqBuf bytes.Buffer
	classicalSecret, alert, err := s.classical.Accept(&classicalBuf, classicalPeer)
	if err != nil {
		return nil, alert, fmt.Errorf("hybrid keyshare: classical accept: %w", err)
	}
	pqSecret, alert, err := s.pq.Accept(&pqBuf, pqPeer)
	if err != nil {
		zeroBytes(classicalSecret)
		return nil, alert, fmt.Errorf("hybrid keyshare: pq accept: %w", err)
	}

	writeHybridFrame(outPub, classicalBuf.Bytes(), pqBuf.Bytes())
	return append(classicalSecret, pqSecret...), AlertNone, nil
}

func (s *hybridKeyShare) Finish(peerKey []byte) ([]byte, Alert, error) {
	classicalPeer, pqPeer, alert, err := splitHybridFrame(peerKey)
	if err != nil {
		return nil, alert, err
	}

	classicalSecret, alert, err := s.classical.Finish(classicalPeer)
	if err != nil {
		return nil, alert, fmt.Errorf("hybrid keyshare: classical finish: %w", err)
	}
	pqSecret, alert, err := s.pq.Finish(pqPeer)
	if err != nil {
		zeroBytes(classicalSecret)
		return nil, alert, fmt.Errorf("hybrid keyshare: pq finish: %w", err)
	}

	return append(classicalSecret, pqSecret...), AlertNone, nil
}

func (s *hybridKeyShare) Serialize(out *bytes.Buffer) error {
	return ErrSerializationUnsupported
}

func (s *hybridKeyShare) Deserialize(in *cryptobyte.String) error {
	return ErrSerializationUnsupported
}

// Destroy tears down both sub-shares' private state.
func (s *hybridKeyShare) Destroy() {
	s.classical.Destroy()
	s.pq.Destroy()
}

func writeHybridFrame(out *bytes.Buffer, classical, pq []byte) {
	var lenC, lenQ [2]byte
	binary.BigEndian.PutUint16(lenC[:], uint16(len(classical)))
	binary.BigEndian.PutUint16(lenQ[:], uint16(len(pq)))
	out.Write(lenC[:])
	out.Write(classical)
	out.Write(lenQ[:])
	out.Write(pq)
}

// splitHybridFrame parses u16_be(len_c) || classical || u16_be(len_q) || pq,
// rejecting any input where the two length prefixes do not exactly span
// the whole buffer -- the REDESIGN FLAG fix over the original's
// unchecked-remainder parse.
func splitHybridFrame(peerKey []byte) (classical, pq []byte, alert Alert, err error) {
	if len(peerKey) < 4 {
		return nil, nil, AlertDecodeError, fmt.Errorf("hybrid keyshare: frame too short: %d bytes", len(peerKey))
	}
	lenC := int(binary.BigEndian.Uint16(peerKey[0:2]))
	if len(peerKey) < 2+lenC+2 {
		return nil, nil, AlertDecodeError, fmt.Errorf("hybrid keyshare: classical segment overruns frame")
	}
	classical = peerKey[2 : 2+lenC]
	lenQ := int(binary.BigEndian.Uint16(peerKey[2+lenC : 2+lenC+2]))
	if 2+lenC+2+lenQ != len(peerKey) {
		return nil, nil, AlertDecodeError, fmt.Errorf("hybrid keyshare: frame length mismatch: declared %d, got %d",
			2+lenC+2+lenQ, len(peerKey))
	}
	pq = peerKey[2+lenC+2:]
	return classical, pq, AlertNone, nil
}
